package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/intake-match/internal/customer"
	"github.com/sells-group/intake-match/internal/match"
	"github.com/sells-group/intake-match/internal/resolve"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the matching and resolution API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store, err := openStore(ctx, "serve")
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		wf := resolve.New(store, workflowOptions())
		mux := buildMux(wf, store, cfg.Server.CORSOrigins)

		return startServer(ctx, mux, resolvePort(servePort, cfg.Server.Port))
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// resolvePort prefers the flag value over the configured port.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return cfgPort
}

// startServer serves handler until ctx is done, then shuts down gracefully.
func startServer(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server listen")
	}
	return nil
}

// server holds the API's dependencies.
type server struct {
	wf    *resolve.Workflow
	store customer.Store
}

// buildMux wires the API routes. Resolution sessions are held by the client:
// every step posts the session it got back from the previous one.
func buildMux(wf *resolve.Workflow, store customer.Store, origins []string) http.Handler {
	s := &server{wf: wf, store: store}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/match", s.handleMatch)
		r.Post("/changes", s.handleChanges)
		r.Route("/resolve", func(r chi.Router) {
			r.Post("/search", s.handleSearch)
			r.Post("/select", s.step(func(_ context.Context, req stepRequest) (resolve.Session, error) {
				return s.wf.Select(req.Session, req.CustomerID)
			}))
			r.Post("/create", s.step(func(ctx context.Context, req stepRequest) (resolve.Session, error) {
				return s.wf.CreateNew(ctx, req.Session)
			}))
			r.Post("/confirm", s.step(func(ctx context.Context, req stepRequest) (resolve.Session, error) {
				return s.wf.ConfirmUpdate(ctx, req.Session)
			}))
			r.Post("/keep", s.step(func(_ context.Context, req stepRequest) (resolve.Session, error) {
				return s.wf.KeepExisting(req.Session)
			}))
			r.Post("/cancel", s.step(func(_ context.Context, req stepRequest) (resolve.Session, error) {
				return s.wf.Cancel(req.Session)
			}))
		})
	})

	return r
}

type matchRequest struct {
	Term string `json:"term"`
	// Candidates replaces the store's pool when set.
	Candidates []customer.Record `json:"candidates,omitempty"`
}

type matchResponse struct {
	Term    string         `json:"term"`
	Results []match.Result `json:"results"`
	Groups  match.Groups   `json:"groups"`
	Best    *match.Result  `json:"best,omitempty"`
}

func (s *server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Term) == "" {
		writeError(w, http.StatusBadRequest, "term is required")
		return
	}

	candidates := req.Candidates
	if candidates == nil {
		var err error
		candidates, err = s.store.ListCandidates(r.Context())
		if err != nil {
			failRequest(w, r, err)
			return
		}
	}

	opts := s.wf.Options().Match
	results := opts.Classify(req.Term, candidates)
	if results == nil {
		results = []match.Result{}
	}
	resp := matchResponse{
		Term:    req.Term,
		Results: results,
		Groups:  match.GroupByType(results),
	}
	if best, ok := opts.BestOf(results); ok {
		resp.Best = &best
	}
	writeJSON(w, http.StatusOK, resp)
}

type changesRequest struct {
	Submitted customer.Fields `json:"submitted"`
	Existing  customer.Fields `json:"existing"`
}

func (s *server) handleChanges(w http.ResponseWriter, r *http.Request) {
	var req changesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, match.DetectChanges(req.Submitted, req.Existing))
}

type sessionResponse struct {
	Session resolve.Session `json:"session"`
	Groups  match.Groups    `json:"groups"`
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var in resolve.Intake
	if !decodeBody(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.SearchTerm()) == "" {
		writeError(w, http.StatusBadRequest, "term or company_name is required")
		return
	}

	sess, err := s.wf.Search(r.Context(), in)
	if err != nil {
		failRequest(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: sess, Groups: sess.Groups()})
}

type stepRequest struct {
	Session    resolve.Session `json:"session"`
	CustomerID string          `json:"customer_id,omitempty"`
}

// step adapts one workflow operation to a handler.
func (s *server) step(op func(context.Context, stepRequest) (resolve.Session, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req stepRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Session.State == "" {
			writeError(w, http.StatusBadRequest, "session is required")
			return
		}

		sess, err := op(r.Context(), req)
		if err != nil {
			failRequest(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{Session: sess, Groups: sess.Groups()})
	}
}

// statusFor maps workflow and store errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, resolve.ErrInvalidTransition), errors.Is(err, resolve.ErrUnknownCandidate):
		return http.StatusConflict
	case errors.Is(err, customer.ErrCompanyNameRequired):
		return http.StatusUnprocessableEntity
	case errors.Is(err, customer.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, customer.ErrStoreWrite):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func failRequest(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	zap.L().Warn("serve: request failed",
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	)
	writeError(w, status, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("serve: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
