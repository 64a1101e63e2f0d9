package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/intake-match/internal/customer"
	"github.com/sells-group/intake-match/internal/intake"
	"github.com/sells-group/intake-match/internal/resolve"
)

var (
	resolveFile        string
	resolveSheet       string
	resolveDryRun      bool
	resolveInteractive bool
	resolveOutput      string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve every row of an intake file to a customer",
	Long: "Runs the resolution workflow for each intake row in file order. Without --interactive, " +
		"the top result is selected when it reaches match.auto_accept_score and a new customer is " +
		"created otherwise; detected contact changes are applied.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		rows, err := intake.ReadFile(resolveFile, intake.Options{Sheet: resolveSheet})
		if err != nil {
			return err
		}

		var store customer.Store
		store, err = openStore(ctx, "resolve")
		if err != nil {
			return err
		}
		if resolveDryRun {
			store = resolve.NewDryRunStore(store)
		}
		defer store.Close() //nolint:errcheck

		var decider resolve.Decider = resolve.AutoAcceptDecider{Options: matchOptions()}
		if resolveInteractive {
			decider = newPromptDecider(cmd.InOrStdin(), cmd.ErrOrStderr())
		}

		wf := resolve.New(store, workflowOptions())
		results, err := resolveRows(ctx, wf, rows, decider)
		if err != nil {
			return err
		}
		return writeReport(cmd.OutOrStdout(), resolveOutput, results)
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveFile, "file", "", "intake CSV or XLSX file (required)")
	resolveCmd.Flags().StringVar(&resolveSheet, "sheet", "", "XLSX sheet name (default first sheet)")
	resolveCmd.Flags().BoolVar(&resolveDryRun, "dry-run", false, "resolve without writing to the store")
	resolveCmd.Flags().BoolVar(&resolveInteractive, "interactive", false, "prompt for each decision on stdin")
	resolveCmd.Flags().StringVar(&resolveOutput, "output", "", "write the JSON report to this file instead of stdout")
	_ = resolveCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(resolveCmd)
}

// rowResolution is the outcome of resolving one intake row.
type rowResolution struct {
	Line        int             `json:"line"`
	CompanyName string          `json:"company_name"`
	State       resolve.State   `json:"state"`
	Outcome     resolve.Outcome `json:"outcome,omitempty"`
	CustomerID  string          `json:"customer_id,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// resolveRows resolves rows one at a time so that a customer created for one
// row is a candidate for the next. A failed row is reported and skipped; only
// cancellation stops the run.
func resolveRows(ctx context.Context, wf *resolve.Workflow, rows []intake.Row, d resolve.Decider) ([]rowResolution, error) {
	out := make([]rowResolution, 0, len(rows))
	counts := make(map[resolve.Outcome]int)
	var failed int

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		log := zap.L().With(zap.Int("line", row.Line), zap.String("company", row.CompanyName))

		sess, err := wf.Run(ctx, resolve.Intake{Fields: row.Fields()}, d)
		res := rowResolution{
			Line:        row.Line,
			CompanyName: row.CompanyName,
			State:       sess.State,
			Outcome:     sess.Outcome,
		}
		if sess.Customer != nil {
			res.CustomerID = sess.Customer.ID
		}
		if err != nil {
			failed++
			res.Error = err.Error()
			log.Error("resolve: row failed", zap.Error(err))
		} else {
			counts[sess.Outcome]++
			log.Debug("resolve: row resolved", zap.String("outcome", string(sess.Outcome)))
		}
		out = append(out, res)
	}

	zap.L().Info("resolve: batch complete",
		zap.Int("total", len(rows)),
		zap.Int("created", counts[resolve.OutcomeCreated]),
		zap.Int("selected_unchanged", counts[resolve.OutcomeSelectedUnchanged]),
		zap.Int("selected_updated", counts[resolve.OutcomeSelectedUpdated]),
		zap.Int("aborted", counts[resolve.OutcomeAborted]),
		zap.Int("failed", failed),
	)
	return out, nil
}
