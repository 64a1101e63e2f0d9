package resolve

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/intake-match/internal/customer"
	"github.com/sells-group/intake-match/internal/match"
)

// Options configures a Workflow.
type Options struct {
	Match match.Options
	// AutoAccept lets Search land in StateAutoAccepted when the top result
	// clears Match.AutoAcceptScore. Off by default: every result list is shown.
	AutoAccept bool
}

// DefaultOptions returns the default thresholds with auto-accept off.
func DefaultOptions() Options {
	return Options{Match: match.DefaultOptions}
}

// Workflow runs resolution steps against a customer store. It keeps no
// per-session state and is safe for concurrent use if the store is.
type Workflow struct {
	store customer.Store
	opts  Options
}

// New creates a Workflow over store.
func New(store customer.Store, opts Options) *Workflow {
	return &Workflow{store: store, opts: opts}
}

// Options returns the workflow's configuration.
func (w *Workflow) Options() Options {
	return w.opts
}

// Search reads one snapshot of the candidate pool and ranks it against the
// intake.
func (w *Workflow) Search(ctx context.Context, in Intake) (Session, error) {
	s := Session{State: StateSearching, Intake: in}

	candidates, err := w.store.ListCandidates(ctx)
	if err != nil {
		return s, eris.Wrap(err, "resolve: list candidates")
	}

	s.Results = w.opts.Match.Classify(in.SearchTerm(), candidates)

	switch {
	case len(s.Results) == 0:
		s.State = StateNoMatch
	case w.opts.AutoAccept:
		if best, ok := w.opts.Match.BestOf(s.Results); ok {
			s.Best = &best
			s.State = StateAutoAccepted
		} else {
			s.State = StateAwaitingSelection
		}
	default:
		s.State = StateAwaitingSelection
	}

	zap.L().Debug("resolve: search",
		zap.String("term", in.SearchTerm()),
		zap.Int("candidates", len(candidates)),
		zap.Int("results", len(s.Results)),
		zap.String("state", string(s.State)),
	)
	return s, nil
}

// Select picks one of the session's results and compares its stored contact
// fields against the intake. Nothing is written.
func (w *Workflow) Select(s Session, customerID string) (Session, error) {
	if err := s.expect("select", StateAwaitingSelection, StateAutoAccepted); err != nil {
		return s, err
	}
	r, ok := s.candidate(customerID)
	if !ok {
		return s, eris.Wrapf(ErrUnknownCandidate, "customer %q", customerID)
	}

	next := s
	next.State = StateSelected
	next.Best = nil
	picked := r.Customer
	next.Selected = &picked

	cs := match.DetectChanges(s.Intake.Fields, picked.Contact())
	if !cs.HasChanges {
		next.Changes = nil
		return resolved(next, OutcomeSelectedUnchanged, &picked), nil
	}

	next.Changes = &cs
	next.State = StateAwaitingChangeConfirmation
	zap.L().Debug("resolve: changes detected",
		zap.String("customer_id", picked.ID),
		zap.Any("fields", cs.ChangedFields),
	)
	return next, nil
}

// CreateNew creates a customer from the intake. On a store failure the
// session is returned unchanged so the decision can be retried.
func (w *Workflow) CreateNew(ctx context.Context, s Session) (Session, error) {
	if err := s.expect("create", StateNoMatch, StateAwaitingSelection, StateAutoAccepted); err != nil {
		return s, err
	}
	if err := customer.ValidateCreate(s.Intake.Fields); err != nil {
		return s, err
	}

	rec, err := w.store.CreateCustomer(ctx, s.Intake.Fields)
	if err != nil {
		return s, storeErr(err, "resolve: create customer")
	}

	next := s
	next.State = StateCreating
	next.Best = nil
	zap.L().Info("resolve: customer created",
		zap.String("customer_id", rec.ID),
		zap.String("company", rec.CompanyName),
	)
	return resolved(next, OutcomeCreated, rec), nil
}

// ConfirmUpdate writes the changes between the intake and the selected
// customer, recomputed from those two rather than taken from s.Changes. On a
// store failure the session is returned unchanged.
func (w *Workflow) ConfirmUpdate(ctx context.Context, s Session) (Session, error) {
	if err := s.expect("confirm update", StateAwaitingChangeConfirmation); err != nil {
		return s, err
	}
	if s.Selected == nil {
		return s, eris.Wrap(ErrInvalidTransition, "confirm update: session has no selection")
	}

	// The session may have travelled through a client; only what the intake
	// actually changes is written.
	cs := match.DetectChanges(s.Intake.Fields, s.Selected.Contact())
	if !cs.HasChanges {
		return s, eris.Wrap(ErrInvalidTransition, "confirm update: session has no pending changes")
	}

	rec, err := w.store.UpdateCustomer(ctx, s.Selected.ID, cs.Fields())
	if err != nil {
		return s, storeErr(err, "resolve: update customer")
	}

	zap.L().Info("resolve: customer updated",
		zap.String("customer_id", rec.ID),
		zap.Any("fields", cs.ChangedFields),
	)
	next := s
	next.Changes = &cs
	return resolved(next, OutcomeSelectedUpdated, rec), nil
}

// KeepExisting resolves with the selected record as stored, discarding the
// detected changes.
func (w *Workflow) KeepExisting(s Session) (Session, error) {
	if err := s.expect("keep existing", StateAwaitingChangeConfirmation); err != nil {
		return s, err
	}
	return resolved(s, OutcomeSelectedUnchanged, s.Selected), nil
}

// Cancel aborts a session from any non-terminal state. All in-progress
// state is dropped and the store is not touched.
func (w *Workflow) Cancel(s Session) (Session, error) {
	if s.Terminal() {
		return s, eris.Wrapf(ErrInvalidTransition, "cancel from %s", s.State)
	}
	return Session{
		State:   StateResolved,
		Outcome: OutcomeAborted,
		Intake:  s.Intake,
	}, nil
}

func resolved(s Session, outcome Outcome, rec *customer.Record) Session {
	s.State = StateResolved
	s.Outcome = outcome
	s.Customer = rec
	return s
}

// storeErr makes sure a store failure is reported as customer.ErrStoreWrite
// whatever the store implementation returned.
func storeErr(err error, msg string) error {
	if errors.Is(err, customer.ErrStoreWrite) || errors.Is(err, customer.ErrCompanyNameRequired) {
		return eris.Wrap(err, msg)
	}
	return customer.WriteError(err, msg)
}
