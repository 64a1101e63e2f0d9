package resolve

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/intake-match/internal/match"
)

// Action is a decision taken at an interactive step.
type Action string

// Actions. Select and Create answer ChooseCandidate; Update and Keep answer
// ConfirmChanges; Cancel answers either.
const (
	ActionSelect Action = "select"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionKeep   Action = "keep"
	ActionCancel Action = "cancel"
)

// ErrUnsupportedAction is returned by Run when a Decider answers a step with
// an action that does not apply to it.
var ErrUnsupportedAction = eris.New("resolve: unsupported action")

// Decider answers the interactive steps of a session without a human.
type Decider interface {
	// ChooseCandidate is asked in StateNoMatch and StateAwaitingSelection. It
	// returns ActionSelect with a customer id, ActionCreate or ActionCancel.
	ChooseCandidate(ctx context.Context, s Session) (Action, string, error)
	// ConfirmChanges is asked in StateAwaitingChangeConfirmation. It returns
	// ActionUpdate, ActionKeep or ActionCancel.
	ConfirmChanges(ctx context.Context, s Session) (Action, error)
}

// AutoAcceptDecider picks the top result when it clears the auto-accept score
// and creates a new customer otherwise. Detected changes are always applied.
type AutoAcceptDecider struct {
	Options match.Options
}

// ChooseCandidate implements Decider.
func (d AutoAcceptDecider) ChooseCandidate(_ context.Context, s Session) (Action, string, error) {
	if best, ok := d.Options.BestOf(s.Results); ok {
		return ActionSelect, best.Customer.ID, nil
	}
	return ActionCreate, "", nil
}

// ConfirmChanges implements Decider.
func (d AutoAcceptDecider) ConfirmChanges(context.Context, Session) (Action, error) {
	return ActionUpdate, nil
}

// Run drives a session from search to resolution, asking d at each
// interactive step. An auto-accepted session selects its best result without
// asking. On error the last good session is returned with it.
func (w *Workflow) Run(ctx context.Context, in Intake, d Decider) (Session, error) {
	s, err := w.Search(ctx, in)
	if err != nil {
		return s, err
	}

	for !s.Terminal() {
		if err := ctx.Err(); err != nil {
			return s, eris.Wrap(err, "resolve: run")
		}

		var next Session
		switch s.State {
		case StateAutoAccepted:
			next, err = w.Select(s, s.Best.Customer.ID)
		case StateNoMatch, StateAwaitingSelection:
			next, err = w.choose(ctx, s, d)
		case StateAwaitingChangeConfirmation:
			next, err = w.confirm(ctx, s, d)
		default:
			err = eris.Wrapf(ErrInvalidTransition, "run from %s", s.State)
		}
		if err != nil {
			return s, err
		}
		s = next
	}

	zap.L().Debug("resolve: run complete",
		zap.String("term", in.SearchTerm()),
		zap.String("outcome", string(s.Outcome)),
	)
	return s, nil
}

func (w *Workflow) choose(ctx context.Context, s Session, d Decider) (Session, error) {
	action, id, err := d.ChooseCandidate(ctx, s)
	if err != nil {
		return s, eris.Wrap(err, "resolve: choose candidate")
	}
	switch action {
	case ActionSelect:
		return w.Select(s, id)
	case ActionCreate:
		return w.CreateNew(ctx, s)
	case ActionCancel:
		return w.Cancel(s)
	default:
		return s, eris.Wrapf(ErrUnsupportedAction, "%q in %s", action, s.State)
	}
}

func (w *Workflow) confirm(ctx context.Context, s Session, d Decider) (Session, error) {
	action, err := d.ConfirmChanges(ctx, s)
	if err != nil {
		return s, eris.Wrap(err, "resolve: confirm changes")
	}
	switch action {
	case ActionUpdate:
		return w.ConfirmUpdate(ctx, s)
	case ActionKeep:
		return w.KeepExisting(s)
	case ActionCancel:
		return w.Cancel(s)
	default:
		return s, eris.Wrapf(ErrUnsupportedAction, "%q in %s", action, s.State)
	}
}
