// Package resolve drives one intake through search, candidate selection and
// change confirmation. Every step takes and returns an explicit Session so a
// caller can pause between steps for as long as a human needs to decide.
package resolve

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/intake-match/internal/customer"
	"github.com/sells-group/intake-match/internal/match"
)

// State is a step of the resolution workflow.
type State string

const (
	// StateSearching is held only while the candidate pool is classified.
	StateSearching State = "searching"
	// StateNoMatch means the search produced no results; only create or
	// cancel remain.
	StateNoMatch State = "no_match"
	// StateAutoAccepted means the top result cleared the auto-accept score and
	// auto-accept is enabled. The ranked list is still attached.
	StateAutoAccepted State = "auto_accepted"
	// StateAwaitingSelection waits for a candidate pick or create-new.
	StateAwaitingSelection State = "awaiting_selection"
	// StateCreating is held only while the store creates the record.
	StateCreating State = "creating"
	// StateSelected is held only while the chosen record is compared.
	StateSelected State = "selected"
	// StateAwaitingChangeConfirmation waits for update, keep or cancel.
	StateAwaitingChangeConfirmation State = "awaiting_change_confirmation"
	// StateResolved is terminal; Outcome says how.
	StateResolved State = "resolved"
)

// Outcome records how a resolved session ended.
type Outcome string

// Outcomes.
const (
	OutcomeCreated           Outcome = "created"
	OutcomeSelectedUnchanged Outcome = "selected_unchanged"
	OutcomeSelectedUpdated   Outcome = "selected_updated"
	OutcomeAborted           Outcome = "aborted"
)

var (
	// ErrInvalidTransition is returned when an operation is not allowed from
	// the session's current state.
	ErrInvalidTransition = eris.New("resolve: invalid transition")

	// ErrUnknownCandidate is returned by Select for an id that is not among
	// the session's results.
	ErrUnknownCandidate = eris.New("resolve: unknown candidate")
)

// Intake is the freshly entered data being resolved. Term overrides the
// search term, which otherwise is the company name; an email address as the
// term enables the domain bonus.
type Intake struct {
	Term string `json:"term,omitempty"`
	customer.Fields
}

// SearchTerm returns the text the candidate pool is ranked against.
func (in Intake) SearchTerm() string {
	if t := strings.TrimSpace(in.Term); t != "" {
		return t
	}
	return in.CompanyName
}

// Session is the full state of one resolution. It holds no store handles and
// round-trips through JSON unchanged.
type Session struct {
	State   State   `json:"state"`
	Outcome Outcome `json:"outcome,omitempty"`
	Intake  Intake  `json:"intake"`

	// Results is the ranked list from the search snapshot.
	Results []match.Result `json:"results,omitempty"`
	// Best is the auto-accept candidate, set only in StateAutoAccepted.
	Best *match.Result `json:"best,omitempty"`
	// Selected is the record the user picked.
	Selected *customer.Record `json:"selected,omitempty"`
	// Changes compares the intake against Selected.
	Changes *match.ChangeSet `json:"changes,omitempty"`
	// Customer is the record the session resolved to: created, updated or
	// selected as-is.
	Customer *customer.Record `json:"customer,omitempty"`
}

// Terminal reports whether the session has resolved.
func (s Session) Terminal() bool {
	return s.State == StateResolved
}

// Groups buckets the session's results for display.
func (s Session) Groups() match.Groups {
	return match.GroupByType(s.Results)
}

// candidate looks up a result by customer id.
func (s Session) candidate(id string) (match.Result, bool) {
	for _, r := range s.Results {
		if r.Customer.ID == id {
			return r, true
		}
	}
	return match.Result{}, false
}

// expect returns ErrInvalidTransition unless the session is in one of the
// allowed states.
func (s Session) expect(op string, allowed ...State) error {
	for _, st := range allowed {
		if s.State == st {
			return nil
		}
	}
	return eris.Wrapf(ErrInvalidTransition, "%s from %s", op, s.State)
}
