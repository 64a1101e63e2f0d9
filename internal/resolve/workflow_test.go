package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/intake-match/internal/customer"
	"github.com/sells-group/intake-match/internal/match"
)

func testPool() []customer.Record {
	return []customer.Record{
		{ID: "c-1", CompanyName: "Acme Corp", ContactPerson: "Ann", Email: "info@acme.com", Phone: "555-0100"},
		{ID: "c-2", CompanyName: "Acme Trading"},
		{ID: "c-3", CompanyName: "Globex"},
	}
}

func newTestWorkflow(t *testing.T, opts Options) (*Workflow, *mockStore) {
	t.Helper()
	st := &mockStore{}
	st.On("ListCandidates", mock.Anything).Return(testPool(), nil)
	return New(st, opts), st
}

func acmeIntake(email string) Intake {
	return Intake{Fields: customer.Fields{CompanyName: "Acme Corp", Email: email}}
}

func TestSearch_NoMatch(t *testing.T) {
	w, _ := newTestWorkflow(t, DefaultOptions())

	s, err := w.Search(context.Background(), Intake{Fields: customer.Fields{CompanyName: "Zzyzx Ventures"}})
	require.NoError(t, err)
	assert.Equal(t, StateNoMatch, s.State)
	assert.Empty(t, s.Results)
}

func TestSearch_AlwaysShowsListByDefault(t *testing.T) {
	w, _ := newTestWorkflow(t, DefaultOptions())

	s, err := w.Search(context.Background(), acmeIntake(""))
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingSelection, s.State)
	assert.Nil(t, s.Best)
	require.NotEmpty(t, s.Results)
	assert.Equal(t, "c-1", s.Results[0].Customer.ID)
}

func TestSearch_AutoAccept(t *testing.T) {
	opts := DefaultOptions()
	opts.AutoAccept = true
	w, _ := newTestWorkflow(t, opts)

	s, err := w.Search(context.Background(), acmeIntake(""))
	require.NoError(t, err)
	assert.Equal(t, StateAutoAccepted, s.State)
	require.NotNil(t, s.Best)
	assert.Equal(t, "c-1", s.Best.Customer.ID)
	assert.NotEmpty(t, s.Results)
}

func TestSearch_AutoAcceptBelowScore(t *testing.T) {
	opts := DefaultOptions()
	opts.AutoAccept = true
	w, _ := newTestWorkflow(t, opts)

	// "acme c" only prefixes "Acme Corp", scoring 87.
	s, err := w.Search(context.Background(), Intake{Term: "acme c"})
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingSelection, s.State)
	assert.Nil(t, s.Best)
}

func TestSearch_TermOverridesCompanyName(t *testing.T) {
	w, _ := newTestWorkflow(t, DefaultOptions())

	s, err := w.Search(context.Background(), Intake{Term: "Globex", Fields: customer.Fields{CompanyName: "Acme Corp"}})
	require.NoError(t, err)
	require.NotEmpty(t, s.Results)
	assert.Equal(t, "c-3", s.Results[0].Customer.ID)
}

func TestSearch_ListError(t *testing.T) {
	st := &mockStore{}
	st.On("ListCandidates", mock.Anything).Return(nil, errors.New("connection reset"))
	w := New(st, DefaultOptions())

	_, err := w.Search(context.Background(), acmeIntake(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolve: list candidates")
}

func TestSelect_Unchanged(t *testing.T) {
	w, _ := newTestWorkflow(t, DefaultOptions())
	s, err := w.Search(context.Background(), acmeIntake(" INFO@acme.com "))
	require.NoError(t, err)

	s, err = w.Select(s, "c-1")
	require.NoError(t, err)
	assert.Equal(t, StateResolved, s.State)
	assert.Equal(t, OutcomeSelectedUnchanged, s.Outcome)
	require.NotNil(t, s.Customer)
	assert.Equal(t, "c-1", s.Customer.ID)
	assert.Nil(t, s.Changes)
}

func TestSelect_WithChanges(t *testing.T) {
	w, _ := newTestWorkflow(t, DefaultOptions())
	s, err := w.Search(context.Background(), acmeIntake("new@acme.com"))
	require.NoError(t, err)

	s, err = w.Select(s, "c-1")
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingChangeConfirmation, s.State)
	require.NotNil(t, s.Changes)
	assert.Equal(t, []match.Field{match.FieldEmail}, s.Changes.ChangedFields)
	assert.Equal(t, "info@acme.com", s.Changes.OldValues[match.FieldEmail])
	assert.Nil(t, s.Customer)
}

func TestSelect_UnknownCandidate(t *testing.T) {
	w, _ := newTestWorkflow(t, DefaultOptions())
	s, err := w.Search(context.Background(), acmeIntake(""))
	require.NoError(t, err)

	// c-3 exists in the store but not in this search's results.
	got, err := w.Select(s, "c-3")
	assert.ErrorIs(t, err, ErrUnknownCandidate)
	assert.Equal(t, s.State, got.State)
}

func TestSelect_FromAutoAccepted(t *testing.T) {
	opts := DefaultOptions()
	opts.AutoAccept = true
	w, _ := newTestWorkflow(t, opts)
	s, err := w.Search(context.Background(), acmeIntake(""))
	require.NoError(t, err)
	require.Equal(t, StateAutoAccepted, s.State)

	s, err = w.Select(s, s.Best.Customer.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSelectedUnchanged, s.Outcome)
	assert.Nil(t, s.Best)
}

func TestConfirmUpdate(t *testing.T) {
	w, st := newTestWorkflow(t, DefaultOptions())
	updated := &customer.Record{ID: "c-1", CompanyName: "Acme Corp", Email: "new@acme.com"}
	st.On("UpdateCustomer", mock.Anything, "c-1", customer.Fields{Email: "new@acme.com"}).Return(updated, nil)

	s, err := w.Search(context.Background(), acmeIntake("new@acme.com"))
	require.NoError(t, err)
	s, err = w.Select(s, "c-1")
	require.NoError(t, err)

	s, err = w.ConfirmUpdate(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, StateResolved, s.State)
	assert.Equal(t, OutcomeSelectedUpdated, s.Outcome)
	assert.Equal(t, "new@acme.com", s.Customer.Email)
	st.AssertExpectations(t)
}

func TestConfirmUpdate_StoreFailureKeepsSession(t *testing.T) {
	w, st := newTestWorkflow(t, DefaultOptions())
	st.On("UpdateCustomer", mock.Anything, "c-1", mock.Anything).Return(nil, errors.New("timeout"))

	s, err := w.Search(context.Background(), acmeIntake("new@acme.com"))
	require.NoError(t, err)
	pending, err := w.Select(s, "c-1")
	require.NoError(t, err)

	got, err := w.ConfirmUpdate(context.Background(), pending)
	require.Error(t, err)
	assert.ErrorIs(t, err, customer.ErrStoreWrite)
	assert.Equal(t, pending, got)
}

func TestConfirmUpdate_StaleSelection(t *testing.T) {
	w, st := newTestWorkflow(t, DefaultOptions())
	st.On("UpdateCustomer", mock.Anything, "c-1", mock.Anything).
		Return(nil, customer.WriteError(customer.ErrNotFound, "sqlite: update customer"))

	s, _ := w.Search(context.Background(), acmeIntake("new@acme.com"))
	s, _ = w.Select(s, "c-1")

	_, err := w.ConfirmUpdate(context.Background(), s)
	assert.ErrorIs(t, err, customer.ErrStoreWrite)
	assert.ErrorIs(t, err, customer.ErrNotFound)
}

func TestConfirmUpdate_RecomputesChanges(t *testing.T) {
	w, st := newTestWorkflow(t, DefaultOptions())
	updated := &customer.Record{ID: "c-1", CompanyName: "Acme Corp", Email: "new@acme.com"}
	st.On("UpdateCustomer", mock.Anything, "c-1", customer.Fields{Email: "new@acme.com"}).Return(updated, nil)

	s, err := w.Search(context.Background(), acmeIntake("new@acme.com"))
	require.NoError(t, err)
	s, err = w.Select(s, "c-1")
	require.NoError(t, err)

	// A client-edited change set cannot add values the intake never had.
	s.Changes.NewValues[match.FieldPhone] = "000"
	s.Changes.NewValues[match.FieldEmail] = "attacker@evil.com"
	s.Changes.ChangedFields = append(s.Changes.ChangedFields, match.FieldPhone)

	s, err = w.ConfirmUpdate(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSelectedUpdated, s.Outcome)
	assert.Equal(t, []match.Field{match.FieldEmail}, s.Changes.ChangedFields)
	assert.Equal(t, "new@acme.com", s.Changes.NewValues[match.FieldEmail])
	st.AssertExpectations(t)
}

func TestConfirmUpdate_NothingToWrite(t *testing.T) {
	w, st := newTestWorkflow(t, DefaultOptions())

	s, err := w.Search(context.Background(), acmeIntake("new@acme.com"))
	require.NoError(t, err)
	s, err = w.Select(s, "c-1")
	require.NoError(t, err)

	// The intake now agrees with the stored record.
	s.Intake.Email = "info@acme.com"

	got, err := w.ConfirmUpdate(context.Background(), s)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, s, got)
	st.AssertNotCalled(t, "UpdateCustomer", mock.Anything, mock.Anything, mock.Anything)
}

func TestKeepExisting(t *testing.T) {
	w, st := newTestWorkflow(t, DefaultOptions())
	s, _ := w.Search(context.Background(), acmeIntake("new@acme.com"))
	s, _ = w.Select(s, "c-1")

	s, err := w.KeepExisting(s)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSelectedUnchanged, s.Outcome)
	assert.Equal(t, "info@acme.com", s.Customer.Email)
	st.AssertNotCalled(t, "UpdateCustomer", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateNew(t *testing.T) {
	w, st := newTestWorkflow(t, DefaultOptions())
	in := Intake{Fields: customer.Fields{CompanyName: "Zzyzx Ventures", Phone: "555"}}
	st.On("CreateCustomer", mock.Anything, in.Fields).
		Return(&customer.Record{ID: "c-9", CompanyName: "Zzyzx Ventures", Phone: "555"}, nil)

	s, err := w.Search(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, StateNoMatch, s.State)

	s, err = w.CreateNew(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, StateResolved, s.State)
	assert.Equal(t, OutcomeCreated, s.Outcome)
	assert.Equal(t, "c-9", s.Customer.ID)
}

func TestCreateNew_FromAwaitingSelection(t *testing.T) {
	w, st := newTestWorkflow(t, DefaultOptions())
	st.On("CreateCustomer", mock.Anything, mock.Anything).Return(&customer.Record{ID: "c-9"}, nil)

	s, _ := w.Search(context.Background(), acmeIntake(""))
	require.Equal(t, StateAwaitingSelection, s.State)

	s, err := w.CreateNew(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, s.Outcome)
}

func TestCreateNew_StoreFailureKeepsSession(t *testing.T) {
	w, st := newTestWorkflow(t, DefaultOptions())
	st.On("CreateCustomer", mock.Anything, mock.Anything).Return(nil, errors.New("disk full"))

	s, _ := w.Search(context.Background(), Intake{Fields: customer.Fields{CompanyName: "Zzyzx Ventures"}})

	got, err := w.CreateNew(context.Background(), s)
	assert.ErrorIs(t, err, customer.ErrStoreWrite)
	assert.Equal(t, s, got)
	assert.Equal(t, StateNoMatch, got.State)
}

func TestCreateNew_RequiresCompanyName(t *testing.T) {
	w, st := newTestWorkflow(t, DefaultOptions())

	s, err := w.Search(context.Background(), Intake{Term: "info@nowhere.test"})
	require.NoError(t, err)
	require.Equal(t, StateNoMatch, s.State)

	_, err = w.CreateNew(context.Background(), s)
	assert.ErrorIs(t, err, customer.ErrCompanyNameRequired)
	st.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything)
}

func TestInvalidTransitions(t *testing.T) {
	w, _ := newTestWorkflow(t, DefaultOptions())
	ctx := context.Background()

	selecting := Session{State: StateAwaitingSelection}
	noMatch := Session{State: StateNoMatch}
	done := Session{State: StateResolved, Outcome: OutcomeCreated}

	_, err := w.ConfirmUpdate(ctx, selecting)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = w.KeepExisting(selecting)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = w.Select(noMatch, "c-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = w.CreateNew(ctx, done)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = w.Cancel(done)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancel(t *testing.T) {
	w, st := newTestWorkflow(t, DefaultOptions())
	s, _ := w.Search(context.Background(), acmeIntake("new@acme.com"))
	s, _ = w.Select(s, "c-1")
	require.Equal(t, StateAwaitingChangeConfirmation, s.State)

	s, err := w.Cancel(s)
	require.NoError(t, err)
	assert.Equal(t, StateResolved, s.State)
	assert.Equal(t, OutcomeAborted, s.Outcome)
	assert.Nil(t, s.Selected)
	assert.Nil(t, s.Changes)
	assert.Empty(t, s.Results)
	assert.Equal(t, "new@acme.com", s.Intake.Email)
	st.AssertNotCalled(t, "UpdateCustomer", mock.Anything, mock.Anything, mock.Anything)
	st.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything)
}

func TestSession_ResumesAfterJSONRoundTrip(t *testing.T) {
	w, st := newTestWorkflow(t, DefaultOptions())
	st.On("UpdateCustomer", mock.Anything, "c-1", customer.Fields{Email: "new@acme.com"}).
		Return(&customer.Record{ID: "c-1", Email: "new@acme.com"}, nil)

	s, _ := w.Search(context.Background(), acmeIntake("new@acme.com"))
	s, _ = w.Select(s, "c-1")

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"state":"awaiting_change_confirmation"`)
	assert.Contains(t, string(raw), `"company_name":"Acme Corp"`)

	var resumed Session
	require.NoError(t, json.Unmarshal(raw, &resumed))

	done, err := w.ConfirmUpdate(context.Background(), resumed)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSelectedUpdated, done.Outcome)
}

func TestSession_Groups(t *testing.T) {
	w, _ := newTestWorkflow(t, DefaultOptions())
	s, _ := w.Search(context.Background(), Intake{Term: "Acme"})

	g := s.Groups()
	assert.Len(t, g.Exact, 1)
	assert.Len(t, g.Partial, 1)
}

func TestIntake_SearchTerm(t *testing.T) {
	assert.Equal(t, "Acme", Intake{Fields: customer.Fields{CompanyName: "Acme"}}.SearchTerm())
	assert.Equal(t, "ops@acme.com", Intake{Term: " ops@acme.com ", Fields: customer.Fields{CompanyName: "Acme"}}.SearchTerm())
}
