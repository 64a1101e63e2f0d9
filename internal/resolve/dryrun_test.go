package resolve

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/intake-match/internal/customer"
	"github.com/sells-group/intake-match/internal/match"
)

func newDryRun(t *testing.T) (*DryRunStore, *mockStore) {
	t.Helper()
	st := &mockStore{}
	st.On("ListCandidates", mock.Anything).Return(testPool(), nil)
	return NewDryRunStore(st), st
}

func TestDryRunStore_CreateJoinsSnapshot(t *testing.T) {
	d, st := newDryRun(t)
	ctx := context.Background()

	r, err := d.CreateCustomer(ctx, customer.Fields{CompanyName: " Initech ", Phone: "555"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(r.ID, "dry-run-"))
	assert.Equal(t, "Initech", r.CompanyName)

	list, err := d.ListCandidates(ctx)
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, r.ID, list[3].ID)
	st.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything)
}

func TestDryRunStore_CreateRequiresName(t *testing.T) {
	d, _ := newDryRun(t)
	_, err := d.CreateCustomer(context.Background(), customer.Fields{Email: "a@b.com"})
	assert.ErrorIs(t, err, customer.ErrCompanyNameRequired)
}

func TestDryRunStore_UpdateOverlaysSnapshot(t *testing.T) {
	d, st := newDryRun(t)
	ctx := context.Background()

	r, err := d.UpdateCustomer(ctx, "c-1", customer.Fields{Email: "new@acme.com"})
	require.NoError(t, err)
	assert.Equal(t, "new@acme.com", r.Email)
	assert.Equal(t, "Ann", r.ContactPerson)

	list, err := d.ListCandidates(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new@acme.com", list[0].Email)
	st.AssertNotCalled(t, "UpdateCustomer", mock.Anything, mock.Anything, mock.Anything)
}

func TestDryRunStore_UpdateCreatedRecord(t *testing.T) {
	d, _ := newDryRun(t)
	ctx := context.Background()

	created, err := d.CreateCustomer(ctx, customer.Fields{CompanyName: "Initech"})
	require.NoError(t, err)

	_, err = d.UpdateCustomer(ctx, created.ID, customer.Fields{Phone: "555-0199"})
	require.NoError(t, err)

	list, _ := d.ListCandidates(ctx)
	assert.Equal(t, "555-0199", list[3].Phone)
}

func TestDryRunStore_UpdateMissing(t *testing.T) {
	d, _ := newDryRun(t)
	_, err := d.UpdateCustomer(context.Background(), "gone", customer.Fields{Email: "x@y.com"})
	assert.ErrorIs(t, err, customer.ErrStoreWrite)
	assert.ErrorIs(t, err, customer.ErrNotFound)
}

func TestDryRunStore_ListError(t *testing.T) {
	st := &mockStore{}
	st.On("ListCandidates", mock.Anything).Return(nil, errors.New("offline"))
	d := NewDryRunStore(st)

	_, err := d.ListCandidates(context.Background())
	assert.Error(t, err)
}

func TestDryRunStore_Lifecycle(t *testing.T) {
	d, st := newDryRun(t)
	st.On("Close").Return(nil)

	assert.NoError(t, d.Migrate(context.Background()))
	assert.NoError(t, d.Close())
	st.AssertNotCalled(t, "Migrate", mock.Anything)
}

func TestRun_DryRunBatchSeesEarlierCreates(t *testing.T) {
	d, _ := newDryRun(t)
	w := New(d, DefaultOptions())
	decider := AutoAcceptDecider{Options: match.DefaultOptions}
	in := Intake{Fields: customer.Fields{CompanyName: "Initech LLC"}}

	first, err := w.Run(context.Background(), in, decider)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, first.Outcome)

	second, err := w.Run(context.Background(), in, decider)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSelectedUnchanged, second.Outcome)
	assert.Equal(t, first.Customer.ID, second.Customer.ID)
}
