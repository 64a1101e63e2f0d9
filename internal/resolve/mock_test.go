package resolve

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/intake-match/internal/customer"
)

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ListCandidates(ctx context.Context) ([]customer.Record, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]customer.Record), args.Error(1)
}

func (m *mockStore) CreateCustomer(ctx context.Context, f customer.Fields) (*customer.Record, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Record), args.Error(1)
}

func (m *mockStore) UpdateCustomer(ctx context.Context, id string, f customer.Fields) (*customer.Record, error) {
	args := m.Called(ctx, id, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Record), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

// --- Decider Mock ---

type mockDecider struct {
	mock.Mock
}

func (m *mockDecider) ChooseCandidate(ctx context.Context, s Session) (Action, string, error) {
	args := m.Called(ctx, s)
	return args.Get(0).(Action), args.String(1), args.Error(2)
}

func (m *mockDecider) ConfirmChanges(ctx context.Context, s Session) (Action, error) {
	args := m.Called(ctx, s)
	return args.Get(0).(Action), args.Error(1)
}
