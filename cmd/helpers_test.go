//go:build !integration

package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/intake-match/internal/customer"
	"github.com/sells-group/intake-match/internal/resolve"
)

func testCustomers() []customer.Record {
	return []customer.Record{
		{ID: "c-1", CompanyName: "Acme Corp", ContactPerson: "Ann", Email: "info@acme.com", Phone: "555-0100"},
		{ID: "c-2", CompanyName: "Acme Trading"},
		{ID: "c-3", CompanyName: "Globex"},
	}
}

// newTestStore opens a migrated SQLite store seeded with testCustomers.
func newTestStore(t *testing.T) *customer.SQLiteStore {
	t.Helper()
	s, err := customer.NewSQLite(filepath.Join(t.TempDir(), "customers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck

	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))
	_, err = s.SeedRecords(ctx, testCustomers())
	require.NoError(t, err)
	return s
}

func newTestWorkflow(t *testing.T) (*resolve.Workflow, *customer.SQLiteStore) {
	t.Helper()
	s := newTestStore(t)
	return resolve.New(s, resolve.DefaultOptions()), s
}
