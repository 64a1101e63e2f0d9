package customer

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
)

var (
	// ErrStoreWrite marks a failed create or update. The workflow surfaces it
	// without retrying and leaves its session in the pre-mutation state.
	ErrStoreWrite = eris.New("customer: store write failed")

	// ErrNotFound is returned by UpdateCustomer when the id no longer exists,
	// e.g. the record was removed while a decision was pending.
	ErrNotFound = eris.New("customer: not found")

	// ErrCompanyNameRequired rejects creates without a company name.
	ErrCompanyNameRequired = eris.New("customer: company name is required")
)

// Store is the persistence boundary consumed by the resolution workflow.
type Store interface {
	// ListCandidates returns a snapshot of every customer record.
	ListCandidates(ctx context.Context) ([]Record, error)
	// CreateCustomer inserts a new record and returns it with its id set.
	CreateCustomer(ctx context.Context, f Fields) (*Record, error)
	// UpdateCustomer overlays the non-empty fields onto the record with the
	// given id and returns the stored result.
	UpdateCustomer(ctx context.Context, id string, f Fields) (*Record, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Seeder bulk-loads fixture records.
type Seeder interface {
	SeedRecords(ctx context.Context, records []Record) (int64, error)
}

// ValidateCreate checks the fields required for a new record.
func ValidateCreate(f Fields) error {
	if strings.TrimSpace(f.CompanyName) == "" {
		return ErrCompanyNameRequired
	}
	return nil
}

// WriteError tags err as a store write failure while keeping the original
// message and any sentinel (such as ErrNotFound) reachable via errors.Is.
func WriteError(err error, msg string) error {
	return &storeWriteError{err: eris.Wrap(err, msg)}
}

type storeWriteError struct {
	err error
}

func (e *storeWriteError) Error() string { return e.err.Error() }

func (e *storeWriteError) Unwrap() []error { return []error{ErrStoreWrite, e.err} }
