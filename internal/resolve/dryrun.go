package resolve

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/intake-match/internal/customer"
)

// DryRunStore reads through to a real store but keeps every write in memory.
// Created records join later candidate snapshots, so a batch resolves the
// same way it would against the real store.
type DryRunStore struct {
	next customer.Store

	mu      sync.Mutex
	created []customer.Record
	updated map[string]customer.Record
}

// NewDryRunStore wraps next.
func NewDryRunStore(next customer.Store) *DryRunStore {
	return &DryRunStore{next: next, updated: make(map[string]customer.Record)}
}

// ListCandidates returns the underlying snapshot with pending writes applied.
func (d *DryRunStore) ListCandidates(ctx context.Context) ([]customer.Record, error) {
	list, err := d.next.ListCandidates(ctx)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]customer.Record, 0, len(list)+len(d.created))
	for _, r := range list {
		if u, ok := d.updated[r.ID]; ok {
			r = u
		}
		out = append(out, r)
	}
	return append(out, d.created...), nil
}

// CreateCustomer records the create without writing it.
func (d *DryRunStore) CreateCustomer(_ context.Context, f customer.Fields) (*customer.Record, error) {
	if err := customer.ValidateCreate(f); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	r := customer.Record{ID: "dry-run-" + uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	r.Apply(f)

	d.mu.Lock()
	d.created = append(d.created, r)
	d.mu.Unlock()
	return &r, nil
}

// UpdateCustomer records the update without writing it.
func (d *DryRunStore) UpdateCustomer(ctx context.Context, id string, f customer.Fields) (*customer.Record, error) {
	list, err := d.ListCandidates(ctx)
	if err != nil {
		return nil, customer.WriteError(err, "dry run: load customer")
	}

	for _, r := range list {
		if r.ID != id {
			continue
		}
		r.Apply(f)
		r.UpdatedAt = time.Now().UTC()

		d.mu.Lock()
		d.updated[id] = r
		for i := range d.created {
			if d.created[i].ID == id {
				d.created[i] = r
			}
		}
		d.mu.Unlock()
		return &r, nil
	}
	return nil, customer.WriteError(eris.Wrapf(customer.ErrNotFound, "id %q", id), "dry run: update customer")
}

// Migrate is a no-op; a dry run never changes schema.
func (d *DryRunStore) Migrate(context.Context) error { return nil }

// Close closes the underlying store.
func (d *DryRunStore) Close() error { return d.next.Close() }
