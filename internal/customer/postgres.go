package customer

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/intake-match/internal/db"
)

// PostgresStore implements Store using pgx.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore wraps an open pool.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS customers (
	id             TEXT PRIMARY KEY,
	company_name   TEXT NOT NULL,
	contact_person TEXT NOT NULL DEFAULT '',
	email          TEXT NOT NULL DEFAULT '',
	phone          TEXT NOT NULL DEFAULT '',
	seq            BIGSERIAL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_customers_seq ON customers(seq);
`

const customerColumns = `id, company_name, contact_person, email, phone, created_at, updated_at`

// Migrate creates the customers table.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// ListCandidates returns every customer in insertion order.
func (s *PostgresStore) ListCandidates(ctx context.Context) ([]Record, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY seq`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list customers")
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(recordDests(&r)...); err != nil {
			return nil, eris.Wrap(err, "postgres: scan customer")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list customers iterate")
}

// CreateCustomer inserts a new customer with a generated id.
func (s *PostgresStore) CreateCustomer(ctx context.Context, f Fields) (*Record, error) {
	if err := ValidateCreate(f); err != nil {
		return nil, WriteError(err, "postgres: create customer")
	}

	r := &Record{ID: uuid.New().String()}
	r.Apply(f)

	err := s.pool.QueryRow(ctx, `
		INSERT INTO customers (id, company_name, contact_person, email, phone)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		r.ID, r.CompanyName, r.ContactPerson, r.Email, r.Phone,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, WriteError(err, "postgres: insert customer")
	}
	return r, nil
}

// UpdateCustomer overlays the non-empty fields of f onto the stored record.
// Empty fields keep their stored value via COALESCE(NULLIF(...)).
func (s *PostgresStore) UpdateCustomer(ctx context.Context, id string, f Fields) (*Record, error) {
	r := &Record{}
	err := s.pool.QueryRow(ctx, `
		UPDATE customers SET
			company_name   = COALESCE(NULLIF($2, ''), company_name),
			contact_person = COALESCE(NULLIF($3, ''), contact_person),
			email          = COALESCE(NULLIF($4, ''), email),
			phone          = COALESCE(NULLIF($5, ''), phone),
			updated_at     = now()
		WHERE id = $1
		RETURNING `+customerColumns,
		id,
		strings.TrimSpace(f.CompanyName),
		strings.TrimSpace(f.ContactPerson),
		strings.TrimSpace(f.Email),
		strings.TrimSpace(f.Phone),
	).Scan(recordDests(r)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, WriteError(ErrNotFound, "postgres: update customer "+id)
		}
		return nil, WriteError(err, "postgres: update customer "+id)
	}
	return r, nil
}

// SeedRecords bulk-upserts fixture records keyed by id. Records without an id
// get a generated one.
func (s *PostgresStore) SeedRecords(ctx context.Context, records []Record) (int64, error) {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		if err := ValidateCreate(r.Contact()); err != nil {
			return 0, WriteError(err, "postgres: seed customer "+r.ID)
		}
		if strings.TrimSpace(r.ID) == "" {
			r.ID = uuid.New().String()
		}
		rows = append(rows, []any{r.ID, r.CompanyName, r.ContactPerson, r.Email, r.Phone})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "customers",
		Columns:      []string{"id", "company_name", "contact_person", "email", "phone"},
		ConflictKeys: []string{"id"},
	}, rows)
	if err != nil {
		return 0, WriteError(err, "postgres: seed customers")
	}
	return n, nil
}

func recordDests(r *Record) []any {
	return []any{&r.ID, &r.CompanyName, &r.ContactPerson, &r.Email, &r.Phone, &r.CreatedAt, &r.UpdatedAt}
}
