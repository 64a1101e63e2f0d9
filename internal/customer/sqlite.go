package customer

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS customers (
	id             TEXT PRIMARY KEY,
	company_name   TEXT NOT NULL,
	contact_person TEXT NOT NULL DEFAULT '',
	email          TEXT NOT NULL DEFAULT '',
	phone          TEXT NOT NULL DEFAULT '',
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_customers_created_at ON customers(created_at);
`

// Migrate creates the customers table.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ListCandidates returns every customer in insertion order.
func (s *SQLiteStore) ListCandidates(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, company_name, contact_person, email, phone, created_at, updated_at
		 FROM customers ORDER BY rowid`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list customers")
	}
	defer rows.Close() //nolint:errcheck

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list customers iterate")
}

// CreateCustomer inserts a new customer with a generated id.
func (s *SQLiteStore) CreateCustomer(ctx context.Context, f Fields) (*Record, error) {
	if err := ValidateCreate(f); err != nil {
		return nil, WriteError(err, "sqlite: create customer")
	}

	now := time.Now().UTC()
	r := &Record{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.Apply(f)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO customers (id, company_name, contact_person, email, phone, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CompanyName, r.ContactPerson, r.Email, r.Phone, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return nil, WriteError(err, "sqlite: insert customer")
	}
	return r, nil
}

// UpdateCustomer overlays f onto the stored record inside a transaction.
func (s *SQLiteStore) UpdateCustomer(ctx context.Context, id string, f Fields) (*Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, WriteError(err, "sqlite: begin update")
	}
	defer tx.Rollback() //nolint:errcheck

	row := tx.QueryRowContext(ctx,
		`SELECT id, company_name, contact_person, email, phone, created_at, updated_at
		 FROM customers WHERE id = ?`, id,
	)
	r, err := scanRecord(row)
	if err != nil {
		return nil, WriteError(err, "sqlite: load customer "+id)
	}

	r.Apply(f)
	r.UpdatedAt = time.Now().UTC()

	if _, err := tx.ExecContext(ctx,
		`UPDATE customers SET company_name = ?, contact_person = ?, email = ?, phone = ?, updated_at = ?
		 WHERE id = ?`,
		r.CompanyName, r.ContactPerson, r.Email, r.Phone, r.UpdatedAt, r.ID,
	); err != nil {
		return nil, WriteError(err, "sqlite: update customer "+id)
	}
	if err := tx.Commit(); err != nil {
		return nil, WriteError(err, "sqlite: commit update")
	}
	return r, nil
}

// SeedRecords upserts fixture records keyed by id. Records without an id get
// a generated one.
func (s *SQLiteStore) SeedRecords(ctx context.Context, records []Record) (int64, error) {
	var n int64
	for _, r := range records {
		if _, err := s.insertRecord(ctx, r); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (s *SQLiteStore) insertRecord(ctx context.Context, r Record) (*Record, error) {
	if strings.TrimSpace(r.ID) == "" {
		return s.CreateCustomer(ctx, r.Contact())
	}
	if err := ValidateCreate(r.Contact()); err != nil {
		return nil, WriteError(err, "sqlite: insert record "+r.ID)
	}
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO customers (id, company_name, contact_person, email, phone, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			company_name = excluded.company_name,
			contact_person = excluded.contact_person,
			email = excluded.email,
			phone = excluded.phone,
			updated_at = excluded.updated_at`,
		r.ID, r.CompanyName, r.ContactPerson, r.Email, r.Phone, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return nil, WriteError(err, "sqlite: insert record "+r.ID)
	}
	return &r, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (*Record, error) {
	var r Record
	err := row.Scan(&r.ID, &r.CompanyName, &r.ContactPerson, &r.Email, &r.Phone, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan customer")
	}
	return &r, nil
}
