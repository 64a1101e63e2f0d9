package customer

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	sfpkg "github.com/sells-group/intake-match/pkg/salesforce"
)

// SalesforceStore keeps customers as Salesforce Accounts. Timestamps are not
// read back and stay zero.
type SalesforceStore struct {
	client sfpkg.Client
	fields sfpkg.FieldMap
}

// NewSalesforceStore creates a store over client using the given field map.
func NewSalesforceStore(client sfpkg.Client, fields sfpkg.FieldMap) *SalesforceStore {
	return &SalesforceStore{client: client, fields: fields}
}

// ListCandidates returns every Account as a record.
func (s *SalesforceStore) ListCandidates(ctx context.Context) ([]Record, error) {
	accts, err := sfpkg.ListAccounts(ctx, s.client, s.fields)
	if err != nil {
		return nil, eris.Wrap(err, "salesforce: list customers")
	}
	out := make([]Record, 0, len(accts))
	for _, a := range accts {
		out = append(out, accountRecord(a))
	}
	return out, nil
}

// CreateCustomer inserts an Account.
func (s *SalesforceStore) CreateCustomer(ctx context.Context, f Fields) (*Record, error) {
	if err := ValidateCreate(f); err != nil {
		return nil, err
	}
	id, err := sfpkg.CreateAccount(ctx, s.client, s.fields, accountFields(f))
	if err != nil {
		return nil, WriteError(err, "salesforce: create customer")
	}

	r := Record{ID: id}
	r.Apply(f)
	return &r, nil
}

// UpdateCustomer reads the Account, overlays f and writes back the fields
// that were supplied.
func (s *SalesforceStore) UpdateCustomer(ctx context.Context, id string, f Fields) (*Record, error) {
	acct, err := sfpkg.FindAccountByID(ctx, s.client, s.fields, id)
	if err != nil {
		return nil, WriteError(err, "salesforce: load customer")
	}
	if acct == nil {
		return nil, WriteError(eris.Wrapf(ErrNotFound, "id %q", id), "salesforce: update customer")
	}

	r := accountRecord(*acct)
	r.Apply(f)
	if f.IsZero() {
		return &r, nil
	}
	if err := sfpkg.UpdateAccount(ctx, s.client, s.fields, id, accountFields(f)); err != nil {
		return nil, WriteError(err, "salesforce: update customer")
	}
	return &r, nil
}

// SeedRecords inserts fixtures as new Accounts. Salesforce assigns ids, so
// fixture ids are ignored and re-seeding creates duplicates.
func (s *SalesforceStore) SeedRecords(ctx context.Context, records []Record) (int64, error) {
	batch := make([]sfpkg.AccountFields, 0, len(records))
	for _, r := range records {
		if err := ValidateCreate(r.Contact()); err != nil {
			return 0, eris.Wrapf(err, "salesforce: seed record %q", r.ID)
		}
		batch = append(batch, accountFields(r.Contact()))
	}

	results, err := sfpkg.BulkInsertAccounts(ctx, s.client, s.fields, batch)
	var n int64
	for _, res := range results {
		if res.Success {
			n++
			continue
		}
		zap.L().Warn("salesforce: seed record rejected", zap.Strings("errors", res.Errors))
	}
	if err != nil {
		return n, WriteError(err, "salesforce: seed customers")
	}
	return n, nil
}

// Migrate checks that the mapped custom fields exist. Schema changes are
// made in Salesforce setup, not from here.
func (s *SalesforceStore) Migrate(ctx context.Context) error {
	return eris.Wrap(sfpkg.CheckFields(ctx, s.client, s.fields), "salesforce: migrate")
}

// Close is a no-op.
func (s *SalesforceStore) Close() error { return nil }

func accountRecord(a sfpkg.Account) Record {
	return Record{
		ID:            a.ID,
		CompanyName:   a.Name,
		ContactPerson: strings.TrimSpace(a.ContactPerson),
		Email:         a.Email,
		Phone:         a.Phone,
	}
}

func accountFields(f Fields) sfpkg.AccountFields {
	return sfpkg.AccountFields{
		Name:          f.CompanyName,
		Phone:         f.Phone,
		Email:         f.Email,
		ContactPerson: f.ContactPerson,
	}
}
