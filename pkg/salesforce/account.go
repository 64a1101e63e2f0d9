package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// accountObject is the SObject that holds customers.
const accountObject = "Account"

// FieldMap names the Account fields that carry contact data. Email and the
// contact person have no standard Account field, so orgs map them to custom
// fields. An empty name disables that field.
type FieldMap struct {
	Email         string
	ContactPerson string
}

// DefaultFieldMap is the custom field naming used when none is configured.
var DefaultFieldMap = FieldMap{
	Email:         "Email__c",
	ContactPerson: "Contact_Person__c",
}

// Account is an Account reduced to the customer fields.
type Account struct {
	ID            string
	Name          string
	Phone         string
	Email         string
	ContactPerson string
}

// AccountFields are the values written on create or update. Empty values are
// left out of the request.
type AccountFields struct {
	Name          string
	Phone         string
	Email         string
	ContactPerson string
}

// selectList returns the SOQL select list for m.
func (m FieldMap) selectList() string {
	cols := []string{"Id", "Name", "Phone"}
	if m.Email != "" {
		cols = append(cols, m.Email)
	}
	if m.ContactPerson != "" {
		cols = append(cols, m.ContactPerson)
	}
	return strings.Join(cols, ", ")
}

// custom returns the mapped custom field names.
func (m FieldMap) custom() []string {
	var out []string
	for _, f := range []string{m.Email, m.ContactPerson} {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// decode reads one query row.
func (m FieldMap) decode(row map[string]any) Account {
	return Account{
		ID:            stringField(row, "Id"),
		Name:          stringField(row, "Name"),
		Phone:         stringField(row, "Phone"),
		Email:         stringField(row, m.Email),
		ContactPerson: stringField(row, m.ContactPerson),
	}
}

// body builds the request body for f.
func (m FieldMap) body(f AccountFields) map[string]any {
	out := make(map[string]any, 4)
	set := func(name, v string) {
		if name == "" {
			return
		}
		if v = strings.TrimSpace(v); v != "" {
			out[name] = v
		}
	}
	set("Name", f.Name)
	set("Phone", f.Phone)
	set(m.Email, f.Email)
	set(m.ContactPerson, f.ContactPerson)
	return out
}

func stringField(row map[string]any, name string) string {
	if name == "" {
		return ""
	}
	if s, ok := row[name].(string); ok {
		return s
	}
	return ""
}

// ListAccounts returns every Account, oldest first.
func ListAccounts(ctx context.Context, c Client, m FieldMap) ([]Account, error) {
	soql := fmt.Sprintf("SELECT %s FROM Account ORDER BY CreatedDate, Id", m.selectList())

	var rows []map[string]any
	if err := c.Query(ctx, soql, &rows); err != nil {
		return nil, eris.Wrap(err, "sf: list accounts")
	}

	out := make([]Account, 0, len(rows))
	for _, row := range rows {
		out = append(out, m.decode(row))
	}
	return out, nil
}

// FindAccountByID returns the Account with the given id, or nil when there is
// none.
func FindAccountByID(ctx context.Context, c Client, m FieldMap, id string) (*Account, error) {
	soql := fmt.Sprintf("SELECT %s FROM Account WHERE Id = '%s' LIMIT 1", m.selectList(), escapeSoql(id))

	var rows []map[string]any
	if err := c.Query(ctx, soql, &rows); err != nil {
		return nil, eris.Wrapf(err, "sf: find account %s", id)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	a := m.decode(rows[0])
	return &a, nil
}

// CreateAccount inserts an Account and returns its id.
func CreateAccount(ctx context.Context, c Client, m FieldMap, f AccountFields) (string, error) {
	body := m.body(f)
	if _, ok := body["Name"]; !ok {
		return "", eris.New("sf: account Name is required")
	}
	id, err := c.InsertOne(ctx, accountObject, body)
	if err != nil {
		return "", eris.Wrap(err, "sf: create account")
	}
	return id, nil
}

// UpdateAccount writes the non-empty fields of f to an existing Account.
func UpdateAccount(ctx context.Context, c Client, m FieldMap, id string, f AccountFields) error {
	if id == "" {
		return eris.New("sf: account id is required")
	}
	body := m.body(f)
	if len(body) == 0 {
		return eris.New("sf: no fields to update")
	}
	if err := c.UpdateOne(ctx, accountObject, id, body); err != nil {
		return eris.Wrapf(err, "sf: update account %s", id)
	}
	return nil
}

// CheckFields verifies that the Account object has the mapped custom fields
// and that they are writable.
func CheckFields(ctx context.Context, c Client, m FieldMap) error {
	desc, err := c.DescribeSObject(ctx, accountObject)
	if err != nil {
		return eris.Wrap(err, "sf: check account fields")
	}

	var missing []string
	for _, name := range m.custom() {
		f, ok := desc.Field(name)
		if !ok || !f.Createable || !f.Updateable {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return eris.Errorf("sf: account fields missing or read-only: %s", strings.Join(missing, ", "))
	}
	return nil
}

// escapeSoql escapes backslashes and single quotes in SOQL string literals.
func escapeSoql(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
