package match

import (
	"strings"
	"unicode"

	"github.com/sells-group/intake-match/internal/customer"
)

// Field names a contact field the change detector compares.
type Field string

// Compared fields, in the order they are reported.
const (
	FieldEmail         Field = "email"
	FieldPhone         Field = "phone"
	FieldContactPerson Field = "contactPerson"
)

// ChangeSet describes which submitted contact fields differ from the stored
// ones. Old and new values are the original strings, kept for display.
type ChangeSet struct {
	HasChanges    bool             `json:"has_changes"`
	ChangedFields []Field          `json:"changed_fields"`
	OldValues     map[Field]string `json:"old_values"`
	NewValues     map[Field]string `json:"new_values"`
}

// Fields returns the new values as store update fields.
func (cs ChangeSet) Fields() customer.Fields {
	return customer.Fields{
		Email:         cs.NewValues[FieldEmail],
		Phone:         cs.NewValues[FieldPhone],
		ContactPerson: cs.NewValues[FieldContactPerson],
	}
}

type fieldRule struct {
	field     Field
	get       func(customer.Fields) string
	normalize func(string) string
}

var fieldRules = []fieldRule{
	{FieldEmail, func(f customer.Fields) string { return f.Email }, NormalizeEmail},
	{FieldPhone, func(f customer.Fields) string { return f.Phone }, NormalizePhone},
	{FieldContactPerson, func(f customer.Fields) string { return f.ContactPerson }, strings.TrimSpace},
}

// DetectChanges compares submitted contact fields against the existing ones.
// A field counts as changed only when both sides are present after
// normalization and differ; a value missing on either side is no signal.
func DetectChanges(submitted, existing customer.Fields) ChangeSet {
	cs := ChangeSet{
		ChangedFields: []Field{},
		OldValues:     map[Field]string{},
		NewValues:     map[Field]string{},
	}

	for _, rule := range fieldRules {
		newRaw, oldRaw := rule.get(submitted), rule.get(existing)
		newNorm, oldNorm := rule.normalize(newRaw), rule.normalize(oldRaw)
		if newNorm == "" || oldNorm == "" || newNorm == oldNorm {
			continue
		}
		cs.ChangedFields = append(cs.ChangedFields, rule.field)
		cs.OldValues[rule.field] = oldRaw
		cs.NewValues[rule.field] = newRaw
	}

	cs.HasChanges = len(cs.ChangedFields) > 0
	return cs
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone keeps only the digits of a phone number.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r <= unicode.MaxASCII && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
