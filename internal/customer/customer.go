// Package customer defines the customer record the matcher ranks and the
// store boundary the resolution workflow writes through.
package customer

import (
	"strings"
	"time"
)

// Record is a customer as held by the backing store. The matcher treats it as
// read-only; changes go through Store.UpdateCustomer.
type Record struct {
	ID            string    `json:"id" db:"id" yaml:"id"`
	CompanyName   string    `json:"company_name" db:"company_name" yaml:"company_name"`
	ContactPerson string    `json:"contact_person,omitempty" db:"contact_person" yaml:"contact_person"`
	Email         string    `json:"email,omitempty" db:"email" yaml:"email"`
	Phone         string    `json:"phone,omitempty" db:"phone" yaml:"phone"`
	CreatedAt     time.Time `json:"created_at" db:"created_at" yaml:"-"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at" yaml:"-"`
}

// Fields carries the user-supplied values for a create or update. An empty
// string means "not supplied".
type Fields struct {
	CompanyName   string `json:"company_name,omitempty" yaml:"company_name"`
	ContactPerson string `json:"contact_person,omitempty" yaml:"contact_person"`
	Email         string `json:"email,omitempty" yaml:"email"`
	Phone         string `json:"phone,omitempty" yaml:"phone"`
}

// Contact returns the record's contact fields.
func (r Record) Contact() Fields {
	return Fields{
		CompanyName:   r.CompanyName,
		ContactPerson: r.ContactPerson,
		Email:         r.Email,
		Phone:         r.Phone,
	}
}

// Apply overlays the non-empty values of f onto the record.
func (r *Record) Apply(f Fields) {
	if v := strings.TrimSpace(f.CompanyName); v != "" {
		r.CompanyName = v
	}
	if v := strings.TrimSpace(f.ContactPerson); v != "" {
		r.ContactPerson = v
	}
	if v := strings.TrimSpace(f.Email); v != "" {
		r.Email = v
	}
	if v := strings.TrimSpace(f.Phone); v != "" {
		r.Phone = v
	}
}

// IsZero reports whether no field carries a value.
func (f Fields) IsZero() bool {
	return strings.TrimSpace(f.CompanyName) == "" &&
		strings.TrimSpace(f.ContactPerson) == "" &&
		strings.TrimSpace(f.Email) == "" &&
		strings.TrimSpace(f.Phone) == ""
}
