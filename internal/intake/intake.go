// Package intake reads batches of intake rows (company name plus optional
// contact fields) from CSV and XLSX files.
package intake

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/intake-match/internal/customer"
)

// Row is one intake line. Line is the 1-based row number in the source file,
// header included.
type Row struct {
	Line          int    `json:"line"`
	CompanyName   string `json:"company_name"`
	ContactPerson string `json:"contact_person,omitempty"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
}

// Fields returns the row as customer fields.
func (r Row) Fields() customer.Fields {
	return customer.Fields{
		CompanyName:   r.CompanyName,
		ContactPerson: r.ContactPerson,
		Email:         r.Email,
		Phone:         r.Phone,
	}
}

// Options configures ReadFile.
type Options struct {
	// Sheet selects an XLSX sheet by name; the first sheet is used when empty.
	Sheet string
}

// column identifies a Row field.
type column int

const (
	colCompany column = iota
	colContact
	colEmail
	colPhone
)

// headerAliases maps normalized header text to a column.
var headerAliases = map[string]column{
	"company_name":   colCompany,
	"company name":   colCompany,
	"company":        colCompany,
	"customer":       colCompany,
	"customer name":  colCompany,
	"name":           colCompany,
	"contact_person": colContact,
	"contact person": colContact,
	"contactperson":  colContact,
	"contact":        colContact,
	"email":          colEmail,
	"e-mail":         colEmail,
	"email address":  colEmail,
	"phone":          colPhone,
	"phone number":   colPhone,
	"telephone":      colPhone,
	"mobile":         colPhone,
}

// ReadFile reads intake rows from a .csv or .xlsx file.
func ReadFile(path string, opts Options) ([]Row, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return ReadCSVFile(path)
	case ".xlsx":
		return ReadXLSX(path, opts.Sheet)
	default:
		return nil, eris.Errorf("intake: unsupported file type %q", ext)
	}
}

// parseRows maps a header row and data rows into intake rows. Rows without a
// company name are skipped.
func parseRows(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, eris.New("intake: file has no header row")
	}

	idx := make(map[column]int)
	for i, h := range records[0] {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if c, ok := headerAliases[key]; ok {
			if _, dup := idx[c]; !dup {
				idx[c] = i
			}
		}
	}
	if _, ok := idx[colCompany]; !ok {
		return nil, eris.New("intake: missing company name column")
	}

	get := func(row []string, c column) string {
		i, ok := idx[c]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var rows []Row
	for n, rec := range records[1:] {
		r := Row{
			Line:          n + 2,
			CompanyName:   get(rec, colCompany),
			ContactPerson: get(rec, colContact),
			Email:         get(rec, colEmail),
			Phone:         get(rec, colPhone),
		}
		if r.CompanyName == "" {
			continue
		}
		rows = append(rows, r)
	}
	return rows, nil
}
