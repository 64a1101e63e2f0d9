package intake

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/rotisserie/eris"
)

// ReadCSV parses intake rows from CSV. Quotes are parsed leniently and rows
// may have differing field counts.
func ReadCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "intake: read csv")
	}
	return parseRows(records)
}

// ReadCSVFile opens path and parses it with ReadCSV.
func ReadCSVFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "intake: open csv")
	}
	defer f.Close() //nolint:errcheck

	return ReadCSV(f)
}
