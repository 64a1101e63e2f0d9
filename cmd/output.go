package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
)

// writeReport writes v as indented JSON to path, or to w when path is empty.
func writeReport(w io.Writer, path string, v any) error {
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrap(err, "create output file")
		}
		defer f.Close() //nolint:errcheck
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "write report")
}
