package salesforce

import (
	"context"

	"github.com/rotisserie/eris"
)

// MaxCollectionSize is the Collections API limit per request.
const MaxCollectionSize = 200

// BulkInsertAccounts inserts accounts in batches of MaxCollectionSize. Results
// are returned in input order; a failed batch stops the run and returns the
// results gathered so far.
func BulkInsertAccounts(ctx context.Context, c Client, m FieldMap, accounts []AccountFields) ([]CollectionResult, error) {
	if len(accounts) == 0 {
		return nil, nil
	}

	results := make([]CollectionResult, 0, len(accounts))
	for start := 0; start < len(accounts); start += MaxCollectionSize {
		end := min(start+MaxCollectionSize, len(accounts))

		batch := make([]map[string]any, 0, end-start)
		for _, a := range accounts[start:end] {
			batch = append(batch, m.body(a))
		}

		res, err := c.InsertCollection(ctx, accountObject, batch)
		if err != nil {
			return results, eris.Wrapf(err, "sf: bulk insert accounts %d-%d", start, end)
		}
		results = append(results, res...)
	}
	return results, nil
}
