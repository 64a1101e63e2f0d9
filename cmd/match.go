package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/intake-match/internal/customer"
	"github.com/sells-group/intake-match/internal/intake"
	"github.com/sells-group/intake-match/internal/match"
)

var (
	matchFile   string
	matchSheet  string
	matchTop    int
	matchOutput string
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank every row of an intake file against the customer store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		rows, err := intake.ReadFile(matchFile, intake.Options{Sheet: matchSheet})
		if err != nil {
			return err
		}

		store, err := openStore(ctx, "match")
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		candidates, err := store.ListCandidates(ctx)
		if err != nil {
			return eris.Wrap(err, "match: list candidates")
		}

		top := matchTop
		if top == 0 {
			top = cfg.Match.TopN
		}

		reports, err := matchRows(ctx, matchOptions(), candidates, rows, cfg.Batch.MaxConcurrentRows, top)
		if err != nil {
			return err
		}
		return writeReport(cmd.OutOrStdout(), matchOutput, reports)
	},
}

func init() {
	matchCmd.Flags().StringVar(&matchFile, "file", "", "intake CSV or XLSX file (required)")
	matchCmd.Flags().StringVar(&matchSheet, "sheet", "", "XLSX sheet name (default first sheet)")
	matchCmd.Flags().IntVar(&matchTop, "top", 0, "results kept per row (default from config)")
	matchCmd.Flags().StringVar(&matchOutput, "output", "", "write the JSON report to this file instead of stdout")
	_ = matchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(matchCmd)
}

// rowMatch is the match report for one intake row.
type rowMatch struct {
	Row     intake.Row     `json:"row"`
	Best    *match.Result  `json:"best,omitempty"`
	Results []match.Result `json:"results"`
	Total   int            `json:"total"`
}

// matchRows ranks each row against one snapshot of candidates. Rows are
// scored concurrently; the report keeps file order. top <= 0 keeps every
// result.
func matchRows(ctx context.Context, opts match.Options, candidates []customer.Record, rows []intake.Row, concurrency, top int) ([]rowMatch, error) {
	zap.L().Info("match: ranking rows",
		zap.Int("rows", len(rows)),
		zap.Int("candidates", len(candidates)),
		zap.Int("concurrency", concurrency),
	)

	reports := make([]rowMatch, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))

	for i, row := range rows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results := opts.Classify(row.CompanyName, candidates)
			rep := rowMatch{Row: row, Total: len(results), Results: results}
			if best, ok := opts.BestOf(results); ok {
				rep.Best = &best
			}
			if top > 0 && len(rep.Results) > top {
				rep.Results = rep.Results[:top]
			}
			if rep.Results == nil {
				rep.Results = []match.Result{}
			}
			reports[i] = rep
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "match: rank rows")
	}

	var matched int
	for _, r := range reports {
		if r.Best != nil {
			matched++
		}
	}
	zap.L().Info("match: complete",
		zap.Int("rows", len(rows)),
		zap.Int("best_matches", matched),
	)
	return reports, nil
}
