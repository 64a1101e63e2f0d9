package main

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/intake-match/internal/customer"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load fixture customers from a YAML file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		f, err := os.Open(seedFile)
		if err != nil {
			return eris.Wrap(err, "seed: open fixtures")
		}
		defer f.Close() //nolint:errcheck

		records, err := readFixtures(f)
		if err != nil {
			return err
		}

		store, err := openStore(ctx, "seed")
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		if err := store.Migrate(ctx); err != nil {
			return err
		}
		_, err = seedStore(ctx, store, records)
		return err
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "YAML fixtures file (required)")
	_ = seedCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(seedCmd)
}

// fixtures is the seed file layout:
//
//	customers:
//	  - id: c-1
//	    company_name: Acme Corp
//	    email: info@acme.com
type fixtures struct {
	Customers []customer.Record `yaml:"customers"`
}

func readFixtures(r io.Reader) ([]customer.Record, error) {
	var fx fixtures
	if err := yaml.NewDecoder(r).Decode(&fx); err != nil {
		return nil, eris.Wrap(err, "seed: decode fixtures")
	}
	if len(fx.Customers) == 0 {
		return nil, eris.New("seed: fixtures contain no customers")
	}
	return fx.Customers, nil
}

func seedStore(ctx context.Context, store customer.Store, records []customer.Record) (int64, error) {
	seeder, ok := store.(customer.Seeder)
	if !ok {
		return 0, eris.Errorf("seed: %T does not support seeding", store)
	}

	n, err := seeder.SeedRecords(ctx, records)
	if err != nil {
		return n, eris.Wrap(err, "seed: load records")
	}
	zap.L().Info("seed: complete",
		zap.Int("fixtures", len(records)),
		zap.Int64("loaded", n),
	)
	return n, nil
}
