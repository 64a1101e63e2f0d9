package main

import (
	"context"
	"os"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/intake-match/internal/customer"
	"github.com/sells-group/intake-match/internal/db"
	"github.com/sells-group/intake-match/internal/match"
	"github.com/sells-group/intake-match/internal/resolve"
	sfpkg "github.com/sells-group/intake-match/pkg/salesforce"
)

// openStore validates the config for mode and opens the configured store.
func openStore(ctx context.Context, mode string) (customer.Store, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	return initStore(ctx)
}

func initStore(ctx context.Context) (customer.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		s, err := customer.NewSQLite(cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		// A local file is usable straight away.
		if err := s.Migrate(ctx); err != nil {
			s.Close() //nolint:errcheck
			return nil, err
		}
		return s, nil
	case "postgres":
		pool, err := db.Connect(ctx, cfg.Store.DatabaseURL, &db.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
		if err != nil {
			return nil, err
		}
		return customer.NewPostgresStore(pool), nil
	case "salesforce":
		client, err := initSalesforce()
		if err != nil {
			return nil, err
		}
		return customer.NewSalesforceStore(client, sfFieldMap()), nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initSalesforce() (sfpkg.Client, error) {
	if cfg.Salesforce.ClientID == "" {
		return nil, eris.New("salesforce client ID is required (INTAKE_SALESFORCE_CLIENT_ID)")
	}

	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.Salesforce.LoginURL,
		Username:       cfg.Salesforce.Username,
		ConsumerKey:    cfg.Salesforce.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	zap.L().Debug("salesforce: connected",
		zap.String("login_url", cfg.Salesforce.LoginURL),
		zap.Float64("rate_limit", cfg.Salesforce.RateLimit),
	)
	return sfpkg.NewClient(sf, sfpkg.WithRateLimit(cfg.Salesforce.RateLimit)), nil
}

func sfFieldMap() sfpkg.FieldMap {
	m := sfpkg.DefaultFieldMap
	if cfg.Salesforce.EmailField != "" {
		m.Email = cfg.Salesforce.EmailField
	}
	if cfg.Salesforce.ContactField != "" {
		m.ContactPerson = cfg.Salesforce.ContactField
	}
	return m
}

func matchOptions() match.Options {
	return match.Options{
		FuzzyThreshold:  cfg.Match.FuzzyThreshold,
		AutoAcceptScore: cfg.Match.AutoAcceptScore,
	}
}

func workflowOptions() resolve.Options {
	return resolve.Options{
		Match:      matchOptions(),
		AutoAccept: cfg.Match.AutoAccept,
	}
}
