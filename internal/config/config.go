// Package config loads intake-match settings from config.yaml and INTAKE_*
// environment variables.
package config

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Match      MatchConfig      `yaml:"match" mapstructure:"match"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the customer store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// SalesforceConfig holds Salesforce JWT auth settings and the Account field
// mapping.
type SalesforceConfig struct {
	ClientID     string  `yaml:"client_id" mapstructure:"client_id"`
	Username     string  `yaml:"username" mapstructure:"username"`
	KeyPath      string  `yaml:"key_path" mapstructure:"key_path"`
	LoginURL     string  `yaml:"login_url" mapstructure:"login_url"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	EmailField   string  `yaml:"email_field" mapstructure:"email_field"`
	ContactField string  `yaml:"contact_field" mapstructure:"contact_field"`
}

// MatchConfig tunes the classifier and the resolution workflow.
type MatchConfig struct {
	// AutoAccept lets the workflow skip the candidate list when the top
	// result reaches AutoAcceptScore.
	AutoAccept      bool    `yaml:"auto_accept" mapstructure:"auto_accept"`
	FuzzyThreshold  float64 `yaml:"fuzzy_threshold" mapstructure:"fuzzy_threshold"`
	AutoAcceptScore int     `yaml:"auto_accept_score" mapstructure:"auto_accept_score"`
	// TopN caps the results printed per row by the match command.
	TopN int `yaml:"top_n" mapstructure:"top_n"`
}

// BatchConfig configures file-driven runs.
type BatchConfig struct {
	MaxConcurrentRows int `yaml:"max_concurrent_rows" mapstructure:"max_concurrent_rows"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("INTAKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "customers.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.rate_limit", 20)
	v.SetDefault("salesforce.email_field", "Email__c")
	v.SetDefault("salesforce.contact_field", "Contact_Person__c")
	v.SetDefault("match.auto_accept", false)
	v.SetDefault("match.fuzzy_threshold", 0.6)
	v.SetDefault("match.auto_accept_score", 90)
	v.SetDefault("match.top_n", 5)
	v.SetDefault("batch.max_concurrent_rows", 8)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command depends on. mode is the command
// name; "serve" additionally requires a usable port.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for "+c.Store.Driver)
		}
	case "salesforce":
		if c.Salesforce.ClientID == "" {
			problems = append(problems, "salesforce.client_id is required (INTAKE_SALESFORCE_CLIENT_ID)")
		}
		if c.Salesforce.Username == "" {
			problems = append(problems, "salesforce.username is required")
		}
		if c.Salesforce.KeyPath == "" {
			problems = append(problems, "salesforce.key_path is required")
		}
	default:
		problems = append(problems, "store.driver must be sqlite, postgres or salesforce, got "+strconv.Quote(c.Store.Driver))
	}

	if c.Match.FuzzyThreshold <= 0 || c.Match.FuzzyThreshold > 1 {
		problems = append(problems, "match.fuzzy_threshold must be in (0,1]")
	}
	if c.Match.AutoAcceptScore < 0 || c.Match.AutoAcceptScore > 100 {
		problems = append(problems, "match.auto_accept_score must be in [0,100]")
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be in 1-65535")
		}
	case "match", "resolve":
		if c.Batch.MaxConcurrentRows < 1 {
			problems = append(problems, "batch.max_concurrent_rows must be at least 1")
		}
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid for %s: %s", mode, strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
