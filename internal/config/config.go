package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/lispendens-cli/internal/parcelsync"
	"github.com/sells-group/lispendens-cli/internal/registry"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig       `yaml:"store" mapstructure:"store"`
	Postgres   PostgresConfig    `yaml:"postgres" mapstructure:"postgres"`
	Registry   RegistryConfig    `yaml:"registry" mapstructure:"registry"`
	Counties   map[string]string `yaml:"counties" mapstructure:"counties"`
	Matching   MatchingConfig    `yaml:"matching" mapstructure:"matching"`
	Skiptrace  SkiptraceConfig   `yaml:"skiptrace" mapstructure:"skiptrace"`
	Salesforce SalesforceConfig  `yaml:"salesforce" mapstructure:"salesforce"`
	Notion     NotionConfig      `yaml:"notion" mapstructure:"notion"`
	Alerts     AlertsConfig      `yaml:"alerts" mapstructure:"alerts"`
	Sync       parcelsync.Config `yaml:"sync" mapstructure:"sync"`
	Batch      BatchConfig       `yaml:"batch" mapstructure:"batch"`
	Server     ServerConfig      `yaml:"server" mapstructure:"server"`
	Log        LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the filing and run store backend.
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// PostgresConfig points at the parcel mirror database. The local registry
// provider and the sync commands require it; the portal provider does not.
type PostgresConfig struct {
	DSN string `yaml:"dsn" mapstructure:"dsn"`
}

// RegistryConfig selects and configures the parcel registry provider.
type RegistryConfig struct {
	Provider   string                `yaml:"provider" mapstructure:"provider"`
	Portal     registry.PortalConfig `yaml:"portal" mapstructure:"portal"`
	FuzzyLimit int                   `yaml:"fuzzy_limit" mapstructure:"fuzzy_limit"`
}

// MatchingConfig overrides the built-in grantee matching word lists.
// Empty lists keep the compiled-in defaults. RulesPath points at an optional
// standalone word-list file merged on top of the inline lists.
type MatchingConfig struct {
	StopWords         []string `yaml:"stop_words" mapstructure:"stop_words"`
	CorporateKeywords []string `yaml:"corporate_keywords" mapstructure:"corporate_keywords"`
	RulesPath         string   `yaml:"rules_path" mapstructure:"rules_path"`
}

// SkiptraceConfig holds skip-trace API settings.
type SkiptraceConfig struct {
	BaseURL  string        `yaml:"base_url" mapstructure:"base_url"`
	APIKey   string        `yaml:"api_key" mapstructure:"api_key"`
	RateRPS  float64       `yaml:"rate_rps" mapstructure:"rate_rps"`
	CacheTTL time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	Domain      string `yaml:"domain" mapstructure:"domain"`
	Username    string `yaml:"username" mapstructure:"username"`
	ConsumerKey string `yaml:"consumer_key" mapstructure:"consumer_key"`
	KeyPath     string `yaml:"key_path" mapstructure:"key_path"`
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
}

// NotionConfig holds Notion API credentials and the review database ID.
type NotionConfig struct {
	APIKey     string `yaml:"api_key" mapstructure:"api_key"`
	ReviewDBID string `yaml:"review_db_id" mapstructure:"review_db_id"`
	Enabled    bool   `yaml:"enabled" mapstructure:"enabled"`
}

// AlertsConfig holds the ops webhook settings.
type AlertsConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig configures the intake HTTP server. An empty APIKey leaves
// the intake endpoint open; inspection endpoints are always open.
type ServerConfig struct {
	Port   int    `yaml:"port" mapstructure:"port"`
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
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
	v.SetEnvPrefix("LISPENDENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "lispendens.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("registry.provider", "portal")
	v.SetDefault("registry.portal.rate_rps", 2.0)
	v.SetDefault("registry.portal.timeout", "10s")
	v.SetDefault("registry.fuzzy_limit", 500)
	v.SetDefault("counties", map[string]string{"flagler": "28", "volusia": "74"})
	v.SetDefault("skiptrace.rate_rps", 1.0)
	v.SetDefault("skiptrace.cache_ttl", "720h")
	v.SetDefault("salesforce.domain", "https://login.salesforce.com")
	v.SetDefault("sync.ftp_host", "sdrftp03.dor.state.fl.us")
	v.SetDefault("sync.ftp_path", "/Tax Roll Data Files")
	v.SetDefault("sync.charset", "latin1")

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

// Validate checks the fields required for the given run mode. Every problem
// is reported in a single error so a misconfigured deployment is fixed in
// one pass rather than one restart per missing field.
func (c *Config) Validate(mode string) error {
	var problems []string

	checkRegistry := func() {
		switch c.Registry.Provider {
		case "portal":
			if c.Registry.Portal.BaseURL == "" {
				problems = append(problems, "registry.portal.base_url is required")
			}
		case "local":
			if c.Postgres.DSN == "" {
				problems = append(problems, "postgres.dsn is required for the local registry")
			}
		default:
			problems = append(problems, fmt.Sprintf("registry.provider must be portal or local, got %q", c.Registry.Provider))
		}
		if c.Registry.FuzzyLimit < 1 {
			problems = append(problems, "registry.fuzzy_limit must be > 0")
		}
		if len(c.Counties) == 0 {
			problems = append(problems, "counties must list at least one county")
		}
	}

	checkStore := func() {
		if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
			problems = append(problems, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
		}
		if c.Store.DSN == "" {
			problems = append(problems, "store.dsn is required")
		}
		if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 32 {
			problems = append(problems, "batch.concurrency must be between 1 and 32")
		}
	}

	checkSinks := func() {
		if c.Salesforce.Enabled {
			if c.Salesforce.Domain == "" {
				problems = append(problems, "salesforce.domain is required")
			}
			if c.Salesforce.Username == "" {
				problems = append(problems, "salesforce.username is required")
			}
			if c.Salesforce.ConsumerKey == "" {
				problems = append(problems, "salesforce.consumer_key is required")
			}
			if c.Salesforce.KeyPath == "" {
				problems = append(problems, "salesforce.key_path is required")
			}
		}
		if c.Notion.Enabled {
			if c.Notion.APIKey == "" {
				problems = append(problems, "notion.api_key is required")
			}
			if c.Notion.ReviewDBID == "" {
				problems = append(problems, "notion.review_db_id is required")
			}
		}
	}

	switch mode {
	case "resolve":
		checkRegistry()
	case "batch":
		checkRegistry()
		checkStore()
		checkSinks()
	case "serve":
		checkRegistry()
		checkStore()
		checkSinks()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "sync":
		if c.Postgres.DSN == "" {
			problems = append(problems, "postgres.dsn is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) == 0 {
		return nil
	}
	return eris.New("config: " + strings.Join(problems, "; "))
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
