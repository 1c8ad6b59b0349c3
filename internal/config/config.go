package config

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/quote-pivot/internal/period"
)

// Config holds the full application configuration.
type Config struct {
	Pivot  PivotConfig  `yaml:"pivot" mapstructure:"pivot"`
	Fetch  FetchConfig  `yaml:"fetch" mapstructure:"fetch"`
	Batch  BatchConfig  `yaml:"batch" mapstructure:"batch"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// PivotConfig configures parsing, validation and grid output.
type PivotConfig struct {
	CenturyPivot int    `yaml:"century_pivot" mapstructure:"century_pivot"`
	DateLayout   string `yaml:"date_layout" mapstructure:"date_layout"`
	Delimiter    string `yaml:"delimiter" mapstructure:"delimiter"`
	CRLF         bool   `yaml:"crlf" mapstructure:"crlf"`
	AssumeYes    bool   `yaml:"assume_yes" mapstructure:"assume_yes"`
}

// DelimiterRune returns the configured delimiter, or ',' when unset.
func (p PivotConfig) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(p.Delimiter)
	if r == utf8.RuneError {
		return ','
	}
	return r
}

// FetchConfig configures remote (HTTP and FTP) sources.
type FetchConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// BatchConfig configures multi-file runs.
type BatchConfig struct {
	MaxConcurrentFiles int `yaml:"max_concurrent_files" mapstructure:"max_concurrent_files"`
}

// StoreConfig configures the run history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	CORSOrigins    []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
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
	v.SetEnvPrefix("QUOTEPIVOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("pivot.century_pivot", period.DefaultCenturyPivot)
	v.SetDefault("pivot.date_layout", "02/01/2006")
	v.SetDefault("pivot.delimiter", ",")
	v.SetDefault("pivot.crlf", false)
	v.SetDefault("pivot.assume_yes", false)
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.user_agent", "quote-pivot/1.0")
	v.SetDefault("fetch.rate_per_sec", 5)
	v.SetDefault("batch.max_concurrent_files", 4)
	v.SetDefault("store.driver", "none")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.max_upload_bytes", 10<<20)
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

// Validate checks the settings a command mode depends on. Modes: "pivot"
// (pivot, validate and batch commands), "runs" and "serve". All problems are
// reported together.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "pivot":
		errs = append(errs, c.validatePivot()...)
		errs = append(errs, c.validateStore()...)
	case "runs":
		errs = append(errs, c.validateStore()...)
		if c.Store.Driver == "none" || c.Store.Driver == "" {
			errs = append(errs, "store.driver must be sqlite or postgres to keep run history")
		}
	case "serve":
		errs = append(errs, c.validatePivot()...)
		errs = append(errs, c.validateStore()...)
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Server.MaxUploadBytes <= 0 {
			errs = append(errs, "server.max_upload_bytes must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validatePivot() []string {
	var errs []string
	if c.Pivot.CenturyPivot < 0 || c.Pivot.CenturyPivot > 99 {
		errs = append(errs, fmt.Sprintf("pivot.century_pivot must be between 0 and 99, got %d", c.Pivot.CenturyPivot))
	}
	if strings.TrimSpace(c.Pivot.DateLayout) == "" {
		errs = append(errs, "pivot.date_layout is required")
	}
	if n := utf8.RuneCountInString(c.Pivot.Delimiter); n > 1 {
		errs = append(errs, fmt.Sprintf("pivot.delimiter must be a single character, got %q", c.Pivot.Delimiter))
	}
	if d := c.Pivot.DelimiterRune(); d == '"' || d == '\r' || d == '\n' {
		errs = append(errs, fmt.Sprintf("pivot.delimiter %q is not allowed", c.Pivot.Delimiter))
	}
	if c.Batch.MaxConcurrentFiles < 1 || c.Batch.MaxConcurrentFiles > 64 {
		errs = append(errs, "batch.max_concurrent_files must be between 1 and 64")
	}
	if c.Fetch.RatePerSec <= 0 {
		errs = append(errs, "fetch.rate_per_sec must be > 0")
	}
	return errs
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case "", "none":
		return nil
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{fmt.Sprintf("store.database_url is required for driver %s", c.Store.Driver)}
		}
		return nil
	default:
		return []string{fmt.Sprintf("store.driver must be one of none, sqlite, postgres, got %q", c.Store.Driver)}
	}
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
