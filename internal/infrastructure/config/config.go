package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dkemmer/servicegate/internal/secrets"
)

// ErrMissingConfiguration indicates a required environment value was
// absent at startup. It is fatal: callers should abort rather than run
// with unusable credentials.
var ErrMissingConfiguration = errors.New("missing required configuration")

// Config is the root configuration for servicegate.
//
// It is built once at startup (Load) and treated as read-only for the
// rest of the process lifetime; components receive it by injection, not
// through package-level state.
type Config struct {
	Miro       MiroConfig       `yaml:"miro"`
	Stripe     StripeConfig     `yaml:"stripe"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Security   SecurityConfig   `yaml:"security"`
	API        APIConfig        `yaml:"api"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// MiroConfig contains credentials for the Miro board API.
type MiroConfig struct {
	AccessToken secrets.Secret `yaml:"access_token"`
	BoardID     string         `yaml:"board_id"`
}

// StripeConfig contains credentials for the Stripe payments API.
type StripeConfig struct {
	APIKey secrets.Secret `yaml:"api_key"`
}

// ClickHouseConfig contains ClickHouse connection settings.
type ClickHouseConfig struct {
	Host     string         `yaml:"host"`
	Port     int            `yaml:"port"`
	User     string         `yaml:"user"`
	Password secrets.Secret `yaml:"password"`
	Database string         `yaml:"database"`
}

// DSN returns the clickhouse:// connection string for the configured
// server. The result embeds the raw password and must never be logged;
// pass it only to the driver.
func (c ClickHouseConfig) DSN() string {
	return fmt.Sprintf("clickhouse://%s:%s@%s:%d/%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password.Reveal()),
		c.Host, c.Port, c.Database,
	)
}

// SecurityConfig contains the token-signing key.
type SecurityConfig struct {
	EncryptionKey secrets.Secret `yaml:"encryption_key"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// DatabaseConfig contains settings for the SQLite audit store.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load builds the configuration from defaults, an optional YAML file,
// and environment variables, in that order of precedence (environment
// wins).
//
// Service credentials follow a prefix-per-group convention: MIRO_*,
// STRIPE_*, CLICKHOUSE_*, plus the unprefixed ENCRYPTION_KEY. Ambient
// settings (API port, logging, audit store) use the SERVICEGATE_
// prefix.
//
// Required values without defaults (MIRO_ACCESS_TOKEN, MIRO_BOARD_ID,
// STRIPE_API_KEY, CLICKHOUSE_PASSWORD, ENCRYPTION_KEY) are checked
// last; all missing names are reported together in a single error
// wrapping ErrMissingConfiguration.
//
// An empty path skips the file stage and loads from environment only.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.checkRequired(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with the documented defaults. Values
// without a default (credentials) are left empty and caught by
// checkRequired.
func defaultConfig() *Config {
	return &Config{
		ClickHouse: ClickHouseConfig{
			Host:     "localhost",
			Port:     9000,
			User:     "default",
			Database: "default",
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/servicegate.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(cfg *Config) error {
	// Miro
	if v := os.Getenv("MIRO_ACCESS_TOKEN"); v != "" {
		cfg.Miro.AccessToken = secrets.New(v)
	}
	if v := os.Getenv("MIRO_BOARD_ID"); v != "" {
		cfg.Miro.BoardID = v
	}

	// Stripe
	if v := os.Getenv("STRIPE_API_KEY"); v != "" {
		cfg.Stripe.APIKey = secrets.New(v)
	}

	// ClickHouse
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		cfg.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			// Type errors surface at load time; the validator only
			// range-checks the already-typed value.
			return fmt.Errorf("CLICKHOUSE_PORT: port must be an integer: %w", err)
		}
		cfg.ClickHouse.Port = port
	}
	if v := os.Getenv("CLICKHOUSE_USER"); v != "" {
		cfg.ClickHouse.User = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		cfg.ClickHouse.Password = secrets.New(v)
	}
	if v := os.Getenv("CLICKHOUSE_DATABASE"); v != "" {
		cfg.ClickHouse.Database = v
	}

	// Security - token signing key (unprefixed, matches deployment convention)
	if v := os.Getenv("ENCRYPTION_KEY"); v != "" {
		cfg.Security.EncryptionKey = secrets.New(v)
	}

	// Ambient overrides
	if v := os.Getenv("SERVICEGATE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("SERVICEGATE_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SERVICEGATE_API_PORT: port must be an integer: %w", err)
		}
		cfg.API.Port = port
	}
	if v := os.Getenv("SERVICEGATE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("SERVICEGATE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SERVICEGATE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	return nil
}

// checkRequired verifies every required-without-default value is
// present, collecting all missing names so a broken deployment is
// reported in one pass.
func (c *Config) checkRequired() error {
	var missing []string

	if c.Miro.AccessToken.Reveal() == "" {
		missing = append(missing, "MIRO_ACCESS_TOKEN")
	}
	if c.Miro.BoardID == "" {
		missing = append(missing, "MIRO_BOARD_ID")
	}
	if c.Stripe.APIKey.Reveal() == "" {
		missing = append(missing, "STRIPE_API_KEY")
	}
	if c.ClickHouse.Password.Reveal() == "" {
		missing = append(missing, "CLICKHOUSE_PASSWORD")
	}
	if c.Security.EncryptionKey.Reveal() == "" {
		missing = append(missing, "ENCRYPTION_KEY")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfiguration, strings.Join(missing, ", "))
	}
	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
