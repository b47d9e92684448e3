package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	CRM       CRMConfig       `mapstructure:"crm"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // in minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // in minutes
}

// RedisConfig holds Redis connection settings.
// An empty Host disables Redis and the in-memory stores are used instead.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                string        `mapstructure:"secret"`
	AccessTokenExpiration time.Duration `mapstructure:"access_token_expiration"`
	Issuer                string        `mapstructure:"issuer"`
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes   int           `mapstructure:"max_header_bytes"`
	MaxBodySize      int64         `mapstructure:"max_body_size"`
	CORSAllowOrigins []string      `mapstructure:"cors_allow_origins"`
	CORSAllowMethods []string      `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders []string      `mapstructure:"cors_allow_headers"`
	TrustedProxies   []string      `mapstructure:"trusted_proxies"`
}

// WebhookConfig holds identity provider webhook settings
type WebhookConfig struct {
	SigningSecret  string        `mapstructure:"signing_secret"` // whsec_ prefixed base64 secret
	Tolerance      time.Duration `mapstructure:"tolerance"`      // Allowed clock skew for the signed timestamp
	AllowUnsigned  bool          `mapstructure:"allow_unsigned"` // Development only: skip signature verification
	MaxPayloadSize int64         `mapstructure:"max_payload_size"`
	DedupeTTL      time.Duration `mapstructure:"dedupe_ttl"` // How long processed message IDs are remembered
}

// CRMConfig holds CRM contact API settings
type CRMConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxBodySize int64         `mapstructure:"max_body_size"`
}

// SyncConfig holds reconciliation and backfill settings
type SyncConfig struct {
	BulkDefaultLimit int           `mapstructure:"bulk_default_limit"`
	BulkMaxLimit     int           `mapstructure:"bulk_max_limit"`
	CallDelay        time.Duration `mapstructure:"call_delay"` // Pause between consecutive CRM calls in a backfill run
	Workers          int           `mapstructure:"workers"`    // Background workers for post-signup sync
	QueueSize        int           `mapstructure:"queue_size"`
	JobTimeout       time.Duration `mapstructure:"job_timeout"`
	LockTTL          time.Duration `mapstructure:"lock_ttl"` // Per-user reconciliation lock lifetime
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool          `mapstructure:"enabled"`            // Whether to enable tracing
	MetricsEnabled    bool          `mapstructure:"metrics_enabled"`    // Whether to export metrics
	LogsEnabled       bool          `mapstructure:"logs_enabled"`       // Whether to bridge zap logs to OTLP
	CollectorEndpoint string        `mapstructure:"collector_endpoint"` // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64       `mapstructure:"sampling_ratio"`     // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string        `mapstructure:"service_name"`
	Insecure          bool          `mapstructure:"insecure"`         // Use insecure (non-TLS) connection (development only)
	MetricsInterval   time.Duration `mapstructure:"metrics_interval"` // Metrics export interval
	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"` // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"`  // Log full SQL statements (dev only)
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`
}

// defaults seeds every key so AutomaticEnv can override it. Keys without a
// sensible default are registered with their zero value.
var defaults = map[string]any{
	"app.name": "fintrack-backend",
	"app.env":  "development",
	"app.port": "8080",

	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "fintrack",
	"database.sslmode":            "disable",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,

	"redis.host":     "",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"jwt.secret":                  "",
	"jwt.access_token_expiration": 15 * time.Minute,
	"jwt.issuer":                  "fintrack-backend",

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	// write_timeout covers a manual sync waiting on the CRM, so it stays
	// well above crm.timeout
	"http.read_timeout":       15 * time.Second,
	"http.write_timeout":      60 * time.Second,
	"http.idle_timeout":       60 * time.Second,
	"http.max_header_bytes":   1 << 20,
	"http.max_body_size":      1 << 20,
	"http.cors_allow_origins": []string{},
	"http.cors_allow_methods": []string{"GET", "POST", "OPTIONS"},
	"http.cors_allow_headers": []string{"Content-Type", "Authorization", "X-Request-ID"},
	"http.trusted_proxies":    []string{},

	"webhook.signing_secret":   "",
	"webhook.tolerance":        5 * time.Minute,
	"webhook.allow_unsigned":   false,
	"webhook.max_payload_size": 256 << 10,
	"webhook.dedupe_ttl":       24 * time.Hour,

	"crm.base_url":      "https://api.hubapi.com",
	"crm.api_key":       "",
	"crm.timeout":       15 * time.Second,
	"crm.max_body_size": 1 << 20,

	"sync.bulk_default_limit": 50,
	"sync.bulk_max_limit":     100,
	"sync.call_delay":         100 * time.Millisecond,
	"sync.workers":            4,
	"sync.queue_size":         256,
	"sync.job_timeout":        time.Minute,
	"sync.lock_ttl":           2 * time.Minute,

	"telemetry.enabled":                 false,
	"telemetry.metrics_enabled":         false,
	"telemetry.logs_enabled":            false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "",
	"telemetry.insecure":                false,
	"telemetry.metrics_interval":        time.Minute,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_log_full_sql":         false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,
}

// Load reads config.toml from ., ./config or /app, then lets FINTRACK_*
// environment variables override any key (FINTRACK_CRM_API_KEY sets
// crm.api_key). A missing file is not an error.
func Load() (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix("FINTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading files or the
// environment
func Default() (*Config, error) {
	return decode(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	return &cfg, nil
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Sync.BulkDefaultLimit < 1 || c.Sync.BulkDefaultLimit > c.Sync.BulkMaxLimit {
		return fmt.Errorf("sync.bulk_default_limit must be between 1 and sync.bulk_max_limit (%d)", c.Sync.BulkMaxLimit)
	}
	if c.Sync.CallDelay < 0 {
		return fmt.Errorf("sync.call_delay cannot be negative")
	}
	if c.Sync.Workers < 1 {
		return fmt.Errorf("sync.workers must be positive")
	}

	if c.IsProduction() {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Webhook.AllowUnsigned {
			return fmt.Errorf("webhook.allow_unsigned cannot be enabled in production")
		}
		if c.Webhook.SigningSecret == "" {
			return fmt.Errorf("webhook.signing_secret is required in production")
		}
		if c.CRM.APIKey == "" {
			return fmt.Errorf("crm.api_key is required in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// IsProduction reports whether the app runs in the production environment
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns host:port for the Redis server, or empty when Redis is not configured
func (r *RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
