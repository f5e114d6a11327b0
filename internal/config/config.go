package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Store drivers
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Store         StoreConfig
	Database      DatabaseConfig
	Log           LogConfig
	Observability ObservabilityConfig
	Security      SecurityConfig
	RateLimit     RateLimitConfig
	Bootstrap     BootstrapConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `default:"0.0.0.0"`
	Port            string        `default:"8080"`
	ReadTimeout     time.Duration `split_words:"true" default:"15s"`
	WriteTimeout    time.Duration `split_words:"true" default:"15s"`
	IdleTimeout     time.Duration `split_words:"true" default:"60s"`
	RequestTimeout  time.Duration `split_words:"true" default:"10s"`
	ShutdownTimeout time.Duration `split_words:"true" default:"30s"`
}

// Addr returns the listen address
func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// StoreConfig selects the persistence backend
type StoreConfig struct {
	Driver string `default:"postgres"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host       string `default:"localhost"`
	Port       string `default:"5432"`
	User       string `default:"teamskills"`
	Password   string
	Name       string `default:"teamskills"`
	SSLMode    string `split_words:"true" default:"disable"`
	MaxConns   int32  `split_words:"true" default:"25"`
	MinConns   int32  `split_words:"true" default:"2"`
	AutoSchema bool   `split_words:"true" default:"false"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `default:"info"`
	Format string `default:"json"`
}

// ObservabilityConfig holds tracing and metrics configuration
type ObservabilityConfig struct {
	Enabled        bool    `default:"false"`
	ServiceName    string  `split_words:"true" default:"teamskills"`
	ServiceVersion string  `split_words:"true" default:"0.1.0"`
	SamplingRate   float64 `split_words:"true" default:"1.0"`
}

// SecurityConfig holds the password hashing parameters
type SecurityConfig struct {
	Memory      uint32 `default:"65536"`
	Iterations  uint32 `default:"3"`
	Parallelism uint8  `default:"4"`
	SaltLength  uint32 `split_words:"true" default:"16"`
	KeyLength   uint32 `split_words:"true" default:"32"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64 `split_words:"true" default:"10"`
	Burst             int     `default:"20"`
}

// BootstrapConfig names the first ADMIN. Empty Username disables bootstrap.
type BootstrapConfig struct {
	Username string
	Email    string
	Password string
}

// Load loads configuration from environment variables. Each section reads
// PREFIX_FIELD_NAME, for example DB_AUTO_SCHEMA or SERVER_READ_TIMEOUT.
func Load() (*Config, error) {
	var cfg Config
	sections := []struct {
		prefix string
		target any
	}{
		{"SERVER", &cfg.Server},
		{"STORE", &cfg.Store},
		{"DB", &cfg.Database},
		{"LOG", &cfg.Log},
		{"OTEL", &cfg.Observability},
		{"ARGON2", &cfg.Security},
		{"RATELIMIT", &cfg.RateLimit},
		{"BOOTSTRAP_ADMIN", &cfg.Bootstrap},
	}
	for _, section := range sections {
		if err := envconfig.Process(section.prefix, section.target); err != nil {
			return nil, fmt.Errorf("failed to read %s_* environment: %w", section.prefix, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverPostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverMemory, c.Store.Driver)
	}

	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("RATELIMIT_REQUESTS_PER_SECOND and RATELIMIT_BURST must be positive")
	}

	if c.Bootstrap.Username != "" && (c.Bootstrap.Email == "" || c.Bootstrap.Password == "") {
		return fmt.Errorf("BOOTSTRAP_ADMIN_EMAIL and BOOTSTRAP_ADMIN_PASSWORD are required with BOOTSTRAP_ADMIN_USERNAME")
	}
	return nil
}
