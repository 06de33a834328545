package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Tenancy       TenancyConfig
	Scheduler     SchedulerConfig
	Reconcile     ReconcileConfig
	Observability ObservabilityConfig
	RateLimit     RateLimitConfig
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// AuthConfig holds bearer token verification configuration.
// The credential/session subsystem lives outside this service; we only
// verify the tokens it issues.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// TenancyConfig holds tenant resolution configuration
type TenancyConfig struct {
	// AdminHostname resolves to the administrative realm instead of a
	// tenant (e.g. "admin.clubly.app").
	AdminHostname string
	// DirectoryCacheTTL bounds how long a domain→tenant mapping is served
	// from memory before falling through to the store again.
	DirectoryCacheTTL time.Duration
}

// SchedulerConfig holds recurring job scheduling configuration
type SchedulerConfig struct {
	// TickInterval is how often the driving loop scans for due jobs.
	TickInterval time.Duration
	Enabled      bool
}

// ReconcileConfig holds external reconciliation configuration
type ReconcileConfig struct {
	// FetchTimeout bounds one outbound call to the external contract API.
	FetchTimeout time.Duration
	// DefaultIntervalHours seeds the reconciliation job's schedule on
	// first registration; operators change it at runtime.
	DefaultIntervalHours int
	RetryCount           int
}

// ObservabilityConfig holds logging and tracing configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string
	OTELEnabled    bool
	ServiceName    string
	ServiceVersion string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  parseDuration("SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout: parseDuration("SERVER_WRITE_TIMEOUT", "15s"),
			IdleTimeout:  parseDuration("SERVER_IDLE_TIMEOUT", "60s"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "clubly"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "clubly"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    parseInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    parseInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: parseDuration("DB_CONN_MAX_LIFETIME", "5m"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
			Issuer:    getEnv("AUTH_ISSUER", "clubly-identity"),
		},
		Tenancy: TenancyConfig{
			AdminHostname:     getEnv("TENANCY_ADMIN_HOSTNAME", "admin.clubly.app"),
			DirectoryCacheTTL: parseDuration("TENANCY_CACHE_TTL", "5m"),
		},
		Scheduler: SchedulerConfig{
			TickInterval: parseDuration("SCHEDULER_TICK_INTERVAL", "1m"),
			Enabled:      parseBool("SCHEDULER_ENABLED", true),
		},
		Reconcile: ReconcileConfig{
			FetchTimeout:         parseDuration("RECONCILE_FETCH_TIMEOUT", "30s"),
			DefaultIntervalHours: parseInt("RECONCILE_INTERVAL_HOURS", 24),
			RetryCount:           parseInt("RECONCILE_RETRY_COUNT", 2),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			OTELEnabled:    parseBool("OTEL_ENABLED", false),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "clubly"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "0.1.0"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: float64(parseInt("RATELIMIT_RPS", 10)),
			Burst:             parseInt("RATELIMIT_BURST", 20),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	if c.Tenancy.AdminHostname == "" {
		return fmt.Errorf("TENANCY_ADMIN_HOSTNAME is required")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func parseBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func parseDuration(key string, defaultValue string) time.Duration {
	value := getEnv(key, defaultValue)
	d, err := time.ParseDuration(value)
	if err != nil {
		// Fallback to default
		d, _ = time.ParseDuration(defaultValue)
	}
	return d
}
