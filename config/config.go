package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Services  ServicesConfig
	Lifecycle LifecycleConfig
	Tracing   TracingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Driver   string // postgres or memory
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/registrations?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// ServicesConfig locates the user and event services.
type ServicesConfig struct {
	UserServiceURL  string
	EventServiceURL string
	GatewayTimeout  time.Duration
	TeamCacheTTL    time.Duration // 0 disables the team cache
}

// LifecycleConfig tunes the registration lifecycle engine.
type LifecycleConfig struct {
	PromotionScope  string // event or global
	SecretSeed      uint64 // 0 seeds from the clock
	RetryAttempts   int
	RetryMinBackoff time.Duration
	RetryMaxBackoff time.Duration
	WorkerInProcess bool
}

// TracingConfig selects the span exporter.
type TracingConfig struct {
	Exporter     string // none, stdout or otlp
	OTLPEndpoint string
	ServiceName  string
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("STORE_DRIVER", StoreDriverPostgres),
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "registrations"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		Services: ServicesConfig{
			UserServiceURL:  getEnv("USER_SERVICE_URL", "http://localhost:8081"),
			EventServiceURL: getEnv("EVENT_SERVICE_URL", "http://localhost:8082"),
			GatewayTimeout:  time.Duration(getEnvInt("GATEWAY_TIMEOUT_MS", 5000)) * time.Millisecond,
			TeamCacheTTL:    time.Duration(getEnvInt("TEAM_CACHE_TTL_SEC", 30)) * time.Second,
		},
		Lifecycle: LifecycleConfig{
			PromotionScope:  getEnv("WAITLIST_PROMOTION_SCOPE", "event"),
			SecretSeed:      getEnvUint("SECRET_SEED", 0),
			RetryAttempts:   getEnvInt("RETRY_MAX_ATTEMPTS", 3),
			RetryMinBackoff: time.Duration(getEnvInt("RETRY_MIN_BACKOFF_MS", 100)) * time.Millisecond,
			RetryMaxBackoff: time.Duration(getEnvInt("RETRY_MAX_BACKOFF_MS", 2000)) * time.Millisecond,
			WorkerInProcess: getEnvBool("WORKER_IN_PROCESS", false),
		},
		Tracing: TracingConfig{
			Exporter:     getEnv("TRACING_EXPORTER", "none"),
			OTLPEndpoint: getEnv("OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  getEnv("TRACING_SERVICE_NAME", "registration-service"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Database.Driver)
	}
	switch c.Lifecycle.PromotionScope {
	case "event", "global":
	default:
		return fmt.Errorf("unknown WAITLIST_PROMOTION_SCOPE %q", c.Lifecycle.PromotionScope)
	}
	switch c.Tracing.Exporter {
	case "none", "stdout", "otlp":
	default:
		return fmt.Errorf("unknown TRACING_EXPORTER %q", c.Tracing.Exporter)
	}
	if c.Services.GatewayTimeout <= 0 {
		return fmt.Errorf("GATEWAY_TIMEOUT_MS must be positive")
	}
	if c.Lifecycle.RetryAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvUint(key string, fallback uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
