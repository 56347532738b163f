package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	API      APIConfig
	Storage  StorageConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Square   SquareConfig
	Checkout CheckoutConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.API.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RMJ_APP_ENV" required:"true"`
	Port         string `envconfig:"RMJ_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"RMJ_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RMJ_LOG_WARN_STACK" default:"false"`

	CORSOrigins     []string      `envconfig:"RMJ_CORS_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	ShutdownTimeout time.Duration `envconfig:"RMJ_SHUTDOWN_TIMEOUT" default:"10s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// APIConfig points the client at the storefront REST backend.
type APIConfig struct {
	BaseURL string `envconfig:"RMJ_API_BASE_URL" default:"http://localhost:3000/api"`
	// Timeout of zero leaves requests bounded only by the caller's context.
	Timeout          time.Duration `envconfig:"RMJ_API_TIMEOUT" default:"0s"`
	BreakerFailures  uint32        `envconfig:"RMJ_API_BREAKER_FAILURES" default:"5"`
	BreakerCooldown  time.Duration `envconfig:"RMJ_API_BREAKER_COOLDOWN" default:"30s"`
	BreakerHalfOpenN uint32        `envconfig:"RMJ_API_BREAKER_HALF_OPEN_REQUESTS" default:"1"`
}

func (a APIConfig) validate() error {
	parsed, err := url.Parse(strings.TrimSpace(a.BaseURL))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", EnvAPIBaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) url", EnvAPIBaseURL)
	}
	return nil
}

// StorageConfig selects the durable key-value backend holding the cart and the user session.
type StorageConfig struct {
	Driver      string `envconfig:"RMJ_STORAGE_DRIVER" default:"sqlite"`
	DSN         string `envconfig:"RMJ_STORAGE_DSN" default:"file:rmjobsites.db?_busy_timeout=5000"`
	AutoMigrate bool   `envconfig:"RMJ_STORAGE_AUTO_MIGRATE" default:"true"`

	MaxOpenConns    int           `envconfig:"RMJ_STORAGE_MAX_OPEN_CONNS" default:"4"`
	MaxIdleConns    int           `envconfig:"RMJ_STORAGE_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"RMJ_STORAGE_CONN_MAX_LIFETIME" default:"1h"`
}

func (s StorageConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(s.Driver)) {
	case StorageDriverSQLite, StorageDriverPostgres:
		if strings.TrimSpace(s.DSN) == "" {
			return fmt.Errorf("%s is required for driver %q", EnvStorageDSN, s.Driver)
		}
		return nil
	case StorageDriverRedis, StorageDriverMemory:
		return nil
	default:
		return fmt.Errorf("%s must be one of %s", EnvStorageDriver, strings.Join(storageDrivers, ", "))
	}
}

// NormalizedDriver returns the lower-cased storage driver name.
func (s StorageConfig) NormalizedDriver() string {
	return strings.ToLower(strings.TrimSpace(s.Driver))
}

type RedisConfig struct {
	URL          string        `envconfig:"RMJ_REDIS_URL"`
	Address      string        `envconfig:"RMJ_REDIS_ADDR"`
	Password     string        `envconfig:"RMJ_REDIS_PASSWORD"`
	DB           int           `envconfig:"RMJ_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RMJ_REDIS_POOL_SIZE" default:"4"`
	MinIdleConns int           `envconfig:"RMJ_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"RMJ_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RMJ_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RMJ_REDIS_WRITE_TIMEOUT" default:"5s"`
	KeyNamespace string        `envconfig:"RMJ_REDIS_NAMESPACE" default:"rmj"`
}

type AuthConfig struct {
	SessionTTL time.Duration `envconfig:"RMJ_AUTH_SESSION_TTL" default:"168h"`
}

// SquareConfig carries local Square settings. Application and location ids come from the
// backend's /config/square endpoint; the access token is optional and only used to verify the
// location during SDK initialization.
type SquareConfig struct {
	Env         string `envconfig:"RMJ_SQUARE_ENV" default:"sandbox"`
	AccessToken string `envconfig:"RMJ_SQUARE_ACCESS_TOKEN"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type CheckoutConfig struct {
	CardContainerID string        `envconfig:"RMJ_CHECKOUT_CARD_CONTAINER" default:"card-container"`
	SearchDebounce  time.Duration `envconfig:"RMJ_SEARCH_DEBOUNCE" default:"300ms"`
	SearchLimit     int           `envconfig:"RMJ_SEARCH_LIMIT" default:"5"`
}
