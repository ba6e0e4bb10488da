package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable consumed by the core.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	StorageDriverSQLite = "sqlite"
	StorageDriverRedis  = "redis"
	StorageDriverMemory = "memory"
)

type Config struct {
	App      AppConfig
	API      APIConfig
	Storage  StorageConfig
	Redis    RedisConfig
	Keychain KeychainConfig
	Session  SessionConfig
}

// Load reads a .env file when present and then parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type APIConfig struct {
	BaseURL   string        `envconfig:"STOREFRONT_API_BASE_URL" required:"true"`
	Timeout   time.Duration `envconfig:"STOREFRONT_API_TIMEOUT" default:"15s"`
	UserAgent string        `envconfig:"STOREFRONT_API_USER_AGENT" default:"storefront-core"`
}

type StorageConfig struct {
	Driver     string `envconfig:"STOREFRONT_STORAGE_DRIVER" default:"sqlite"`
	SQLitePath string `envconfig:"STOREFRONT_STORAGE_SQLITE_PATH" default:"storefront.db"`
}

func (s StorageConfig) validate() error {
	switch strings.ToLower(s.Driver) {
	case StorageDriverSQLite, StorageDriverRedis, StorageDriverMemory:
		return nil
	default:
		return fmt.Errorf("unknown storage driver %q", s.Driver)
	}
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type KeychainConfig struct {
	Path       string `envconfig:"STOREFRONT_KEYCHAIN_PATH" default:"storefront.keys"`
	Passphrase string `envconfig:"STOREFRONT_KEYCHAIN_PASSPHRASE"`
}

type SessionConfig struct {
	// RefreshLeeway is how close to expiry the access token may get before
	// EnsureFresh exchanges the refresh token.
	RefreshLeeway time.Duration `envconfig:"STOREFRONT_SESSION_REFRESH_LEEWAY" default:"30s"`
}
