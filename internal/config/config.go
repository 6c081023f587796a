package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type Config struct {
	App       AppConfig
	Store     StoreConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Analytics AnalyticsConfig
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Store.Driver == "" {
		c.Store.Driver = StoreMemory
	}
	switch c.Store.Driver {
	case StoreMemory:
	case StorePostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("PUERTO_DB_DSN is required when PUERTO_STORE_DRIVER=postgres")
		}
	case StoreRedis:
		if c.Redis.URL == "" && c.Redis.Address == "" {
			return fmt.Errorf("PUERTO_REDIS_URL or PUERTO_REDIS_ADDR is required when PUERTO_STORE_DRIVER=redis")
		}
	default:
		return fmt.Errorf("unknown store driver %q (expected memory, postgres or redis)", c.Store.Driver)
	}
	if c.App.IsProd() && (c.Auth.JWTSecret == "" || c.Auth.JWTSecret == defaultJWTSecret) {
		return fmt.Errorf("PUERTO_JWT_SECRET must be set in prod")
	}
	return nil
}

type AppConfig struct {
	Env            string `envconfig:"PUERTO_APP_ENV" default:"dev"`
	Port           string `envconfig:"PUERTO_APP_PORT" default:"8080"`
	LogLevel       string `envconfig:"PUERTO_LOG_LEVEL" default:"info"`
	LogFormat      string `envconfig:"PUERTO_LOG_FORMAT" default:"json"`
	AllowedOrigins string `envconfig:"PUERTO_ALLOWED_ORIGINS"`
	SeedFile       string `envconfig:"PUERTO_SEED_FILE"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type StoreConfig struct {
	Driver string `envconfig:"PUERTO_STORE_DRIVER" default:"memory"`
	// AtomicCodes hands out purchase codes from the store instead of the
	// local ledger length.
	AtomicCodes bool `envconfig:"PUERTO_ATOMIC_CODES" default:"false"`
}

type DBConfig struct {
	DSN         string `envconfig:"PUERTO_DB_DSN"`
	AutoMigrate bool   `envconfig:"PUERTO_DB_AUTO_MIGRATE" default:"true"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PUERTO_REDIS_URL"`
	Address      string        `envconfig:"PUERTO_REDIS_ADDR"`
	Password     string        `envconfig:"PUERTO_REDIS_PASSWORD"`
	DB           int           `envconfig:"PUERTO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PUERTO_REDIS_POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"PUERTO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PUERTO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PUERTO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

const defaultJWTSecret = "puerto-real-dev-secret"

type AuthConfig struct {
	JWTSecret     string        `envconfig:"PUERTO_JWT_SECRET" default:"puerto-real-dev-secret"`
	JWTIssuer     string        `envconfig:"PUERTO_JWT_ISSUER" default:"puerto-real"`
	TokenTTL      time.Duration `envconfig:"PUERTO_TOKEN_TTL" default:"1h"`
	ResetTokenTTL time.Duration `envconfig:"PUERTO_RESET_TOKEN_TTL" default:"30m"`
	UserDBDriver  string        `envconfig:"PUERTO_USER_DB_DRIVER" default:"sqlite"`
	UserDBDSN     string        `envconfig:"PUERTO_USER_DB_DSN" default:"puerto-real.db"`
}

type AnalyticsConfig struct {
	LowStockThreshold int `envconfig:"PUERTO_LOW_STOCK_THRESHOLD" default:"50"`
}
