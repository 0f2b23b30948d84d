package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/fairyhunter13/giftlink/pkg/auth"
	"github.com/fairyhunter13/giftlink/pkg/database"
)

// Store backends.
const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	DB       DBConfig
	Log      LogConfig
	Store    StoreConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Password PasswordConfig
	Catalog  CatalogConfig
	Order    OrderConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port            string `envconfig:"SERVER_PORT" default:"3000"`
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT" default:"30"` // seconds
}

// DBConfig holds database-related configuration.
// WARNING: Default password is for local development only.
// In production, set DB_PASSWORD and DB_SSLMODE ("require" or "verify-full").
type DBConfig struct {
	Host        string `envconfig:"DB_HOST" default:"localhost"`
	Port        int    `envconfig:"DB_PORT" default:"5432"`
	User        string `envconfig:"DB_USER" default:"postgres"`
	Password    string `envconfig:"DB_PASSWORD" default:"postgres"` // CHANGE IN PRODUCTION
	Name        string `envconfig:"DB_NAME" default:"giftlink"`
	SSLMode     string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns    int    `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns    int    `envconfig:"DB_MIN_CONNS" default:"5"`
	MaxRetries  int    `envconfig:"DB_MAX_RETRIES" default:"5"`
	AutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"false"`
}

// DSN returns the PostgreSQL connection string.
func (c DBConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, sslMode)
}

// PoolConfig converts the settings for database.NewPool.
func (c DBConfig) PoolConfig() database.PoolConfig {
	return database.PoolConfig{
		DSN:        c.DSN(),
		MaxConns:   int32(c.MaxConns),
		MinConns:   int32(c.MinConns),
		MaxRetries: c.MaxRetries,
	}
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// StoreConfig selects where orders and the redemption ledger live.
type StoreConfig struct {
	Backend string `envconfig:"STORE_BACKEND" default:"postgres"`
}

// RedisConfig configures the merchant session store. With neither URL nor
// Addr set, sessions are kept in process memory.
type RedisConfig struct {
	URL      string `envconfig:"REDIS_URL"`
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// Enabled reports whether a Redis server is configured.
func (c RedisConfig) Enabled() bool {
	return c.URL != "" || c.Addr != ""
}

// ClientConfig converts the settings for database.NewRedisClient.
func (c RedisConfig) ClientConfig() database.RedisConfig {
	return database.RedisConfig{URL: c.URL, Addr: c.Addr, Password: c.Password, DB: c.DB}
}

// JWTConfig configures merchant staff access tokens.
type JWTConfig struct {
	Secret            string `envconfig:"JWT_SECRET"`
	Issuer            string `envconfig:"JWT_ISSUER" default:"giftlink"`
	ExpirationMinutes int    `envconfig:"JWT_EXPIRATION_MINUTES" default:"720"`
}

// TokenConfig converts the settings for pkg/auth.
func (c JWTConfig) TokenConfig() auth.TokenConfig {
	return auth.TokenConfig{
		Secret: c.Secret,
		Issuer: c.Issuer,
		TTL:    time.Duration(c.ExpirationMinutes) * time.Minute,
	}
}

// PasswordConfig holds the Argon2id cost used when hashing seed passwords.
type PasswordConfig struct {
	ArgonMemoryKB    uint32 `envconfig:"ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        uint32 `envconfig:"ARGON_TIME" default:"3"`
	ArgonParallelism uint8  `envconfig:"ARGON_PARALLELISM" default:"2"`
}

// ArgonParams converts the settings for pkg/auth.
func (c PasswordConfig) ArgonParams() auth.ArgonParams {
	params := auth.DefaultArgonParams
	params.Memory = c.ArgonMemoryKB
	params.Time = c.ArgonTime
	params.Parallelism = c.ArgonParallelism
	return params
}

// CatalogConfig points at the merchant/product/staff seed file.
type CatalogConfig struct {
	Path string `envconfig:"CATALOG_PATH" default:"config/catalog.yaml"`
}

// OrderConfig tunes order creation and the expiry sweeper.
type OrderConfig struct {
	CodeMaxAttempts     int           `envconfig:"ORDER_CODE_MAX_ATTEMPTS" default:"8"`
	ExpirySweepInterval time.Duration `envconfig:"ORDER_EXPIRY_SWEEP_INTERVAL" default:"15m"`
	ExpirySweepBatch    int           `envconfig:"ORDER_EXPIRY_SWEEP_BATCH" default:"200"`
}

// Load reads an optional .env file and parses environment variables into
// the Config struct.
func Load() (*Config, error) {
	// Missing .env is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDB reads only the database settings, for tools that never serve HTTP.
func LoadDB() (*DBConfig, error) {
	_ = godotenv.Load()

	var cfg DBConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreBackendPostgres, StoreBackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreBackendPostgres, StoreBackendMemory, c.Store.Backend)
	}
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.JWT.ExpirationMinutes <= 0 {
		return errors.New("JWT_EXPIRATION_MINUTES must be positive")
	}
	if c.Order.CodeMaxAttempts <= 0 {
		return errors.New("ORDER_CODE_MAX_ATTEMPTS must be positive")
	}
	if c.Password.ArgonMemoryKB == 0 || c.Password.ArgonTime == 0 || c.Password.ArgonParallelism == 0 {
		return errors.New("argon2 parameters must be positive")
	}
	return nil
}
