package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Storage drivers selectable through DB_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

const minJWTSecretBytes = 64

type Config struct {
	HTTPAddr  string `env:"HTTP_ADDR,  default=:8080"`
	OpsAddr   string `env:"OPS_ADDR,   default=:9090"`
	Env       string `env:"ENV,        default=development"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=false"`

	JWT      JWTConfig
	Security SecurityConfig
	DB       DBConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	AMQP     AMQPConfig
}

type JWTConfig struct {
	Secret       string `env:"APP_JWT_SECRET, required"`
	ExpirationMS int64  `env:"APP_JWT_EXPIRATION_MS, required"`
}

// Expiration returns the token lifetime as a duration.
func (c JWTConfig) Expiration() time.Duration {
	return time.Duration(c.ExpirationMS) * time.Millisecond
}

type SecurityConfig struct {
	BcryptCost int `env:"BCRYPT_COST, default=10"`
}

type DBConfig struct {
	Driver          string        `env:"DB_DRIVER,            default=postgres"`
	URL             string        `env:"DB_URL"`
	User            string        `env:"DB_USER"`
	Password        string        `env:"DB_PASSWORD"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS,    default=10"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS,    default=5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME, default=30m"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=user_service"`
}

// RedisConfig enables the registration lock when Addr is set.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB,              default=0"`
	TLS      bool          `env:"REDIS_TLS,             default=false"`
	LockTTL  time.Duration `env:"REGISTRATION_LOCK_TTL, default=30s"`
}

// AMQPConfig enables event publishing to RabbitMQ when URL is set.
type AMQPConfig struct {
	URL     string `env:"AMQP_URL"`
	Queue   string `env:"AMQP_QUEUE,    default=user.registered"`
	Workers int    `env:"EVENT_WORKERS, default=4"`
}

// Load reads configuration through lookuper and validates it. Pass
// envconfig.OsLookuper() to read the process environment.
func Load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the constraints envconfig tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	if n := len(c.JWT.Secret); n < minJWTSecretBytes {
		errs = append(errs, fmt.Errorf("APP_JWT_SECRET must be at least %d bytes, got %d", minJWTSecretBytes, n))
	}
	if c.JWT.ExpirationMS <= 0 {
		errs = append(errs, errors.New("APP_JWT_EXPIRATION_MS must be positive"))
	}

	switch c.DB.Driver {
	case DriverPostgres, DriverSQLite:
		if c.DB.URL == "" {
			errs = append(errs, fmt.Errorf("DB_URL is required for driver %q", c.DB.Driver))
		}
	case DriverMongo:
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			errs = append(errs, errors.New("MONGO_URI and MONGO_DB are required for driver \"mongo\""))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER %q is not one of postgres, sqlite, mongo", c.DB.Driver))
	}

	if c.AMQP.Workers <= 0 {
		errs = append(errs, errors.New("EVENT_WORKERS must be positive"))
	}

	return errors.Join(errs...)
}
