package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const defaultTimeout = 5 * time.Second

// Config describes the Redis backend of the registration lock.
type Config struct {
	Addr     string
	Password string
	DB       int
	TLS      bool
	LockTTL  time.Duration
	Timeout  time.Duration
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return defaultTimeout
	}
	return c.Timeout
}

func (c Config) options() *redis.Options {
	opts := &redis.Options{
		Addr:        c.Addr,
		Password:    c.Password,
		DB:          c.DB,
		DialTimeout: c.timeout(),
	}
	if c.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

// OpenRegistrationLock dials Redis, pings it and returns a lock that owns the
// client. Close the lock to release the connection pool.
func OpenRegistrationLock(ctx context.Context, cfg Config, log zerolog.Logger) (*RegistrationLock, error) {
	client := redis.NewClient(cfg.options())

	pingCtx, cancel := context.WithTimeout(ctx, cfg.timeout())
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("registration lock: redis %s: %w", cfg.Addr, err)
	}

	lock := NewRegistrationLock(client, cfg.LockTTL, log)
	lock.log.Info().Str("addr", cfg.Addr).Bool("tls", cfg.TLS).Dur("ttl", lock.ttl).Msg("registration lock ready")
	return lock, nil
}
