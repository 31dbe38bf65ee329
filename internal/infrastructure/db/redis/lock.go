package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const defaultLockTTL = 30 * time.Second

// releaseScript deletes the lock only while it still holds our token, so a
// lock that expired and was taken by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RegistrationLock implements ports.RegistrationGuard with SET NX PX.
// Key format: register:lock:<email>
type RegistrationLock struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewRegistrationLock wraps client. If ttl <= 0, defaultLockTTL is used.
func NewRegistrationLock(client *redis.Client, ttl time.Duration, log zerolog.Logger) *RegistrationLock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RegistrationLock{
		client: client,
		ttl:    ttl,
		log:    log.With().Str("component", "registration_lock").Logger(),
	}
}

// Acquire tries to take the lock for email. acquired is false when another
// registration of the same email is in flight.
func (l *RegistrationLock) Acquire(ctx context.Context, email string) (bool, func(), error) {
	token := uuid.NewString()
	key := l.key(email)
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return false, nil, fmt.Errorf("registration lock: %w", err)
	}
	if !ok {
		return false, nil, nil
	}

	release := func() {
		// The request ctx may already be cancelled by the time we release.
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultTimeout)
		defer cancel()
		if err := releaseScript.Run(relCtx, l.client, []string{key}, token).Err(); err != nil {
			l.log.Warn().Err(err).Str("key", key).Msg("registration lock release failed")
		}
	}
	return true, release, nil
}

func (l *RegistrationLock) key(email string) string {
	return "register:lock:" + email
}

// Client exposes the underlying client for readiness checks.
func (l *RegistrationLock) Client() *redis.Client { return l.client }

func (l *RegistrationLock) Close() error { return l.client.Close() }
