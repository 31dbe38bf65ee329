// Package mongo implements the user and role stores on MongoDB. Roles are
// embedded in user documents, so a loaded user always carries its roles.
package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultTimeout = 10 * time.Second
	appName        = "user-service"

	collectionUsers    = "users"
	collectionRoles    = "roles"
	collectionCounters = "counters"
)

type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Store is a ready-to-use user and role store. Its unique indexes exist by the
// time Open returns.
type Store struct {
	Client *mongo.Client
	Users  *UserRepository
	Roles  *RoleRepository
	Tx     *Transactor
}

func newStore(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		Client: client,
		Users:  NewUserRepository(db),
		Roles:  NewRoleRepository(db),
		Tx:     NewTransactor(client),
	}
}

// Open connects to cfg.URI, pings the primary and creates the unique email and
// role name indexes. The client is disconnected again on any failure.
func Open(ctx context.Context, cfg Config, log zerolog.Logger) (*Store, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI).SetAppName(appName))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	st := newStore(client, client.Database(cfg.Database))
	if err := st.bootstrap(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	log.Info().Str("database", cfg.Database).Msg("mongo store ready")
	return st, nil
}

func (s *Store) bootstrap(ctx context.Context) error {
	if err := s.Users.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("mongo %s indexes: %w", collectionUsers, err)
	}
	if err := s.Roles.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("mongo %s indexes: %w", collectionRoles, err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.Client.Disconnect(ctx)
}
