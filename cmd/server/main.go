// @title           User Service API
// @version         1.0
// @description     Registration, login and bearer-token authentication for banking clients.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"

	"github.com/bankingapp/user-service/internal/api"
	"github.com/bankingapp/user-service/internal/core/ports"
	"github.com/bankingapp/user-service/internal/core/service"
	"github.com/bankingapp/user-service/internal/infrastructure/config"
	mongostore "github.com/bankingapp/user-service/internal/infrastructure/db/mongo"
	redisstore "github.com/bankingapp/user-service/internal/infrastructure/db/redis"
	"github.com/bankingapp/user-service/internal/infrastructure/db/sqldb"
	opshttp "github.com/bankingapp/user-service/internal/infrastructure/http"
	"github.com/bankingapp/user-service/internal/infrastructure/http/handlers"
	"github.com/bankingapp/user-service/internal/infrastructure/queue"
	"github.com/bankingapp/user-service/internal/infrastructure/security"
	"github.com/bankingapp/user-service/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "user-service: %v\n", err)
		os.Exit(1)
	}
}

// store bundles the persistence ports of whichever driver is configured.
type store struct {
	users  ports.UserRepository
	roles  ports.RoleRepository
	tx     ports.Transactor
	checks []handlers.Check
	close  func(ctx context.Context)
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx, envconfig.OsLookuper())
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: "user-service",
	})
	log.Info().Str("env", cfg.Env).Str("db_driver", cfg.DB.Driver).Msg("starting")

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close(context.Background())

	if err := service.NewRoleSeeder(st.roles, log).Seed(ctx); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}

	tokens, err := security.NewTokenCodec([]byte(cfg.JWT.Secret), cfg.JWT.Expiration(), log)
	if err != nil {
		return fmt.Errorf("token codec: %w", err)
	}
	hasher, err := security.NewBcryptHasher(cfg.Security.BcryptCost)
	if err != nil {
		return fmt.Errorf("password hasher: %w", err)
	}

	var guard ports.RegistrationGuard
	if cfg.Redis.Addr != "" {
		lock, err := redisstore.OpenRegistrationLock(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TLS:      cfg.Redis.TLS,
			LockTTL:  cfg.Redis.LockTTL,
		}, log)
		if err != nil {
			return err
		}
		defer lock.Close()
		guard = lock
		st.checks = append(st.checks, handlers.RedisCheck(lock.Client()))
	}

	var sink queue.Sink = queue.NewLogSink(log)
	if cfg.AMQP.URL != "" {
		sink = queue.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Queue, log)
		log.Info().Str("queue", cfg.AMQP.Queue).Msg("amqp event publishing enabled")
	}
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	dispatcher := queue.NewDispatcher(cfg.AMQP.Workers, sink, log)
	dispatcher.Start(workerCtx)

	loader := service.NewPrincipalLoader(st.users, st.tx)
	auth := service.NewAuthService(service.AuthDeps{
		Users:  st.users,
		Roles:  st.roles,
		Tx:     st.tx,
		Hasher: hasher,
		Loader: loader,
		Guard:  guard,
		Events: dispatcher,
		Logger: log,
	})

	apiServer := api.NewRouter(api.Deps{
		Auth:   auth,
		Tokens: tokens,
		Loader: loader,
		Logger: log,
	})
	opsServer := opshttp.NewRouter(nil, st.checks...)

	errCh := make(chan error, 2)
	go serve(apiServer, cfg.HTTPAddr, "api", log, errCh)
	go serve(opsServer, cfg.OpsAddr, "ops", log, errCh)

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err = <-errCh:
		log.Error().Err(err).Msg("listener failed, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for name, srv := range map[string]*echo.Echo{"api": apiServer, "ops": opsServer} {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Str("listener", name).Msg("graceful shutdown failed")
		}
	}
	dispatcher.Stop()

	log.Info().Msg("stopped")
	return err
}

func serve(e *echo.Echo, addr, name string, log zerolog.Logger, errCh chan<- error) {
	log.Info().Str("listener", name).Str("addr", addr).Msg("listening")
	if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("%s listener: %w", name, err)
	}
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*store, error) {
	switch cfg.DB.Driver {
	case config.DriverMongo:
		ms, err := mongostore.Open(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database}, log)
		if err != nil {
			return nil, err
		}
		return &store{
			users:  ms.Users,
			roles:  ms.Roles,
			tx:     ms.Tx,
			checks: []handlers.Check{handlers.MongoCheck(ms.Client)},
			close: func(ctx context.Context) {
				_ = ms.Close(ctx)
			},
		}, nil

	default:
		dialect := sqldb.Postgres
		if cfg.DB.Driver == config.DriverSQLite {
			dialect = sqldb.SQLite
		}
		db, err := sqldb.Open(ctx, sqldb.Config{
			Dialect:         dialect,
			URL:             cfg.DB.URL,
			User:            cfg.DB.User,
			Password:        cfg.DB.Password,
			MaxOpenConns:    cfg.DB.MaxOpenConns,
			MaxIdleConns:    cfg.DB.MaxIdleConns,
			ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		if err := sqldb.Migrate(ctx, db, dialect); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info().Str("dialect", string(dialect)).Msg("sql store ready")
		return &store{
			users:  sqldb.NewUserRepository(db, dialect),
			roles:  sqldb.NewRoleRepository(db, dialect),
			tx:     sqldb.NewTransactor(db),
			checks: []handlers.Check{handlers.SQLCheck(string(dialect), db)},
			close: func(context.Context) {
				_ = db.Close()
			},
		}, nil
	}
}
