package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bankingapp/user-service/internal/core/domain"
	"github.com/bankingapp/user-service/internal/core/ports"
)

// AuthDeps bundles the collaborators of AuthService. Guard and Events are
// optional.
type AuthDeps struct {
	Users  ports.UserRepository
	Roles  ports.RoleRepository
	Tx     ports.Transactor
	Hasher ports.PasswordHasher
	Loader ports.PrincipalLoader
	Guard  ports.RegistrationGuard
	Events ports.EventPublisher
	Now    func() time.Time
	Logger zerolog.Logger
}

// AuthService implements registration and login.
type AuthService struct {
	users  ports.UserRepository
	roles  ports.RoleRepository
	tx     ports.Transactor
	hasher ports.PasswordHasher
	loader ports.PrincipalLoader
	guard  ports.RegistrationGuard
	events ports.EventPublisher
	now    func() time.Time
	log    zerolog.Logger
}

func NewAuthService(deps AuthDeps) *AuthService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		users:  deps.Users,
		roles:  deps.Roles,
		tx:     deps.Tx,
		hasher: deps.Hasher,
		loader: deps.Loader,
		guard:  deps.Guard,
		events: deps.Events,
		now:    now,
		log:    deps.Logger.With().Str("component", "auth_service").Logger(),
	}
}

// Register creates an enabled account holding ROLE_USER. The existence
// probe, hashing, role lookup and insert run in one transaction; nothing is
// written unless every step succeeds.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	email := domain.NormalizeEmail(in.Email)

	if s.guard != nil {
		acquired, release, err := s.guard.Acquire(ctx, email)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("email", email).Msg("registration guard unavailable, continuing")
		case !acquired:
			return nil, domain.ErrEmailTaken
		default:
			defer release()
		}
	}

	var created *domain.User
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		// 1. Fast-path uniqueness probe; the unique index is authoritative.
		exists, err := s.users.ExistsByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if exists {
			return domain.ErrEmailTaken
		}

		// 2. Build the account.
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return err
		}
		user := &domain.User{
			FirstName:    in.FirstName,
			LastName:     in.LastName,
			Email:        email,
			PasswordHash: hash,
			Enabled:      true,
		}

		// 3. Default role must have been seeded.
		role, err := s.roles.FindByName(ctx, domain.RoleUser)
		if err != nil {
			if errors.Is(err, domain.ErrRoleNotFound) {
				return domain.ErrRoleMissing
			}
			return fmt.Errorf("find default role: %w", err)
		}

		// 4. Attach and persist.
		user.Roles = []domain.Role{*role}
		created, err = s.users.Insert(ctx, user)
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrRoleMissing) {
			s.log.Error().Str("role", domain.RoleUser.String()).Msg("default role missing, role seeding did not run")
		}
		return nil, err
	}

	if s.events != nil {
		s.events.PublishUserRegistered(ctx, ports.UserRegisteredEvent{
			UserID:       created.ID,
			Email:        created.Email,
			FirstName:    created.FirstName,
			LastName:     created.LastName,
			Roles:        created.RoleNames(),
			RegisteredAt: s.now().UTC(),
		})
	}

	s.log.Info().Int64("user_id", created.ID).Str("email", created.Email).Msg("user registered")
	return created, nil
}

// Login authenticates email and password. A missing user, a disabled user and
// a wrong password all yield domain.ErrBadCredentials.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*domain.Principal, error) {
	email := domain.NormalizeEmail(in.Email)

	principal, err := s.loader.LoadByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.log.Debug().Str("email", email).Msg("login for unknown email")
			return nil, domain.ErrBadCredentials
		}
		return nil, fmt.Errorf("load principal: %w", err)
	}

	if !principal.Enabled {
		s.log.Debug().Int64("user_id", principal.ID).Msg("login for disabled user")
		return nil, fmt.Errorf("%w: %w", domain.ErrBadCredentials, domain.ErrUserDisabled)
	}

	if !s.hasher.Verify(in.Password, principal.PasswordHash) {
		s.log.Debug().Int64("user_id", principal.ID).Msg("login with wrong password")
		return nil, domain.ErrBadCredentials
	}

	return principal, nil
}
