package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bankingapp/user-service/internal/core/domain"
	"github.com/bankingapp/user-service/internal/core/ports"
)

// RoleSeeder makes sure every role in domain.AllRoleNames exists. It is
// idempotent and safe to run on every start, including from several
// instances at once.
type RoleSeeder struct {
	roles ports.RoleRepository
	log   zerolog.Logger
}

func NewRoleSeeder(roles ports.RoleRepository, log zerolog.Logger) *RoleSeeder {
	return &RoleSeeder{roles: roles, log: log.With().Str("component", "role_seeder").Logger()}
}

func (s *RoleSeeder) Seed(ctx context.Context) error {
	for _, name := range domain.AllRoleNames {
		_, err := s.roles.FindByName(ctx, name)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrRoleNotFound) {
			return fmt.Errorf("seed role %s: %w", name, err)
		}

		if _, err := s.roles.Insert(ctx, &domain.Role{Name: name}); err != nil {
			if errors.Is(err, domain.ErrRoleExists) {
				continue
			}
			return fmt.Errorf("seed role %s: %w", name, err)
		}
		s.log.Info().Str("role", name.String()).Msg("role created")
	}
	return nil
}
