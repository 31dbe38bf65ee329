package service

import (
	"context"

	"github.com/bankingapp/user-service/internal/core/domain"
	"github.com/bankingapp/user-service/internal/core/ports"
)

// PrincipalLoader resolves an email to a Principal. The lookup runs inside a
// transaction so the user's roles are materialized before it ends.
type PrincipalLoader struct {
	users ports.UserRepository
	tx    ports.Transactor
}

func NewPrincipalLoader(users ports.UserRepository, tx ports.Transactor) *PrincipalLoader {
	return &PrincipalLoader{users: users, tx: tx}
}

func (l *PrincipalLoader) LoadByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	var principal *domain.Principal
	err := l.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		user, err := l.users.FindByEmail(ctx, domain.NormalizeEmail(email))
		if err != nil {
			return err
		}
		principal = domain.NewPrincipal(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return principal, nil
}
