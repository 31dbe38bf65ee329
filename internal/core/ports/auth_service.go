package ports

import (
	"context"

	"github.com/bankingapp/user-service/internal/core/domain"
)

// RegisterInput carries a self-service registration request.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// LoginInput carries a password login attempt.
type LoginInput struct {
	Email    string
	Password string
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, in LoginInput) (*domain.Principal, error)
}

// PrincipalLoader maps an email to a fully populated Principal.
type PrincipalLoader interface {
	LoadByEmail(ctx context.Context, email string) (*domain.Principal, error)
}
