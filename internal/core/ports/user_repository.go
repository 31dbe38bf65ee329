package ports

import (
	"context"

	"github.com/bankingapp/user-service/internal/core/domain"
)

// UserRepository defines persistence of user accounts.
// FindByEmail returns domain.ErrUserNotFound when no row matches and always
// returns the user with its complete role set.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Insert assigns the user ID and writes the user's role links in the
	// transaction carried by ctx. A duplicate email yields domain.ErrEmailTaken.
	Insert(ctx context.Context, user *domain.User) (*domain.User, error)
}

// RoleRepository defines persistence of the role reference data.
type RoleRepository interface {
	FindByName(ctx context.Context, name domain.RoleName) (*domain.Role, error)
	Insert(ctx context.Context, role *domain.Role) (*domain.Role, error)
}

// Transactor runs fn inside a single database transaction. Repositories called
// with the ctx handed to fn join that transaction. The transaction is committed
// when fn returns nil and rolled back otherwise, including on panic.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
