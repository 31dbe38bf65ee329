package sqldb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bankingapp/user-service/internal/core/domain"
)

type RoleRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewRoleRepository(db *sql.DB, d Dialect) *RoleRepository {
	return &RoleRepository{db: db, dialect: d}
}

func (r *RoleRepository) FindByName(ctx context.Context, name domain.RoleName) (*domain.Role, error) {
	var role domain.Role
	var stored string
	err := conn(ctx, r.db).QueryRowContext(ctx, rebind(r.dialect,
		"SELECT id, name FROM roles WHERE name = ?"),
		name.String(),
	).Scan(&role.ID, &stored)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRoleNotFound
		}
		return nil, persistenceErr("find role", err)
	}
	role.Name = domain.RoleName(stored)
	return &role, nil
}

func (r *RoleRepository) Insert(ctx context.Context, role *domain.Role) (*domain.Role, error) {
	created := *role
	err := conn(ctx, r.db).QueryRowContext(ctx, rebind(r.dialect,
		"INSERT INTO roles (name) VALUES (?) RETURNING id"),
		role.Name.String(),
	).Scan(&created.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrRoleExists
		}
		return nil, persistenceErr("insert role", err)
	}
	return &created, nil
}
