package sqldb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bankingapp/user-service/internal/core/domain"
)

// UserRepository implements ports.UserRepository on the users and
// user_roles tables.
type UserRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewUserRepository(db *sql.DB, d Dialect) *UserRepository {
	return &UserRepository{db: db, dialect: d}
}

// FindByEmail loads the user row and its roles with the same connection, so
// the aggregate is complete before any surrounding transaction ends.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	q := conn(ctx, r.db)

	var u domain.User
	err := q.QueryRowContext(ctx, rebind(r.dialect,
		"SELECT id, first_name, last_name, email, password, is_enabled FROM users WHERE email = ?"),
		email,
	).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.Enabled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, persistenceErr("find user by email", err)
	}

	rows, err := q.QueryContext(ctx, rebind(r.dialect,
		`SELECT r.id, r.name FROM roles r
		 JOIN user_roles ur ON ur.role_id = r.id
		 WHERE ur.user_id = ?
		 ORDER BY r.id`),
		u.ID,
	)
	if err != nil {
		return nil, persistenceErr("load user roles", err)
	}
	defer rows.Close()

	for rows.Next() {
		var role domain.Role
		var name string
		if err := rows.Scan(&role.ID, &name); err != nil {
			return nil, persistenceErr("scan user role", err)
		}
		role.Name = domain.RoleName(name)
		u.Roles = append(u.Roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("iterate user roles", err)
	}

	return &u, nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := conn(ctx, r.db).QueryRowContext(ctx, rebind(r.dialect,
		"SELECT EXISTS (SELECT 1 FROM users WHERE email = ?)"),
		email,
	).Scan(&exists)
	if err != nil {
		return false, persistenceErr("check email", err)
	}
	return exists, nil
}

// Insert writes the user row and one user_roles row per attached role. Call
// it inside Transactor.WithinTransaction so both writes commit together.
func (r *UserRepository) Insert(ctx context.Context, user *domain.User) (*domain.User, error) {
	q := conn(ctx, r.db)

	created := *user
	created.Roles = append([]domain.Role(nil), user.Roles...)

	err := q.QueryRowContext(ctx, rebind(r.dialect,
		`INSERT INTO users (first_name, last_name, email, password, is_enabled)
		 VALUES (?, ?, ?, ?, ?) RETURNING id`),
		user.FirstName, user.LastName, user.Email, user.PasswordHash, user.Enabled,
	).Scan(&created.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, persistenceErr("insert user", err)
	}

	for _, role := range created.Roles {
		if _, err := q.ExecContext(ctx, rebind(r.dialect,
			"INSERT INTO user_roles (user_id, role_id) VALUES (?, ?)"),
			created.ID, role.ID,
		); err != nil {
			return nil, persistenceErr("insert user role", err)
		}
	}

	return &created, nil
}
