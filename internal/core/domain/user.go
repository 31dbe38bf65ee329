package domain

import (
	"strings"
)

// RoleName is the textual form a role is stored and granted under.
type RoleName string

const (
	RoleUser  RoleName = "ROLE_USER"
	RoleAdmin RoleName = "ROLE_ADMIN"
)

// AllRoleNames is the closed set of roles the seeder guarantees at startup.
var AllRoleNames = []RoleName{RoleUser, RoleAdmin}

// Valid reports whether n belongs to the closed role set.
func (n RoleName) Valid() bool {
	for _, known := range AllRoleNames {
		if n == known {
			return true
		}
	}
	return false
}

func (n RoleName) String() string { return string(n) }

// Role is an immutable reference row created once by the seeder.
type Role struct {
	ID   int64    `json:"id"`
	Name RoleName `json:"name"`
}

// User is the persisted account aggregate. Roles are always populated when a
// User is returned from a repository.
type User struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Enabled      bool   `json:"enabled"`
	Roles        []Role `json:"roles"`
}

// RoleNames returns the textual names of the user's roles in stored order.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name.String())
	}
	return names
}

// NormalizeEmail trims surrounding whitespace and lower-cases the address so
// lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
