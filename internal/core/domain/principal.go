package domain

import "context"

// Principal is the authenticated user for the lifetime of one request.
type Principal struct {
	ID           int64
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Enabled      bool
	Authorities  []string
}

// NewPrincipal builds a Principal from a fully loaded User.
func NewPrincipal(u *User) *Principal {
	return &Principal{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PasswordHash: u.PasswordHash,
		Enabled:      u.Enabled,
		Authorities:  u.RoleNames(),
	}
}

// HasAuthority reports whether the principal was granted authority.
func (p *Principal) HasAuthority(authority string) bool {
	for _, a := range p.Authorities {
		if a == authority {
			return true
		}
	}
	return false
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal attached to ctx, if any.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
