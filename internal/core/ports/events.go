package ports

import (
	"context"
	"time"
)

// UserRegisteredEvent is emitted after a registration transaction commits.
type UserRegisteredEvent struct {
	UserID       int64     `json:"user_id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Roles        []string  `json:"roles"`
	RegisteredAt time.Time `json:"registered_at"`
}

// EventPublisher hands domain events to downstream consumers. Publishing is
// best effort: failures must never undo a committed registration.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, event UserRegisteredEvent)
}

// RegistrationGuard serializes in-flight registrations of the same email
// across service instances. It is an optimization only; the unique index on
// users.email is what guarantees uniqueness.
type RegistrationGuard interface {
	Acquire(ctx context.Context, email string) (acquired bool, release func(), err error)
}
