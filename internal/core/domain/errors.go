package domain

import "errors"

var (
	ErrEmailTaken      = errors.New("email already in use")
	ErrBadCredentials  = errors.New("bad credentials")
	ErrUserDisabled    = errors.New("user is disabled")
	ErrUserNotFound    = errors.New("user not found")
	ErrRoleMissing     = errors.New("default role is missing")
	ErrRoleNotFound    = errors.New("role not found")
	ErrRoleExists      = errors.New("role already exists")
	ErrTokenInvalid    = errors.New("invalid token")
	ErrPersistence     = errors.New("persistence failure")
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
)
