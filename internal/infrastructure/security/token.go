package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/bankingapp/user-service/internal/core/domain"
)

// MinSecretBytes is the smallest HMAC key accepted for HS512.
const MinSecretBytes = 64

var ErrSecretTooShort = fmt.Errorf("jwt secret must be at least %d bytes for HS512", MinSecretBytes)

// TokenError classifies why a bearer token was rejected. Every TokenError
// matches domain.ErrTokenInvalid under errors.Is.
type TokenError struct {
	msg string
}

func (e *TokenError) Error() string { return e.msg }

func (e *TokenError) Is(target error) bool { return target == domain.ErrTokenInvalid }

var (
	ErrTokenEmpty        = &TokenError{msg: "JWT claims string is empty"}
	ErrTokenMalformed    = &TokenError{msg: "Invalid JWT token"}
	ErrTokenBadSignature = &TokenError{msg: "Invalid JWT signature"}
	ErrTokenExpired      = &TokenError{msg: "JWT token is expired"}
	ErrTokenUnsupported  = &TokenError{msg: "JWT token is unsupported"}
)

var errUnsupportedAlgorithm = errors.New("unsupported signing algorithm")

// TokenCodec mints and verifies HS512 bearer tokens carrying sub, iat and exp.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	log    zerolog.Logger
}

type TokenOption func(*TokenCodec)

// WithClock replaces the wall clock used for iat, exp and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(c *TokenCodec) { c.now = now }
}

// NewTokenCodec rejects secrets shorter than MinSecretBytes so a weak key
// fails at startup rather than on first use.
func NewTokenCodec(secret []byte, ttl time.Duration, log zerolog.Logger, opts ...TokenOption) (*TokenCodec, error) {
	if len(secret) < MinSecretBytes {
		return nil, ErrSecretTooShort
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token lifetime must be positive, got %s", ttl)
	}
	c := &TokenCodec{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		now:    time.Now,
		log:    log.With().Str("component", "token_codec").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Mint issues a token for subject valid from now until now+ttl.
func (c *TokenCodec) Mint(subject string) (string, error) {
	now := c.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// SubjectOf verifies token and returns its subject. A token whose exp equals
// the current second is already expired.
func (c *TokenCodec) SubjectOf(token string) (string, error) {
	claims, err := c.parse(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Validate reports whether token would be accepted by SubjectOf and logs the
// rejection reason at error level.
func (c *TokenCodec) Validate(token string) bool {
	if _, err := c.parse(token); err != nil {
		msg := "Invalid JWT token"
		var te *TokenError
		if errors.As(err, &te) {
			msg = te.msg
		}
		c.log.Error().Err(err).Msg(msg)
		return false
	}
	return true
}

func (c *TokenCodec) parse(token string) (*jwt.RegisteredClaims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrTokenEmpty
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, c.keyFunc,
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
	)
	if err != nil {
		return nil, classify(err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenMalformed)
	}
	return claims, nil
}

func (c *TokenCodec) keyFunc(t *jwt.Token) (any, error) {
	if t.Method == nil || t.Method.Alg() != jwt.SigningMethodHS512.Alg() {
		return nil, errUnsupportedAlgorithm
	}
	return c.secret, nil
}

func classify(err error) error {
	var kind *TokenError
	switch {
	case errors.Is(err, errUnsupportedAlgorithm), errors.Is(err, jwt.ErrTokenUnverifiable):
		kind = ErrTokenUnsupported
	case errors.Is(err, jwt.ErrTokenMalformed):
		kind = ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		kind = ErrTokenBadSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		kind = ErrTokenExpired
	default:
		kind = ErrTokenMalformed
	}
	return fmt.Errorf("%w: %v", kind, err)
}
