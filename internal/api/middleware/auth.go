package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/bankingapp/user-service/internal/api/metrics"
	"github.com/bankingapp/user-service/internal/core/domain"
	"github.com/bankingapp/user-service/internal/core/ports"
)

const (
	bearerPrefix   = "Bearer "
	publicPrefix   = "/api/auth/"
	filterErrorMsg = "Cannot set user authentication"
)

// PrincipalKey is the echo.Context key the authenticated *domain.Principal
// is stored under.
const PrincipalKey = "principal"

var errNoSubject = errors.New("token has no subject")

// PublicPathSkipper skips requests under /api/auth/.
func PublicPathSkipper(c echo.Context) bool {
	return strings.HasPrefix(c.Request().URL.Path, publicPrefix)
}

type AuthFilterConfig struct {
	// Skipper defaults to PublicPathSkipper.
	Skipper echomiddleware.Skipper
	Tokens  ports.TokenCodec
	Loader  ports.PrincipalLoader
	Logger  zerolog.Logger
}

// AuthFilter resolves the bearer token into a principal and attaches it to
// both the echo.Context and the request context. It never rejects a request:
// a missing, invalid or unresolvable token leaves the request anonymous and
// the next handler runs regardless.
func AuthFilter(cfg AuthFilterConfig) echo.MiddlewareFunc {
	if cfg.Skipper == nil {
		cfg.Skipper = PublicPathSkipper
	}
	log := cfg.Logger.With().Str("component", "auth_filter").Logger()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper(c) {
				return next(c)
			}

			principal, err := resolve(c.Request().Context(), c.Request().Header.Get(echo.HeaderAuthorization), cfg)
			switch {
			case err != nil:
				metrics.AuthFilterTotal.WithLabelValues("failed").Inc()
				log.Error().Err(err).Str("path", c.Request().URL.Path).Msg(filterErrorMsg)
			case principal != nil:
				metrics.AuthFilterTotal.WithLabelValues("authenticated").Inc()
				c.Set(PrincipalKey, principal)
				c.SetRequest(c.Request().WithContext(domain.WithPrincipal(c.Request().Context(), principal)))
			}
			return next(c)
		}
	}
}

// resolve walks the header through candidate, validated and subject-known
// states. A nil principal with a nil error means the request stays anonymous
// without anything worth logging here.
func resolve(ctx context.Context, header string, cfg AuthFilterConfig) (p *domain.Principal, err error) {
	defer func() {
		if r := recover(); r != nil {
			p, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()

	if !strings.HasPrefix(header, bearerPrefix) {
		metrics.AuthFilterTotal.WithLabelValues("no_token").Inc()
		return nil, nil
	}
	token := header[len(bearerPrefix):]

	if !cfg.Tokens.Validate(token) {
		metrics.AuthFilterTotal.WithLabelValues("invalid_token").Inc()
		return nil, nil
	}

	subject, err := cfg.Tokens.SubjectOf(token)
	if err != nil {
		return nil, err
	}
	if subject == "" {
		return nil, errNoSubject
	}

	return cfg.Loader.LoadByEmail(ctx, subject)
}
