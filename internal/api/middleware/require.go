package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/bankingapp/user-service/internal/core/domain"
)

// principal returns what AuthFilter attached to c, if anything.
func principal(c echo.Context) (*domain.Principal, bool) {
	if p, ok := c.Get(PrincipalKey).(*domain.Principal); ok && p != nil {
		return p, true
	}
	return domain.PrincipalFrom(c.Request().Context())
}

// RequireAuthenticated rejects with 401 every request the skipper does not
// exempt that reached it without a principal, including requests for paths
// no route matches. A nil skipper defaults to PublicPathSkipper.
func RequireAuthenticated(skipper echomiddleware.Skipper) echo.MiddlewareFunc {
	if skipper == nil {
		skipper = PublicPathSkipper
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper(c) {
				return next(c)
			}
			if _, ok := principal(c); !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
			}
			return next(c)
		}
	}
}
