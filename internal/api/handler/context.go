package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bankingapp/user-service/internal/api/middleware"
	"github.com/bankingapp/user-service/internal/core/domain"
)

// currentPrincipal returns the principal attached by the auth filter. Its
// absence means the authentication gate was bypassed, which is a 401.
func currentPrincipal(c echo.Context) (*domain.Principal, error) {
	if p, ok := c.Get(middleware.PrincipalKey).(*domain.Principal); ok && p != nil {
		return p, nil
	}
	if p, ok := domain.PrincipalFrom(c.Request().Context()); ok {
		return p, nil
	}
	return nil, echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
}
