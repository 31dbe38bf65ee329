package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bankingapp/user-service/internal/api/handler"
	"github.com/bankingapp/user-service/internal/core/domain"
)

const (
	msgEmailTaken     = "Error: Email is already in use!"
	msgBadCredentials = "Bad credentials"
	msgValidation     = "validation failed"
	msgInternal       = "internal server error"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status codes.
//   - Logs unexpected errors without leaking details to the client.
//   - Renders {"error": "<message>"} plus "fields" for validation failures.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	var ve *handler.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, errorResponse{Error: msgValidation, Fields: ve.Fields}
	}

	// Echo's own errors (bind failures, 401/403 from the gate, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Internal != nil {
			log.Debug().Err(he.Internal).Int("status", he.Code).Msg("http error")
		}
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	switch {
	case errors.Is(err, domain.ErrPasswordTooLong):
		return http.StatusBadRequest, errorResponse{
			Error:  msgValidation,
			Fields: map[string]string{"password": "Password must be at most 72 bytes."},
		}
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusBadRequest, errorResponse{Error: msgEmailTaken}
	case errors.Is(err, domain.ErrBadCredentials):
		return http.StatusUnauthorized, errorResponse{Error: msgBadCredentials}
	}

	// Role-missing, persistence and anything unexpected: log the real cause,
	// return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Request().URL.Path).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: msgInternal}
}
