package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bankingapp/user-service/internal/api/metrics"
	"github.com/bankingapp/user-service/internal/core/domain"
	"github.com/bankingapp/user-service/internal/core/ports"
)

// RegisteredMessage is the plain-text body of a successful registration.
const RegisteredMessage = "User registered successfully!"

type AuthHandler struct {
	authService ports.AuthService
	tokens      ports.TokenCodec
}

func NewAuthHandler(authService ports.AuthService, tokens ports.TokenCodec) *AuthHandler {
	return &AuthHandler{authService: authService, tokens: tokens}
}

type registerRequest struct {
	FirstName string `json:"firstName" validate:"notblank,min=2,max=50"`
	LastName  string `json:"lastName"  validate:"notblank,min=2,max=50"`
	Email     string `json:"email"     validate:"notblank,email,max=100"`
	Password  string `json:"password"  validate:"notblank,min=8,max=40"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"notblank,email"`
	Password string `json:"password" validate:"notblank"`
}

type jwtResponse struct {
	Token     string   `json:"token"`
	ID        int64    `json:"id"`
	FirstName string   `json:"firstName"`
	Email     string   `json:"email"`
	Roles     []string `json:"roles"`
}

// Register creates a new account holding ROLE_USER.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      plain
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      200   {string}  string           "User registered successfully!"
// @Failure      400   {object}  map[string]any
// @Failure      500   {object}  map[string]string
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid_payload").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("validation").Inc()
		return err
	}

	_, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(registerOutcome(err)).Inc()
		return err
	}

	metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	return c.String(http.StatusOK, RegisteredMessage)
}

// Login authenticates a user and returns a bearer token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  jwtResponse
// @Failure      400   {object}  map[string]any
// @Failure      401   {object}  map[string]string
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		metrics.LoginsTotal.WithLabelValues("invalid_payload").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		metrics.LoginsTotal.WithLabelValues("validation").Inc()
		return err
	}

	principal, err := h.authService.Login(c.Request().Context(), ports.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, domain.ErrBadCredentials) {
			metrics.LoginsTotal.WithLabelValues("bad_credentials").Inc()
		} else {
			metrics.LoginsTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	token, err := h.tokens.Mint(principal.Email)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, jwtResponse{
		Token:     token,
		ID:        principal.ID,
		FirstName: principal.FirstName,
		Email:     principal.Email,
		Roles:     append([]string{}, principal.Authorities...),
	})
}

func registerOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmailTaken):
		return "email_taken"
	case errors.Is(err, domain.ErrPasswordTooLong):
		return "validation"
	default:
		return "error"
	}
}
