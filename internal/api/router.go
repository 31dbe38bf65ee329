package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/bankingapp/user-service/internal/api/handler"
	"github.com/bankingapp/user-service/internal/api/middleware"
	"github.com/bankingapp/user-service/internal/core/domain"
	"github.com/bankingapp/user-service/internal/core/ports"
)

const corsMaxAge = 3600

// Deps are the collaborators the API router wires into handlers and
// middleware.
type Deps struct {
	Auth   ports.AuthService
	Tokens ports.TokenCodec
	Loader ports.PrincipalLoader
	Logger zerolog.Logger
	// Registerer receives the echoprometheus HTTP metrics. Nil means the
	// default registry.
	Registerer prometheus.Registerer
}

// NewRouter builds the public API Echo instance. Every path outside
// /api/auth/ requires a principal, so unknown paths answer 401 to anonymous
// callers.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Logger))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "user_service",
		Registerer: d.Registerer,
	}))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		Skipper: func(c echo.Context) bool {
			return !strings.HasPrefix(c.Request().URL.Path, "/api/")
		},
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
		MaxAge:       corsMaxAge,
	}))
	e.Use(middleware.AuthFilter(middleware.AuthFilterConfig{
		Tokens: d.Tokens,
		Loader: d.Loader,
		Logger: d.Logger,
	}))
	e.Use(middleware.RequireAuthenticated(nil))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(d.Auth, d.Tokens)
	userHandler := handler.NewUserHandler()

	// --- Auth routes ---
	auth := e.Group("/api/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// --- Protected routes ---
	users := e.Group("/api/users", middleware.RequireAuthority(domain.RoleUser.String(), domain.RoleAdmin.String()))
	users.GET("/me", userHandler.Me)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	log = log.With().Str("component", "http").Logger()
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			log.Info().
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
