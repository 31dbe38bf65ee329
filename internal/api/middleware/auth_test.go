package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bankingapp/user-service/internal/core/domain"
)

type stubCodec struct {
	valid   map[string]string // token -> subject
	subjErr error
	calls   int
}

func (s *stubCodec) Mint(subject string) (string, error) { return "tok-" + subject, nil }

func (s *stubCodec) SubjectOf(token string) (string, error) {
	if s.subjErr != nil {
		return "", s.subjErr
	}
	sub, ok := s.valid[token]
	if !ok {
		return "", domain.ErrTokenInvalid
	}
	return sub, nil
}

func (s *stubCodec) Validate(token string) bool {
	s.calls++
	_, ok := s.valid[token]
	return ok
}

type stubLoader struct {
	principals map[string]*domain.Principal
	err        error
	panicMsg   string
}

func (s *stubLoader) LoadByEmail(_ context.Context, email string) (*domain.Principal, error) {
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.principals[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return p, nil
}

var ada = &domain.Principal{ID: 1, Email: "ada@example.com", FirstName: "Ada", Enabled: true, Authorities: []string{"ROLE_USER"}}

func newFilter(codec *stubCodec, loader *stubLoader, log zerolog.Logger) echo.MiddlewareFunc {
	return AuthFilter(AuthFilterConfig{Tokens: codec, Loader: loader, Logger: log})
}

func defaultStubs() (*stubCodec, *stubLoader) {
	return &stubCodec{valid: map[string]string{"good": "ada@example.com"}},
		&stubLoader{principals: map[string]*domain.Principal{"ada@example.com": ada}}
}

// runFilter executes the filter for path/header and reports the principal
// seen by the next handler, if any.
func runFilter(t *testing.T, mw echo.MiddlewareFunc, path, header string) (*domain.Principal, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var (
		seen   *domain.Principal
		called bool
	)
	h := mw(func(c echo.Context) error {
		called = true
		seen, _ = principal(c)
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("filter returned error: %v", err)
	}
	if !called {
		t.Fatalf("filter must always continue the chain")
	}
	return seen, seen != nil
}

func TestAuthFilter_ValidToken(t *testing.T) {
	codec, loader := defaultStubs()
	mw := newFilter(codec, loader, zerolog.Nop())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer good")
	c := e.NewContext(req, httptest.NewRecorder())

	h := mw(func(c echo.Context) error {
		p, ok := c.Get(PrincipalKey).(*domain.Principal)
		if !ok || p.Email != "ada@example.com" {
			t.Fatalf("principal not set on echo context: %v", c.Get(PrincipalKey))
		}
		fromCtx, ok := domain.PrincipalFrom(c.Request().Context())
		if !ok || fromCtx != p {
			t.Fatalf("principal not set on request context")
		}
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
}

func TestAuthFilter_AnonymousOutcomes(t *testing.T) {
	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Token good"},
		{"lowercase scheme", "bearer good"},
		{"no space", "Bearergood"},
		{"invalid token", "Bearer bad"},
		{"empty token", "Bearer "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			codec, loader := defaultStubs()
			if _, ok := runFilter(t, newFilter(codec, loader, zerolog.Nop()), "/api/users/me", tc.header); ok {
				t.Fatalf("expected no principal")
			}
		})
	}
}

func TestAuthFilter_SkipsAuthPathsRegardlessOfHeader(t *testing.T) {
	codec, loader := defaultStubs()
	mw := newFilter(codec, loader, zerolog.Nop())

	for _, path := range []string{"/api/auth/login", "/api/auth/register", "/api/auth/anything"} {
		if _, ok := runFilter(t, mw, path, "Bearer good"); ok {
			t.Fatalf("%s: principal must not be attached", path)
		}
	}
	if codec.calls != 0 {
		t.Fatalf("codec must not be consulted on auth paths, got %d calls", codec.calls)
	}
}

func TestAuthFilter_LoaderFailureIsLoggedAndSwallowed(t *testing.T) {
	codec, _ := defaultStubs()
	loader := &stubLoader{err: errors.New("connection refused")}
	var buf bytes.Buffer

	if _, ok := runFilter(t, newFilter(codec, loader, zerolog.New(&buf)), "/api/users/me", "Bearer good"); ok {
		t.Fatal("expected no principal")
	}
	out := buf.String()
	if !strings.Contains(out, "Cannot set user authentication") || !strings.Contains(out, `"level":"error"`) {
		t.Fatalf("expected error log, got %q", out)
	}
}

func TestAuthFilter_UnknownSubject(t *testing.T) {
	codec := &stubCodec{valid: map[string]string{"good": "ghost@example.com"}}
	_, loader := defaultStubs()
	var buf bytes.Buffer

	if _, ok := runFilter(t, newFilter(codec, loader, zerolog.New(&buf)), "/api/users/me", "Bearer good"); ok {
		t.Fatal("expected no principal")
	}
	if !strings.Contains(buf.String(), "Cannot set user authentication") {
		t.Fatalf("expected error log, got %q", buf.String())
	}
}

func TestAuthFilter_PanicIsRecovered(t *testing.T) {
	codec, _ := defaultStubs()
	loader := &stubLoader{panicMsg: "boom"}
	var buf bytes.Buffer

	if _, ok := runFilter(t, newFilter(codec, loader, zerolog.New(&buf)), "/api/users/me", "Bearer good"); ok {
		t.Fatal("expected no principal")
	}
	if !strings.Contains(buf.String(), "panic: boom") {
		t.Fatalf("expected panic to be logged, got %q", buf.String())
	}
}

func TestAuthFilter_SubjectErrorAfterValidate(t *testing.T) {
	codec, loader := defaultStubs()
	codec.subjErr = domain.ErrTokenInvalid
	var buf bytes.Buffer

	if _, ok := runFilter(t, newFilter(codec, loader, zerolog.New(&buf)), "/api/users/me", "Bearer good"); ok {
		t.Fatal("expected no principal")
	}
	if !strings.Contains(buf.String(), "Cannot set user authentication") {
		t.Fatalf("expected error log, got %q", buf.String())
	}
}
