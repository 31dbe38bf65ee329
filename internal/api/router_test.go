package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankingapp/user-service/internal/core/domain"
	"github.com/bankingapp/user-service/internal/core/service"
	"github.com/bankingapp/user-service/internal/infrastructure/db/sqldb"
	"github.com/bankingapp/user-service/internal/infrastructure/security"
)

var testSecret = []byte(strings.Repeat("0123456789abcdef", 5))

const adaBody = `{"firstName":"Ada","lastName":"Lovelace","email":"ada@example.com","password":"analytical1"}`

type testServer struct {
	e      *echo.Echo
	db     *sql.DB
	tokens *security.TokenCodec
	users  *sqldb.UserRepository
	roles  *sqldb.RoleRepository
	logs   *bytes.Buffer
}

func newTestServer(t *testing.T, ttl time.Duration) *testServer {
	t.Helper()
	ctx := context.Background()

	db, err := sqldb.Open(ctx, sqldb.Config{Dialect: sqldb.SQLite, URL: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqldb.Migrate(ctx, db, sqldb.SQLite))

	users := sqldb.NewUserRepository(db, sqldb.SQLite)
	roles := sqldb.NewRoleRepository(db, sqldb.SQLite)
	tx := sqldb.NewTransactor(db)
	require.NoError(t, service.NewRoleSeeder(roles, zerolog.Nop()).Seed(ctx))

	logs := &bytes.Buffer{}
	log := zerolog.New(logs)

	tokens, err := security.NewTokenCodec(testSecret, ttl, log)
	require.NoError(t, err)
	hasher, err := security.NewBcryptHasher(security.MinBcryptCost)
	require.NoError(t, err)

	loader := service.NewPrincipalLoader(users, tx)
	auth := service.NewAuthService(service.AuthDeps{
		Users:  users,
		Roles:  roles,
		Tx:     tx,
		Hasher: hasher,
		Loader: loader,
		Logger: log,
	})

	e := NewRouter(Deps{
		Auth:       auth,
		Tokens:     tokens,
		Loader:     loader,
		Logger:     log,
		Registerer: prometheus.NewRegistry(),
	})
	return &testServer{e: e, db: db, tokens: tokens, users: users, roles: roles, logs: logs}
}

func (s *testServer) do(method, path, body, bearer string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) register(t *testing.T) {
	t.Helper()
	rec := s.do(http.MethodPost, "/api/auth/register", adaBody, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestRegisterAndLoginRoundTrip(t *testing.T) {
	s := newTestServer(t, 24*time.Hour)

	rec := s.do(http.MethodPost, "/api/auth/register", adaBody, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User registered successfully!", rec.Body.String())

	rec = s.do(http.MethodPost, "/api/auth/login", `{"email":"ada@example.com","password":"analytical1"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	id, ok := body["id"].(float64)
	require.True(t, ok)
	assert.Greater(t, id, float64(0))
	assert.Equal(t, "Ada", body["firstName"])
	assert.Equal(t, "ada@example.com", body["email"])
	assert.Equal(t, []any{"ROLE_USER"}, body["roles"])

	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	sub, err := s.tokens.SubjectOf(token)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", sub)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	s := newTestServer(t, time.Hour)
	s.register(t)

	rec := s.do(http.MethodPost, "/api/auth/register", adaBody, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Error: Email is already in use!", decode(t, rec)["error"])

	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	s := newTestServer(t, time.Hour)
	s.register(t)

	wrong := s.do(http.MethodPost, "/api/auth/login", `{"email":"ada@example.com","password":"wrong"}`, "")
	unknown := s.do(http.MethodPost, "/api/auth/login", `{"email":"ghost@example.com","password":"wrong"}`, "")

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
	assert.Equal(t, "Bad credentials", decode(t, wrong)["error"])
}

func TestLogin_DisabledUser(t *testing.T) {
	s := newTestServer(t, time.Hour)
	ctx := context.Background()

	hasher, err := security.NewBcryptHasher(security.MinBcryptCost)
	require.NoError(t, err)
	hash, err := hasher.Hash("analytical1")
	require.NoError(t, err)
	role, err := s.roles.FindByName(ctx, domain.RoleUser)
	require.NoError(t, err)
	_, err = s.users.Insert(ctx, &domain.User{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
		PasswordHash: hash, Enabled: false, Roles: []domain.Role{*role},
	})
	require.NoError(t, err)

	rec := s.do(http.MethodPost, "/api/auth/login", `{"email":"ada@example.com","password":"analytical1"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bad credentials", decode(t, rec)["error"])
}

func TestExpiredTokenIsUnauthorized(t *testing.T) {
	s := newTestServer(t, time.Millisecond)
	s.register(t)

	token, err := s.tokens.Mint("ada@example.com")
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	rec := s.do(http.MethodGet, "/api/users/me", "", token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, s.logs.String(), "JWT token is expired")
	assert.Contains(t, s.logs.String(), `"level":"error"`)
}

func TestTamperedSignatureIsUnauthorized(t *testing.T) {
	s := newTestServer(t, time.Hour)
	s.register(t)

	token, err := s.tokens.Mint("ada@example.com")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	i := len(sig) / 2
	if sig[i] == 'A' {
		sig[i] = 'B'
	} else {
		sig[i] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	rec := s.do(http.MethodGet, "/api/users/me", "", tampered)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, s.logs.String(), "Invalid JWT signature")
}

func TestRegister_ValidationFailure(t *testing.T) {
	s := newTestServer(t, time.Hour)

	rec := s.do(http.MethodPost, "/api/auth/register",
		`{"firstName":"A","lastName":"B","email":"not-an-email","password":"short"}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "validation failed", body["error"])
	fields, ok := body["fields"].(map[string]any)
	require.True(t, ok, rec.Body.String())
	for _, f := range []string{"firstName", "lastName", "email", "password"} {
		assert.Contains(t, fields, f)
	}
}

func TestRegister_PasswordOverBcryptLimit(t *testing.T) {
	s := newTestServer(t, time.Hour)

	password := strings.Repeat("🔑", 20)
	rec := s.do(http.MethodPost, "/api/auth/register",
		`{"firstName":"Ada","lastName":"Lovelace","email":"ada@example.com","password":"`+password+`"}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	fields, _ := decode(t, rec)["fields"].(map[string]any)
	assert.Contains(t, fields, "password")
}

func TestRegister_EmailLengthCap(t *testing.T) {
	s := newTestServer(t, time.Hour)
	host := strings.Repeat("b", 36) + ".com"

	tooLong := strings.Repeat("a", 60) + "@" + host
	require.Len(t, tooLong, 101)
	rec := s.do(http.MethodPost, "/api/auth/register",
		`{"firstName":"Ada","lastName":"Lovelace","email":"`+tooLong+`","password":"s3cret-pass"}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	fields, ok := decode(t, rec)["fields"].(map[string]any)
	require.True(t, ok, rec.Body.String())
	assert.Contains(t, fields["email"], "at most 100 characters")

	exists, err := s.users.ExistsByEmail(context.Background(), tooLong)
	require.NoError(t, err)
	assert.False(t, exists)

	atLimit := strings.Repeat("a", 59) + "@" + host
	require.Len(t, atLimit, 100)
	rec = s.do(http.MethodPost, "/api/auth/register",
		`{"firstName":"Ada","lastName":"Lovelace","email":"`+atLimit+`","password":"s3cret-pass"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestMe_WithValidToken(t *testing.T) {
	s := newTestServer(t, time.Hour)
	s.register(t)

	token, err := s.tokens.Mint("ada@example.com")
	require.NoError(t, err)

	rec := s.do(http.MethodGet, "/api/users/me", "", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, "Lovelace", body["lastName"])
	assert.Equal(t, []any{"ROLE_USER"}, body["roles"])
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestTokenForDeletedUserIsUnauthorized(t *testing.T) {
	s := newTestServer(t, time.Hour)

	token, err := s.tokens.Mint("ghost@example.com")
	require.NoError(t, err)

	rec := s.do(http.MethodGet, "/api/users/me", "", token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, s.logs.String(), "Cannot set user authentication")
}

func TestUnknownPaths(t *testing.T) {
	s := newTestServer(t, time.Hour)
	s.register(t)

	rec := s.do(http.MethodGet, "/api/accounts", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := s.tokens.Mint("ada@example.com")
	require.NoError(t, err)
	rec = s.do(http.MethodGet, "/api/accounts", "", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthPathsIgnoreBearerHeader(t *testing.T) {
	s := newTestServer(t, time.Hour)
	s.register(t)

	rec := s.do(http.MethodPost, "/api/auth/login", `{"email":"ada@example.com","password":"analytical1"}`, "garbage")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, s.logs.String(), "Cannot set user authentication")
	assert.NotContains(t, s.logs.String(), "Invalid JWT")
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, time.Hour)

	req := httptest.NewRequest(http.MethodOptions, "/api/users/me", nil)
	req.Header.Set(echo.HeaderOrigin, "https://bank.example")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "3600", rec.Header().Get(echo.HeaderAccessControlMaxAge))
}

func TestPersistenceFailureIsGeneric500(t *testing.T) {
	s := newTestServer(t, time.Hour)
	require.NoError(t, s.db.Close())

	rec := s.do(http.MethodPost, "/api/auth/register", adaBody, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decode(t, rec)["error"])
	assert.Contains(t, s.logs.String(), "unhandled error")
}
