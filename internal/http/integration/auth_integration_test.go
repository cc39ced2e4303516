package integration__test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhub/taskhub/internal/config"
	"github.com/taskhub/taskhub/internal/db"
	apphttp "github.com/taskhub/taskhub/internal/http"
	"github.com/taskhub/taskhub/internal/security"
)

func testConfig() config.Config {
	return config.Config{
		Env:          "test",
		Port:         0,  // not used in tests
		DBURL:        "", // pool created manually in tests
		DBMinConns:   1,
		DBMaxConns:   4,
		JWTSecret:    "0123456789abcdef0123456789abcdef", // deterministic test secret
		BcryptCost:   security.MinCost,
		MaxBodyBytes: 1 << 20,
	}
}

type apiErrorResponse struct {
	Error struct {
		Code      string          `json:"code"`
		Message   string          `json:"message"`
		RequestID string          `json:"requestId"`
		Details   json.RawMessage `json:"details"`
	} `json:"error"`
}

type profileResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type loginResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	User        profileResponse `json:"user"`
}

func setupTestRouter(t *testing.T) (*gin.Engine, *pgxpool.Pool) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set; skipping database integration test")
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)

	if err != nil {
		t.Fatalf("Failed to create pgx pool: %v", err)
	}

	t.Cleanup(pool.Close)

	if err := db.Migrate(ctx, dsn); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Basic logger that discards outputs during tests

	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError,
	})))

	router := apphttp.NewRouter(testConfig(), pool)

	return router, pool
}

// reset db function after every test

func resetDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `TRUNCATE users RESTART IDENTITY CASCADE`)

	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}

// function that runs a request against the router with an optional bearer token

func doRequest(router http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func mustReadJSON[T any](t *testing.T, w *httptest.ResponseRecorder, out *T) {
	t.Helper()
	err := json.Unmarshal(w.Body.Bytes(), out)
	if err != nil {
		t.Fatalf("failed to unmarshal json: %v, body=%s", err, w.Body.String())
	}
}

// registerAndLogin provisions an account and returns its id and a live token.

func registerAndLogin(t *testing.T, router http.Handler, email, password string) (string, string) {
	t.Helper()

	body := `{"email":"` + email + `","password":"` + password + `"}`

	w := doRequest(router, http.MethodPost, "/api/auth/register", body, "")

	if w.Code != http.StatusCreated {
		t.Fatalf("register got status %d, body=%s", w.Code, w.Body.String())
	}

	var profile profileResponse
	mustReadJSON(t, w, &profile)

	w = doRequest(router, http.MethodPost, "/api/auth/login", body, "")

	if w.Code != http.StatusOK {
		t.Fatalf("login got status %d, body=%s", w.Code, w.Body.String())
	}

	var login loginResponse
	mustReadJSON(t, w, &login)

	if login.AccessToken == "" {
		t.Fatal("login returned no access token")
	}

	return profile.ID, login.AccessToken
}

func TestAuthIntegration_Register_Login_Me_Logout(t *testing.T) {
	router, pool := setupTestRouter(t)
	resetDB(t, pool)

	defer resetDB(t, pool)

	// register

	registerBody := `{"email":"sam@example.com","password":"password123"}`

	w := doRequest(router, http.MethodPost, "/api/auth/register", registerBody, "")

	if w.Code != http.StatusCreated {
		t.Fatalf("register got status %d, want %d, body=%s", w.Code, http.StatusCreated, w.Body.String())
	}

	var profile profileResponse
	mustReadJSON(t, w, &profile)

	if profile.Email != "sam@example.com" || profile.ID == "" {
		t.Fatalf("unexpected register payload: %+v", profile)
	}

	if strings.Contains(w.Body.String(), "password") {
		t.Fatalf("register response leaks password material: %s", w.Body.String())
	}

	// login

	w2 := doRequest(router, http.MethodPost, "/api/auth/login", registerBody, "")

	if w2.Code != http.StatusOK {
		t.Fatalf("login got status %d, want %d, body=%s", w2.Code, http.StatusOK, w2.Body.String())
	}

	var login loginResponse
	mustReadJSON(t, w2, &login)

	if login.TokenType != "bearer" || strings.TrimSpace(login.AccessToken) == "" {
		t.Fatalf("unexpected login payload: %+v", login)
	}

	// me

	w3 := doRequest(router, http.MethodGet, "/api/auth/me", "", login.AccessToken)

	if w3.Code != http.StatusOK {
		t.Fatalf("me got status %d, body=%s", w3.Code, w3.Body.String())
	}

	var me profileResponse
	mustReadJSON(t, w3, &me)

	if me.ID != profile.ID || me.Email != "sam@example.com" {
		t.Fatalf("me returned wrong profile: %+v", me)
	}

	// logout

	w4 := doRequest(router, http.MethodPost, "/api/auth/logout", "", login.AccessToken)

	if w4.Code != http.StatusOK {
		t.Fatalf("logout got status %d, body=%s", w4.Code, w4.Body.String())
	}

	// tokens stay valid until expiry; logout revokes nothing

	w5 := doRequest(router, http.MethodGet, "/api/auth/me", "", login.AccessToken)

	if w5.Code != http.StatusOK {
		t.Fatalf("me after logout got status %d, want %d, body=%s", w5.Code, http.StatusOK, w5.Body.String())
	}
}

func TestAuthIntegration_DuplicateEmailDifferentCase(t *testing.T) {
	router, pool := setupTestRouter(t)
	resetDB(t, pool)
	defer resetDB(t, pool)

	w := doRequest(router, http.MethodPost, "/api/auth/register", `{"email":"sam@example.com","password":"password123"}`, "")

	if w.Code != http.StatusCreated {
		t.Fatalf("register got status %d, body=%s", w.Code, w.Body.String())
	}

	w2 := doRequest(router, http.MethodPost, "/api/auth/register", `{"email":"SAM@Example.com","password":"password123"}`, "")

	if w2.Code != http.StatusConflict {
		t.Fatalf("register(case variant) got status %d, want %d, body=%s", w2.Code, http.StatusConflict, w2.Body.String())
	}

	var e apiErrorResponse
	mustReadJSON(t, w2, &e)

	if e.Error.Code != "email_taken" {
		t.Fatalf("expected email_taken, got %s", e.Error.Code)
	}

	// the canonical casing still logs in

	w3 := doRequest(router, http.MethodPost, "/api/auth/login", `{"email":"SAM@example.COM","password":"password123"}`, "")

	if w3.Code != http.StatusOK {
		t.Fatalf("login(case variant) got status %d, body=%s", w3.Code, w3.Body.String())
	}
}

func TestAuthIntegration_LoginRejectionsLookAlike(t *testing.T) {
	router, pool := setupTestRouter(t)
	resetDB(t, pool)
	defer resetDB(t, pool)

	registerAndLogin(t, router, "sam@example.com", "password123")

	wrongPassword := doRequest(router, http.MethodPost, "/api/auth/login", `{"email":"sam@example.com","password":"not-the-password"}`, "")
	unknownEmail := doRequest(router, http.MethodPost, "/api/auth/login", `{"email":"ghost@example.com","password":"password123"}`, "")

	if wrongPassword.Code != http.StatusUnauthorized || unknownEmail.Code != http.StatusUnauthorized {
		t.Fatalf("got statuses %d and %d, want both 401", wrongPassword.Code, unknownEmail.Code)
	}

	var a, b apiErrorResponse
	mustReadJSON(t, wrongPassword, &a)
	mustReadJSON(t, unknownEmail, &b)

	// request ids differ per request; everything the caller could use to
	// probe accounts must not
	if a.Error.Code != b.Error.Code || a.Error.Message != b.Error.Message {
		t.Fatalf("rejections distinguishable: %+v vs %+v", a.Error, b.Error)
	}
}

func TestAuthIntegration_MeWhenSubjectDeleted(t *testing.T) {
	router, pool := setupTestRouter(t)
	resetDB(t, pool)
	defer resetDB(t, pool)

	userID, token := registerAndLogin(t, router, "sam@example.com", "password123")

	_, err := pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, userID)

	if err != nil {
		t.Fatalf("failed to delete user: %v", err)
	}

	// the token still verifies; the subject is gone

	w := doRequest(router, http.MethodGet, "/api/auth/me", "", token)

	if w.Code != http.StatusNotFound {
		t.Fatalf("me got status %d, want %d, body=%s", w.Code, http.StatusNotFound, w.Body.String())
	}
}

func TestAuthIntegration_MeRequiresToken(t *testing.T) {
	router, pool := setupTestRouter(t)
	resetDB(t, pool)
	defer resetDB(t, pool)

	w := doRequest(router, http.MethodGet, "/api/auth/me", "", "")

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("me got status %d, want 401, body=%s", w.Code, w.Body.String())
	}

	var e apiErrorResponse
	mustReadJSON(t, w, &e)

	if e.Error.Code != "missing_token" {
		t.Fatalf("expected missing_token, got %s", e.Error.Code)
	}

	w2 := doRequest(router, http.MethodGet, "/api/auth/me", "", "garbage-token")

	if w2.Code != http.StatusUnauthorized {
		t.Fatalf("me got status %d, want 401, body=%s", w2.Code, w2.Body.String())
	}

	var e2 apiErrorResponse
	mustReadJSON(t, w2, &e2)

	if e2.Error.Code != "invalid_token" {
		t.Fatalf("expected invalid_token, got %s", e2.Error.Code)
	}
}
