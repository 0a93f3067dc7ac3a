package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/account-service/internal/config"
	sqliteRepo "github.com/sakif/account-service/internal/repository/sqlite"
)

func testConfig() config.Config {
	return config.Config{
		Port:            8080,
		DBPath:          ":memory:",
		JWTSecret:       "test-secret-at-least-16-chars!!",
		PasswordPepper:  "pepper",
		DevMode:         true,
		APIPrefix:       "/api/v1",
		CookieName:      "auth",
		TokenTTL:        7 * 24 * time.Hour,
		RequestTimeout:  10 * time.Second,
		ShutdownTimeout: time.Second,
		LogLevel:        "error",
	}
}

// newTestServer wires the real stack over an in-memory database.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := sqliteRepo.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	srv, err := New(testConfig(), db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path, token string, body any) *http.Response {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func register(t *testing.T, ts *httptest.Server, username, email, phone string) {
	t.Helper()
	resp := do(t, ts, http.MethodPost, "/api/v1/register", "", map[string]any{
		"username":    username,
		"password":    "Str0ng!Pass",
		"email":       email,
		"firstName":   "First",
		"lastName":    "Last",
		"phoneNumber": phone,
		"roomNumber":  "A-101",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func login(t *testing.T, ts *httptest.Server, username string) string {
	t.Helper()
	resp := do(t, ts, http.MethodPost, "/api/v1/login", "", map[string]string{
		"username": username,
		"password": "Str0ng!Pass",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, _ := decode(t, resp)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

// =========================================================================
// END-TO-END FLOW
// =========================================================================

func TestAccountLifecycle(t *testing.T) {
	ts := newTestServer(t)

	register(t, ts, "alice", "alice@example.com", "5551234567")
	register(t, ts, "bobby", "bobby@example.com", "5559876543")

	alice := login(t, ts, "alice")
	bobby := login(t, ts, "bobby")

	// self sees private fields
	resp := do(t, ts, http.MethodGet, "/api/v1/user/alice", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	self := decode(t, resp)
	assert.Equal(t, "alice@example.com", self["email"])
	assert.NotContains(t, self, "password")
	assert.NotContains(t, self, "salt")

	// another user does not
	resp = do(t, ts, http.MethodGet, "/api/v1/user/alice", bobby, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	other := decode(t, resp)
	assert.Equal(t, "alice", other["username"])
	for _, hidden := range []string{"email", "phoneNumber", "roomNumber"} {
		assert.NotContains(t, other, hidden)
	}

	// taking bobby's email conflicts
	resp = do(t, ts, http.MethodPut, "/api/v1/user/update", alice, map[string]string{
		"email":    "bobby@example.com",
		"password": "Str0ng!Pass",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// wrong confirm password
	resp = do(t, ts, http.MethodPut, "/api/v1/user/update", alice, map[string]string{
		"firstName": "Mallory",
		"password":  "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, ts, http.MethodPut, "/api/v1/user/update", alice, map[string]string{
		"roomNumber": "C-303",
		"password":   "Str0ng!Pass",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, ts, http.MethodGet, "/api/v1/user/alice", alice, nil)
	assert.Equal(t, "C-303", decode(t, resp)["roomNumber"])

	resp = do(t, ts, http.MethodDelete, "/api/v1/user/delete", alice, map[string]string{"password": "Str0ng!Pass"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, ts, http.MethodGet, "/api/v1/user/alice", bobby, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRegister_DuplicateIsConflict(t *testing.T) {
	ts := newTestServer(t)
	register(t, ts, "alice", "alice@example.com", "5551234567")

	resp := do(t, ts, http.MethodPost, "/api/v1/register", "", map[string]any{
		"username": "alice2", "password": "Str0ng!Pass", "email": "alice@example.com",
		"firstName": "A", "lastName": "B", "phoneNumber": "5550000000", "roomNumber": "1",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, []any{"email"}, decode(t, resp)["fields"])
}

func TestLogin_CookieAuthenticatesLaterRequests(t *testing.T) {
	ts := newTestServer(t)
	register(t, ts, "alice", "alice@example.com", "5551234567")

	resp := do(t, ts, http.MethodPost, "/api/v1/login", "", map[string]string{
		"email": "alice@example.com", "password": "Str0ng!Pass",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "auth" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, "/api/v1", cookie.Path)
	assert.True(t, cookie.HttpOnly, "dev mode sets HttpOnly")

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/verify-token", nil)
	req.AddCookie(cookie)
	verify, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer verify.Body.Close()

	assert.Equal(t, http.StatusOK, verify.StatusCode)
	assert.Equal(t, "alice", decode(t, verify)["username"])
}

func TestLogin_WrongPasswordIssuesNoToken(t *testing.T) {
	ts := newTestServer(t)
	register(t, ts, "alice", "alice@example.com", "5551234567")

	resp := do(t, ts, http.MethodPost, "/api/v1/login", "", map[string]string{
		"username": "alice", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, resp.Cookies())
	assert.Equal(t, "Invalid Credentials", decode(t, resp)["message"])
}

// =========================================================================
// ROOT / FALLBACK
// =========================================================================

func TestRootAndFallback(t *testing.T) {
	ts := newTestServer(t)

	resp := do(t, ts, http.MethodGet, "/api/v1/", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "TEST COMPLETE", string(body))

	resp = do(t, ts, http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Route /nowhere not found", decode(t, resp)["message"])

	resp = do(t, ts, http.MethodGet, "/api/v1/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Route /api/v1/nowhere not found", decode(t, resp)["message"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/user/alice"},
		{http.MethodPost, "/api/v1/verify-token"},
	} {
		resp := do(t, ts, tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, tc.path)
		assert.Equal(t, "Token is missing", decode(t, resp)["message"])
	}
}
