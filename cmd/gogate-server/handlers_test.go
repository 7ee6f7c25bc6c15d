package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/password"
	"github.com/MrEthical07/goGate/permission"
)

const (
	adminEmail  = "admin@example.com"
	viewerEmail = "viewer@example.com"
	secret      = "correct-horse-battery"
)

type fakeAccounts struct {
	mu      sync.Mutex
	records map[string]goGate.CredentialRecord
	grants  map[string]permission.Grant
}

func (f *fakeAccounts) FindByIdentifier(_ context.Context, identifier string) (goGate.CredentialRecord, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[identifier]
	return rec, ok, nil
}

func (f *fakeAccounts) LoadGrant(_ context.Context, accountID string) (permission.Grant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.grants[accountID], nil
}

func testEngineConfig() goGate.Config {
	cfg := goGate.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("access-secret-0123456789abcdef-xyz")
	cfg.JWT.RefreshSecret = []byte("refresh-secret-0123456789abcdef-xy")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.KeyLength = 32
	cfg.Cookie.Secure = false
	cfg.Lockout.MaxLoginAttempts = 3
	cfg.Metrics.Enabled = true
	return cfg
}

type testServer struct {
	url    string
	client *http.Client
	mr     *miniredis.Miniredis
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := testEngineConfig()
	hasher, err := password.NewArgon2(password.Config{
		Memory: cfg.Password.Memory, Time: cfg.Password.Time, Parallelism: cfg.Password.Parallelism,
		SaltLength: cfg.Password.SaltLength, KeyLength: cfg.Password.KeyLength,
	})
	require.NoError(t, err)
	hash, err := hasher.Hash(secret)
	require.NoError(t, err)

	accounts := &fakeAccounts{
		records: map[string]goGate.CredentialRecord{
			adminEmail:  {ID: "acct-admin", Email: adminEmail, PasswordHash: hash, RoleID: "role-admin"},
			viewerEmail: {ID: "acct-viewer", Email: viewerEmail, PasswordHash: hash, RoleID: "role-viewer"},
		},
		grants: map[string]permission.Grant{
			"acct-admin": {RoleID: "role-admin", Permissions: []permission.Permission{
				permission.New(permission.ActionView, permission.SubjectUser),
				permission.New(permission.ActionUpdate, permission.SubjectUser),
			}},
			"acct-viewer": {RoleID: "role-viewer", Permissions: []permission.Permission{
				permission.New(permission.ActionView, permission.SubjectUser),
			}},
		},
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := slog.New(slog.DiscardHandler)
	engine, err := buildEngine(cfg, rdb, accounts, io.Discard, logger)
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	srv := httptest.NewServer(newRouter(engine, logger, func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testServer{url: srv.URL, client: &http.Client{Jar: jar}, mr: mr}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.url+path, r)
	require.NoError(t, err)
	resp, err := s.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (s *testServer) login(t *testing.T, email, pw string) *http.Response {
	return s.do(t, http.MethodPost, "/auth/login", loginRequest{Email: email, Password: pw})
}

func TestLoginMeRefreshLogoutFlow(t *testing.T) {
	s := newTestServer(t)

	resp := s.login(t, adminEmail, secret)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res goGate.LoginResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, "acct-admin", res.ID)
	assert.Equal(t, "role-admin", res.RoleID)

	names := map[string]bool{}
	for _, c := range resp.Cookies() {
		names[c.Name] = c.HttpOnly
	}
	assert.True(t, names["access_token"], "access cookie must be HttpOnly")
	assert.True(t, names["refresh_token"], "refresh cookie must be HttpOnly")

	body, _ := io.ReadAll(s.do(t, http.MethodGet, "/auth/me", nil).Body)
	assert.Contains(t, string(body), adminEmail)

	resp = s.do(t, http.MethodPost, "/auth/refresh", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/auth/logout", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = s.do(t, http.MethodPost, "/auth/refresh", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginRejectsBadInput(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.login(t, adminEmail, "wrong-password-1").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, s.login(t, "ghost@example.com", secret).StatusCode)

	req, err := http.NewRequest(http.MethodPost, s.url+"/auth/login", strings.NewReader("{"))
	require.NoError(t, err)
	resp, err := s.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLockoutReturnsRetryAfterAndAdminUnlock(t *testing.T) {
	s := newTestServer(t)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusUnauthorized, s.login(t, viewerEmail, "wrong-password-1").StatusCode)
	}
	resp := s.login(t, viewerEmail, secret)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "3600", resp.Header.Get("Retry-After"))

	require.Equal(t, http.StatusOK, s.login(t, adminEmail, secret).StatusCode)

	resp = s.do(t, http.MethodGet, "/admin/accounts/acct-viewer/lockout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodDelete, "/admin/accounts/acct-viewer/lockout", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	var lr lockoutResponse
	require.NoError(t, json.NewDecoder(s.do(t, http.MethodGet, "/admin/accounts/acct-viewer/lockout", nil).Body).Decode(&lr))
	assert.Equal(t, 0, lr.FailedAttempts)

	assert.Equal(t, http.StatusOK, s.login(t, viewerEmail, secret).StatusCode)
}

func TestCheckEndpoint(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.login(t, viewerEmail, secret).StatusCode)

	resp := s.do(t, http.MethodGet, "/auth/check?operation="+opUserView, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "acct-viewer", resp.Header.Get("X-Account-Id"))

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/auth/check?operation="+opUserUpdate, nil).StatusCode)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/auth/check?operation=nope", nil).StatusCode)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodDelete, "/admin/accounts/acct-admin/lockout", nil).StatusCode)
}

func TestStoreOutageFailsClosed(t *testing.T) {
	s := newTestServer(t)
	s.mr.Close()

	resp := s.login(t, adminEmail, secret)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Empty(t, resp.Cookies())

	assert.Equal(t, http.StatusServiceUnavailable, s.do(t, http.MethodGet, "/healthz", nil).StatusCode)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/healthz", nil).StatusCode)
}

func TestHealthHandlerNilCheck(t *testing.T) {
	rec := httptest.NewRecorder()
	healthHandler(nil, slog.New(slog.DiscardHandler))(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	healthHandler(func(context.Context) error { return errors.New("down") }, slog.New(slog.DiscardHandler))(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
