package goGate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goGate/password"
	"github.com/MrEthical07/goGate/permission"
	"github.com/MrEthical07/goGate/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const (
	testEmail    = "alice@example.com"
	testPassword = "correct-horse-battery"
	testAccount  = "acct-1"
	testRole     = "role-editor"

	opEditUser    = "user.edit"
	opViewProfile = "profile.view"
)

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: testEpoch}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeCredentials struct {
	mu       sync.Mutex
	records  map[string]CredentialRecord
	err      error
	lookups  int
	upgrades map[string]string
	updateFn func(accountID, hash string) error
}

func newFakeCredentials(records ...CredentialRecord) *fakeCredentials {
	fc := &fakeCredentials{
		records:  make(map[string]CredentialRecord, len(records)),
		upgrades: make(map[string]string),
	}
	for _, r := range records {
		fc.records[r.Email] = r
	}
	return fc
}

func (f *fakeCredentials) FindByIdentifier(_ context.Context, identifier string) (CredentialRecord, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lookups++
	if f.err != nil {
		return CredentialRecord{}, false, f.err
	}
	r, ok := f.records[identifier]
	return r, ok, nil
}

func (f *fakeCredentials) UpdatePasswordHash(_ context.Context, accountID, newHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateFn != nil {
		if err := f.updateFn(accountID, newHash); err != nil {
			return err
		}
	}
	f.upgrades[accountID] = newHash
	for k, r := range f.records {
		if r.ID == accountID {
			r.PasswordHash = newHash
			f.records[k] = r
		}
	}
	return nil
}

type fakeGrants struct {
	mu     sync.Mutex
	grants map[string]permission.Grant
	err    error
	loads  int
}

func newFakeGrants() *fakeGrants {
	return &fakeGrants{grants: make(map[string]permission.Grant)}
}

func (f *fakeGrants) set(accountID string, perms ...permission.Permission) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grants[accountID] = permission.Grant{RoleID: testRole, Permissions: perms}
}

func (f *fakeGrants) LoadGrant(_ context.Context, accountID string) (permission.Grant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.loads++
	if f.err != nil {
		return permission.Grant{}, f.err
	}
	return f.grants[accountID], nil
}

func (f *fakeGrants) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

type recordingTransport struct {
	values  map[TokenKind]string
	maxAges map[TokenKind]time.Duration
	cleared map[TokenKind]bool
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{
		values:  make(map[TokenKind]string),
		maxAges: make(map[TokenKind]time.Duration),
		cleared: make(map[TokenKind]bool),
	}
}

func (r *recordingTransport) SetToken(kind TokenKind, value string, maxAge time.Duration) {
	r.values[kind] = value
	r.maxAges[kind] = maxAge
	delete(r.cleared, kind)
}

func (r *recordingTransport) ClearToken(kind TokenKind) {
	delete(r.values, kind)
	delete(r.maxAges, kind)
	r.cleared[kind] = true
}

// failingStore reports every call as a backend outage.
type failingStore struct{}

var errStoreDown = errors.New("connection refused")

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errStoreDown
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errStoreDown
}

func (failingStore) Delete(context.Context, string) error {
	return errStoreDown
}

func (failingStore) Update(context.Context, string, time.Duration, store.UpdateFunc) error {
	return errStoreDown
}

func testArgon2(t testing.TB) *password.Argon2 {
	t.Helper()

	cfg := testConfig()
	a, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	return a
}

func hashPassword(t testing.TB, secret string) string {
	t.Helper()

	h, err := testArgon2(t).Hash(secret)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	return h
}

type testEngine struct {
	engine      *Engine
	clock       *testClock
	credentials *fakeCredentials
	grants      *fakeGrants
}

type engineOption func(*Builder)

func withState(st store.Store) engineOption {
	return func(b *Builder) { b.WithStore(st) }
}

func newTestEngine(t *testing.T, cfg Config, opts ...engineOption) *testEngine {
	t.Helper()

	clk := newTestClock()
	creds := newFakeCredentials(CredentialRecord{
		ID:           testAccount,
		Email:        testEmail,
		PasswordHash: hashPassword(t, testPassword),
		RoleID:       testRole,
	})
	grants := newFakeGrants()

	b := New().
		WithConfig(cfg).
		WithStore(store.NewMemoryWithClock(clk.Now)).
		WithCredentialStore(creds).
		WithPermissionStore(grants).
		WithClock(clk.Now).
		WithOperation(opEditUser,
			permission.New(permission.ActionCreate, permission.SubjectUser),
			permission.New(permission.ActionUpdate, permission.SubjectUser),
		).
		WithOpenOperation(opViewProfile)
	for _, opt := range opts {
		opt(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEngine{engine: engine, clock: clk, credentials: creds, grants: grants}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}
