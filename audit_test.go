package goGate

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goGate/permission"
	"github.com/google/uuid"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

func auditConfig() Config {
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 64
	cfg.Audit.DropIfFull = false
	return cfg
}

func withAuditSink(sink AuditSink) engineOption {
	return func(b *Builder) { b.WithAuditSink(sink) }
}

// drain closes the engine, which flushes the dispatcher, and returns every
// event the sink received.
func drain(te *testEngine, sink *ChannelSink) []AuditEvent {
	te.engine.Close()

	var events []AuditEvent
	for {
		select {
		case ev := <-sink.Events():
			events = append(events, ev)
		default:
			return events
		}
	}
}

func eventsOfType(events []AuditEvent, eventType string) []AuditEvent {
	var out []AuditEvent
	for _, ev := range events {
		if ev.EventType == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	sink := &countingSink{}
	te := newTestEngine(t, testConfig(), withAuditSink(sink))

	_, _ = te.engine.Login(WithClientIP(context.Background(), "203.0.113.1"), newRecordingTransport(), testEmail, "wrong-password-123")
	te.engine.Close()

	if sink.Count() != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", sink.Count())
	}
}

func TestAuditLoginFailureCarriesRequestFields(t *testing.T) {
	sink := NewChannelSink(64)
	te := newTestEngine(t, auditConfig(), withAuditSink(sink))

	ctx := WithUserAgent(WithClientIP(context.Background(), "198.51.100.33"), "curl/8.5")
	_, _ = te.engine.Login(ctx, newRecordingTransport(), testEmail, "wrong-password-123")

	failures := eventsOfType(drain(te, sink), auditEventLoginFailure)
	if len(failures) != 1 {
		t.Fatalf("expected one login_failure event, got %d", len(failures))
	}
	ev := failures[0]
	if _, err := uuid.Parse(ev.ID); err != nil {
		t.Fatalf("expected uuid event id, got %q", ev.ID)
	}
	if ev.IP != "198.51.100.33" || ev.UserAgent != "curl/8.5" {
		t.Fatalf("unexpected request fields: ip=%q ua=%q", ev.IP, ev.UserAgent)
	}
	if ev.AccountID != testAccount || ev.Success {
		t.Fatalf("unexpected account/success: %+v", ev)
	}
	if ev.Error != string(auditErrInvalidCredentials) {
		t.Fatalf("expected invalid_credentials code, got %q", ev.Error)
	}
	if !ev.Timestamp.Equal(testEpoch) {
		t.Fatalf("expected engine clock timestamp, got %s", ev.Timestamp)
	}
}

func TestAuditUnknownIdentifierHasNoAccount(t *testing.T) {
	sink := NewChannelSink(64)
	te := newTestEngine(t, auditConfig(), withAuditSink(sink))

	_, _ = te.engine.Login(context.Background(), newRecordingTransport(), "ghost@example.com", testPassword)

	failures := eventsOfType(drain(te, sink), auditEventLoginFailure)
	if len(failures) != 1 || failures[0].AccountID != "" {
		t.Fatalf("expected one anonymous login_failure, got %+v", failures)
	}
	if failures[0].Metadata["reason"] != "unknown_identifier" {
		t.Fatalf("unexpected reason: %v", failures[0].Metadata)
	}
}

func TestAuditLockoutLifecycle(t *testing.T) {
	sink := NewChannelSink(64)
	te := newTestEngine(t, auditConfig(), withAuditSink(sink))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = te.engine.Login(ctx, newRecordingTransport(), testEmail, "wrong-password-123")
	}
	_, _ = te.engine.Login(ctx, newRecordingTransport(), testEmail, testPassword)
	_ = te.engine.UnlockAccount(ctx, testAccount)

	events := drain(te, sink)
	if n := len(eventsOfType(events, auditEventLockoutTriggered)); n != 1 {
		t.Fatalf("expected one lockout_triggered, got %d", n)
	}
	locked := eventsOfType(events, auditEventLoginLocked)
	if len(locked) != 1 || locked[0].Error != string(auditErrAccountLocked) {
		t.Fatalf("expected one login_locked with account_locked code, got %+v", locked)
	}
	if n := len(eventsOfType(events, auditEventAccountUnlocked)); n != 1 {
		t.Fatalf("expected one account_unlocked, got %d", n)
	}
}

func TestAuditAuthorizeDeniedNamesOperation(t *testing.T) {
	sink := NewChannelSink(64)
	te := newTestEngine(t, auditConfig(), withAuditSink(sink))
	te.grants.set(testAccount, permission.New(permission.ActionView, permission.SubjectUser))

	_ = te.engine.Authorize(context.Background(), &Principal{ID: testAccount}, opEditUser)

	denied := eventsOfType(drain(te, sink), auditEventAuthorizeDenied)
	if len(denied) != 1 {
		t.Fatalf("expected one authorize_denied, got %d", len(denied))
	}
	if denied[0].Metadata["operation"] != opEditUser || denied[0].Error != string(auditErrUnauthorized) {
		t.Fatalf("unexpected authorize_denied event: %+v", denied[0])
	}
}

func TestAuditNoSecretsInEvents(t *testing.T) {
	sink := NewChannelSink(64)
	te := newTestEngine(t, auditConfig(), withAuditSink(sink))
	ctx := context.Background()

	tr := newRecordingTransport()
	if _, err := te.engine.Login(ctx, tr, testEmail, testPassword); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := te.engine.Refresh(ctx, newRecordingTransport(), tr.values[TokenRefresh]); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	access, refresh := tr.values[TokenAccess], tr.values[TokenRefresh]
	_, _ = te.engine.Login(ctx, newRecordingTransport(), testEmail, "another-wrong-secret")
	if err := te.engine.Logout(WithPrincipal(ctx, Principal{ID: testAccount}), tr); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	events := drain(te, sink)
	if len(events) < 4 {
		t.Fatalf("expected at least 4 audit events, got %d", len(events))
	}
	if n := len(eventsOfType(events, auditEventLogout)); n != 1 {
		t.Fatalf("expected one logout event, got %d", n)
	}

	needles := []string{
		testPassword,
		"another-wrong-secret",
		access,
		refresh,
		te.credentials.records[testEmail].PasswordHash,
	}
	for _, ev := range events {
		var buf bytes.Buffer
		NewJSONWriterSink(&buf).Emit(ctx, ev)
		line := buf.String()
		for _, needle := range needles {
			if needle != "" && strings.Contains(line, needle) {
				t.Fatalf("sensitive value leaked in %s event", ev.EventType)
			}
		}
	}
}

func TestAuditStoreFailureEvent(t *testing.T) {
	sink := NewChannelSink(64)
	te := newTestEngine(t, auditConfig(), withAuditSink(sink), withState(failingStore{}))

	_, _ = te.engine.Login(context.Background(), newRecordingTransport(), testEmail, testPassword)

	failures := eventsOfType(drain(te, sink), auditEventLoginFailure)
	if len(failures) != 1 || failures[0].Error != string(auditErrUnavailable) {
		t.Fatalf("expected backend_unavailable login_failure, got %+v", failures)
	}
	if failures[0].Metadata["stage"] != "lockout check" {
		t.Fatalf("unexpected stage: %v", failures[0].Metadata)
	}
}

func TestAuditErrorCodeMapping(t *testing.T) {
	tests := []struct {
		err  error
		want AuditErrorCode
	}{
		{nil, ""},
		{ErrInvalidCredentials, auditErrInvalidCredentials},
		{&AccountLockedError{RetryAfterSeconds: 5}, auditErrAccountLocked},
		{ErrTokenExpired, auditErrExpiredToken},
		{ErrTokenInvalid, auditErrInvalidToken},
		{ErrUnauthenticated, auditErrUnauthenticated},
		{ErrUnauthorized, auditErrUnauthorized},
		{ErrUnknownOperation, auditErrUnknownOperation},
		{errors.Join(ErrStoreUnavailable, errStoreDown), auditErrUnavailable},
		{errors.New("boom"), auditErrInternal},
	}

	for _, tc := range tests {
		if got := auditErrorCode(tc.err); got != tc.want {
			t.Fatalf("auditErrorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestAuditDroppedReportsDispatcherCount(t *testing.T) {
	cfg := auditConfig()
	cfg.Audit.BufferSize = 1
	cfg.Audit.DropIfFull = true

	gate := make(chan struct{})
	var once sync.Once
	release := func() { once.Do(func() { close(gate) }) }
	sink := gateSink(gate)

	te := newTestEngine(t, cfg, withAuditSink(sink))
	t.Cleanup(release)

	for i := 0; i < 6; i++ {
		_, _ = te.engine.Login(context.Background(), newRecordingTransport(), "ghost@example.com", testPassword)
	}
	if te.engine.AuditDropped() == 0 {
		t.Fatal("expected dropped events with a blocked sink and a one-slot buffer")
	}
	byType := te.engine.AuditDroppedByType()
	if len(byType) != 1 || byType[auditEventLoginFailure] != te.engine.AuditDropped() {
		t.Fatalf("expected every drop attributed to %s, got %v", auditEventLoginFailure, byType)
	}

	release()
	te.engine.Close()
}

type gateSink chan struct{}

func (g gateSink) Emit(context.Context, AuditEvent) {
	<-g
}

func TestJSONWriterSinkIncludesEventFields(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	ev := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: auditEventLoginSuccess,
		AccountID: testAccount,
		IP:        "127.0.0.1",
		Success:   true,
	}
	sink.Emit(context.Background(), ev)

	line := buf.String()
	if !strings.HasSuffix(line, "\n") || !strings.Contains(line, auditEventLoginSuccess) || !strings.Contains(line, testAccount) {
		t.Fatalf("unexpected JSON line: %q", line)
	}
}
