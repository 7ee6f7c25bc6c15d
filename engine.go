package goGate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/goGate/internal/audit"
	"github.com/MrEthical07/goGate/internal/limiters"
	"github.com/MrEthical07/goGate/jwt"
	"github.com/MrEthical07/goGate/password"
	"github.com/MrEthical07/goGate/permission"
)

// Engine issues sessions and answers authorization questions.
//
// Engine is immutable after Build and safe for concurrent use.
type Engine struct {
	config      Config
	tokens      *jwt.Manager
	lockout     *limiters.LockoutLimiter
	passwords   *password.Verifier
	evaluator   *permission.Evaluator
	credentials CredentialStore
	hashUpdater PasswordHashUpdater
	audit       *audit.Dispatcher
	metrics     *Metrics
	logger      *slog.Logger
	now         func() time.Time
}

// Close drains pending audit events and stops the audit goroutine.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events discarded on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditDroppedByType breaks AuditDropped down by audit event type.
func (e *Engine) AuditDroppedByType() map[string]uint64 {
	if e == nil || e.audit == nil {
		return map[string]uint64{}
	}
	return e.audit.DroppedByType()
}

// MetricsSnapshot returns a copy of the in-process counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the configuration the engine was built with.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.tokens != nil && e.lockout != nil && e.passwords != nil &&
		e.evaluator != nil && e.credentials != nil
}

/*
====================================
LOGIN
====================================
*/

// Login authenticates identifier and secret. On success both tokens are
// handed to transport and the principal summary is returned.
//
// An unknown identifier and a wrong secret both fail with
// ErrInvalidCredentials. A locked account fails with *AccountLockedError
// before the secret is checked. Consecutive failures are counted per
// account; the failure that reaches Lockout.MaxLoginAttempts still reports
// ErrInvalidCredentials and the next attempt is locked.
func (e *Engine) Login(ctx context.Context, transport TokenTransport, identifier, secret string) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if transport == nil {
		return nil, ErrTransportRequired
	}

	start := time.Now()
	defer func() {
		if e.metrics.LatencyEnabled() {
			e.metrics.Observe(MetricLoginLatency, time.Since(start))
		}
	}()

	if identifier == "" || secret == "" {
		e.passwords.Burn(secret)
		return nil, e.loginFailure(ctx, "", "empty_input")
	}

	record, found, err := e.credentials.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, e.storeFailure(ctx, "credential lookup", "", auditEventLoginFailure, err)
	}
	if !found || record.ID == "" {
		e.passwords.Burn(secret)
		return nil, e.loginFailure(ctx, "", "unknown_identifier")
	}

	if err := e.lockout.CheckLocked(ctx, record.ID); err != nil {
		var locked *limiters.LockedError
		if errors.As(err, &locked) {
			lockErr := &AccountLockedError{RetryAfterSeconds: locked.RetryAfterSeconds}
			e.metricInc(MetricLoginLocked)
			e.logger.DebugContext(ctx, "login rejected for locked account",
				slog.String("account_id", record.ID),
				slog.Int64("retry_after_seconds", locked.RetryAfterSeconds),
			)
			e.emitAudit(ctx, auditEventLoginLocked, false, record.ID, lockErr, nil)
			return nil, lockErr
		}
		return nil, e.storeFailure(ctx, "lockout check", record.ID, auditEventLoginFailure, err)
	}

	ok, err := e.passwords.Verify(secret, record.PasswordHash)
	if err != nil {
		// An unusable stored hash never authenticates. It counts as a wrong
		// secret so the response is indistinguishable.
		if !errors.Is(err, password.ErrPasswordTooLong) {
			e.logger.WarnContext(ctx, "stored password hash could not be verified",
				slog.String("account_id", record.ID),
				slog.String("scheme", string(password.SchemeOf(record.PasswordHash))),
				slog.Any("error", err),
			)
		}
		ok = false
	}
	if !ok {
		lockedNow, err := e.lockout.RecordFailure(ctx, record.ID)
		if err != nil {
			return nil, e.storeFailure(ctx, "lockout record failure", record.ID, auditEventLoginFailure, err)
		}
		if lockedNow {
			e.metricInc(MetricLockoutTriggered)
			e.logger.InfoContext(ctx, "account locked after repeated login failures",
				slog.String("account_id", record.ID),
				slog.Int("threshold", e.config.Lockout.MaxLoginAttempts),
			)
			e.emitAudit(ctx, auditEventLockoutTriggered, false, record.ID, ErrInvalidCredentials, func() map[string]string {
				return map[string]string{
					"lock_duration": e.config.Lockout.LockDuration.String(),
				}
			})
		}
		return nil, e.loginFailure(ctx, record.ID, "secret_mismatch")
	}

	if err := e.lockout.RecordSuccess(ctx, record.ID); err != nil {
		return nil, e.storeFailure(ctx, "lockout reset", record.ID, auditEventLoginFailure, err)
	}

	e.upgradeHash(ctx, record, secret)

	principal := Principal{ID: record.ID, Email: record.Email}
	access, err := e.tokens.Issue(principal.ID, principal.Email, jwt.KindAccess)
	if err != nil {
		return nil, err
	}
	refresh, err := e.tokens.Issue(principal.ID, principal.Email, jwt.KindRefresh)
	if err != nil {
		return nil, err
	}

	transport.SetToken(TokenAccess, access, e.tokens.TTL(jwt.KindAccess))
	transport.SetToken(TokenRefresh, refresh, e.tokens.TTL(jwt.KindRefresh))

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, record.ID, nil, nil)

	return &LoginResult{Principal: principal, RoleID: record.RoleID}, nil
}

func (e *Engine) loginFailure(ctx context.Context, accountID, reason string) error {
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, accountID, ErrInvalidCredentials, func() map[string]string {
		return map[string]string{
			"reason": reason,
		}
	})
	return ErrInvalidCredentials
}

// upgradeHash re-hashes secret when the stored hash is legacy or weaker than
// the current argon2id parameters. Failures are logged and never fail the
// login.
func (e *Engine) upgradeHash(ctx context.Context, record CredentialRecord, secret string) {
	if !e.config.Password.UpgradeOnLogin || e.hashUpdater == nil {
		return
	}

	needsUpgrade, err := e.passwords.NeedsUpgrade(record.PasswordHash)
	if err != nil || !needsUpgrade {
		return
	}

	upgraded, err := e.passwords.Hash(secret)
	if err != nil {
		e.logger.WarnContext(ctx, "password hash upgrade generation failed",
			slog.String("account_id", record.ID),
			slog.Any("error", err),
		)
		return
	}
	if err := e.hashUpdater.UpdatePasswordHash(ctx, record.ID, upgraded); err != nil {
		e.logger.WarnContext(ctx, "password hash upgrade update failed",
			slog.String("account_id", record.ID),
			slog.Any("error", err),
		)
		return
	}

	e.metricInc(MetricPasswordUpgraded)
	e.logger.DebugContext(ctx, "password hash upgraded",
		slog.String("account_id", record.ID),
		slog.String("from", string(password.SchemeOf(record.PasswordHash))),
	)
}

/*
====================================
REFRESH / LOGOUT
====================================
*/

// Refresh verifies a refresh token and hands a new access token for the same
// principal to transport. Refresh tokens are not rotated. Every failure,
// including a missing token, is ErrInvalidCredentials.
func (e *Engine) Refresh(ctx context.Context, transport TokenTransport, refreshToken string) (*Principal, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if transport == nil {
		return nil, ErrTransportRequired
	}

	if refreshToken == "" {
		return nil, e.refreshFailure(ctx, "", "missing_token")
	}

	claims, err := e.tokens.Verify(refreshToken, jwt.KindRefresh)
	if err != nil {
		reason := "invalid_token"
		if errors.Is(err, jwt.ErrExpired) {
			reason = "expired_token"
		}
		e.logger.DebugContext(ctx, "refresh token rejected", slog.String("reason", reason))
		return nil, e.refreshFailure(ctx, "", reason)
	}

	access, err := e.tokens.Issue(claims.AccountID, claims.Email, jwt.KindAccess)
	if err != nil {
		return nil, err
	}
	transport.SetToken(TokenAccess, access, e.tokens.TTL(jwt.KindAccess))

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, claims.AccountID, nil, nil)

	return &Principal{ID: claims.AccountID, Email: claims.Email}, nil
}

func (e *Engine) refreshFailure(ctx context.Context, accountID, reason string) error {
	e.metricInc(MetricRefreshFailure)
	e.emitAudit(ctx, auditEventRefreshFailure, false, accountID, ErrInvalidCredentials, func() map[string]string {
		return map[string]string{
			"reason": reason,
		}
	})
	return ErrInvalidCredentials
}

// Logout clears both token artifacts through transport. Nothing is revoked
// server-side: a copied token stays valid until it expires.
func (e *Engine) Logout(ctx context.Context, transport TokenTransport) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if transport == nil {
		return ErrTransportRequired
	}

	transport.ClearToken(TokenAccess)
	transport.ClearToken(TokenRefresh)

	var accountID string
	if p, ok := PrincipalFromContext(ctx); ok {
		accountID = p.ID
	}
	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, accountID, nil, nil)
	return nil
}

/*
====================================
VERIFY / AUTHORIZE
====================================
*/

// VerifyAccess checks an access token and returns its principal. An empty
// token is ErrUnauthenticated; an authentic expired token is
// ErrTokenExpired; anything else that fails is ErrTokenInvalid.
func (e *Engine) VerifyAccess(ctx context.Context, accessToken string) (*Principal, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if accessToken == "" {
		e.metricInc(MetricUnauthenticated)
		return nil, ErrUnauthenticated
	}

	claims, err := e.tokens.Verify(accessToken, jwt.KindAccess)
	if err != nil {
		e.metricInc(MetricUnauthenticated)
		if errors.Is(err, jwt.ErrExpired) {
			return nil, ErrTokenExpired
		}
		e.logger.DebugContext(ctx, "access token rejected", slog.Any("error", err))
		return nil, ErrTokenInvalid
	}

	return &Principal{ID: claims.AccountID, Email: claims.Email}, nil
}

// Authorize decides whether principal may invoke operation. The grant is
// read from the permission store on every call. A nil principal is
// ErrUnauthenticated, an unregistered operation ErrUnknownOperation, a grant
// without any accepted pair ErrUnauthorized, and a store failure
// ErrStoreUnavailable. There is no allow on error.
//
// An operation missing from the registration table is denied rather than
// treated as open: skipping a check must be declared with WithOpenOperation
// at build time, so a forgotten registration fails closed.
func (e *Engine) Authorize(ctx context.Context, principal *Principal, operation string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if principal == nil || principal.ID == "" {
		e.metricInc(MetricUnauthenticated)
		return ErrUnauthenticated
	}

	_, err := e.evaluator.Evaluate(ctx, principal.ID, operation)
	switch {
	case err == nil:
		e.metricInc(MetricAuthorizeAllowed)
		return nil
	case errors.Is(err, permission.ErrUnknownOperation):
		e.logger.ErrorContext(ctx, "authorization requested for unregistered operation",
			slog.String("operation", operation),
		)
		e.metricInc(MetricAuthorizeDenied)
		e.emitAudit(ctx, auditEventAuthorizeDenied, false, principal.ID, ErrUnknownOperation, func() map[string]string {
			return map[string]string{"operation": operation}
		})
		return ErrUnknownOperation
	case errors.Is(err, permission.ErrDenied):
		e.metricInc(MetricAuthorizeDenied)
		e.emitAudit(ctx, auditEventAuthorizeDenied, false, principal.ID, ErrUnauthorized, func() map[string]string {
			return map[string]string{"operation": operation}
		})
		return ErrUnauthorized
	default:
		return e.storeFailure(ctx, "grant load", principal.ID, auditEventAuthorizeDenied, err)
	}
}

// IsRegistered reports whether operation is in the operation table.
func (e *Engine) IsRegistered(operation string) bool {
	if !e.ready() {
		return false
	}
	_, ok := e.evaluator.Registry().Lookup(operation)
	return ok
}

/*
====================================
LOCKOUT ADMINISTRATION
====================================
*/

// UnlockAccount clears the failure counter and any active lock.
func (e *Engine) UnlockAccount(ctx context.Context, accountID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if err := e.lockout.RecordSuccess(ctx, accountID); err != nil {
		return e.storeFailure(ctx, "lockout reset", accountID, auditEventAccountUnlocked, err)
	}

	e.metricInc(MetricAccountUnlocked)
	e.emitAudit(ctx, auditEventAccountUnlocked, true, accountID, nil, nil)
	return nil
}

// FailedAttempts returns the current consecutive failure count. A lock
// whose deadline has passed reads as zero.
func (e *Engine) FailedAttempts(ctx context.Context, accountID string) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	n, err := e.lockout.Attempts(ctx, accountID)
	if err != nil {
		return 0, e.storeFailure(ctx, "lockout read", accountID, "", err)
	}
	return n, nil
}

func (e *Engine) storeFailure(ctx context.Context, stage, accountID, eventType string, cause error) error {
	e.metricInc(MetricStoreUnavailable)
	e.logger.ErrorContext(ctx, "store unavailable",
		slog.String("stage", stage),
		slog.String("account_id", accountID),
		slog.Any("error", cause),
	)

	err := fmt.Errorf("%w: %v", ErrStoreUnavailable, cause)
	if eventType != "" {
		e.emitAudit(ctx, eventType, false, accountID, ErrStoreUnavailable, func() map[string]string {
			return map[string]string{"stage": stage}
		})
	}
	return err
}
