package limiters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goGate/store"
)

const defaultLockoutKeyPrefix = "account_lock"

// LockoutConfig holds configuration for the account lockout tracker.
type LockoutConfig struct {
	Threshold int
	Duration  time.Duration
	KeyPrefix string

	// Now defaults to time.Now.
	Now func() time.Time
}

var (
	// ErrLockoutUnavailable indicates the lockout backend is unreachable.
	ErrLockoutUnavailable = errors.New("lockout backend unavailable")
	// ErrLocked is matched by every *LockedError.
	ErrLocked = errors.New("account locked")
)

// LockedError reports an active lock and how long the caller must wait.
type LockedError struct {
	RetryAfterSeconds int64
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked, retry after %ds", e.RetryAfterSeconds)
}

// Is makes errors.Is(err, ErrLocked) hold for any *LockedError.
func (e *LockedError) Is(target error) bool {
	return target == ErrLocked
}

// lockoutRecord is the persisted counter. LockedUntil is in unix
// milliseconds; nil means the account is not locked.
type lockoutRecord struct {
	FailedAttempts int    `json:"failed_attempts"`
	LockedUntil    *int64 `json:"locked_until"`
}

// LockoutLimiter counts consecutive failed logins per account and locks the
// account once the threshold is reached. State lives in the shared store
// with a TTL, so it clears itself without a cleanup job.
type LockoutLimiter struct {
	store  store.Store
	config LockoutConfig
	now    func() time.Time
}

// NewLockoutLimiter creates a new lockout limiter over st.
func NewLockoutLimiter(st store.Store, cfg LockoutConfig) *LockoutLimiter {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultLockoutKeyPrefix
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &LockoutLimiter{store: st, config: cfg, now: now}
}

func (l *LockoutLimiter) key(accountID string) string {
	return l.config.KeyPrefix + ":" + accountID
}

// CheckLocked returns a *LockedError while the account is locked. A lock
// whose deadline has passed is deleted and reported as unlocked.
func (l *LockoutLimiter) CheckLocked(ctx context.Context, accountID string) error {
	if accountID == "" {
		return nil
	}

	rec, found, err := l.load(ctx, accountID)
	if err != nil || !found || rec.LockedUntil == nil {
		return err
	}

	nowMs := l.now().UnixMilli()
	remaining := *rec.LockedUntil - nowMs
	if remaining > 0 {
		return &LockedError{RetryAfterSeconds: ceilSeconds(remaining)}
	}

	if err := l.store.Delete(ctx, l.key(accountID)); err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return nil
}

// RecordFailure atomically increments the failure counter. It returns true
// when this failure reached the threshold and locked the account. Every
// failure renews the record TTL, so the window rolls from the last failure.
//
// Stores implementing store.LockCounter count in one server-side step;
// others go through Update.
func (l *LockoutLimiter) RecordFailure(ctx context.Context, accountID string) (bool, error) {
	if accountID == "" {
		return false, nil
	}

	if counter, ok := l.store.(store.LockCounter); ok {
		now := l.now()
		_, lockedUntil, err := counter.IncrLock(ctx, l.key(accountID), l.config.Threshold,
			now.UnixMilli(), now.Add(l.config.Duration).UnixMilli(), l.config.Duration)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
		}
		return lockedUntil != 0, nil
	}

	var locked bool
	err := l.store.Update(ctx, l.key(accountID), l.config.Duration, func(cur []byte, found bool) ([]byte, error) {
		locked = false

		var rec lockoutRecord
		if found {
			if err := json.Unmarshal(cur, &rec); err != nil {
				rec = lockoutRecord{}
			}
		}

		now := l.now()
		if rec.LockedUntil != nil && *rec.LockedUntil <= now.UnixMilli() {
			rec = lockoutRecord{}
		}

		rec.FailedAttempts++
		rec.LockedUntil = nil
		if rec.FailedAttempts >= l.config.Threshold {
			until := now.Add(l.config.Duration).UnixMilli()
			rec.LockedUntil = &until
			locked = true
		}

		return json.Marshal(rec)
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return locked, nil
}

// RecordSuccess deletes the account's record unconditionally.
func (l *LockoutLimiter) RecordSuccess(ctx context.Context, accountID string) error {
	if accountID == "" {
		return nil
	}

	if err := l.store.Delete(ctx, l.key(accountID)); err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return nil
}

// Attempts returns the current failure count. A record whose lock has
// already expired counts as zero.
func (l *LockoutLimiter) Attempts(ctx context.Context, accountID string) (int, error) {
	if accountID == "" {
		return 0, nil
	}

	rec, found, err := l.load(ctx, accountID)
	if err != nil || !found {
		return 0, err
	}
	if rec.LockedUntil != nil && *rec.LockedUntil <= l.now().UnixMilli() {
		return 0, nil
	}
	return rec.FailedAttempts, nil
}

func (l *LockoutLimiter) load(ctx context.Context, accountID string) (lockoutRecord, bool, error) {
	data, found, err := l.store.Get(ctx, l.key(accountID))
	if err != nil {
		return lockoutRecord{}, false, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	if !found {
		return lockoutRecord{}, false, nil
	}

	var rec lockoutRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		// Unreadable records are treated as absent; the next failure overwrites them.
		return lockoutRecord{}, false, nil
	}
	return rec, true, nil
}

func ceilSeconds(ms int64) int64 {
	return (ms + 999) / 1000
}
