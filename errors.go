package goGate

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned for an unknown identifier and for a
	// wrong secret alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is matched by every *AccountLockedError.
	ErrAccountLocked = errors.New("account locked")
	// ErrTokenInvalid reports a token that failed signature, structure, kind,
	// or claim checks.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired reports an authentic token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrUnauthenticated is returned when no verified principal is present.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUnauthorized is returned when the principal holds none of the
	// permissions an operation accepts.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnknownOperation is returned when authorizing an operation that was
	// never registered.
	ErrUnknownOperation = errors.New("operation not registered")
	// ErrStoreUnavailable wraps infrastructure failures of the state,
	// credential, or permission stores.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrTransportRequired is returned when a token operation has nowhere to
	// attach its artifacts.
	ErrTransportRequired = errors.New("token transport required")
	// ErrEngineNotReady is returned by methods called on a nil or partially
	// built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// AccountLockedError carries the wait, in whole seconds rounded up, before
// the account accepts login attempts again.
type AccountLockedError struct {
	RetryAfterSeconds int64
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("%s: retry after %d seconds", ErrAccountLocked, e.RetryAfterSeconds)
}

// Is reports whether target is ErrAccountLocked.
func (e *AccountLockedError) Is(target error) bool {
	return target == ErrAccountLocked
}
