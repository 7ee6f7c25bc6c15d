package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable indicates the backing store could not be reached or
	// returned an unexpected failure.
	ErrUnavailable = errors.New("state store unavailable")
	// ErrConflict indicates an Update lost the race too many times in a row.
	ErrConflict = errors.New("state store update conflict")
)

// UpdateFunc receives the current value of a key and returns its replacement.
// Returning a nil next deletes the key. Returning an error aborts the update
// without writing, and that error is returned from Update unchanged.
//
// An UpdateFunc may be invoked more than once for a single Update call and
// must not call back into the store.
type UpdateFunc func(current []byte, found bool) (next []byte, err error)

// Store is a TTL-aware key/value store with an atomic read-modify-write.
type Store interface {
	// Get returns the value for key. found is false when the key is absent or
	// expired.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Set writes value with the given TTL. A non-positive TTL keeps the value
	// until it is deleted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Update applies fn atomically with respect to every other Update on the
	// same key, then stores the result with ttl.
	Update(ctx context.Context, key string, ttl time.Duration, fn UpdateFunc) error
}

// LockCounter is implemented by stores that can count a failed attempt in a
// single server-side step. Callers prefer it over Update for hot counters,
// where an optimistic transaction can lose the race indefinitely.
//
// The record at key is the JSON object
// {"failed_attempts":<n>,"locked_until":<unix ms>|null}.
type LockCounter interface {
	// IncrLock adds one to failed_attempts and rewrites the record with ttl.
	// A record whose locked_until is at or before nowMs restarts from zero.
	// Once the count reaches threshold, locked_until is set to lockUntilMs.
	// It returns the new count and deadline, with a zero deadline when the
	// record is not locked.
	IncrLock(ctx context.Context, key string, threshold int, nowMs, lockUntilMs int64, ttl time.Duration) (count int, lockedUntilMs int64, err error)
}
