// Package limiters holds the account lockout tracker.
//
// [LockoutLimiter] keeps one JSON record per account under
// "<prefix>:<accountID>" in a [store.Store]:
//
//	{"failed_attempts": 3, "locked_until": null}
//
// locked_until is a unix-millisecond deadline set when failed_attempts reaches
// the threshold. The record TTL equals the lock duration and is renewed on
// every failure.
//
// # Architecture boundaries
//
// Increments go through store.Store.Update so concurrent failures against one
// account are never lost, across any number of processes sharing the store.
//
// # What this package must NOT do
//
//   - Import goGate or any sibling internal package.
//   - Decide what a caller sees on lockout. The engine maps LockedError.
package limiters
