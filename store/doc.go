// Package store is the shared key/value state used by every process that
// serves the same accounts. Lockout counters live here so that a failure
// recorded by one instance is visible to all of them.
//
// # Implementations
//
//   - [Redis] is the production store. Update runs as a WATCH/MULTI
//     optimistic transaction and retries on contention.
//   - [Memory] is a single-process store for tests and local development.
//
// Both honour per-key TTLs and never return an expired value.
//
// # What this package must NOT do
//
//   - Interpret values. Encoding belongs to the caller.
//   - Import goGate or any sibling package.
package store
