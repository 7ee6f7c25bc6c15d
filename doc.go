// Package goGate issues and checks sessions for a multi-instance web service:
// password login with account lockout, stateless access and refresh tokens,
// and per-operation permission checks against role grants.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goGate is the public surface. It exposes [Engine], [Builder], [Config], and
// value types ([Principal], [LoginResult], [MetricsSnapshot]). Token signing
// lives in jwt, the lockout policy in internal/limiters, shared state in
// store, and grant evaluation in permission.
//
// The only mutable shared state is the lockout counter in the [store.Store].
// Tokens are never recorded server-side, so Logout clears the client's
// artifacts and nothing else; an issued token stays valid until it expires.
//
// # What this package must NOT do
//
//   - Fail open. A store or grant read failure always denies.
//   - Tell an unknown identifier apart from a wrong secret in any result.
//   - Log secrets or token values.
package goGate
