// Package permission models capability pairs, role grants, and the
// operation registration table used to authorize protected calls.
//
// A [Permission] is an (action, subject) pair such as "update:user". Each
// protected operation is registered once at startup with the pairs that
// satisfy it; holding any one of them is enough. Operations that need no
// permission must be registered explicitly with [Registry.RegisterOpen], and
// an operation that was never registered is always denied.
//
// # Architecture boundaries
//
// The [Evaluator] performs one grant read per call through a [GrantLoader]
// and never caches the result, so revoking a pair takes effect on the next
// request.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network directly.
//   - Import goGate, jwt, or store.
//   - Allow an operation when the grant cannot be loaded.
package permission
