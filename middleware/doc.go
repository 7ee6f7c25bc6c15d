// Package middleware adapts a goGate.Engine to net/http.
//
// # Pieces
//
//   - [CookieTransport] writes and clears token cookies (always HttpOnly).
//   - [Guard] verifies the access token and stores the principal on the
//     request context.
//   - [Require] authorizes a registered operation for the guarded principal.
//   - [WriteError] maps engine errors to status codes.
//
// Access tokens are read from the access cookie first and the
// Authorization: Bearer header second.
//
// This package never parses tokens or reads stores itself; every decision
// is delegated to the Engine.
package middleware
