// Package jwt signs and verifies the two bearer token kinds issued at login:
// short-lived access tokens and long-lived refresh tokens.
//
// Each kind has its own HMAC secret and lifetime, so a token of one kind can
// never be accepted as the other. Verification is stateless; no server-side
// record of issued tokens exists.
//
// # What this package must NOT do
//
//   - Access Redis, SQL, or any other I/O.
//   - Import goGate or any sibling package.
//   - Rotate refresh tokens (a refresh token only mints access tokens).
package jwt
