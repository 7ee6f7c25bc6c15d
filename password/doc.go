// Package password hashes and verifies account secrets.
//
// # Output format
//
// New hashes are argon2id in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Stored bcrypt hashes ($2a$, $2b$, $2y$) still verify through [Verifier] so
// accounts migrated from older systems can sign in. [Verifier.NeedsUpgrade]
// reports true for them, and for argon2id hashes made with weaker parameters,
// so the caller can re-hash after the next successful login.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other goGate package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
