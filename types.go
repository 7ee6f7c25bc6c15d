package goGate

import (
	"context"
	"time"

	"github.com/MrEthical07/goGate/jwt"
	"github.com/MrEthical07/goGate/permission"
)

// Principal is the verified identity carried by a token.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// LoginResult is the principal summary returned by a successful login. Token
// values never appear here; they go to the [TokenTransport].
type LoginResult struct {
	Principal
	RoleID string `json:"roleId,omitempty"`
}

// TokenKind selects access or refresh.
type TokenKind = jwt.Kind

const (
	TokenAccess  = jwt.KindAccess
	TokenRefresh = jwt.KindRefresh
)

// TokenTransport attaches token artifacts to the response and clears them.
// Implementations scope each artifact so client script cannot read it, e.g.
// an HttpOnly SameSite=Strict cookie whose max-age is the token lifetime.
type TokenTransport interface {
	SetToken(kind TokenKind, value string, maxAge time.Duration)
	ClearToken(kind TokenKind)
}

// CredentialRecord is what the credential store knows about an account.
type CredentialRecord struct {
	ID           string
	Email        string
	PasswordHash string
	RoleID       string
}

// CredentialStore looks accounts up by login identifier. A missing account
// is found=false with a nil error; errors mean the store itself failed.
type CredentialStore interface {
	FindByIdentifier(ctx context.Context, identifier string) (CredentialRecord, bool, error)
}

// PasswordHashUpdater is implemented by credential stores that accept
// re-hashed secrets. When Config.Password.UpgradeOnLogin is set the engine
// uses it to replace legacy or weak hashes after a successful login.
type PasswordHashUpdater interface {
	UpdatePasswordHash(ctx context.Context, accountID, newHash string) error
}

// PermissionStore loads an account's current role grant. It is read once per
// authorization and never cached.
type PermissionStore = permission.GrantLoader
