package jwt

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind selects which secret and lifetime a token is bound to.
type Kind uint8

const (
	// KindAccess is the short-lived token presented on every protected call.
	KindAccess Kind = iota + 1
	// KindRefresh is the long-lived token that can only mint access tokens.
	KindRefresh
)

// String returns the value carried in the "typ" claim.
func (k Kind) String() string {
	switch k {
	case KindAccess:
		return "access"
	case KindRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// SigningAlgorithm is the only algorithm issued or accepted.
const SigningAlgorithm = "HS256"

var (
	// ErrInvalidToken is returned when signature, structure, kind, or any
	// registered claim other than expiry fails validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpired is returned when a token is authentic but past its expiry.
	ErrExpired = errors.New("token expired")
)

// Config holds the per-kind secrets and lifetimes.
type Config struct {
	AccessSecret  []byte
	AccessTTL     time.Duration
	RefreshSecret []byte
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
	Leeway        time.Duration

	// Now defaults to time.Now. Tests pin it to make issuance deterministic.
	Now func() time.Time
}

// Claims is the signed payload. AccountID and Email form the principal.
type Claims struct {
	AccountID string `json:"id"`
	Email     string `json:"email"`
	Kind      string `json:"typ"`
	jwt.RegisteredClaims
}

// Manager issues and verifies tokens of both kinds.
//
// Manager is immutable after NewManager and safe for concurrent use.
type Manager struct {
	config Config
	now    func() time.Time
}

// NewManager validates cfg and returns a Manager bound to it.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, errors.New("access secret required")
	}
	if len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("refresh secret required")
	}
	if bytes.Equal(cfg.AccessSecret, cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	cfg.AccessSecret = cloneBytes(cfg.AccessSecret)
	cfg.RefreshSecret = cloneBytes(cfg.RefreshSecret)

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{config: cfg, now: now}, nil
}

// TTL returns the configured lifetime for kind.
func (m *Manager) TTL(kind Kind) time.Duration {
	switch kind {
	case KindAccess:
		return m.config.AccessTTL
	case KindRefresh:
		return m.config.RefreshTTL
	default:
		return 0
	}
}

// Issue signs a token of the given kind for the account. The output is a pure
// function of its inputs and the current time.
func (m *Manager) Issue(accountID, email string, kind Kind) (string, error) {
	secret, ttl, err := m.bind(kind)
	if err != nil {
		return "", err
	}
	if accountID == "" {
		return "", errors.New("account id required")
	}

	issuedAt := m.now()
	claims := Claims{
		AccountID: accountID,
		Email:     email,
		Kind:      kind.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Verify checks tokenStr against the secret of kind. It returns ErrExpired
// only when the token is authentic and expiry is the sole failed check;
// every other failure is ErrInvalidToken.
func (m *Manager) Verify(tokenStr string, kind Kind) (*Claims, error) {
	secret, _, err := m.bind(kind)
	if err != nil {
		return nil, err
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	claims := &Claims{}
	token, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return secret, nil
	})
	if err != nil {
		if onlyExpired(err) && claims.Kind == kind.String() {
			return nil, fmt.Errorf("%w: %v", ErrExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Kind != kind.String() {
		return nil, fmt.Errorf("%w: unexpected token kind %q", ErrInvalidToken, claims.Kind)
	}
	if claims.AccountID == "" {
		return nil, fmt.Errorf("%w: missing account id", ErrInvalidToken)
	}

	return claims, nil
}

func (m *Manager) bind(kind Kind) ([]byte, time.Duration, error) {
	switch kind {
	case KindAccess:
		return m.config.AccessSecret, m.config.AccessTTL, nil
	case KindRefresh:
		return m.config.RefreshSecret, m.config.RefreshTTL, nil
	default:
		return nil, 0, fmt.Errorf("unsupported token kind %d", kind)
	}
}

// onlyExpired reports whether err carries an expiry failure and no other
// validation failure. Signature checks run before claim validation, so an
// expired result implies the signature was valid.
func onlyExpired(err error) bool {
	if !errors.Is(err, jwt.ErrTokenExpired) {
		return false
	}
	for _, other := range []error{
		jwt.ErrTokenSignatureInvalid,
		jwt.ErrTokenMalformed,
		jwt.ErrTokenUnverifiable,
		jwt.ErrTokenInvalidIssuer,
		jwt.ErrTokenInvalidAudience,
		jwt.ErrTokenNotValidYet,
		jwt.ErrTokenUsedBeforeIssued,
		jwt.ErrTokenRequiredClaimMissing,
	} {
		if errors.Is(err, other) {
			return false
		}
	}
	return true
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
