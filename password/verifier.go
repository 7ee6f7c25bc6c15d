package password

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrUnsupportedHash is returned for stored hashes in an unknown format.
var ErrUnsupportedHash = errors.New("unsupported password hash format")

// Scheme identifies the algorithm of a stored hash.
type Scheme string

const (
	SchemeArgon2id Scheme = "argon2id"
	SchemeBcrypt   Scheme = "bcrypt"
	SchemeUnknown  Scheme = ""
)

// SchemeOf inspects the prefix of encodedHash.
func SchemeOf(encodedHash string) Scheme {
	switch {
	case strings.HasPrefix(encodedHash, "$"+algorithmID+"$"):
		return SchemeArgon2id
	case isBcrypt(encodedHash):
		return SchemeBcrypt
	default:
		return SchemeUnknown
	}
}

// Verifier checks passwords against stored hashes of any supported scheme
// and produces new hashes with argon2id.
//
// Burn follows whichever scheme Verify has seen more often, so a lookup miss
// keeps costing the same as a real mismatch while stored hashes migrate from
// bcrypt to argon2id.
type Verifier struct {
	argon *Argon2

	dummyOnce sync.Once
	dummyHash string

	argonSeen  atomic.Uint64
	bcryptSeen atomic.Uint64
	bcryptCost atomic.Int64

	bcryptMu    sync.Mutex
	bcryptDummy map[int]string
}

// NewVerifier returns a Verifier that hashes with primary.
func NewVerifier(primary *Argon2) (*Verifier, error) {
	if primary == nil {
		return nil, errors.New("argon2 hasher is nil")
	}
	v := &Verifier{argon: primary, bcryptDummy: make(map[int]string)}
	v.bcryptCost.Store(int64(defaultLegacyBcryptCost))
	return v, nil
}

// Hash returns a new argon2id hash.
func (v *Verifier) Hash(password string) (string, error) {
	return v.argon.Hash(password)
}

// Verify dispatches on the scheme of encodedHash.
func (v *Verifier) Verify(password, encodedHash string) (bool, error) {
	switch SchemeOf(encodedHash) {
	case SchemeArgon2id:
		v.argonSeen.Add(1)
		return v.argon.Verify(password, encodedHash)
	case SchemeBcrypt:
		v.bcryptSeen.Add(1)
		if cost, ok := bcryptCost(encodedHash); ok {
			v.bcryptCost.Store(int64(cost))
		}
		return verifyBcrypt(password, encodedHash)
	default:
		return false, ErrUnsupportedHash
	}
}

// NeedsUpgrade reports whether encodedHash should be replaced with a fresh
// argon2id hash after a successful verification. Legacy schemes always do.
func (v *Verifier) NeedsUpgrade(encodedHash string) (bool, error) {
	switch SchemeOf(encodedHash) {
	case SchemeArgon2id:
		return v.argon.NeedsUpgrade(encodedHash)
	case SchemeBcrypt:
		return true, nil
	default:
		return false, ErrUnsupportedHash
	}
}

// Burn runs one verification against a fixed hash and discards the result,
// so a lookup miss costs about the same as a wrong password.
func (v *Verifier) Burn(password string) {
	if v.BurnScheme() == SchemeBcrypt {
		if dummy := v.bcryptDummyHash(int(v.bcryptCost.Load())); dummy != "" {
			_, _ = verifyBcrypt(password, dummy)
			return
		}
	}

	v.dummyOnce.Do(func() {
		v.dummyHash, _ = v.argon.Hash("gogate-dummy-password")
	})
	if v.dummyHash == "" {
		return
	}
	_, _ = v.argon.Verify(password, v.dummyHash)
}

// BurnScheme reports the scheme Burn currently imitates. Ties go to argon2id.
func (v *Verifier) BurnScheme() Scheme {
	if v.bcryptSeen.Load() > v.argonSeen.Load() {
		return SchemeBcrypt
	}
	return SchemeArgon2id
}

func (v *Verifier) bcryptDummyHash(cost int) string {
	v.bcryptMu.Lock()
	defer v.bcryptMu.Unlock()

	if h, ok := v.bcryptDummy[cost]; ok {
		return h
	}
	h, err := newBcryptDummy(cost)
	if err != nil {
		return ""
	}
	v.bcryptDummy[cost] = h
	return h
}
