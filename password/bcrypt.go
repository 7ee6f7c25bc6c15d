package password

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// defaultLegacyBcryptCost is the work factor the legacy user service hashed
// with; Burn uses it until a real bcrypt hash reports its own cost.
const defaultLegacyBcryptCost = 10

// bcryptPrefixes are the modular-crypt identifiers produced by bcrypt
// implementations in the wild.
var bcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}

func isBcrypt(encodedHash string) bool {
	for _, p := range bcryptPrefixes {
		if strings.HasPrefix(encodedHash, p) {
			return true
		}
	}
	return false
}

// verifyBcrypt checks a legacy bcrypt hash. bcrypt hashes are verify-only;
// new hashes are always argon2id.
func verifyBcrypt(password, encodedHash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

func bcryptCost(encodedHash string) (int, bool) {
	cost, err := bcrypt.Cost([]byte(encodedHash))
	if err != nil {
		return 0, false
	}
	return cost, true
}

func newBcryptDummy(cost int) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte("gogate-dummy-password"), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
