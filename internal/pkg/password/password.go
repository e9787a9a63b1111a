package password

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// HashCost is the bcrypt work factor for stored credentials
const HashCost = 12

// MinLength is the shortest accepted password
const MinLength = 8

// ErrTooShort is returned by Validate for passwords under MinLength
var ErrTooShort = errors.New("password must be at least 8 characters")

// Hash derives a bcrypt hash for storage
func Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), HashCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether plain matches the stored bcrypt hash
func Verify(plain, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}

// NeedsRehash reports whether a stored hash was produced with a weaker
// work factor than HashCost. Checked on login so old accounts upgrade
// transparently.
func NeedsRehash(hashed string) bool {
	cost, err := bcrypt.Cost([]byte(hashed))
	return err != nil || cost < HashCost
}

// Validate enforces the password policy for new credentials
func Validate(plain string) error {
	if len(plain) < MinLength {
		return ErrTooShort
	}
	return nil
}

// HashToken returns the hex SHA-256 of an opaque token. Refresh tokens
// are stored hashed, never verbatim.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
