package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Cost matches the original account store; new hashes always use it, but
// verification accepts any cost embedded in the stored hash.
const Cost = 12

// ErrMismatch is the expected "wrong password" outcome. Any other error from
// CheckPassword means the stored hash is malformed.
var ErrMismatch = errors.New("password mismatch")

// HashPassword hashes a plain text password with bcrypt.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), Cost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPassword compares a bcrypt hash with a plaintext password.
func CheckPassword(hash, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))

	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}

	return err
}
