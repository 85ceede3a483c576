package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Cost matches the work factor accounts were originally hashed with.
const Cost = 10

// MaxBytes is the longest input bcrypt hashes.
const MaxBytes = 72

var ErrTooLong = errors.New("password exceeds 72 bytes")

func Hash(plain string) (string, error) {
	if len(plain) > MaxBytes {
		return "", ErrTooLong
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), Cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Matches reports whether plain hashes to hash. Malformed hashes are errors,
// a plain mismatch is (false, nil).
func Matches(hash, plain string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}
