package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt cost used for stored password hashes.
const PasswordCost = 10

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("security: hash password: %w", err)
	}
	return string(hashed), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// BcryptHasher implements Hasher with bcrypt.
type BcryptHasher struct{}

// Hash implements Hasher.
func (BcryptHasher) Hash(password string) (string, error) {
	return HashPassword(password)
}

// Verify implements Hasher.
func (BcryptHasher) Verify(hash, password string) bool {
	return CheckPassword(hash, password)
}

// ErrPasswordTooLong is returned for passwords bcrypt cannot hash.
var ErrPasswordTooLong = errors.New("security: password exceeds 72 bytes")

// ValidatePasswordLength rejects passwords longer than bcrypt accepts.
func ValidatePasswordLength(password string) error {
	if len(password) > 72 {
		return ErrPasswordTooLong
	}
	return nil
}
