package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher implements PasswordAuthenticator with bcrypt.
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher returns a hasher using the build's default cost.
func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{Cost: passwordHashCost()}
}

// HashPassword will generate a password hash
func (h *BcryptHasher) HashPassword(password string) (string, error) {
	if password == "" {
		return "", WithDetails(ErrValidation, nil, map[string]any{"password": "cannot be blank"})
	}

	cost := h.Cost
	if cost == 0 {
		cost = passwordHashCost()
	}

	out, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(out), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func (h *BcryptHasher) ComparePasswordAndHash(password, hash string) error {
	if hash == "" {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidCredentials
		}
		return err
	}
	return nil
}
