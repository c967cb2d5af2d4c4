package password

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// MinLength is the shortest password Hash accepts
const MinLength = 8

var (
	// ErrTooShort is returned for passwords below MinLength
	ErrTooShort = fmt.Errorf("password must be at least %d characters", MinLength)
	// ErrBlank is returned for passwords made only of whitespace
	ErrBlank = errors.New("password must not be blank")
)

// Validate checks the minimum requirements for a stored credential
func Validate(password string) error {
	if strings.TrimSpace(password) == "" {
		return ErrBlank
	}
	if len(password) < MinLength {
		return ErrTooShort
	}
	return nil
}

// Hash returns the bcrypt hash of password
func Hash(password string) (string, error) {
	if err := Validate(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Compare reports whether password matches the bcrypt hash
func Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IsHash reports whether s looks like a bcrypt hash
func IsHash(s string) bool {
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}
