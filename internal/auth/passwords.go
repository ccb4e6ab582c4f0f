package auth

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/accelerated-industries/loginguard/internal/config"
)

// HashPassword generates a bcrypt hash of a password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword verifies a password against a bcrypt hash
func VerifyPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// findAccount returns the configured account called name, or nil
func findAccount(accounts []config.PasswordConfig, name string) *config.PasswordConfig {
	var found *config.PasswordConfig
	for i := range accounts {
		if subtle.ConstantTimeCompare([]byte(accounts[i].Name), []byte(name)) == 1 {
			found = &accounts[i]
		}
	}
	return found
}
