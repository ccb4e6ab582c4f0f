package auth

import (
	"crypto/rand"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"

	"github.com/accelerated-industries/loginguard/internal/clock"
)

const tokenIssuer = "loginguard"

// TokenManager handles JWT token generation and validation
type TokenManager struct {
	secretFile string
	secret     []byte
	clock      clock.Clock
}

// Claims are the JWT claims carried by loginguard tokens
type Claims struct {
	TokenID  uint64 `json:"token_id"`
	Username string `json:"username"`
	ClientIP string `json:"client_ip"`
	jwt.RegisteredClaims
}

// NewTokenManager creates a new token manager
func NewTokenManager(secretFile string, clk clock.Clock) *TokenManager {
	return &TokenManager{
		secretFile: secretFile,
		clock:      clk,
	}
}

// LoadSecret loads the JWT secret from file
func (tm *TokenManager) LoadSecret() error {
	data, err := os.ReadFile(tm.secretFile)
	if err != nil {
		return fmt.Errorf("failed to read JWT secret: %w", err)
	}

	if len(data) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 bytes")
	}

	tm.secret = data
	return nil
}

// GenerateToken generates a JWT token for a session
func (tm *TokenManager) GenerateToken(session *Session) (string, error) {
	claims := Claims{
		TokenID:  session.TokenID,
		Username: session.Username,
		ClientIP: session.ClientIP,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			Subject:   session.Username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken validates a JWT token and returns the claims
func (tm *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(tm.clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}

// GenerateSecret generates a new random JWT secret
func GenerateSecret() ([]byte, error) {
	secret := make([]byte, 64)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate secret: %w", err)
	}
	return secret, nil
}
