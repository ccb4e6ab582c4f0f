package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/accelerated-industries/loginguard/internal/clock"
	"github.com/accelerated-industries/loginguard/internal/config"
	"github.com/accelerated-industries/loginguard/internal/guard"
	"github.com/accelerated-industries/loginguard/internal/logging"
	"github.com/accelerated-industries/loginguard/internal/metrics"
)

// ipBindingSuffix marks jail identifiers for clients caught replaying
// another address's token
const ipBindingSuffix = "_ip_binding_violation"

var (
	ErrClientJailed       = errors.New("client is jailed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrIPBindingViolation = errors.New("IP binding violation")
)

// Gatekeeper decides whether a client address may attempt a login
type Gatekeeper interface {
	Check(address string) bool
}

// AuthManager handles all authentication and authorization
type AuthManager struct {
	config       *config.Config
	gate         Gatekeeper
	jail         guard.Jail
	sessions     *SessionStore
	tokenManager *TokenManager
	clock        clock.Clock
	logger       *logging.Logger
}

// NewAuthManager creates a new authentication manager. Every login is
// screened by gate; jail holds clients caught misusing tokens.
func NewAuthManager(cfg *config.Config, gate Gatekeeper, jail guard.Jail, clk clock.Clock, logger *logging.Logger) (*AuthManager, error) {
	tm := NewTokenManager(cfg.Auth.JWT.SecretFile, clk)
	if err := tm.LoadSecret(); err != nil {
		return nil, fmt.Errorf("failed to load JWT secret: %w", err)
	}

	return &AuthManager{
		config:       cfg,
		gate:         gate,
		jail:         jail,
		sessions:     NewSessionStore(),
		tokenManager: tm,
		clock:        clk,
		logger:       logger,
	}, nil
}

// Screen runs one login attempt from clientIP past the gate. Handlers call
// it before looking at the request body.
func (am *AuthManager) Screen(clientIP string) error {
	if am.gate.Check(clientIP) {
		metrics.Logins.WithLabelValues("jailed").Inc()
		am.logger.Warn("auth", "login_refused_jailed", map[string]interface{}{
			"client_ip": clientIP,
		})
		return ErrClientJailed
	}
	return nil
}

// Login screens clientIP and then authenticates the user
func (am *AuthManager) Login(username, password, clientIP, clientID string) (*Session, string, error) {
	if err := am.Screen(clientIP); err != nil {
		return nil, "", err
	}
	return am.Authenticate(username, password, clientIP, clientID)
}

// Authenticate checks credentials and creates a session. It does not consult
// the gate; callers must Screen the address first.
func (am *AuthManager) Authenticate(username, password, clientIP, clientID string) (*Session, string, error) {
	account := findAccount(am.config.Auth.Passwords, username)
	if account == nil || !VerifyPassword(password, account.PasswordHash) {
		metrics.Logins.WithLabelValues("invalid_credentials").Inc()
		am.logger.Info("auth", "login_failed", map[string]interface{}{
			"client_ip":  clientIP,
			"username":   username,
			"known_user": account != nil,
		})
		return nil, "", ErrInvalidCredentials
	}

	now := am.clock.Now()
	am.sessions.CleanupExpired(now)

	ttl := account.TokenTTLParsed
	if ttl == 0 {
		ttl = config.DefaultTokenTTL
	}
	session := NewSession(username, clientIP, clientID, now, ttl)
	am.sessions.Create(session)

	token, err := am.tokenManager.GenerateToken(session)
	if err != nil {
		am.sessions.Delete(session.TokenID)
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	metrics.Logins.WithLabelValues("success").Inc()
	am.logger.Info("auth", "login_succeeded", map[string]interface{}{
		"client_ip": clientIP,
		"username":  username,
		"token_id":  session.TokenID,
	})

	return session, token, nil
}

// ValidateToken validates a JWT token and returns the session
func (am *AuthManager) ValidateToken(tokenString, clientIP string) (*Session, error) {
	if am.jail.IsInJail(clientIP + ipBindingSuffix) {
		return nil, ErrClientJailed
	}

	claims, err := am.tokenManager.ValidateToken(tokenString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	session := am.sessions.Get(claims.TokenID)
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if session.IsExpired(am.clock.Now()) {
		am.sessions.Delete(session.TokenID)
		return nil, ErrSessionExpired
	}

	// Verify IP binding (constant-time comparison)
	if subtle.ConstantTimeCompare([]byte(session.ClientIP), []byte(clientIP)) != 1 {
		am.sessions.Delete(session.TokenID)
		am.jailForBindingViolation(clientIP, session)
		return nil, ErrIPBindingViolation
	}

	return session, nil
}

func (am *AuthManager) jailForBindingViolation(clientIP string, session *Session) {
	identifier := clientIP + ipBindingSuffix
	am.jail.SendToJail(identifier, am.config.Guard.BanSentence)
	metrics.Jailings.WithLabelValues("ip_binding_violation").Inc()

	am.logger.Warn("auth", "ip_binding_violation", map[string]interface{}{
		"client_ip":  clientIP,
		"bound_ip":   session.ClientIP,
		"username":   session.Username,
		"token_id":   session.TokenID,
		"identifier": identifier,
	})
}

// RevokeSession revokes a specific session
func (am *AuthManager) RevokeSession(tokenID uint64) error {
	if am.sessions.Get(tokenID) == nil {
		return ErrSessionNotFound
	}

	am.sessions.Delete(tokenID)
	return nil
}

// RevokeUserSessions revokes all sessions for a user
func (am *AuthManager) RevokeUserSessions(username string) int {
	return am.sessions.DeleteByUsername(username)
}

// GetActiveSessions returns all sessions that have not expired
func (am *AuthManager) GetActiveSessions() []*Session {
	now := am.clock.Now()
	var active []*Session
	for _, s := range am.sessions.GetAll() {
		if !s.IsExpired(now) {
			active = append(active, s)
		}
	}
	return active
}
