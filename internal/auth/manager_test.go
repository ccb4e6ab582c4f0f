package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/accelerated-industries/loginguard/internal/clock"
	"github.com/accelerated-industries/loginguard/internal/config"
	"github.com/accelerated-industries/loginguard/internal/guard"
	"github.com/accelerated-industries/loginguard/internal/jail"
	"github.com/accelerated-industries/loginguard/internal/logging"
)

const testPassword = "correct-horse-battery-staple"

type harness struct {
	clock *clock.Manual
	jail  *jail.Jail
	am    *AuthManager
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	hash, err := HashPassword(testPassword)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	cfg := config.Default()
	cfg.Auth.Enabled = true
	cfg.Auth.JWT.SecretFile = writeSecret(t)
	cfg.Auth.Passwords = []config.PasswordConfig{
		{Name: "admin", PasswordHash: hash, TokenTTLParsed: time.Hour},
	}

	clk := clock.NewManual(epoch)
	logger := logging.Nop()
	j := jail.New(clk, logger)
	g := guard.New(cfg.Guard, clk, j, logger)

	am, err := NewAuthManager(cfg, g.Gate, j, clk, logger)
	if err != nil {
		t.Fatalf("Failed to create auth manager: %v", err)
	}

	return &harness{clock: clk, jail: j, am: am}
}

func TestNewAuthManagerMissingSecret(t *testing.T) {
	cfg := config.Default()
	cfg.Auth.JWT.SecretFile = "/nonexistent/jwt-secret"

	clk := clock.NewManual(epoch)
	j := jail.New(clk, logging.Nop())
	g := guard.New(cfg.Guard, clk, j, logging.Nop())

	if _, err := NewAuthManager(cfg, g.Gate, j, clk, logging.Nop()); err == nil {
		t.Error("Expected error when JWT secret cannot be loaded")
	}
}

func TestLoginSuccess(t *testing.T) {
	h := newHarness(t)

	session, token, err := h.am.Login("admin", testPassword, "192.168.1.100", "loginguard-cli")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if token == "" {
		t.Error("Expected non-empty token")
	}
	if session.Username != "admin" {
		t.Errorf("Expected username admin, got %s", session.Username)
	}
	if !session.ExpiresAt.Equal(epoch.Add(time.Hour)) {
		t.Errorf("Expected expiry from account TTL, got %v", session.ExpiresAt)
	}
	if len(h.am.GetActiveSessions()) != 1 {
		t.Errorf("Expected 1 active session, got %d", len(h.am.GetActiveSessions()))
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	h := newHarness(t)

	cases := []struct {
		name     string
		username string
		password string
		clientIP string
	}{
		{"wrong password", "admin", "wrong", "10.0.0.1"},
		{"unknown user", "root", testPassword, "10.0.0.2"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := h.am.Login(tc.username, tc.password, tc.clientIP, "loginguard-cli")
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("Expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestLoginRapidRetryIsJailed(t *testing.T) {
	h := newHarness(t)
	const ip = "203.0.113.7"

	if _, _, err := h.am.Login("admin", "guess-1", ip, "bot"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("First attempt: expected ErrInvalidCredentials, got %v", err)
	}

	h.clock.Advance(100 * time.Millisecond)

	// Even the right password is refused once the address is jailed
	if _, _, err := h.am.Login("admin", testPassword, ip, "bot"); !errors.Is(err, ErrClientJailed) {
		t.Fatalf("Rapid retry: expected ErrClientJailed, got %v", err)
	}

	if !h.jail.IsInJail(ip + config.DefaultBanIdentifierSuffix) {
		t.Error("Expected address to be jailed under the brute forcing identifier")
	}
	if len(h.am.GetActiveSessions()) != 0 {
		t.Error("No session should be created for a jailed client")
	}
}

func TestLoginHumanPaceIsAllowed(t *testing.T) {
	h := newHarness(t)
	const ip = "198.51.100.4"

	if _, _, err := h.am.Login("admin", "typo", ip, "browser"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Expected ErrInvalidCredentials, got %v", err)
	}

	h.clock.Advance(3 * time.Second)

	if _, _, err := h.am.Login("admin", testPassword, ip, "browser"); err != nil {
		t.Fatalf("Expected human-paced retry to succeed, got %v", err)
	}
}

func TestLoginAfterSentenceServed(t *testing.T) {
	h := newHarness(t)
	const ip = "203.0.113.8"

	h.am.Login("admin", "a", ip, "bot")
	h.clock.Advance(10 * time.Millisecond)
	if _, _, err := h.am.Login("admin", "b", ip, "bot"); !errors.Is(err, ErrClientJailed) {
		t.Fatalf("Expected ErrClientJailed, got %v", err)
	}

	h.clock.Advance(config.DefaultBanSentence + time.Second)

	if _, _, err := h.am.Login("admin", testPassword, ip, "bot"); err != nil {
		t.Errorf("Expected login after sentence served, got %v", err)
	}
}

func TestValidateToken(t *testing.T) {
	h := newHarness(t)

	session, token, err := h.am.Login("admin", testPassword, "192.168.1.100", "loginguard-cli")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	validated, err := h.am.ValidateToken(token, "192.168.1.100")
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}

	if validated.TokenID != session.TokenID {
		t.Errorf("Expected token ID %d, got %d", session.TokenID, validated.TokenID)
	}

	if _, err := h.am.ValidateToken("garbage", "192.168.1.100"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateTokenExpiredSession(t *testing.T) {
	h := newHarness(t)

	_, token, err := h.am.Login("admin", testPassword, "192.168.1.100", "loginguard-cli")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	h.clock.Advance(2 * time.Hour)

	if _, err := h.am.ValidateToken(token, "192.168.1.100"); err == nil {
		t.Error("Expected expired token to be rejected")
	}
}

func TestIPBindingViolation(t *testing.T) {
	h := newHarness(t)

	_, token, err := h.am.Login("admin", testPassword, "192.168.1.100", "loginguard-cli")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	_, err = h.am.ValidateToken(token, "192.168.1.200")
	if !errors.Is(err, ErrIPBindingViolation) {
		t.Fatalf("Expected ErrIPBindingViolation, got %v", err)
	}

	if !h.jail.IsInJail("192.168.1.200" + ipBindingSuffix) {
		t.Error("Expected replaying address to be jailed")
	}

	// The session is gone for the legitimate holder too
	if _, err := h.am.ValidateToken(token, "192.168.1.100"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound after violation, got %v", err)
	}

	_, other, err := h.am.Login("admin", testPassword, "192.168.1.150", "loginguard-cli")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := h.am.ValidateToken(other, "192.168.1.200"); !errors.Is(err, ErrClientJailed) {
		t.Errorf("Expected jailed address to be refused, got %v", err)
	}
}

func TestRevokeSession(t *testing.T) {
	h := newHarness(t)

	session, token, err := h.am.Login("admin", testPassword, "192.168.1.100", "loginguard-cli")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := h.am.RevokeSession(session.TokenID); err != nil {
		t.Fatalf("Failed to revoke session: %v", err)
	}

	if _, err := h.am.ValidateToken(token, "192.168.1.100"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound after revoke, got %v", err)
	}

	if err := h.am.RevokeSession(session.TokenID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound on second revoke, got %v", err)
	}
}

func TestRevokeUserSessions(t *testing.T) {
	h := newHarness(t)

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		if _, _, err := h.am.Login("admin", testPassword, ip, "loginguard-cli"); err != nil {
			t.Fatalf("Login from %s failed: %v", ip, err)
		}
	}

	if n := h.am.RevokeUserSessions("admin"); n != 3 {
		t.Errorf("Expected 3 sessions revoked, got %d", n)
	}
	if len(h.am.GetActiveSessions()) != 0 {
		t.Error("Expected no active sessions after revoking all")
	}
}

func TestScreenCountsEveryAttempt(t *testing.T) {
	h := newHarness(t)
	const ip = "203.0.113.20"

	if err := h.am.Screen(ip); err != nil {
		t.Fatalf("First screen: expected nil, got %v", err)
	}
	if err := h.am.Screen(ip); !errors.Is(err, ErrClientJailed) {
		t.Fatalf("Immediate second screen: expected ErrClientJailed, got %v", err)
	}
	if !h.jail.IsInJail(ip + config.DefaultBanIdentifierSuffix) {
		t.Error("Expected screened address to be jailed")
	}
}

func TestAuthenticateSkipsGate(t *testing.T) {
	h := newHarness(t)
	const ip = "203.0.113.21"

	for i := 0; i < 3; i++ {
		if _, _, err := h.am.Authenticate("admin", testPassword, ip, "loginguard-cli"); err != nil {
			t.Fatalf("Authenticate %d failed: %v", i, err)
		}
	}
	if h.jail.IsInJail(ip + config.DefaultBanIdentifierSuffix) {
		t.Error("Authenticate alone must not classify attempts")
	}
}
