package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/accelerated-industries/loginguard/internal/auth"
)

// LoginRequest represents a login request body
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	Token      string    `json:"token"`
	TokenID    string    `json:"token_id"`
	ExpiresAt  time.Time `json:"expires_at"`
	Username   string    `json:"username"`
	IssuedToIP string    `json:"issued_to_ip"`
}

// handleLogin handles POST /auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.authManager == nil {
		writeServiceUnavailable(w)
		return
	}

	clientIP := extractClientIP(r.RemoteAddr)

	// Every request counts as an attempt, well-formed or not
	if err := s.authManager.Screen(clientIP); err != nil {
		writeClientJailed(w, clientIP)
		return
	}

	// Parse credentials (support both Basic Auth and JSON body)
	var username, password string

	// Try Basic Auth first
	if u, p, ok := r.BasicAuth(); ok {
		username = u
		password = p
	} else {
		// Try JSON body
		var loginReq LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&loginReq); err != nil {
			writeBadRequest(w, "malformed_request",
				"Request body is malformed or missing required fields.", "fix_request")
			return
		}
		username = loginReq.Username
		password = loginReq.Password
	}

	if username == "" || password == "" {
		writeBadRequest(w, "malformed_request",
			"Username and password are required.", "fix_request")
		return
	}

	session, token, err := s.authManager.Authenticate(username, password, clientIP, r.UserAgent())
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeForbidden(w, "invalid_credentials",
			"Invalid username or password.", "check_credentials", nil)
		return
	case err != nil:
		s.logger.Error("server", "login_error", map[string]interface{}{
			"client_ip": clientIP,
			"error":     err.Error(),
		})
		writeInternalError(w, "login_failed", "Login could not be completed.")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:      token,
		TokenID:    strconv.FormatUint(session.TokenID, 10),
		ExpiresAt:  session.ExpiresAt,
		Username:   session.Username,
		IssuedToIP: session.ClientIP,
	})
}

// extractBearerToken extracts the Bearer token from Authorization header
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}

	return parts[1]
}

func writeClientJailed(w http.ResponseWriter, clientIP string) {
	writeTooManyRequests(w, "client_jailed",
		"Too many login attempts. Try again later.",
		map[string]interface{}{
			"client_ip": clientIP,
		})
}
