package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/accelerated-industries/loginguard/internal/auth"
)

// RequireAuth is middleware that enforces authentication
func (s *Server) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// If auth is disabled, allow all requests
		if s.config == nil || !s.config.Auth.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := extractClientIP(r.RemoteAddr)

		if s.config.Auth.LocalhostBypass && isLocalhost(clientIP) {
			next.ServeHTTP(w, r)
			return
		}

		tokenString := extractBearerToken(r)
		if tokenString == "" {
			writeUnauthorized(w, "missing_credentials",
				"Authentication required. Please provide credentials.",
				"authenticate")
			return
		}

		if s.authManager == nil {
			writeServiceUnavailable(w)
			return
		}

		// Validate token and check IP binding
		_, err := s.authManager.ValidateToken(tokenString, clientIP)
		switch {
		case err == nil:
			next.ServeHTTP(w, r)
		case errors.Is(err, auth.ErrClientJailed):
			writeTooManyRequests(w, "client_jailed",
				"This address is temporarily banned.",
				map[string]interface{}{
					"client_ip": clientIP,
				})
		case errors.Is(err, auth.ErrSessionExpired):
			writeUnauthorized(w, "token_expired",
				"Your session has expired. Please login again.",
				"authenticate")
		case errors.Is(err, auth.ErrIPBindingViolation):
			writeForbidden(w, "ip_binding_violation",
				"Token cannot be used from this IP address.",
				"obtain_new_token",
				map[string]interface{}{
					"client_ip": clientIP,
				})
		case errors.Is(err, auth.ErrSessionNotFound):
			writeUnauthorized(w, "token_revoked",
				"Session has been revoked or does not exist.",
				"authenticate")
		default:
			writeUnauthorized(w, "token_invalid",
				"Invalid authentication token.",
				"authenticate")
		}
	})
}

// extractClientIP extracts the client IP address from RemoteAddr
func extractClientIP(remoteAddr string) string {
	// Handle IPv6 addresses in brackets [::1]:port
	if strings.HasPrefix(remoteAddr, "[") {
		closeBracket := strings.Index(remoteAddr, "]")
		if closeBracket > 0 {
			return remoteAddr[1:closeBracket]
		}
	}

	// Handle IPv4 addresses ip:port
	colonIdx := strings.LastIndex(remoteAddr, ":")
	if colonIdx > 0 {
		return remoteAddr[:colonIdx]
	}

	return remoteAddr
}

// isLocalhost checks if an IP address is localhost
func isLocalhost(ip string) bool {
	return ip == "127.0.0.1" || ip == "::1" || ip == "localhost"
}
