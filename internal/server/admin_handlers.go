package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/accelerated-industries/loginguard/internal/auth"
)

// handleListInmates handles GET /admin/inmates
func (s *Server) handleListInmates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.jail.Inmates())
}

// handleReleaseInmate handles DELETE /admin/inmates/{identifier}
func (s *Server) handleReleaseInmate(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")

	if !s.jail.Release(identifier) {
		writeNotFound(w, "inmate_not_found",
			"No one is serving a sentence under that identifier.",
			map[string]interface{}{
				"identifier": identifier,
			})
		return
	}

	s.logger.Info("server", "inmate_released", map[string]interface{}{
		"identifier": identifier,
		"client_ip":  extractClientIP(r.RemoteAddr),
	})
	w.WriteHeader(http.StatusNoContent)
}

// handleListInvestigations handles GET /admin/investigations
func (s *Server) handleListInvestigations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.investigations.Investigations())
}

// handleListSessions handles GET /admin/sessions
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if s.authManager == nil {
		writeServiceUnavailable(w)
		return
	}

	sessions := s.authManager.GetActiveSessions()
	if sessions == nil {
		sessions = []*auth.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// handleRevokeSession handles DELETE /admin/sessions/{tokenID}
func (s *Server) handleRevokeSession(w http.ResponseWriter, r *http.Request) {
	if s.authManager == nil {
		writeServiceUnavailable(w)
		return
	}

	raw := chi.URLParam(r, "tokenID")
	tokenID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeBadRequest(w, "malformed_request", "Token ID must be a decimal number.", "fix_request")
		return
	}

	if err := s.authManager.RevokeSession(tokenID); err != nil {
		if errors.Is(err, auth.ErrSessionNotFound) {
			writeNotFound(w, "session_not_found", "No active session has that token ID.",
				map[string]interface{}{
					"token_id": raw,
				})
			return
		}
		writeInternalError(w, "revoke_failed", "Session could not be revoked.")
		return
	}

	s.logger.Info("server", "session_revoked", map[string]interface{}{
		"token_id":  tokenID,
		"client_ip": extractClientIP(r.RemoteAddr),
	})
	w.WriteHeader(http.StatusNoContent)
}

// handleRevokeUserSessions handles DELETE /admin/users/{username}/sessions
func (s *Server) handleRevokeUserSessions(w http.ResponseWriter, r *http.Request) {
	if s.authManager == nil {
		writeServiceUnavailable(w)
		return
	}

	username := chi.URLParam(r, "username")
	revoked := s.authManager.RevokeUserSessions(username)

	s.logger.Info("server", "user_sessions_revoked", map[string]interface{}{
		"username":  username,
		"revoked":   revoked,
		"client_ip": extractClientIP(r.RemoteAddr),
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"username": username,
		"revoked":  revoked,
	})
}
