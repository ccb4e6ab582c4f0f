package auth

import (
	"sync"
	"time"
)

// SessionStore keeps live sessions in memory. Sessions do not survive a
// restart; clients log in again.
type SessionStore struct {
	sessions map[uint64]*Session
	mu       sync.RWMutex
}

// NewSessionStore creates a new session store
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[uint64]*Session),
	}
}

// Create adds a new session
func (s *SessionStore) Create(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.TokenID] = session
}

// Get retrieves a session by token ID
func (s *SessionStore) Get(tokenID uint64) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[tokenID]
}

// Delete removes a session by token ID
func (s *SessionStore) Delete(tokenID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tokenID)
}

// DeleteByUsername removes all sessions for a username
func (s *SessionStore) DeleteByUsername(username string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for tokenID, session := range s.sessions {
		if session.Username == username {
			delete(s.sessions, tokenID)
			count++
		}
	}
	return count
}

// GetAll returns all sessions
func (s *SessionStore) GetAll() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}

// CleanupExpired removes all sessions expired as of now
func (s *SessionStore) CleanupExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for tokenID, session := range s.sessions {
		if session.IsExpired(now) {
			delete(s.sessions, tokenID)
			count++
		}
	}
	return count
}

// Count returns the number of sessions held
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
