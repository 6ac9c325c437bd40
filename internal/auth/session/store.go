// Package session keeps login sessions in memory. A session lives until
// logout, expiry or the user's deactivation.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/staffdesk/staffdesk/pkg/actor"
	"github.com/staffdesk/staffdesk/pkg/logger"
)

// Session is one signed-in user
type Session struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Role         string    `json:"role"`
	DepartmentID *int64    `json:"department_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Actor returns the session owner as the acting identity
func (s *Session) Actor() *actor.Actor {
	return &actor.Actor{
		Username:     s.Username,
		Role:         s.Role,
		DepartmentID: s.DepartmentID,
		SessionID:    s.ID,
	}
}

// Store maps session ids to sessions
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewStore creates a store whose sessions expire after ttl
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// WithClock replaces the store's time source
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Create starts a session for the user
func (s *Store) Create(username, role string, departmentID *int64) *Session {
	now := s.now()
	sess := &Session{
		ID:           uuid.New().String(),
		Username:     username,
		Role:         role,
		DepartmentID: departmentID,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	c := *sess
	return &c
}

// Get returns a copy of a live session. Expired sessions are dropped.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if !s.now().Before(sess.ExpiresAt) {
		s.Delete(id)
		return nil, false
	}

	c := *sess
	return &c, true
}

// Delete ends a session and reports whether it existed
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// SyncUser applies a role or department change to the user's open sessions
func (s *Store) SyncUser(username, role string, departmentID *int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.Username == username {
			sess.Role = role
			sess.DepartmentID = departmentID
		}
	}
}

// RevokeUser ends every session of the user and returns how many were open
func (s *Store) RevokeUser(username string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if sess.Username == username {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// RevokeOthers ends every session of the user except keep and returns how many were ended
func (s *Store) RevokeOthers(username, keep string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if sess.Username == username && id != keep {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Sweep drops expired sessions and returns how many were removed
func (s *Store) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if !now.Before(sess.ExpiresAt) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of stored sessions, expired or not
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// RunSweeper sweeps every interval until ctx is cancelled
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				log.Debug().Int("removed", n).Msg("expired sessions swept")
			}
		}
	}
}
