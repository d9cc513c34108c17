package session

import (
	"sync"
	"time"
)

// Session is the server-side state of one browser session. It owns the
// attempt counter for callers the gate cannot tie to an account, and records
// whether the session has passed the gate.
type Session struct {
	ID string

	mu        sync.Mutex
	attempts  map[string]int
	admitted  bool
	expiresAt time.Time
}

func newSession(id string, expiresAt time.Time) *Session {
	return &Session{
		ID:        id,
		attempts:  make(map[string]int),
		expiresAt: expiresAt,
	}
}

// Increment bumps the attempt counter for key and returns the new count
func (s *Session) Increment(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[key]++
	return s.attempts[key]
}

// Attempts returns the current count for key
func (s *Session) Attempts(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[key]
}

// Admit marks the session as having passed the gate
func (s *Session) Admit() {
	s.mu.Lock()
	s.admitted = true
	s.mu.Unlock()
}

// Revoke clears the admitted flag, e.g. when the identity turns out to be blocked
func (s *Session) Revoke() {
	s.mu.Lock()
	s.admitted = false
	s.mu.Unlock()
}

func (s *Session) Admitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.admitted
}

func (s *Session) expired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !now.Before(s.expiresAt)
}

func (s *Session) touch(expiresAt time.Time) {
	s.mu.Lock()
	s.expiresAt = expiresAt
	s.mu.Unlock()
}
