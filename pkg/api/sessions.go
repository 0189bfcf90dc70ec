package api

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stanthony/volunteer-hours/pkg/core/services"
)

const (
	sessionHeader = "X-Session-ID"
	sessionCookie = "session_id"
	sessionKey    = "session"

	DefaultSessionTTL = 12 * time.Hour

	// sweepInterval bounds how often Get walks the whole store for idle sessions
	sweepInterval = time.Minute
)

type sessionEntry struct {
	session  *services.Session
	lastSeen time.Time
}

// SessionStore keeps interactive sessions in process memory.
// Idle sessions are dropped after ttl; a restart forgets every session.
type SessionStore struct {
	mu        sync.Mutex
	sessions  map[string]*sessionEntry
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		sessions: make(map[string]*sessionEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the live session for id, or a fresh one under a new id
func (s *SessionStore) Get(id string) *services.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= sweepInterval {
		s.sweep(now)
		s.lastSweep = now
	}

	if entry, ok := s.sessions[id]; ok && id != "" && !s.expired(entry, now) {
		entry.lastSeen = now
		return entry.session
	}

	session := services.NewSession(uuid.NewString())
	s.sessions[session.ID] = &sessionEntry{session: session, lastSeen: now}
	return session
}

// Len returns the number of live sessions
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) expired(entry *sessionEntry, now time.Time) bool {
	return now.Sub(entry.lastSeen) > s.ttl
}

func (s *SessionStore) sweep(now time.Time) {
	for id, entry := range s.sessions {
		if s.expired(entry, now) {
			delete(s.sessions, id)
		}
	}
}

func sessionFrom(c *gin.Context) *services.Session {
	if v, ok := c.Get(sessionKey); ok {
		if session, ok := v.(*services.Session); ok {
			return session
		}
	}
	return nil
}
