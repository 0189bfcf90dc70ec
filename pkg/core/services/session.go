package services

import (
	"strings"
	"sync"

	"github.com/stanthony/volunteer-hours/pkg/core/model"
)

type guardKey struct {
	actor     string
	direction model.Direction
}

// Session is one interactive visitor. It remembers which (actor, direction) punches
// it has already had accepted so a repeated click is a no-op rather than a second row.
type Session struct {
	ID string

	mu       sync.Mutex
	recorded map[guardKey]bool
}

func NewSession(id string) *Session {
	return &Session{
		ID:       id,
		recorded: make(map[guardKey]bool),
	}
}

// Recorded reports whether this session already has an accepted punch for actor and direction
func (s *Session) Recorded(actor string, direction model.Direction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recorded[keyFor(actor, direction)]
}

// claim marks the pair as recorded and reports whether it was free
func (s *Session) claim(actor string, direction model.Direction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := keyFor(actor, direction)
	if s.recorded[key] {
		return false
	}
	s.recorded[key] = true
	return true
}

// release undoes a claim whose punch could not be stored
func (s *Session) release(actor string, direction model.Direction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recorded, keyFor(actor, direction))
}

// Names are matched exactly after trimming; there is no fuzzy matching
func keyFor(actor string, direction model.Direction) guardKey {
	return guardKey{actor: strings.TrimSpace(actor), direction: direction}
}
