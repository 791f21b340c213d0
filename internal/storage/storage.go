// Package storage keeps live sessions in memory.
package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/artdocent/docent/internal/session"
)

// Entry is one registered session. Uploaded frames are handed to its
// machine per capture.
type Entry struct {
	ID      string
	Machine *session.Machine
	Created time.Time
}

// Factory builds the machine for a new session.
type Factory func() *session.Machine

type SessionStore struct {
	sessions map[string]*Entry
	mu       sync.RWMutex
	factory  Factory
}

func New(factory Factory) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Entry),
		factory:  factory,
	}
}

// Create registers a new session under a fresh uuid.
func (s *SessionStore) Create() *Entry {
	e := &Entry{
		ID:      uuid.NewString(),
		Machine: s.factory(),
		Created: time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[e.ID] = e
	return e
}

func (s *SessionStore) Get(sessionID string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, exists := s.sessions[sessionID]
	return e, exists
}

// List returns all sessions, oldest first.
func (s *SessionStore) List() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Entry, 0, len(s.sessions))
	for _, e := range s.sessions {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Created.Before(result[j].Created) })
	return result
}

// Delete forgets a session and returns it so the caller can tear it down.
func (s *SessionStore) Delete(sessionID string) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, exists := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	return e, exists
}
