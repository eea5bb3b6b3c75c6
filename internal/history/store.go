// Package history owns the per-session conversational context window.
// Every transport variant goes through this one store; the windowing rule
// lives here and nowhere else.
package history

import (
	"sync"
	"time"

	"github.com/tdiprima/langchain-flask-api/internal/domain"
)

// Store maps session ids to bounded turn sequences. All methods are safe for
// concurrent use: mutations on one session are serialized, mutations on
// different sessions do not block each other, and ClearAll/Restore are
// global critical sections.
type Store struct {
	mu        sync.RWMutex
	maxLength int
	sessions  map[string]*session
}

type session struct {
	mu    sync.Mutex
	turns []domain.Turn
}

// NewStore creates an empty store. maxLength <= 0 falls back to the default
// window of 10 turns.
func NewStore(maxLength int) *Store {
	if maxLength <= 0 {
		maxLength = domain.DefaultMaxHistoryLength
	}
	return &Store{
		maxLength: maxLength,
		sessions:  make(map[string]*session),
	}
}

// MaxLength returns the configured window size.
func (s *Store) MaxLength() int {
	return s.maxLength
}

// GetTurns returns a copy of the session's turns, oldest first. Unknown
// sessions yield an empty slice; lookups never create entries.
func (s *Store) GetTurns(sessionID string) []domain.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		return []domain.Turn{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyTurns(e.turns)
}

// AppendTurn records one question/answer exchange, creating the session
// entry if absent. The turn gets a server-assigned timestamp. If the window
// overflows, the oldest turns are evicted until the length equals the
// window; the new turn is never rejected. Returns the post-eviction turns.
func (s *Store) AppendTurn(sessionID, question, answer, authorID string) []domain.Turn {
	turn := domain.Turn{
		Question:  question,
		Answer:    answer,
		Timestamp: time.Now().UTC(),
		AuthorID:  authorID,
	}

	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	if ok {
		defer s.mu.RUnlock()
		return e.append(turn, s.maxLength)
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok = s.sessions[sessionID]
	if !ok {
		e = &session{}
		s.sessions[sessionID] = e
	}
	return e.append(turn, s.maxLength)
}

func (e *session) append(turn domain.Turn, maxLength int) []domain.Turn {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.turns = append(e.turns, turn)
	if len(e.turns) > maxLength {
		// FIFO eviction: keep the most recent maxLength turns.
		kept := make([]domain.Turn, maxLength)
		copy(kept, e.turns[len(e.turns)-maxLength:])
		e.turns = kept
	}
	return copyTurns(e.turns)
}

// ClearSession resets the session's turns to empty and reports whether the
// session previously existed. Clearing an unknown session never creates it.
func (s *Store) ClearSession(sessionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		return false
	}
	e.mu.Lock()
	e.turns = nil
	e.mu.Unlock()
	return true
}

// ClearAll removes every session and returns how many were affected.
func (s *Store) ClearAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.sessions)
	s.sessions = make(map[string]*session)
	return n
}

// ListSessionIDs returns the ids of all known sessions, cleared ones
// included, in no particular order.
func (s *Store) ListSessionIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Has reports whether the session id is a key in the store.
func (s *Store) Has(sessionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[sessionID]
	return ok
}

// Snapshot returns a deep copy of the whole store for persistence. It may
// run concurrently with per-session mutations but never observes a session
// mid-append.
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := make(domain.Snapshot, len(s.sessions))
	for id, e := range s.sessions {
		e.mu.Lock()
		snap[id] = copyTurns(e.turns)
		e.mu.Unlock()
	}
	return snap
}

// Restore replaces the store's contents with the snapshot. Used once at
// startup after a successful Load.
func (s *Store) Restore(snap domain.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = make(map[string]*session, len(snap))
	for id, turns := range snap {
		s.sessions[id] = &session{turns: copyTurns(turns)}
	}
}

func copyTurns(turns []domain.Turn) []domain.Turn {
	out := make([]domain.Turn, len(turns))
	copy(out, turns)
	return out
}
