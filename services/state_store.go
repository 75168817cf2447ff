package services

import (
	"log"
	"sync"

	"github.com/lennart93/atad2-advisor-sub000/models"
)

// StateStore is the session-scoped state store: a keyed map from
// (session, question) to the client-best-known QuestionState. It is the
// single mutable shared resource between the navigator, the context loader
// and the autosave channel, constructed once per application instance and
// passed to each of them explicitly.
//
// Keys are always fully qualified by session ID, so writes for one session
// never become visible under another session's key space.
type StateStore struct {
	mu     sync.RWMutex
	states map[string]models.QuestionState
}

// NewStateStore creates an empty state store.
func NewStateStore() *StateStore {
	return &StateStore{
		states: make(map[string]models.QuestionState),
	}
}

func stateKey(sessionID, questionID string) string {
	return sessionID + ":" + questionID
}

// Get returns a copy of the state for (session, question). The zero
// QuestionState is returned for questions that have not been visited.
func (s *StateStore) Get(sessionID, questionID string) models.QuestionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[stateKey(sessionID, questionID)]
}

// Set overwrites the state for (session, question).
func (s *StateStore) Set(sessionID, questionID string, state models.QuestionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[stateKey(sessionID, questionID)] = state
}

// Update applies fn to the current state for (session, question) and stores
// the result. The state is created lazily on first update.
func (s *StateStore) Update(sessionID, questionID string, fn func(state *models.QuestionState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := stateKey(sessionID, questionID)
	state := s.states[key]
	fn(&state)
	s.states[key] = state
}

// ClearAll wipes every key. Used only at the start of a brand-new
// assessment to prevent bleed-through from a prior session.
func (s *StateStore) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.states)
	s.states = make(map[string]models.QuestionState)
	log.Printf("INFO: [StateStore] Cleared %d question states for a new assessment.", n)
}
