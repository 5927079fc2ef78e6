package session

import (
	"sync"

	"github.com/nao1215/processflow/internal/stage"
)

// Store maps session IDs to their run state.
// The zero value is not usable; create stores with NewStore.
type Store struct {
	mu     sync.Mutex
	states map[string]*RunState
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		states: make(map[string]*RunState),
	}
}

// State returns the run state of the session, creating it on first use.
// The returned pointer stays valid until Forget is called for the session.
func (s *Store) State(id string) *RunState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[id]
	if !ok {
		st = &RunState{}
		s.states[id] = st
	}
	return st
}

// Lookup returns the run state of the session without creating it.
func (s *Store) Lookup(id string) (*RunState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[id]
	return st, ok
}

// Current returns the running stage of the session.
// Unknown sessions report stage.None.
func (s *Store) Current(id string) stage.Stage {
	st, ok := s.Lookup(id)
	if !ok {
		return stage.None
	}
	return st.Current()
}

// Forget drops the session's run state, for example when the session expires.
// It refuses to drop a session that still has an active run and reports
// whether the state was removed.
func (s *Store) Forget(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[id]
	if !ok {
		return true
	}
	st.mu.Lock()
	active := st.claimed || st.current != stage.None
	st.mu.Unlock()
	if active {
		return false
	}
	delete(s.states, id)
	return true
}
