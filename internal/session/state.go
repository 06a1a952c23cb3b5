// Package session keeps per-user conversational state and turns inbound
// text into intents.
package session

import (
	"sync"
	"time"
)

// Phase is the pending input a user's next message answers
type Phase int

const (
	Idle Phase = iota
	AwaitingSearch
	AwaitingID
	AddTitle
	AddDescription
	AddGenre
	AddYear
	AddMedia
	AwaitingDeleteID
)

var phaseNames = map[Phase]string{
	Idle:             "idle",
	AwaitingSearch:   "awaiting_search",
	AwaitingID:       "awaiting_id",
	AddTitle:         "add_title",
	AddDescription:   "add_description",
	AddGenre:         "add_genre",
	AddYear:          "add_year",
	AddMedia:         "add_media",
	AwaitingDeleteID: "awaiting_delete_id",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// IsAdmin reports whether the phase belongs to an admin flow
func (p Phase) IsAdmin() bool {
	return p >= AddTitle
}

// Draft collects the fields of an item being added
type Draft struct {
	Title       string
	Description string
	Genre       string
	Year        int
}

// State is one user's conversational state
type State struct {
	Phase   Phase
	Draft   Draft
	Touched time.Time
}

type entry struct {
	mu    sync.Mutex
	state State
	refs  int
}

// Store holds conversational state in memory, keyed by user ID.
// Callers hold Lock for the whole event so transitions for one user
// never interleave.
type Store struct {
	mu      sync.Mutex
	entries map[int64]*entry
	ttl     time.Duration
	now     func() time.Time
}

// NewStore creates a store whose idle states expire after ttl
func NewStore(ttl time.Duration) *Store {
	return &Store{
		entries: make(map[int64]*entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Lock serializes events for userID and returns the matching unlock
func (s *Store) Lock(userID int64) func() {
	s.mu.Lock()
	e, ok := s.entries[userID]
	if !ok {
		e = &entry{}
		s.entries[userID] = e
	}
	e.refs++
	s.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		s.mu.Lock()
		e.refs--
		s.mu.Unlock()
	}
}

// Get returns the user's state, Idle when none is held
func (s *Store) Get(userID int64) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[userID]; ok {
		return e.state
	}
	return State{Phase: Idle}
}

// Set replaces the user's state and refreshes its timestamp
func (s *Store) Set(userID int64, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state.Touched = s.now()
	e, ok := s.entries[userID]
	if !ok {
		e = &entry{}
		s.entries[userID] = e
	}
	e.state = state
}

// Reset returns the user to Idle
func (s *Store) Reset(userID int64) {
	s.Set(userID, State{Phase: Idle})
}

// Prune drops unlocked states not touched within the TTL and returns
// how many were removed
func (s *Store) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if e.refs > 0 {
			continue
		}
		if now.Sub(e.state.Touched) >= s.ttl {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked users
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
