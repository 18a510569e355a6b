package ranking

import (
	"context"
	"sync"
	"time"

	"github.com/reelrank/reelrank/internal/movie"
)

// ComparisonSession is the transient per-user state of an in-progress
// binary-search insertion. It bridges independent client round-trips: each
// answer narrows [Low, High] until Low > High, at which point the candidate's
// final rank is Low+1.
//
// Low and High are inclusive 0-based indices into Snapshot, the ranked list
// as it existed when the session was opened. The candidate and snapshot are
// captured once and never re-fetched, so replaying the same answers always
// yields the same rank.
type ComparisonSession struct {
	UserID      string        `json:"user_id"`
	Candidate   movie.Movie   `json:"candidate"`
	Snapshot    []movie.Movie `json:"snapshot"`
	Low         int           `json:"low"`
	High        int           `json:"high"`
	Comparisons int           `json:"comparisons"`
	// StartedAt records session age so an expiry policy can be added later
	// without changing the state transitions. No expiry is applied today.
	StartedAt time.Time `json:"started_at"`
}

// Resolved reports whether the binary search has converged.
func (s *ComparisonSession) Resolved() bool {
	return s.Low > s.High
}

// Mid returns the current midpoint index of the search bounds.
func (s *ComparisonSession) Mid() int {
	return (s.Low + s.High) / 2
}

// Target returns the movie at the current midpoint, the one shown alongside
// the candidate. Must not be called on a resolved session.
func (s *ComparisonSession) Target() movie.Movie {
	return s.Snapshot[s.Mid()]
}

// SessionStore holds at most one live ComparisonSession per user.
//
// Start unconditionally replaces any existing session for the user; there is
// no merge and no queue. Two concurrent requests for the same user interleave
// last-writer-wins with no conflict detection, matching the product
// assumption that a user ranks from one device at a time.
type SessionStore interface {
	// Start stores a fresh session, silently discarding any prior session
	// for the same user.
	Start(ctx context.Context, session *ComparisonSession) error

	// Get retrieves the user's live session.
	// Returns ErrNoActiveSession if none exists.
	Get(ctx context.Context, userID string) (*ComparisonSession, error)

	// Update overwrites the bounds and comparison count of a live session.
	// Returns ErrNoActiveSession if none exists.
	Update(ctx context.Context, userID string, low, high, comparisons int) error

	// End removes the user's session unconditionally. Ending an absent
	// session is not an error.
	End(ctx context.Context, userID string) error
}

// InMemorySessionStore is an in-memory implementation of SessionStore.
// Sessions are lost on process restart; callers then receive
// ErrNoActiveSession and restart the insertion.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*ComparisonSession
}

// NewInMemorySessionStore creates a new in-memory session store.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{
		sessions: make(map[string]*ComparisonSession),
	}
}

// Start stores a fresh session, replacing any existing one for the user.
func (s *InMemorySessionStore) Start(ctx context.Context, session *ComparisonSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.UserID] = copySession(session)
	return nil
}

// Get retrieves the user's live session.
func (s *InMemorySessionStore) Get(ctx context.Context, userID string) (*ComparisonSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[userID]
	if !ok {
		return nil, ErrNoActiveSession
	}
	return copySession(session), nil
}

// Update overwrites the bounds of a live session.
func (s *InMemorySessionStore) Update(ctx context.Context, userID string, low, high, comparisons int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[userID]
	if !ok {
		return ErrNoActiveSession
	}
	session.Low = low
	session.High = high
	session.Comparisons = comparisons
	return nil
}

// End removes the user's session unconditionally.
func (s *InMemorySessionStore) End(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

// copySession deep-copies a session so callers cannot mutate stored state.
func copySession(s *ComparisonSession) *ComparisonSession {
	sessionCopy := *s
	sessionCopy.Snapshot = make([]movie.Movie, len(s.Snapshot))
	copy(sessionCopy.Snapshot, s.Snapshot)
	return &sessionCopy
}
