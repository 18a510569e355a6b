package ranking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ListRepository defines durable ordered storage for a user's ranked list.
//
// InsertAt and RemoveAt perform the structural renumbering that keeps the
// dense 1..N permutation intact, and must be atomic: either the whole
// shift-plus-write happens or none of it does. Implementations serialize
// mutations per user so two concurrent insertions cannot both compute a rank
// against the same stale count.
type ListRepository interface {
	// ListRanked returns the user's entries ordered ascending by rank.
	ListRanked(ctx context.Context, userID string) ([]*RankedEntry, error)

	// GetByID retrieves a single entry by its ID.
	// Returns ErrEntryNotFound if the entry does not exist for the user.
	GetByID(ctx context.Context, userID, entryID string) (*RankedEntry, error)

	// Count returns the number of entries in the user's list.
	Count(ctx context.Context, userID string) (int, error)

	// InsertAt persists the entry at the given 1-based rank, incrementing
	// the rank of every existing entry at or below the insertion point.
	// Requires 1 <= rank <= N+1 (ErrInvalidRank otherwise) and a movie not
	// already ranked by the user (ErrDuplicateMovie otherwise).
	InsertAt(ctx context.Context, userID string, rank int, entry *RankedEntry) error

	// RemoveAt deletes the entry at the given rank, decrementing the rank
	// of every entry below it. Returns the removed entry, or
	// ErrEntryNotFound if no entry exists at that rank.
	RemoveAt(ctx context.Context, userID string, rank int) (*RankedEntry, error)

	// IsDuplicate reports whether the user already ranked the movie.
	IsDuplicate(ctx context.Context, userID string, movieID int64) (bool, error)
}

// InMemoryListRepository is an in-memory implementation of ListRepository.
// A single mutex serializes all mutations, which also satisfies the per-user
// serialization requirement.
type InMemoryListRepository struct {
	mu    sync.RWMutex
	lists map[string][]*RankedEntry // userID -> entries ordered by rank
}

// NewInMemoryListRepository creates a new in-memory ranked list repository.
func NewInMemoryListRepository() *InMemoryListRepository {
	return &InMemoryListRepository{
		lists: make(map[string][]*RankedEntry),
	}
}

// ListRanked returns the user's entries ordered ascending by rank.
func (r *InMemoryListRepository) ListRanked(ctx context.Context, userID string) ([]*RankedEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.lists[userID]

	// Return deep copies to prevent external mutation
	copies := make([]*RankedEntry, len(entries))
	for i, e := range entries {
		entryCopy := *e
		copies[i] = &entryCopy
	}
	return copies, nil
}

// GetByID retrieves a single entry by its ID.
func (r *InMemoryListRepository) GetByID(ctx context.Context, userID, entryID string) (*RankedEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.lists[userID] {
		if e.ID == entryID {
			entryCopy := *e
			return &entryCopy, nil
		}
	}
	return nil, ErrEntryNotFound
}

// Count returns the number of entries in the user's list.
func (r *InMemoryListRepository) Count(ctx context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.lists[userID]), nil
}

// InsertAt persists the entry at the given rank and shifts everything at or
// below it down by one position.
func (r *InMemoryListRepository) InsertAt(ctx context.Context, userID string, rank int, entry *RankedEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.lists[userID]
	if rank < 1 || rank > len(entries)+1 {
		return ErrInvalidRank
	}
	for _, e := range entries {
		if e.MovieID == entry.MovieID {
			return ErrDuplicateMovie
		}
	}

	now := time.Now()
	entryCopy := *entry
	if entryCopy.ID == "" {
		entryCopy.ID = uuid.New().String()
	}
	entryCopy.UserID = userID
	entryCopy.Rank = rank
	entryCopy.CreatedAt = now
	entryCopy.UpdatedAt = now

	// Shift ranks at or below the insertion point
	for _, e := range entries {
		if e.Rank >= rank {
			e.Rank++
			e.UpdatedAt = now
		}
	}

	entries = append(entries, &entryCopy)
	sortByRank(entries)
	r.lists[userID] = entries

	// Report the assigned ID and timestamps back to the caller
	*entry = entryCopy
	return nil
}

// RemoveAt deletes the entry at the given rank and shifts everything below
// it up by one position.
func (r *InMemoryListRepository) RemoveAt(ctx context.Context, userID string, rank int) (*RankedEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.lists[userID]
	idx := -1
	for i, e := range entries {
		if e.Rank == rank {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, ErrEntryNotFound
	}

	removed := *entries[idx]
	entries = append(entries[:idx], entries[idx+1:]...)

	now := time.Now()
	for _, e := range entries {
		if e.Rank > rank {
			e.Rank--
			e.UpdatedAt = now
		}
	}

	if len(entries) == 0 {
		delete(r.lists, userID)
	} else {
		r.lists[userID] = entries
	}
	return &removed, nil
}

// IsDuplicate reports whether the user already ranked the movie.
func (r *InMemoryListRepository) IsDuplicate(ctx context.Context, userID string, movieID int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.lists[userID] {
		if e.MovieID == movieID {
			return true, nil
		}
	}
	return false, nil
}

// sortByRank sorts entries ascending by rank.
func sortByRank(entries []*RankedEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Rank < entries[j].Rank
	})
}
