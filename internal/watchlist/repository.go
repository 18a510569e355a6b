// Package watchlist provides storage for the movies a user intends to watch.
// The ranking engine's mutation notifier removes a movie from here once the
// user ranks it.
package watchlist

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrAlreadyListed is returned when a movie is added to a watchlist twice.
var ErrAlreadyListed = errors.New("movie is already on the watchlist")

// Item is one movie on a user's watchlist.
type Item struct {
	UserID     string    `json:"user_id"`
	MovieID    int64     `json:"movie_id"`
	Title      string    `json:"title"`
	PosterPath string    `json:"poster_path,omitempty"`
	AddedAt    time.Time `json:"added_at"`
}

// Repository defines watchlist storage operations.
//
// Remove is idempotent: removing a movie that is not on the list returns nil.
// The ranking notifier depends on that when it clears a just-ranked movie.
type Repository interface {
	Add(ctx context.Context, item *Item) error
	List(ctx context.Context, userID string) ([]*Item, error)
	Remove(ctx context.Context, userID string, movieID int64) error
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu    sync.RWMutex
	items map[string]map[int64]*Item // userID -> movieID -> item
}

// NewInMemoryRepository creates a new in-memory watchlist repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		items: make(map[string]map[int64]*Item),
	}
}

// Add puts a movie on the user's watchlist.
func (r *InMemoryRepository) Add(ctx context.Context, item *Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	userItems := r.items[item.UserID]
	if userItems == nil {
		userItems = make(map[int64]*Item)
		r.items[item.UserID] = userItems
	}
	if _, exists := userItems[item.MovieID]; exists {
		return ErrAlreadyListed
	}

	itemCopy := *item
	if itemCopy.AddedAt.IsZero() {
		itemCopy.AddedAt = time.Now()
	}
	userItems[item.MovieID] = &itemCopy
	return nil
}

// List returns the user's watchlist ordered by when items were added,
// newest first.
func (r *InMemoryRepository) List(ctx context.Context, userID string) ([]*Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userItems := r.items[userID]
	result := make([]*Item, 0, len(userItems))
	for _, item := range userItems {
		itemCopy := *item
		result = append(result, &itemCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].AddedAt.Equal(result[j].AddedAt) {
			return result[i].MovieID < result[j].MovieID
		}
		return result[i].AddedAt.After(result[j].AddedAt)
	})
	return result, nil
}

// Remove deletes a movie from the user's watchlist. Removing an absent
// movie is not an error.
func (r *InMemoryRepository) Remove(ctx context.Context, userID string, movieID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	userItems := r.items[userID]
	if userItems == nil {
		return nil
	}
	delete(userItems, movieID)
	if len(userItems) == 0 {
		delete(r.items, userID)
	}
	return nil
}
