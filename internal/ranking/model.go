// Package ranking implements the interactive pairwise ranking engine: the
// per-user ordered movie list, the comparison session state machine, and the
// binary-insertion algorithm that turns a sequence of "which do you prefer?"
// answers into a final rank.
package ranking

import (
	"errors"
	"time"

	"github.com/reelrank/reelrank/internal/movie"
)

// Common errors for ranking operations. Handlers map these to distinct
// response codes because the client UI branches on them.
var (
	// ErrDuplicateMovie is returned when a user tries to rank a movie that
	// already appears in their list.
	ErrDuplicateMovie = errors.New("movie is already ranked")

	// ErrEntryNotFound is returned when a ranked entry does not exist for
	// the user.
	ErrEntryNotFound = errors.New("ranked entry not found")

	// ErrInvalidRank is returned when an insert or remove targets a rank
	// outside the valid range for the user's list.
	ErrInvalidRank = errors.New("rank out of range")

	// ErrNoActiveSession is returned when a comparison is resolved without
	// an open session. The caller must restart the insertion from scratch.
	ErrNoActiveSession = errors.New("no active comparison session")

	// ErrUnknownPreference is returned when the preferred movie is neither
	// the candidate nor the current comparison target.
	ErrUnknownPreference = errors.New("preferred movie is not part of the current comparison")
)

// RankedEntry is one row in a user's ranked list.
//
// For a fixed user, rank values are always exactly {1..N} with no duplicates
// and no gaps, and a movie appears at most once. Rank is mutated only by the
// renumbering inside InsertAt/RemoveAt.
type RankedEntry struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	MovieID    int64     `json:"movie_id"`
	Title      string    `json:"title"`
	PosterPath string    `json:"poster_path,omitempty"`
	Rank       int       `json:"rank"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Movie returns the entry's movie snapshot for use as a comparison target
// or rerank candidate.
func (e *RankedEntry) Movie() movie.Movie {
	return movie.Movie{
		ID:         e.MovieID,
		Title:      e.Title,
		PosterPath: e.PosterPath,
	}
}
