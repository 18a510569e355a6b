package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/reelrank/reelrank/internal/movie"
)

// Status describes the state of an insertion after an engine call.
type Status string

// Insertion statuses returned to callers.
const (
	// StatusResolved means the candidate has been persisted at Outcome.Rank.
	StatusResolved Status = "resolved"

	// StatusNeedsComparison means the caller must ask the user to choose
	// between the candidate and Outcome.Target, then call ResolveComparison.
	StatusNeedsComparison Status = "needs_comparison"
)

// Outcome is the result of a BeginInsertion, ResolveComparison or
// BeginRerank call.
type Outcome struct {
	Status    Status      `json:"status"`
	Candidate movie.Movie `json:"candidate"`

	// Rank is the final 1-based rank. Set only when Status is resolved.
	Rank int `json:"rank,omitempty"`

	// Target is the next comparison target. Set only when Status is
	// needs_comparison.
	Target *movie.Movie `json:"target,omitempty"`

	// Comparisons is how many answers have been consumed so far.
	Comparisons int `json:"comparisons"`
}

// Engine drives the interactive binary-insertion protocol over a ranked list
// repository and a comparison session store.
//
// Every terminal mutation goes through the repository's atomic
// InsertAt/RemoveAt, so the dense 1..N rank permutation holds after any
// sequence of engine calls. The notifier fires only after a mutation has
// committed and can never fail the operation.
type Engine struct {
	lists    ListRepository
	sessions SessionStore
	notifier Notifier
	metrics  *Metrics
	logger   *slog.Logger
}

// NewEngine creates a ranking engine. The notifier, metrics and logger are
// optional; nil values disable notification fan-out and metrics and fall
// back to the default logger.
func NewEngine(lists ListRepository, sessions SessionStore, notifier Notifier, metrics *Metrics, logger *slog.Logger) *Engine {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		lists:    lists,
		sessions: sessions,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
	}
}

// List returns the user's ranked list, ascending by rank.
func (e *Engine) List(ctx context.Context, userID string) ([]*RankedEntry, error) {
	return e.lists.ListRanked(ctx, userID)
}

// BeginInsertion starts inserting a candidate movie into the user's list.
//
// An empty list resolves immediately at rank 1 with zero comparisons and no
// session. A movie the user already ranked is rejected with
// ErrDuplicateMovie before any session opens, leaving the list untouched.
// Otherwise a comparison session is opened over a snapshot of the current
// list and the midpoint entry is returned as the first comparison target,
// silently discarding any prior session for the user.
func (e *Engine) BeginInsertion(ctx context.Context, userID string, candidate movie.Movie) (*Outcome, error) {
	dup, err := e.lists.IsDuplicate(ctx, userID, candidate.ID)
	if err != nil {
		return nil, fmt.Errorf("duplicate check failed: %w", err)
	}
	if dup {
		if e.metrics != nil {
			e.metrics.IncInsertions(OutcomeDuplicate)
		}
		return nil, ErrDuplicateMovie
	}

	entries, err := e.lists.ListRanked(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read ranked list: %w", err)
	}

	// Empty list: no comparison can be asked, insert directly at rank 1.
	if len(entries) == 0 {
		if _, err := e.commitInsert(ctx, userID, candidate, 1); err != nil {
			return nil, err
		}
		if e.metrics != nil {
			e.metrics.IncInsertions(OutcomeDirect)
			e.metrics.ObserveComparisons(0)
		}
		e.logger.InfoContext(ctx, "direct insertion on empty list",
			"user_id", userID, "movie_id", candidate.ID)
		return &Outcome{
			Status:    StatusResolved,
			Candidate: candidate,
			Rank:      1,
		}, nil
	}

	snapshot := make([]movie.Movie, len(entries))
	for i, entry := range entries {
		snapshot[i] = entry.Movie()
	}

	session := &ComparisonSession{
		UserID:    userID,
		Candidate: candidate,
		Snapshot:  snapshot,
		Low:       0,
		High:      len(snapshot) - 1,
		StartedAt: time.Now(),
	}

	// Track silent replacement of a live session before overwriting it.
	if _, err := e.sessions.Get(ctx, userID); err == nil {
		if e.metrics != nil {
			e.metrics.IncSessionsReplaced()
		}
		e.logger.InfoContext(ctx, "replacing live comparison session",
			"user_id", userID, "movie_id", candidate.ID)
	} else if e.metrics != nil {
		e.metrics.SessionOpened()
	}

	if err := e.sessions.Start(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to start comparison session: %w", err)
	}

	target := session.Target()
	return &Outcome{
		Status:    StatusNeedsComparison,
		Candidate: candidate,
		Target:    &target,
	}, nil
}

// ResolveComparison consumes one preference answer for the user's live
// session.
//
// preferredMovieID must be either the session candidate or the current
// comparison target; preferring the candidate moves the search before the
// target, preferring the target moves it after. When the bounds cross, the
// candidate is persisted at rank low+1, the session ends, and the mutation
// notifier fires. Otherwise the narrowed bounds are saved and the next
// target is returned.
func (e *Engine) ResolveComparison(ctx context.Context, userID string, preferredMovieID int64) (*Outcome, error) {
	session, err := e.sessions.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	target := session.Target()
	mid := session.Mid()

	low, high := session.Low, session.High
	switch preferredMovieID {
	case session.Candidate.ID:
		// Candidate wins: it belongs before the target.
		high = mid - 1
	case target.ID:
		// Existing movie wins: the candidate belongs after it.
		low = mid + 1
	default:
		return nil, ErrUnknownPreference
	}
	comparisons := session.Comparisons + 1

	if low > high {
		// Converged: the 0-based insertion index is low, rank is low+1.
		// Clamp against the live count so a list mutated outside this
		// session cannot produce an out-of-range insert.
		rank := low + 1
		count, err := e.lists.Count(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to count ranked list: %w", err)
		}
		if rank > count+1 {
			rank = count + 1
		}

		// The insert is the single atomic commit point; the session is
		// discarded only after it succeeds, so a failed insert leaves
		// the session resumable by a retry.
		if _, err := e.commitInsert(ctx, userID, session.Candidate, rank); err != nil {
			return nil, err
		}
		if err := e.sessions.End(ctx, userID); err != nil {
			e.logger.WarnContext(ctx, "failed to end resolved session",
				"error", err, "user_id", userID)
		}
		if e.metrics != nil {
			e.metrics.SessionClosed()
			e.metrics.IncInsertions(OutcomeCompared)
			e.metrics.ObserveComparisons(comparisons)
		}
		e.logger.InfoContext(ctx, "insertion resolved",
			"user_id", userID,
			"movie_id", session.Candidate.ID,
			"rank", rank,
			"comparisons", comparisons)
		return &Outcome{
			Status:      StatusResolved,
			Candidate:   session.Candidate,
			Rank:        rank,
			Comparisons: comparisons,
		}, nil
	}

	if err := e.sessions.Update(ctx, userID, low, high, comparisons); err != nil {
		return nil, err
	}
	session.Low, session.High = low, high
	next := session.Target()
	return &Outcome{
		Status:      StatusNeedsComparison,
		Candidate:   session.Candidate,
		Target:      &next,
		Comparisons: comparisons,
	}, nil
}

// BeginRerank removes an existing entry and reinserts its movie through the
// same insertion algorithm, reusing every invariant and code path. The
// removal commits (and notifies) before the reinsertion begins.
func (e *Engine) BeginRerank(ctx context.Context, userID, entryID string) (*Outcome, error) {
	entry, err := e.lists.GetByID(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}

	removed, err := e.lists.RemoveAt(ctx, userID, entry.Rank)
	if err != nil {
		return nil, fmt.Errorf("failed to remove entry for rerank: %w", err)
	}
	if e.metrics != nil {
		e.metrics.IncRemovals()
	}
	e.notify(ctx, userID, ActionRemoved, removed)

	return e.BeginInsertion(ctx, userID, removed.Movie())
}

// Remove deletes a ranked entry and renumbers the remainder.
func (e *Engine) Remove(ctx context.Context, userID, entryID string) error {
	entry, err := e.lists.GetByID(ctx, userID, entryID)
	if err != nil {
		return err
	}

	removed, err := e.lists.RemoveAt(ctx, userID, entry.Rank)
	if err != nil {
		return fmt.Errorf("failed to remove entry: %w", err)
	}
	if e.metrics != nil {
		e.metrics.IncRemovals()
	}
	e.logger.InfoContext(ctx, "entry removed",
		"user_id", userID, "movie_id", removed.MovieID, "rank", removed.Rank)
	e.notify(ctx, userID, ActionRemoved, removed)
	return nil
}

// commitInsert persists the candidate at the given rank and fires the
// notifier. It is the single commit point for every insertion path.
func (e *Engine) commitInsert(ctx context.Context, userID string, candidate movie.Movie, rank int) (*RankedEntry, error) {
	entry := &RankedEntry{
		UserID:     userID,
		MovieID:    candidate.ID,
		Title:      candidate.Title,
		PosterPath: candidate.PosterPath,
	}
	if err := e.lists.InsertAt(ctx, userID, rank, entry); err != nil {
		return nil, fmt.Errorf("failed to insert at rank %d: %w", rank, err)
	}
	e.notify(ctx, userID, ActionInserted, entry)
	return entry, nil
}

// notify delivers a rank event; failures are logged and swallowed because
// the mutation has already committed.
func (e *Engine) notify(ctx context.Context, userID string, action Action, entry *RankedEntry) {
	event := RankEvent{
		UserID:     userID,
		Action:     action,
		Entry:      *entry,
		OccurredAt: time.Now(),
	}
	if err := e.notifier.RankChanged(ctx, event); err != nil {
		e.logger.WarnContext(ctx, "rank change notification failed",
			"error", err,
			"user_id", userID,
			"action", string(action),
			"movie_id", entry.MovieID)
	}
}
