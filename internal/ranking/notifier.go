package ranking

import (
	"context"
	"log/slog"
	"time"

	"github.com/reelrank/reelrank/internal/watchlist"
)

// Action describes the kind of list mutation a RankEvent reports.
type Action string

// Mutation actions carried on rank events.
const (
	ActionInserted Action = "inserted"
	ActionRemoved  Action = "removed"
)

// RankEvent is emitted after a successful terminal insertion or removal.
type RankEvent struct {
	UserID     string      `json:"user_id"`
	Action     Action      `json:"action"`
	Entry      RankedEntry `json:"entry"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// Notifier receives rank events after the list mutation has committed.
// Downstream effects (feed writes, push notifications, watchlist cleanup)
// are best-effort: a notifier error never fails the ranking operation.
type Notifier interface {
	RankChanged(ctx context.Context, event RankEvent) error
}

// NoopNotifier discards all events.
type NoopNotifier struct{}

// RankChanged implements Notifier.
func (NoopNotifier) RankChanged(context.Context, RankEvent) error { return nil }

// MultiNotifier fans a rank event out to every registered notifier.
// Individual failures are logged and swallowed so one broken downstream
// cannot block the others or the caller.
type MultiNotifier struct {
	notifiers []Notifier
	logger    *slog.Logger
}

// NewMultiNotifier creates a fan-out notifier over the given notifiers.
func NewMultiNotifier(logger *slog.Logger, notifiers ...Notifier) *MultiNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &MultiNotifier{
		notifiers: notifiers,
		logger:    logger,
	}
}

// RankChanged delivers the event to every registered notifier. Always
// returns nil; the rank mutation already committed by the time this runs.
func (m *MultiNotifier) RankChanged(ctx context.Context, event RankEvent) error {
	for _, n := range m.notifiers {
		if err := n.RankChanged(ctx, event); err != nil {
			m.logger.WarnContext(ctx, "rank event notifier failed",
				"error", err,
				"user_id", event.UserID,
				"action", string(event.Action),
				"movie_id", event.Entry.MovieID,
			)
		}
	}
	return nil
}

// WatchlistNotifier removes a freshly ranked movie from the user's watchlist.
// Removing an absent watchlist item is not an error, so the hook is
// idempotent across retries.
type WatchlistNotifier struct {
	watchlist watchlist.Repository
}

// NewWatchlistNotifier creates a notifier that cleans up the watchlist after
// an insertion.
func NewWatchlistNotifier(repo watchlist.Repository) *WatchlistNotifier {
	return &WatchlistNotifier{watchlist: repo}
}

// RankChanged removes the inserted movie from the user's watchlist.
func (n *WatchlistNotifier) RankChanged(ctx context.Context, event RankEvent) error {
	if event.Action != ActionInserted {
		return nil
	}
	return n.watchlist.Remove(ctx, event.UserID, event.Entry.MovieID)
}
