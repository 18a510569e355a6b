// Package feed provides WebSocket broadcasting of rank-change events so
// connected clients (the user's own devices, friends' feeds) can react in
// real time. It is one implementation of the ranking notifier seam; delivery
// is best-effort and never affects the ranking operation itself.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/reelrank/reelrank/internal/ranking"
)

// Broadcaster manages WebSocket connections and fans rank events out to
// every connection subscribed to the affected user.
type Broadcaster struct {
	mu          sync.RWMutex
	connections map[string]map[*websocket.Conn]bool // userID -> connections
	logger      *slog.Logger
}

// NewBroadcaster creates a new rank event broadcaster.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		connections: make(map[string]map[*websocket.Conn]bool),
		logger:      logger,
	}
}

// Subscribe registers a WebSocket connection for a user's rank events.
func (b *Broadcaster) Subscribe(userID string, conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.connections[userID] == nil {
		b.connections[userID] = make(map[*websocket.Conn]bool)
	}
	b.connections[userID][conn] = true
}

// Unsubscribe removes a WebSocket connection from all users.
func (b *Broadcaster) Unsubscribe(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for userID, conns := range b.connections {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(b.connections, userID)
		}
	}
}

// ConnectionCount returns the number of active connections for a user.
func (b *Broadcaster) ConnectionCount(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if conns, exists := b.connections[userID]; exists {
		return len(conns)
	}
	return 0
}

// RankChanged implements ranking.Notifier. It pushes the event to every
// subscriber of the affected user. Write failures are logged and left to
// the client's disconnect handling.
func (b *Broadcaster) RankChanged(ctx context.Context, event ranking.RankEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	conns, exists := b.connections[event.UserID]
	if !exists || len(conns) == 0 {
		return nil
	}

	// Serialize once per event
	data, err := json.Marshal(event)
	if err != nil {
		b.logger.ErrorContext(ctx, "failed to marshal rank event", "error", err)
		return nil
	}

	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			b.logger.WarnContext(ctx, "failed to push rank event to websocket client",
				"error", err,
				"user_id", event.UserID,
			)
		}
	}
	return nil
}
