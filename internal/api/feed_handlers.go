package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/reelrank/reelrank/internal/feed"
	"github.com/reelrank/reelrank/internal/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin enforcement happens in the CORS middleware; the upgrader
		// accepts whatever made it through.
		return true
	},
}

// FeedHandlers holds dependencies for the rank event WebSocket endpoint.
type FeedHandlers struct {
	broadcaster *feed.Broadcaster
}

// NewFeedHandlers creates a new FeedHandlers instance.
func NewFeedHandlers(broadcaster *feed.Broadcaster) *FeedHandlers {
	return &FeedHandlers{broadcaster: broadcaster}
}

// Subscribe handles GET /feed/ws - upgrades the connection and streams the
// caller's rank change events until the client disconnects.
func (h *FeedHandlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := middleware.GetUserID(ctx)
	if userID == "" {
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.ErrorContext(ctx, "failed to upgrade websocket connection",
			"error", err,
			"user_id", userID,
		)
		return
	}

	h.broadcaster.Subscribe(userID, conn)

	requestID := middleware.GetRequestID(ctx)
	slog.InfoContext(ctx, "websocket client subscribed to rank events",
		"user_id", userID,
		"request_id", requestID,
	)

	defer func() {
		h.broadcaster.Unsubscribe(conn)
		conn.Close()
		slog.InfoContext(ctx, "websocket client unsubscribed",
			"user_id", userID,
			"request_id", requestID,
		)
	}()

	// Clients don't send messages; read only to detect disconnection.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.WarnContext(ctx, "websocket connection closed unexpectedly",
					"error", err,
					"user_id", userID,
				)
			}
			break
		}
	}
}
