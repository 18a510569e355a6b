package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/reelrank/reelrank/internal/middleware"
	"github.com/reelrank/reelrank/internal/watchlist"
)

// WatchlistAddRequest represents the request body for adding a watchlist item.
type WatchlistAddRequest struct {
	MovieID    int64  `json:"movie_id"`
	Title      string `json:"title"`
	PosterPath string `json:"poster_path"`
}

// WatchlistResponse represents the response body for listing a watchlist.
type WatchlistResponse struct {
	Items []*watchlist.Item `json:"items"`
	Count int               `json:"count"`
}

// WatchlistHandlers holds dependencies for watchlist HTTP handlers.
type WatchlistHandlers struct {
	repo watchlist.Repository
}

// NewWatchlistHandlers creates a new WatchlistHandlers instance.
func NewWatchlistHandlers(repo watchlist.Repository) *WatchlistHandlers {
	return &WatchlistHandlers{repo: repo}
}

// Add handles POST /watchlist - puts a movie on the caller's watchlist.
func (h *WatchlistHandlers) Add(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		WriteError(w, r.Context(), http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	var req WatchlistAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}
	if req.MovieID <= 0 {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation, "movie_id must be a positive integer")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation, "title is required")
		return
	}

	item := &watchlist.Item{
		UserID:     userID,
		MovieID:    req.MovieID,
		Title:      strings.TrimSpace(req.Title),
		PosterPath: req.PosterPath,
	}
	if err := h.repo.Add(r.Context(), item); err != nil {
		if errors.Is(err, watchlist.ErrAlreadyListed) {
			WriteError(w, r.Context(), http.StatusConflict, ErrCodeAlreadyListed, "Movie is already on the watchlist")
			return
		}
		slog.ErrorContext(r.Context(), "failed to add watchlist item", "error", err, "user_id", userID)
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to add to watchlist")
		return
	}

	writeJSON(w, r, http.StatusCreated, item)
}

// List handles GET /watchlist - returns the caller's watchlist, most recently
// added first.
func (h *WatchlistHandlers) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		WriteError(w, r.Context(), http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	items, err := h.repo.List(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list watchlist", "error", err, "user_id", userID)
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve watchlist")
		return
	}
	if items == nil {
		items = []*watchlist.Item{}
	}

	writeJSON(w, r, http.StatusOK, WatchlistResponse{Items: items, Count: len(items)})
}

// Remove handles DELETE /watchlist/{movie_id} - takes a movie off the
// caller's watchlist. Removal is idempotent.
func (h *WatchlistHandlers) Remove(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		WriteError(w, r.Context(), http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/watchlist/")
	movieID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || movieID <= 0 {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "movie_id must be a positive integer")
		return
	}

	if err := h.repo.Remove(r.Context(), userID, movieID); err != nil {
		slog.ErrorContext(r.Context(), "failed to remove watchlist item", "error", err, "user_id", userID, "movie_id", movieID)
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to remove from watchlist")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
