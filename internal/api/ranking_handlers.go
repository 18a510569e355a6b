package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/reelrank/reelrank/internal/middleware"
	"github.com/reelrank/reelrank/internal/movie"
	"github.com/reelrank/reelrank/internal/ranking"
)

// InsertRequest represents the request body for starting an insertion.
// Either title or a configured catalog is required: when title is empty the
// handler resolves the movie through the catalog by movie_id.
type InsertRequest struct {
	MovieID    int64  `json:"movie_id"`
	Title      string `json:"title"`
	PosterPath string `json:"poster_path"`
	Overview   string `json:"overview"`
}

// ComparisonRequest represents the request body for answering a comparison.
type ComparisonRequest struct {
	PreferredMovieID int64 `json:"preferred_movie_id"`
}

// ListResponse represents the response body for listing a ranked list.
type ListResponse struct {
	Entries []*ranking.RankedEntry `json:"entries"`
	Count   int                    `json:"count"`
}

// RankingHandlers holds dependencies for ranking HTTP handlers.
type RankingHandlers struct {
	engine  *ranking.Engine
	catalog movie.Catalog // optional, may be nil
}

// NewRankingHandlers creates a new RankingHandlers instance.
// catalog is optional; when nil, insert requests must carry a title.
func NewRankingHandlers(engine *ranking.Engine, catalog movie.Catalog) *RankingHandlers {
	return &RankingHandlers{
		engine:  engine,
		catalog: catalog,
	}
}

// BeginInsertion handles POST /rankings - starts inserting a movie into the
// caller's ranked list.
//
// Responds 201 with a resolved outcome when the list was empty, or 200 with
// the first comparison target when a session opened.
func (h *RankingHandlers) BeginInsertion(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		WriteError(w, r.Context(), http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	var req InsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}
	if req.MovieID <= 0 {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation, "movie_id must be a positive integer")
		return
	}

	candidate, ok := h.resolveMovie(w, r, req)
	if !ok {
		return
	}

	outcome, err := h.engine.BeginInsertion(r.Context(), userID, candidate)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	status := http.StatusOK
	if outcome.Status == ranking.StatusResolved {
		status = http.StatusCreated
	}
	writeJSON(w, r, status, outcome)
}

// ResolveComparison handles POST /rankings/comparisons - consumes one
// preference answer for the caller's live session.
func (h *RankingHandlers) ResolveComparison(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		WriteError(w, r.Context(), http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	var req ComparisonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}
	if req.PreferredMovieID <= 0 {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation, "preferred_movie_id must be a positive integer")
		return
	}

	outcome, err := h.engine.ResolveComparison(r.Context(), userID, req.PreferredMovieID)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	status := http.StatusOK
	if outcome.Status == ranking.StatusResolved {
		status = http.StatusCreated
	}
	writeJSON(w, r, status, outcome)
}

// List handles GET /rankings - returns the caller's ranked list in rank order.
func (h *RankingHandlers) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		WriteError(w, r.Context(), http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	entries, err := h.engine.List(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list rankings", "error", err, "user_id", userID)
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve rankings")
		return
	}
	if entries == nil {
		entries = []*ranking.RankedEntry{}
	}

	writeJSON(w, r, http.StatusOK, ListResponse{Entries: entries, Count: len(entries)})
}

// BeginRerank handles POST /rankings/{id}/rerank - removes an entry and
// reinserts its movie through the comparison protocol.
func (h *RankingHandlers) BeginRerank(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		WriteError(w, r.Context(), http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	entryID := rankingEntryID(r.URL.Path, "/rerank")
	if entryID == "" {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Entry ID is required")
		return
	}

	outcome, err := h.engine.BeginRerank(r.Context(), userID, entryID)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	status := http.StatusOK
	if outcome.Status == ranking.StatusResolved {
		status = http.StatusCreated
	}
	writeJSON(w, r, status, outcome)
}

// Remove handles DELETE /rankings/{id} - removes an entry and renumbers the
// remaining list.
func (h *RankingHandlers) Remove(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		WriteError(w, r.Context(), http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	entryID := rankingEntryID(r.URL.Path, "")
	if entryID == "" {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Entry ID is required")
		return
	}

	if err := h.engine.Remove(r.Context(), userID, entryID); err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// resolveMovie builds the candidate movie from the request, consulting the
// catalog when no title was supplied. Writes the error response and returns
// ok=false on failure.
func (h *RankingHandlers) resolveMovie(w http.ResponseWriter, r *http.Request, req InsertRequest) (movie.Movie, bool) {
	if req.Title != "" {
		return movie.Movie{
			ID:         req.MovieID,
			Title:      strings.TrimSpace(req.Title),
			PosterPath: req.PosterPath,
			Overview:   req.Overview,
		}, true
	}

	if h.catalog == nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation, "title is required")
		return movie.Movie{}, false
	}

	m, err := h.catalog.Lookup(r.Context(), req.MovieID)
	if err != nil {
		if errors.Is(err, movie.ErrMovieNotFound) {
			WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Movie not found in catalog")
			return movie.Movie{}, false
		}
		slog.ErrorContext(r.Context(), "catalog lookup failed", "error", err, "movie_id", req.MovieID)
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to look up movie")
		return movie.Movie{}, false
	}
	return *m, true
}

// writeEngineError maps ranking engine errors to API error responses.
func (h *RankingHandlers) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ranking.ErrDuplicateMovie):
		WriteError(w, r.Context(), http.StatusConflict, ErrCodeDuplicateMovie, "Movie is already ranked")
	case errors.Is(err, ranking.ErrNoActiveSession):
		WriteError(w, r.Context(), http.StatusConflict, ErrCodeNoActiveSession, "No comparison session in progress")
	case errors.Is(err, ranking.ErrEntryNotFound):
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeEntryNotFound, "Ranked entry not found")
	case errors.Is(err, ranking.ErrUnknownPreference):
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeUnknownPreference, "Preferred movie is not part of the current comparison")
	default:
		slog.ErrorContext(r.Context(), "ranking operation failed", "error", err)
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Ranking operation failed")
	}
}

// rankingEntryID extracts the entry ID from /rankings/{id}[suffix] paths.
// Returns empty string when the path does not match.
func rankingEntryID(path, suffix string) string {
	rest := strings.TrimPrefix(path, "/rankings/")
	if rest == path {
		return ""
	}
	if suffix != "" {
		rest = strings.TrimSuffix(rest, suffix)
	}
	if strings.Contains(rest, "/") {
		return ""
	}
	return rest
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}
