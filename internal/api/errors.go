// Package api provides the HTTP handlers and standardized error handling for
// the ranking server.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/reelrank/reelrank/internal/middleware"
)

// Common error codes used throughout the API.
const (
	// ErrCodeValidation indicates input validation failure.
	ErrCodeValidation = "validation_error"

	// ErrCodeBadRequest indicates a malformed request.
	ErrCodeBadRequest = "bad_request"

	// ErrCodeAuthFailed indicates authentication failure.
	ErrCodeAuthFailed = "auth_failed"

	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound = "not_found"

	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal = "internal_error"

	// ErrCodeDuplicateMovie indicates the movie is already present in the
	// user's ranked list.
	ErrCodeDuplicateMovie = "duplicate_movie"

	// ErrCodeNoActiveSession indicates a comparison was submitted without an
	// in-progress insertion session.
	ErrCodeNoActiveSession = "no_active_session"

	// ErrCodeEntryNotFound indicates the ranked entry does not exist.
	ErrCodeEntryNotFound = "entry_not_found"

	// ErrCodeUnknownPreference indicates the preferred movie in a comparison
	// was neither the candidate nor the current comparison target.
	ErrCodeUnknownPreference = "unknown_preference"

	// ErrCodeAlreadyListed indicates the movie is already on the watchlist.
	ErrCodeAlreadyListed = "already_listed"
)

// ErrorResponse represents the standard error response format.
// All API errors return JSON in this structure: {"error": {"code": "...", "message": "..."}}
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error code and human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError writes a standardized JSON error response.
//
// Format: {"error": {"code": "error_code", "message": "Error description"}}
//
// The error_code is forwarded to the logging middleware so it appears on the
// request log line for 4xx/5xx responses.
func WriteError(w http.ResponseWriter, ctx context.Context, status int, code, message string) {
	middleware.SetResponseErrorCode(w, code)

	errResp := ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	}

	data, err := json.Marshal(errResp)
	if err != nil {
		// Fallback to plain text if JSON marshaling fails
		slog.ErrorContext(ctx, "failed to marshal error response", "error", err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.ErrorContext(ctx, "failed to write error response", "error", err)
	}
}

// StatusCodeMapping returns the recommended HTTP status code for common error codes.
func StatusCodeMapping(code string) int {
	switch code {
	case ErrCodeValidation, ErrCodeBadRequest, ErrCodeUnknownPreference:
		return http.StatusBadRequest
	case ErrCodeAuthFailed:
		return http.StatusUnauthorized
	case ErrCodeNotFound, ErrCodeEntryNotFound:
		return http.StatusNotFound
	case ErrCodeDuplicateMovie, ErrCodeAlreadyListed:
		return http.StatusConflict
	case ErrCodeNoActiveSession:
		return http.StatusConflict
	case ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
