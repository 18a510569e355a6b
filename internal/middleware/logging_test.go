package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

// captureLogger returns a JSON logger writing into buf so tests can assert
// on individual log fields.
func captureLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func decodeLogLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log line %q: %v", buf.String(), err)
	}
	return entry
}

func TestLoggingCapturesRequestFields(t *testing.T) {
	var buf bytes.Buffer
	handler := Logging(captureLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("hello"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/rankings", nil)
	req = req.WithContext(SetUserID(req.Context(), "user-1"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	entry := decodeLogLine(t, &buf)
	if entry["method"] != "POST" {
		t.Errorf("method: got %v", entry["method"])
	}
	if entry["path"] != "/rankings" {
		t.Errorf("path: got %v", entry["path"])
	}
	if entry["status"] != float64(http.StatusCreated) {
		t.Errorf("status: got %v", entry["status"])
	}
	if entry["size"] != float64(5) {
		t.Errorf("size: got %v", entry["size"])
	}
	if entry["user_id"] != "user-1" {
		t.Errorf("user_id: got %v", entry["user_id"])
	}
	if entry["level"] != "INFO" {
		t.Errorf("level: got %v", entry["level"])
	}
}

func TestLoggingLevels(t *testing.T) {
	tests := []struct {
		status    int
		wantLevel string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusNotFound, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		handler := Logging(captureLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		entry := decodeLogLine(t, &buf)
		if entry["level"] != tt.wantLevel {
			t.Errorf("status %d: got level %v, want %s", tt.status, entry["level"], tt.wantLevel)
		}
	}
}

func TestLoggingIncludesErrorCode(t *testing.T) {
	var buf bytes.Buffer
	handler := Logging(captureLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetResponseErrorCode(w, "duplicate_movie")
		w.WriteHeader(http.StatusConflict)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/rankings", nil))

	entry := decodeLogLine(t, &buf)
	if entry["error_code"] != "duplicate_movie" {
		t.Errorf("error_code: got %v, want duplicate_movie", entry["error_code"])
	}
}

func TestLoggingOmitsErrorCodeOnSuccess(t *testing.T) {
	var buf bytes.Buffer
	handler := Logging(captureLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Error code set but status stays 200: field must be omitted.
		SetResponseErrorCode(w, "irrelevant")
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	entry := decodeLogLine(t, &buf)
	if _, ok := entry["error_code"]; ok {
		t.Errorf("error_code present on 200 response: %v", entry["error_code"])
	}
}

func TestSetResponseErrorCodeNoOpOnPlainWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	// Must not panic when the writer is not wrapped by the logging middleware.
	SetResponseErrorCode(rec, "some_code")
}

func TestResponseWriterFirstStatusWins(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	rw.WriteHeader(http.StatusBadRequest)
	rw.WriteHeader(http.StatusOK)

	if rw.statusCode != http.StatusBadRequest {
		t.Errorf("got status %d, want %d", rw.statusCode, http.StatusBadRequest)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("underlying writer got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestUserIDContextRoundTrip(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetUserID(req.Context()); got != "" {
		t.Errorf("got %q for unset user ID", got)
	}

	ctx := SetUserID(req.Context(), "user-42")
	if got := GetUserID(ctx); got != "user-42" {
		t.Errorf("got %q, want user-42", got)
	}
}
