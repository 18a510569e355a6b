package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func newCORSHandler(cfg CORSConfig) http.Handler {
	return CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestCORSAllowedOrigin(t *testing.T) {
	handler := newCORSHandler(CORSConfig{
		AllowedOrigins:   []string{"https://reelrank.app"},
		AllowedMethods:   []string{"GET", "POST", "DELETE"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	req := httptest.NewRequest(http.MethodGet, "/rankings", nil)
	req.Header.Set("Origin", "https://reelrank.app")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://reelrank.app" {
		t.Errorf("Allow-Origin: got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Allow-Credentials: got %q", got)
	}
}

func TestCORSRejectedOrigin(t *testing.T) {
	handler := newCORSHandler(CORSConfig{
		AllowedOrigins: []string{"https://reelrank.app"},
	})

	req := httptest.NewRequest(http.MethodGet, "/rankings", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("got %d, want 403", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin set for rejected origin: %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	handler := newCORSHandler(CORSConfig{
		AllowedOrigins: []string{"https://reelrank.app"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Authorization"},
		MaxAge:         600,
	})

	req := httptest.NewRequest(http.MethodOptions, "/rankings", nil)
	req.Header.Set("Origin", "https://reelrank.app")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("got %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST" {
		t.Errorf("Allow-Methods: got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Max-Age"); got != "600" {
		t.Errorf("Max-Age: got %q", got)
	}
}

func TestCORSDisabledWhenNoOrigins(t *testing.T) {
	handler := newCORSHandler(CORSConfig{})

	req := httptest.NewRequest(http.MethodGet, "/rankings", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("CORS headers present when disabled: %q", got)
	}
}

func TestCORSSameOriginRequest(t *testing.T) {
	handler := newCORSHandler(CORSConfig{
		AllowedOrigins: []string{"https://reelrank.app"},
	})

	// No Origin header: same-origin request passes through.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rankings", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rec.Code)
	}
}
