package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/observability"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = observability.GetRequestID(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{"missing", "", false},
		{"not a uuid", "<script>", false},
		{"valid uuid", "7f9c2ba4-e88f-4d2a-9a3e-1c2b3d4e5f60", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("X-Request-ID", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			if _, err := uuid.Parse(seen); err != nil {
				t.Errorf("request id %q is not a uuid", seen)
			}
			if tt.keep && seen != tt.header {
				t.Errorf("request id = %q, want %q", seen, tt.header)
			}
			if w.Header().Get("X-Request-ID") != seen {
				t.Error("response header should echo the request id")
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	cfg := config.SecurityConfig{EnableRateLimit: true, RateLimitRPS: 1, RateLimitBurst: 5}
	h := RateLimit(NewRateLimiter(cfg), testLogger())(okHandler())

	upload := httptest.NewRequest(http.MethodPost, "/upload", nil)
	upload.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, upload)
	if w.Code != http.StatusOK {
		t.Fatalf("first upload status = %d, want 200", w.Code)
	}

	get := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	get.RemoteAddr = "10.0.0.1:1234"
	w = httptest.NewRecorder()
	h.ServeHTTP(w, get)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status after an upload drained the bucket = %d, want 429", w.Code)
	}

	other := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	w = httptest.NewRecorder()
	h.ServeHTTP(w, other)
	if w.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", w.Code)
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(config.SecurityConfig{EnableRateLimit: false, RateLimitRPS: 1, RateLimitBurst: 1})
	for i := 0; i < 10; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatal("disabled limiter should allow everything")
		}
	}
}

func TestRateLimiter_Prune(t *testing.T) {
	rl := NewRateLimiter(config.SecurityConfig{EnableRateLimit: true, RateLimitRPS: 10, RateLimitBurst: 10})
	rl.Allow("10.0.0.1")
	rl.Allow("10.0.0.2")

	if n := rl.Prune(time.Hour); n != 0 {
		t.Errorf("Prune(1h) dropped %d active clients", n)
	}
	time.Sleep(5 * time.Millisecond)
	if n := rl.Prune(time.Millisecond); n != 2 {
		t.Errorf("Prune(1ms) dropped %d clients, want 2", n)
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), "INTERNAL_ERROR") {
		t.Errorf("body should carry an error envelope, got %s", w.Body.String())
	}
}

func TestCORS(t *testing.T) {
	h := CORS(config.SecurityConfig{AllowedOrigins: []string{"http://localhost:8501"}})(okHandler())

	r := httptest.NewRequest(http.MethodOptions, "/upload", nil)
	r.Header.Set("Origin", "http://localhost:8501")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:8501" {
		t.Error("allowed origin should be echoed")
	}
	if w.Body.Len() != 0 {
		t.Error("preflight should not reach the handler")
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unknown origin should not be allowed")
	}
}

func TestLogger_CountsBytes(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}
	rw.Write([]byte("hello"))
	rw.Write([]byte(" world"))

	if rw.written != 11 {
		t.Errorf("written = %d, want 11", rw.written)
	}
}

func TestTrustedProxy(t *testing.T) {
	var xff string
	h := TrustedProxy(config.SecurityConfig{TrustedProxies: []string{"127.0.0.1"}})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		xff = r.Header.Get("X-Forwarded-For")
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.9:5555"
	r.Header.Set("X-Forwarded-For", "1.2.3.4")
	h.ServeHTTP(httptest.NewRecorder(), r)

	if xff != "" {
		t.Error("forwarded headers from untrusted peers should be dropped")
	}
}
