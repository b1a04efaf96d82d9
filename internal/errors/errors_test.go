package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sales-dashboard/internal/observability"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{BadRequest("bad"), http.StatusBadRequest},
		{NotFound("gone"), http.StatusNotFound},
		{RateLimit("slow down"), http.StatusTooManyRequests},
		{ServiceUnavailable("no dataset"), http.StatusServiceUnavailable},
		{Dataset(stderrors.New("line 3"), "dataset could not be loaded"), http.StatusUnprocessableEntity},
		{TooLarge("too big"), http.StatusRequestEntityTooLarge},
		{Internal("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			if tt.err.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", tt.err.StatusCode, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := stderrors.New("start date is after end date")
	err := fmt.Errorf("compute: %w", BadRequestWrap(cause, cause.Error()))

	if !stderrors.Is(err, cause) {
		t.Error("cause should be reachable through the chain")
	}
	if CodeOf(err) != CodeBadRequest {
		t.Errorf("CodeOf() = %s, want %s", CodeOf(err), CodeBadRequest)
	}
	if CodeOf(cause) != CodeInternal {
		t.Errorf("plain errors should map to %s", CodeInternal)
	}
}

func TestWriteError(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/upload", nil)
	r = r.WithContext(observability.WithRequestID(r.Context(), "req-1"))
	w := httptest.NewRecorder()

	WriteError(w, r, testLogger(), Dataset(stderrors.New("line 2, column Sales: bad number"), "dataset could not be loaded"))

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}

	var resp struct {
		Success bool `json:"success"`
		Error   struct {
			Code      string `json:"code"`
			Details   string `json:"details"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Success || resp.Error.Code != "DATASET_ERROR" || resp.Error.RequestID != "req-1" {
		t.Errorf("unexpected envelope: %+v", resp)
	}
	if resp.Error.Details != "line 2, column Sales: bad number" {
		t.Errorf("details = %q", resp.Error.Details)
	}
}

func TestWriteError_HidesPlainErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, httptest.NewRequest(http.MethodGet, "/", nil), testLogger(), stderrors.New("secret path /etc/data"))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if body := w.Body.String(); !json.Valid([]byte(body)) || strings.Contains(body, "/etc/data") {
		t.Errorf("internal error text should not leak: %s", body)
	}
}

func TestWriteError_RetryAfter(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, httptest.NewRequest(http.MethodGet, "/", nil), testLogger(), RateLimit("Too many requests"))

	if w.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q, want 1", w.Header().Get("Retry-After"))
	}
}

func TestWriteSuccessWithHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessWithHeaders(w, map[string]int{"row_count": 3}, map[string]string{"Cache-Control": "no-store"})

	if w.Header().Get("Cache-Control") != "no-store" {
		t.Error("extra headers should be set")
	}
	if w.Body.String() != `{"data":{"row_count":3},"success":true}`+"\n" {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}
