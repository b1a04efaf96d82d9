package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"sales-dashboard/internal/config"
)

func TestNewLoggerTo_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, config.LoggerConfig{Level: "info", Format: "json"})

	logger.Debug("hidden")
	logger.Info("dataset loaded", "records", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record above debug, got %d", len(lines))
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("invalid json record: %v", err)
	}
	if rec["service"] != serviceName {
		t.Errorf("service = %v, want %q", rec["service"], serviceName)
	}
	if rec["msg"] != "dataset loaded" {
		t.Errorf("msg = %v", rec["msg"])
	}

	src, ok := rec["source"].(map[string]any)
	if !ok {
		t.Fatalf("expected a source object, got %v", rec["source"])
	}
	if file, _ := src["file"].(string); strings.Contains(file, "/") {
		t.Errorf("source file should be trimmed, got %q", file)
	}
}

func TestNewLoggerTo_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, config.LoggerConfig{Level: "warn", Format: "text"})

	logger.Info("quiet")
	logger.Warn("upload rejected")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Error("info should be filtered at warn level")
	}
	if !strings.Contains(out, "msg=\"upload rejected\"") || !strings.Contains(out, "service=sales-dashboard") {
		t.Errorf("unexpected text output: %s", out)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerFrom(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	LoggerFrom(context.Background(), base).Info("plain")
	if strings.Contains(buf.String(), "request_id") {
		t.Error("no request id expected without one in context")
	}

	buf.Reset()
	ctx := WithRequestID(context.Background(), "abc")
	LoggerFrom(ctx, base).Info("scoped")
	if !strings.Contains(buf.String(), "request_id=abc") {
		t.Errorf("expected request id in output, got %s", buf.String())
	}
}

func TestSpan(t *testing.T) {
	ctx, parent := StartSpan(context.Background(), "GET /sse/dashboard")
	_, child := StartSpan(ctx, "compute")

	if child.TraceID != parent.TraceID {
		t.Error("child span should share the parent trace id")
	}
	if child.ParentID != parent.SpanID {
		t.Error("child span should point at its parent")
	}

	child.SetTag("rows", "3")
	child.SetError(errors.New("boom"))
	child.Finish()

	if child.Status != SpanStatusError || child.Duration == nil {
		t.Errorf("unexpected finished span: %+v", child)
	}

	var buf bytes.Buffer
	slog.New(slog.NewTextHandler(&buf, nil)).Info("span", "span", child)
	for _, want := range []string{"span.operation=compute", "span.rows=3", "span.error=boom"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("span log should contain %q, got %s", want, buf.String())
		}
	}
}
