package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestHandlerAddsContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&HandlerOptions{Service: "order-svc", Writer: &buf}))

	ctx := WithAttrs(context.Background(), slog.String("request_id", "req-1"))
	ctx = WithAttrs(ctx, slog.Int64("user_id", 7))
	log.InfoContext(ctx, "hello", "key", "value")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("failed to decode record %q: %v", buf.String(), err)
	}

	for key, want := range map[string]any{
		"msg":        "hello",
		"service":    "order-svc",
		"request_id": "req-1",
		"user_id":    float64(7),
		"key":        "value",
	} {
		if record[key] != want {
			t.Errorf("record[%q] = %v, want %v", key, record[key], want)
		}
	}
	if _, ok := record["hostname"]; !ok {
		t.Error("expected hostname attribute")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"bogus": slog.LevelInfo,
		"":      slog.LevelInfo,
	}

	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&HandlerOptions{Writer: &buf}))

	handler := middleware.RequestID(NewLoggerMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("failed to decode record %q: %v", buf.String(), err)
	}
	if record["status"] != float64(http.StatusTeapot) {
		t.Errorf("status = %v", record["status"])
	}
	if record["path"] != "/api/v1/orders" {
		t.Errorf("path = %v", record["path"])
	}
	if id, _ := record["request_id"].(string); id == "" {
		t.Error("expected request id")
	}
}
