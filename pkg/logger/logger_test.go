package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestLoggerWritesServiceAndTrace(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo, "stockflow", func(context.Context) string { return "abc123" })

	log.Info(context.Background(), "stock increased", "category", "WATER")
	_ = log.Sync()

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode: %v (%s)", err, buf.String())
	}
	if entry["msg"] != "stock increased" {
		t.Fatalf("unexpected msg %v", entry["msg"])
	}
	if entry["service"] != "stockflow" || entry["trace_id"] != "abc123" || entry["category"] != "WATER" {
		t.Fatalf("missing fields: %v", entry)
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelWarn, "stockflow", nil)
	log.Info(context.Background(), "dropped")
	_ = log.Sync()
	if buf.Len() != 0 {
		t.Fatalf("expected nothing below warn, got %s", buf.String())
	}
}
