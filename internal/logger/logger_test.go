package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestInitWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, "warn", true)

	Info("dropped")
	With("component", "engine").Warn("kept", "user_id", "42")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected a single JSON record, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "kept" || rec["component"] != "engine" || rec["user_id"] != "42" {
		t.Fatalf("record = %v", rec)
	}
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, "info", false)

	if WithContext(context.Background()) != Get() {
		t.Fatal("empty context should yield the default logger")
	}
	l := With("request_id", "abc")
	if WithContext(NewContext(context.Background(), l)) != l {
		t.Fatal("request logger not returned")
	}
}
