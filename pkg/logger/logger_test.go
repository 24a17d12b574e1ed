package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"unknown", InfoLevel},
		{"", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLevel_String(t *testing.T) {
	if DebugLevel.String() != "debug" || ErrorLevel.String() != "error" {
		t.Error("unexpected level names")
	}
	if Level(99).String() != "unknown" {
		t.Errorf("Level(99).String() = %q", Level(99).String())
	}
}

func TestSlogLogger_SetLevelFiltersOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(&Config{Level: InfoLevel, Format: "json", Writer: &buf})

	log.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug message should be filtered at info level: %s", buf.String())
	}

	log.SetLevel(DebugLevel)
	if log.GetLevel() != DebugLevel {
		t.Errorf("GetLevel() = %v, want debug", log.GetLevel())
	}
	log.Debug("visible", "k", "v")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json log line: %v", err)
	}
	if entry["message"] != "visible" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["k"] != "v" {
		t.Errorf("k = %v", entry["k"])
	}
}

func TestSlogLogger_WithSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&Config{Level: WarnLevel, Format: "text", Writer: &buf})
	child := log.With("component", "bridge")

	log.SetLevel(ErrorLevel)
	child.Warn("dropped")
	if buf.Len() != 0 {
		t.Fatalf("child should follow parent level: %s", buf.String())
	}

	child.Error("kept")
	if !strings.Contains(buf.String(), "component=bridge") {
		t.Errorf("expected component attr, got %s", buf.String())
	}
}

func TestContextLogging_AddsTraceFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(&Config{Level: InfoLevel, Format: "json", Writer: &buf})

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))

	log.InfoContext(ctx, "traced")
	if !strings.Contains(buf.String(), traceID.String()) {
		t.Errorf("expected trace id in %s", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	log := Discard()
	ctx := log.WithContext(context.Background())
	if FromContext(ctx) != log {
		t.Error("expected logger from context")
	}
	if FromContext(context.Background()) != Global() {
		t.Error("expected global logger fallback")
	}
}

func TestSetGlobal(t *testing.T) {
	prev := Global()
	t.Cleanup(func() { SetGlobal(prev) })

	log := Discard()
	SetGlobal(log)
	if Global() != log {
		t.Error("SetGlobal did not replace the global logger")
	}

	SetGlobal(nil)
	if Global() != log {
		t.Error("SetGlobal(nil) should be ignored")
	}
	if OrGlobal(nil) != log {
		t.Error("OrGlobal(nil) should return global")
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.log")
	log := New(&Config{Level: InfoLevel, Format: "json", Output: path})
	log.Info("to file")
	if err := log.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("log file missing message: %s", data)
	}
}
