package logging

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"info", slog.LevelInfo},
		{"DEBUG", slog.LevelDebug},
		{"Trace", LevelTrace},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
	if ValidLevel("verbose") || !ValidLevel("TRACE") || !ValidLevel("") {
		t.Fatal("ValidLevel misclassifies names")
	}
}

func TestNewLoggerFiltersAndLabelsTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("info", &buf)
	logger.Debug("hidden")
	logger.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("info logger output: %q", buf.String())
	}

	buf.Reset()
	logger = NewLogger("trace", &buf)
	logger.Log(context.Background(), LevelTrace, "step done")
	if !strings.Contains(buf.String(), "level=TRACE") {
		t.Fatalf("trace level not labeled: %q", buf.String())
	}
}

func TestEventLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs", "events.jsonl")
	l, err := NewEventLog(path)
	if err != nil {
		t.Fatalf("NewEventLog: %v", err)
	}
	event := map[string]any{"step": 3, "population": 10}
	l.Log(event)
	l.Log(map[string]any{"step": 4})
	if _, ok := event["time"]; ok {
		t.Fatal("Log mutated the caller's map")
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	var lines int
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var got map[string]any
		if err := json.Unmarshal(sc.Bytes(), &got); err != nil {
			t.Fatalf("line %d: %v", lines, err)
		}
		if _, ok := got["time"]; !ok {
			t.Fatalf("line %d lacks time: %v", lines, got)
		}
		lines++
	}
	if lines != 2 {
		t.Fatalf("lines = %d", lines)
	}
}

func TestNilEventLog(t *testing.T) {
	l, err := NewEventLog("")
	if err != nil || l != nil {
		t.Fatalf("empty path: %v, %v", l, err)
	}
	l.Log(map[string]any{"ignored": true})
	if err := l.Close(); err != nil {
		t.Fatalf("Close on nil: %v", err)
	}
}
