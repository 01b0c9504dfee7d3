package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"", slog.LevelInfo, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"loud", slog.LevelInfo, false},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestManagerConsole(t *testing.T) {
	var buf bytes.Buffer
	m := NewManager("", slog.LevelInfo, &buf)

	log, err := m.Open("ocean")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	log.Debug("hidden")
	log.Info("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug message logged at info level")
	}
	if !strings.Contains(out, "component=ocean") {
		t.Errorf("missing component attribute: %q", out)
	}
}

func TestManagerFiles(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, slog.LevelDebug, nil)

	log, err := m.Open("ocean")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	log.Debug("box state", "carbon", 140.0)

	if len(m.Files()) != 1 {
		t.Fatalf("expected one sink, got %v", m.Files())
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(m.Files()) != 0 {
		t.Error("sinks still open after Close")
	}

	data, err := os.ReadFile(filepath.Join(dir, "ocean.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "carbon=140") {
		t.Errorf("log file missing record: %q", data)
	}
}
