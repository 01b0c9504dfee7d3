// Package logging hands out one slog logger per component, optionally
// backed by its own file.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Manager opens <dir>/<name>.log for each component when dir is set and
// logs to the console writer otherwise.
type Manager struct {
	mu      sync.Mutex
	dir     string
	level   slog.Level
	console io.Writer
	files   map[string]*os.File
}

func NewManager(dir string, level slog.Level, console io.Writer) *Manager {
	if console == nil {
		console = os.Stderr
	}
	return &Manager{dir: dir, level: level, console: console, files: make(map[string]*os.File)}
}

// Console is the logger for the process itself.
func (m *Manager) Console() *slog.Logger {
	return slog.New(slog.NewTextHandler(m.console, &slog.HandlerOptions{Level: m.level}))
}

func (m *Manager) Open(name string) (*slog.Logger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dir == "" {
		return m.Console().With("component", name), nil
	}

	f, ok := m.files[name]
	if !ok {
		if err := os.MkdirAll(m.dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		var err error
		f, err = os.Create(filepath.Join(m.dir, name+".log"))
		if err != nil {
			return nil, fmt.Errorf("open log for %s: %w", name, err)
		}
		m.files[name] = f
	}
	h := slog.NewTextHandler(f, &slog.HandlerOptions{Level: m.level})
	return slog.New(h).With("component", name), nil
}

// Close closes every file sink. The manager can be reused afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, f := range m.files {
		if err := f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close log for %s: %w", name, err))
		}
		delete(m.files, name)
	}
	return errors.Join(errs...)
}

// Files lists the open sink paths.
func (m *Manager) Files() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.files))
	for _, f := range m.files {
		out = append(out, f.Name())
	}
	return out
}
