// Package logging owns the process logger: text on stderr from startup,
// widened to a rotated JSON file once configuration is known.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for the log file.
const (
	MaxSizeMB  = 10
	MaxBackups = 3
	MaxAgeDays = 28
)

// Manager handles logger lifecycle including bootstrap-to-full mode transitions.
// Components should obtain a logger via Logger() and use it for all logging.
type Manager struct {
	handler *SwappableHandler
	logger  *slog.Logger
	stderr  io.Writer
	file    *lumberjack.Logger
	level   *slog.LevelVar
	mu      sync.Mutex
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithStderr replaces the console writer, os.Stderr by default.
func WithStderr(w io.Writer) ManagerOption {
	return func(m *Manager) {
		m.stderr = w
	}
}

// NewManager creates a logging manager in bootstrap mode.
// Bootstrap mode writes only to stderr using text format.
// Call Upgrade() after config is available to enable file logging.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		stderr: os.Stderr,
		level:  new(slog.LevelVar),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.level.Set(DefaultLevel)

	m.handler = NewSwappableHandler(slog.NewTextHandler(m.stderr, &slog.HandlerOptions{Level: m.level}))
	m.logger = slog.New(m.handler)
	return m
}

// Logger returns the current logger instance.
// The returned logger is stable across Upgrade calls.
func (m *Manager) Logger() *slog.Logger {
	return m.logger
}

// Upgrade sets the level and, when logFilePath is not empty, fans records out
// to stderr text and a rotated JSON file. Returns an error if the log file
// cannot be created; the bootstrap handler stays in place in that case.
func (m *Manager) Upgrade(logFilePath string, level slog.Level) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.level.Set(level)
	opts := &slog.HandlerOptions{Level: m.level}
	console := slog.NewTextHandler(m.stderr, opts)

	if logFilePath == "" {
		m.closeFile()
		m.handler.Swap(console)
		return nil
	}

	dir := filepath.Dir(logFilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory %q; %w", dir, err)
	}
	// lumberjack opens lazily; probe now so a bad path fails here.
	probe, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %q; %w", logFilePath, err)
	}
	_ = probe.Close()

	m.closeFile()
	m.file = &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    MaxSizeMB,
		MaxBackups: MaxBackups,
		MaxAge:     MaxAgeDays,
	}

	m.handler.Swap(slogmulti.Fanout(
		console,
		slog.NewJSONHandler(m.file, opts),
	))
	return nil
}

// SetLevel changes the log level at runtime.
// Applies immediately to all future log calls.
func (m *Manager) SetLevel(level slog.Level) {
	m.level.Set(level)
}

// Level returns the current level.
func (m *Manager) Level() slog.Level {
	return m.level.Level()
}

// Close cleanly shuts down the logger, closing any open file handles.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeFile()
}

func (m *Manager) closeFile() error {
	if m.file == nil {
		return nil
	}
	err := m.file.Close()
	m.file = nil
	return err
}
