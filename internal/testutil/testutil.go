// Package testutil provides testing utilities for isolated test environments.
package testutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/leefowlercu/aocxchange/internal/brep"
	"github.com/leefowlercu/aocxchange/internal/config"
	"github.com/leefowlercu/aocxchange/internal/exchange"
)

// TestEnv provides an isolated test environment with its own config directory.
type TestEnv struct {
	t         *testing.T
	ConfigDir string
}

// NewTestEnv creates an isolated test environment.
// Environment variables override every path so packages running in parallel
// never share state. Cleanup is automatic via t.Cleanup.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	configDir := filepath.Join(t.TempDir(), "config")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create test config dir: %v", err)
	}

	t.Setenv("AOCX_CONFIG_DIR", configDir)
	t.Setenv("AOCX_LOG_FILE", filepath.Join(configDir, "aocx.log"))
	t.Setenv("AOCX_WATCH_LEDGER_PATH", filepath.Join(configDir, "watch.db"))

	config.Reset()
	if err := config.Init(); err != nil {
		t.Fatalf("failed to initialize test config: %v", err)
	}
	t.Cleanup(config.Reset)

	return &TestEnv{t: t, ConfigDir: configDir}
}

// LedgerPath returns the path where the watch ledger will be created.
func (e *TestEnv) LedgerPath() string {
	return filepath.Join(e.ConfigDir, "watch.db")
}

// CreateTestDir creates a directory outside the config directory.
func (e *TestEnv) CreateTestDir(name string) string {
	e.t.Helper()
	return CreateDir(e.t, name)
}

// CreateDir creates a fresh named directory under t.TempDir().
func CreateDir(t *testing.T, name string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "testdata", name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create test dir %s: %v", name, err)
	}
	return dir
}

// WriteBox exports a dx by dy by dz box to path in the format its extension
// names and returns path.
func WriteBox(t *testing.T, path string, dx, dy, dz float64) string {
	t.Helper()
	box, err := brep.MakeBox(dx, dy, dz)
	if err != nil {
		t.Fatalf("MakeBox() error = %v", err)
	}
	ex, err := exchange.Create(path, exchange.WithLogger(Discard()))
	if err != nil {
		t.Fatalf("Create(%s) error = %v", path, err)
	}
	if err := ex.AddShape(box); err != nil {
		t.Fatalf("AddShape() error = %v", err)
	}
	if err := ex.WriteFile(); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", path, err)
	}
	return path
}

// WriteFile writes content to dir/name and returns the path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file %s: %v", p, err)
	}
	return p
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
