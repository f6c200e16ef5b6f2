package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestWrite_CreatesDirectoryAndFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "subdir", "nested", "config.yaml")

	cfg := NewDefaultConfig()
	if err := Write(&cfg, configPath); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	dirInfo, err := os.Stat(filepath.Dir(configPath))
	if err != nil {
		t.Fatalf("failed to stat directory; %v", err)
	}
	if perm := dirInfo.Mode().Perm(); perm != 0700 {
		t.Errorf("directory permissions = %o, want 0700", perm)
	}
	fileInfo, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("failed to stat file; %v", err)
	}
	if perm := fileInfo.Mode().Perm(); perm != 0600 {
		t.Errorf("file permissions = %o, want 0600", perm)
	}
}

func TestWrite_HeaderAndRoundTrip(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	cfg := NewDefaultConfig()
	cfg.STEP.Schema = "AP203"
	cfg.Watch.Include = []string{"in/**/*.igs"}
	if err := Write(&cfg, configPath); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config; %v", err)
	}
	if !strings.HasPrefix(string(data), "# aocx configuration\n") {
		t.Errorf("config does not start with header:\n%s", data)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("written config is not valid YAML; %v", err)
	}
	if parsed.STEP.Schema != "AP203" {
		t.Errorf("STEP.Schema = %q, want AP203", parsed.STEP.Schema)
	}

	loaded, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if len(loaded.Watch.Include) != 1 || loaded.Watch.Include[0] != "in/**/*.igs" {
		t.Errorf("Watch.Include = %v", loaded.Watch.Include)
	}
}

func TestWrite_ExpandsTilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := NewDefaultConfig()
	if err := Write(&cfg, "~/cfg/config.yaml"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !ConfigExistsAt(filepath.Join(home, "cfg", "config.yaml")) {
		t.Error("Write() did not expand ~")
	}
}

func TestConfigDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	t.Setenv("AOCX_CONFIG_DIR", "")
	if got, want := ConfigDir(), filepath.Join(home, ".config", "aocx"); got != want {
		t.Errorf("ConfigDir() = %q, want %q", got, want)
	}

	override := t.TempDir()
	t.Setenv("AOCX_CONFIG_DIR", override)
	if got := ConfigDir(); got != override {
		t.Errorf("ConfigDir() = %q, want %q", got, override)
	}
	if got, want := DefaultConfigPath(), filepath.Join(override, "config.yaml"); got != want {
		t.Errorf("DefaultConfigPath() = %q, want %q", got, want)
	}
	if ConfigExists() {
		t.Error("ConfigExists() = true before writing")
	}
	cfg := NewDefaultConfig()
	if err := WriteDefault(&cfg); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	if !ConfigExists() {
		t.Error("ConfigExists() = false after WriteDefault")
	}
}
