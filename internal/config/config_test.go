package config

import (
	"os"
	"path/filepath"
	"testing"
)

// isolate points every search location at fresh temp directories.
func isolate(t *testing.T) (configDir string) {
	t.Helper()
	configDir = t.TempDir()
	home := t.TempDir()
	t.Setenv("AOCX_CONFIG_DIR", configDir)
	t.Setenv("HOME", home)

	origDir, _ := os.Getwd()
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("failed to chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(origDir) })

	Reset()
	t.Cleanup(Reset)
	return configDir
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestInit_NoConfigFile_UsesDefaults(t *testing.T) {
	isolate(t)

	if err := Init(); err != nil {
		t.Fatalf("Init() returned error when no config file exists: %v", err)
	}
	if path := ConfigFilePath(); path != "" {
		t.Errorf("ConfigFilePath() = %q, want empty string when no config file", path)
	}
	if got := GetString("step.schema"); got != DefaultSTEPSchema {
		t.Errorf("GetString(step.schema) = %q, want %q", got, DefaultSTEPSchema)
	}
	if got := GetFloat64("step.tolerance"); got != DefaultSTEPTolerance {
		t.Errorf("GetFloat64(step.tolerance) = %g, want %g", got, DefaultSTEPTolerance)
	}
}

func TestInit_ConfigInEnvDir_LoadsFromEnvDir(t *testing.T) {
	dir := isolate(t)
	configPath := writeConfig(t, dir, "iges:\n  version: \"5.3\"\n")

	if err := Init(); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}
	if got := ConfigFilePath(); got != configPath {
		t.Errorf("ConfigFilePath() = %q, want %q", got, configPath)
	}
	if got := GetString("iges.version"); got != "5.3" {
		t.Errorf("GetString(iges.version) = %q, want 5.3", got)
	}
}

func TestInit_ConfigInDefaultDir_LoadsFromDefaultDir(t *testing.T) {
	isolate(t)
	t.Setenv("AOCX_CONFIG_DIR", "")
	defaultDir := filepath.Join(os.Getenv("HOME"), ".config", "aocx")
	if err := os.MkdirAll(defaultDir, 0755); err != nil {
		t.Fatalf("failed to create default dir: %v", err)
	}
	configPath := writeConfig(t, defaultDir, "stl:\n  ascii: true\n")

	if err := Init(); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}
	if got := ConfigFilePath(); got != configPath {
		t.Errorf("ConfigFilePath() = %q, want %q", got, configPath)
	}
	if !GetBool("stl.ascii") {
		t.Error("GetBool(stl.ascii) = false, want true")
	}
}

func TestInit_MultipleLocations_UsesFirstMatch(t *testing.T) {
	dir := isolate(t)
	envPath := writeConfig(t, dir, "convert:\n  jobs: 7\n")
	writeConfig(t, ".", "convert:\n  jobs: 2\n")

	if err := Init(); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}
	if got := ConfigFilePath(); got != envPath {
		t.Errorf("ConfigFilePath() = %q, want %q", got, envPath)
	}
	if got := GetInt("convert.jobs"); got != 7 {
		t.Errorf("GetInt(convert.jobs) = %d, want 7", got)
	}
}

func TestInit_InvalidYAML_ReturnsFatalError(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, "step: [\n")

	if err := Init(); err == nil {
		t.Fatal("Init() expected error for invalid YAML")
	}
}

func TestEnvOverride_NestedKey_MapsCorrectly(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, "step:\n  schema: AP214CD\n")
	t.Setenv("AOCX_STEP_SCHEMA", "AP203")

	if err := Init(); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}
	if got := GetString("step.schema"); got != "AP203" {
		t.Errorf("GetString(step.schema) = %q, want AP203 from env", got)
	}
	if got := Get().STEP.Schema; got != "AP203" {
		t.Errorf("Get().STEP.Schema = %q, want AP203 from env", got)
	}
}

func TestGet_ReturnsTypedConfig(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, `log_level: debug
step:
  tolerance: 0.001
  verbose: true
watch:
  include: ["*.stp"]
  rate_limit: 1.5
`)

	if err := Init(); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}
	cfg := Get()
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.STEP.Tolerance != 0.001 || !cfg.STEP.Verbose {
		t.Errorf("STEP = %+v, want tolerance 0.001 and verbose", cfg.STEP)
	}
	if cfg.STEP.Schema != DefaultSTEPSchema {
		t.Errorf("STEP.Schema = %q, want default %q", cfg.STEP.Schema, DefaultSTEPSchema)
	}
	if len(cfg.Watch.Include) != 1 || cfg.Watch.Include[0] != "*.stp" {
		t.Errorf("Watch.Include = %v, want [*.stp]", cfg.Watch.Include)
	}
	if cfg.Watch.RateLimit != 1.5 {
		t.Errorf("Watch.RateLimit = %g, want 1.5", cfg.Watch.RateLimit)
	}
	if _, err := Current(); err != nil {
		t.Errorf("Current() error = %v", err)
	}
}

func TestCurrent_InvalidValue_ReturnsValidationError(t *testing.T) {
	isolate(t)
	if err := Init(); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}
	Set("iges.version", "6.0")

	_, err := Current()
	if !IsValidationError(err) {
		t.Errorf("Current() error = %v, want validation error", err)
	}
}

func TestReload_ValidConfig_UpdatesValues(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, "convert:\n  jobs: 2\n")
	if err := Init(); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}

	var seen int
	OnReload(func(cfg *Config) { seen = cfg.Convert.Jobs })

	writeConfig(t, dir, "convert:\n  jobs: 9\n")
	if err := Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if got := GetInt("convert.jobs"); got != 9 {
		t.Errorf("GetInt(convert.jobs) = %d after reload, want 9", got)
	}
	if seen != 9 {
		t.Errorf("reload hook saw jobs = %d, want 9", seen)
	}
}

func TestReload_HookRegisteredDuringReload(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, "convert:\n  jobs: 2\n")
	if err := Init(); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}

	var late int
	OnReload(func(*Config) {
		OnReload(func(*Config) { late++ })
	})

	if err := Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if late != 0 {
		t.Errorf("hook added during reload ran %d times in the same reload, want 0", late)
	}
	if err := Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if late != 1 {
		t.Errorf("hook added during first reload ran %d times on the second, want 1", late)
	}
}

func TestReload_InvalidConfig_RetainsPreviousValues(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, "convert:\n  jobs: 2\n")
	if err := Init(); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}

	called := false
	OnReload(func(*Config) { called = true })

	writeConfig(t, dir, "convert:\n  jobs: 0\n")
	if err := Reload(); err == nil {
		t.Fatal("Reload() expected error for invalid config")
	}
	if got := GetInt("convert.jobs"); got != 2 {
		t.Errorf("GetInt(convert.jobs) = %d after failed reload, want 2", got)
	}
	if called {
		t.Error("reload hook called after failed reload")
	}
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"~", home},
		{"~/out/parts", filepath.Join(home, "out", "parts")},
		{"~other/x", "~other/x"},
		{"/abs/path", "/abs/path"},
		{"rel/path", "rel/path"},
	}
	for _, tt := range tests {
		if got := expandHome(tt.in); got != tt.want {
			t.Errorf("expandHome(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGetPath_ExpandsTilde(t *testing.T) {
	isolate(t)
	if err := Init(); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}
	want := filepath.Join(os.Getenv("HOME"), ".config", "aocx", "watch.db")
	if got := GetPath("watch.ledger_path"); got != want {
		t.Errorf("GetPath(watch.ledger_path) = %q, want %q", got, want)
	}
}
