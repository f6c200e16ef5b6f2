package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// envPrefix prefixes every environment override, e.g. AOCX_STEP_SCHEMA.
const envPrefix = "AOCX"

// configFilePath stores the path to the loaded config file
var configFilePath string

// Init initializes the configuration subsystem.
// It searches for configuration files in priority order:
//  1. Directory specified by AOCX_CONFIG_DIR environment variable
//  2. ~/.config/aocx/
//  3. Current working directory (.)
//
// If no config file is found, defaults are used.
// If a config file exists but is invalid or unreadable, Init returns an error.
func Init() error {
	configure(viper.GetViper())
	setDefaults()

	for _, p := range searchPaths() {
		viper.AddConfigPath(p)
	}

	err := viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			configFilePath = ""
			return nil
		}
		return fmt.Errorf("failed to read config; %w", err)
	}

	configFilePath = viper.ConfigFileUsed()
	slog.Debug("config initialized", "file", configFilePath)
	return nil
}

// configure applies the file name, type and environment binding shared by
// the global and the standalone viper instances.
func configure(v *viper.Viper) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// ConfigFilePath returns the path to the loaded config file,
// or empty string if using defaults only.
func ConfigFilePath() string {
	return configFilePath
}

// Reset clears the configuration state for testing purposes.
func Reset() {
	viper.Reset()
	configFilePath = ""
	resetReloadHooks()
}

// GetString returns the string value for the given key.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns the integer value for the given key.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns the boolean value for the given key.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetFloat64 returns the float value for the given key.
func GetFloat64(key string) float64 {
	return viper.GetFloat64(key)
}

// GetStringSlice returns the list value for the given key.
func GetStringSlice(key string) []string {
	return viper.GetStringSlice(key)
}

// Set sets a value for the given key, overriding defaults and config file values.
// Command flags use it so the typed config sees them.
func Set(key string, value any) {
	viper.Set(key, value)
}

// GetPath returns the string value for the given key with ~ expanded to $HOME.
func GetPath(key string) string {
	return expandHome(viper.GetString(key))
}

// Get returns the typed view of the global configuration. Values that fail
// to decode fall back to the defaults.
func Get() *Config {
	cfg := NewDefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("failed to decode config; using defaults", "error", err)
		def := NewDefaultConfig()
		return &def
	}
	return &cfg
}

// expandHome expands a leading ~ in path to the user's home directory.
// Only expands "~" alone or "~/..." patterns. Patterns like "~user" are not expanded.
func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	if len(path) > 1 && path[1] != '/' {
		return path
	}

	home := resolveHomeDir()
	if home == "" {
		return path
	}
	if len(path) == 1 {
		return home
	}
	return filepath.Join(home, path[2:])
}

// ExpandHome is expandHome for callers outside the package.
func ExpandHome(path string) string {
	return expandHome(path)
}

// GetAllSettings returns all configuration settings as a map.
func GetAllSettings() map[string]any {
	return viper.AllSettings()
}

// Reload re-reads the configuration from disk and notifies the reload hooks.
// On failure, the previous configuration is retained.
func Reload() error {
	currentSettings := viper.AllSettings()

	err := viper.ReadInConfig()
	if err == nil {
		err = Validate(Get())
	}
	if err != nil {
		for key, value := range currentSettings {
			viper.Set(key, value)
		}
		slog.Error("config reload failed; retaining previous values", "error", err)
		return fmt.Errorf("failed to reload config; %w", err)
	}

	slog.Info("config reloaded", "file", viper.ConfigFileUsed())
	notifyReload(Get())
	return nil
}

// ensureDir creates dir with owner-only permissions.
func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory %s; %w", dir, err)
	}
	return nil
}
