package config

import (
	"os"
	"path/filepath"
)

// envConfigDir overrides the config search directory.
const envConfigDir = "AOCX_CONFIG_DIR"

// DefaultConfigPath returns the default path for the config file.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ConfigDir returns the config directory: AOCX_CONFIG_DIR when set, else
// ~/.config/aocx.
func ConfigDir() string {
	if dir := os.Getenv(envConfigDir); dir != "" {
		return dir
	}
	home := resolveHomeDir()
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".config", "aocx")
}

// ConfigExists returns true if the config file exists at the default path.
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigPath())
	return err == nil
}

// ConfigExistsAt returns true if a config file exists at the specified path.
func ConfigExistsAt(path string) bool {
	_, err := os.Stat(expandHome(path))
	return err == nil
}

// resolveHomeDir prefers $HOME so tests can redirect it.
func resolveHomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}

// searchPaths lists the config directories in priority order.
func searchPaths() []string {
	var paths []string
	if dir := os.Getenv(envConfigDir); dir != "" {
		paths = append(paths, dir)
	}
	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", "aocx"))
	}
	return append(paths, ".")
}
