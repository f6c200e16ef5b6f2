// Package subcommands implements the config subcommands.
package subcommands

import "github.com/leefowlercu/aocxchange/internal/config"

// configPath returns the file the configuration was loaded from, or the
// default location when none was found.
func configPath() string {
	if p := config.ConfigFilePath(); p != "" {
		return p
	}
	return config.DefaultConfigPath()
}
