// Package config provides the config parent command and subcommands.
package config

import (
	"github.com/spf13/cobra"

	"github.com/leefowlercu/aocxchange/cmd/config/subcommands"
)

// ConfigCmd is the parent command for all config-related subcommands.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage aocx configuration",
	Long: "Manage aocx configuration.\n\n" +
		"The config command allows you to view, create, validate and reset the aocx " +
		"configuration. Configuration is stored in a YAML file located at " +
		"~/.config/aocx/config.yaml by default, or in the directory named by AOCX_CONFIG_DIR.",
}

func init() {
	ConfigCmd.AddCommand(subcommands.ShowCmd)
	ConfigCmd.AddCommand(subcommands.InitCmd)
	ConfigCmd.AddCommand(subcommands.ValidateCmd)
	ConfigCmd.AddCommand(subcommands.ResetCmd)
}
