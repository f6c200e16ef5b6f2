package subcommands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/aocxchange/internal/config"
)

var (
	initForce bool
	initPath  string
)

// InitCmd writes a configuration file holding the default values.
var InitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with default values",
	Long: "Write a configuration file with default values.\n\n" +
		"Creates ~/.config/aocx/config.yaml, or the file given by --path, filled " +
		"with every setting at its default so it can be edited. An existing file " +
		"is kept unless --force is given.",
	Example: `  # Create the default configuration file
  aocx config init

  # Overwrite an existing file
  aocx config init --force

  # Write to a project-local file
  aocx config init --path ./config.yaml`,
	PreRunE: validateInit,
	RunE:    runInit,
}

func init() {
	InitCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing configuration file")
	InitCmd.Flags().StringVar(&initPath, "path", "", "Write to this path instead of the default location")
}

func validateInit(cmd *cobra.Command, args []string) error {
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runInit(cmd *cobra.Command, args []string) error {
	path := initPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	path = config.ExpandHome(path)

	if config.ConfigExistsAt(path) && !initForce {
		return fmt.Errorf("configuration file already exists at %s; use --force to overwrite", path)
	}

	cfg := config.NewDefaultConfig()
	if err := config.Write(&cfg, path); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
	return nil
}
