package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/aocxchange/cmd/config"
	"github.com/leefowlercu/aocxchange/cmd/convert"
	"github.com/leefowlercu/aocxchange/cmd/info"
	"github.com/leefowlercu/aocxchange/cmd/primitives"
	"github.com/leefowlercu/aocxchange/cmd/run"
	"github.com/leefowlercu/aocxchange/cmd/version"
	"github.com/leefowlercu/aocxchange/cmd/watch"
	internalconfig "github.com/leefowlercu/aocxchange/internal/config"
	"github.com/leefowlercu/aocxchange/internal/logging"
	internalversion "github.com/leefowlercu/aocxchange/internal/version"
)

// logManager is the global logging manager, created in init() and upgraded after config loads
var logManager *logging.Manager

var aocxCmd = &cobra.Command{
	Use:   "aocx",
	Short: "Read, write and convert CAD exchange files",
	Long: "aocx reads and writes STEP, IGES, STL and native BREP files.\n\n" +
		"It reports the topology of a file, converts files between formats, builds " +
		"primitive solids, runs YAML modelling recipes against a part workspace, and " +
		"can watch a directory to convert files as they change.",
	Version:           internalversion.Get().Short(),
	PersistentPreRunE: runInitialize,
}

func init() {
	logManager = logging.NewManager()
	slog.SetDefault(logManager.Logger())

	aocxCmd.AddCommand(info.InfoCmd)
	aocxCmd.AddCommand(convert.ConvertCmd)
	aocxCmd.AddCommand(primitives.MakeCmd)
	aocxCmd.AddCommand(run.RunCmd)
	aocxCmd.AddCommand(watch.WatchCmd)
	aocxCmd.AddCommand(config.ConfigCmd)
	aocxCmd.AddCommand(version.VersionCmd)
}

func runInitialize(cmd *cobra.Command, args []string) error {
	logger := logManager.Logger()

	if err := internalconfig.Init(); err != nil {
		return err
	}

	logFile := internalconfig.GetPath("log_file")
	levelStr := internalconfig.GetString("log_level")
	level, ok := logging.ParseLevel(levelStr)
	if !ok {
		level = logging.DefaultLevel
		if levelStr != "" {
			logger.Warn("invalid log level configured, using default", "configured", levelStr, "default", "info")
		}
	}

	if err := logManager.Upgrade(logFile, level); err != nil {
		logger.Warn("failed to enable file logging, continuing with stderr only", "error", err)
	}

	// A reloaded configuration only changes the level; the log file stays.
	internalconfig.OnReload(func(cfg *internalconfig.Config) {
		if lvl, ok := logging.ParseLevel(cfg.LogLevel); ok {
			logManager.SetLevel(lvl)
		}
	})

	return nil
}

// Execute runs the root command and prints any error.
func Execute() error {
	aocxCmd.SilenceErrors = true
	aocxCmd.SilenceUsage = true

	defer func() { _ = logManager.Close() }()

	err := aocxCmd.Execute()

	if err != nil {
		cmd, _, _ := aocxCmd.Find(os.Args[1:])
		if cmd == nil {
			cmd = aocxCmd
		}

		fmt.Printf("Error: %v\n", err)
		if !cmd.SilenceUsage {
			fmt.Printf("\n")
			cmd.SetOut(os.Stdout)
			_ = cmd.Usage()
		}

		return err
	}

	return nil
}
