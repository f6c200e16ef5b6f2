package run

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/aocxchange/internal/cmdutil"
	"github.com/leefowlercu/aocxchange/internal/recipe"
	"github.com/leefowlercu/aocxchange/internal/workspace"
)

// Flag variables
var (
	runBaseDir string
)

// RunCmd is the run command.
var RunCmd = &cobra.Command{
	Use:   "run <recipe.yaml>",
	Short: "Run a modelling recipe",
	Long: `Run a modelling recipe.

A recipe is a YAML file holding a map of vars and a list of steps. Each step
builds, imports, moves, styles or exports parts in a workspace, the way toolbar
actions drive an interactive modeller. Numeric fields take numbers or
expressions over the vars and the names given to earlier steps.

Relative import and export paths resolve against the directory of the recipe
unless --base-dir is given. The run stops at the first failing step.`,
	Example: `  # Build and export the parts described in bracket.yaml
  aocx run bracket.yaml

  # Resolve paths against another directory
  aocx run recipes/bracket.yaml --base-dir build`,
	Args:    cobra.ExactArgs(1),
	PreRunE: validateRun,
	RunE:    runRun,
}

func init() {
	RunCmd.Flags().StringVar(&runBaseDir, "base-dir", "", "Directory for relative paths (default: the recipe's directory)")
}

func validateRun(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	return nil
}

func runRun(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	path, err := cmdutil.ResolvePath(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve path; %w", err)
	}
	rec, err := recipe.Load(path)
	if err != nil {
		return err
	}

	baseDir := filepath.Dir(path)
	if runBaseDir != "" {
		if baseDir, err = cmdutil.ResolvePath(runBaseDir); err != nil {
			return fmt.Errorf("failed to resolve path; %w", err)
		}
	}

	table := workspace.New()
	res, err := recipe.NewRunner(table, recipe.WithBaseDir(baseDir)).Run(cmd.Context(), rec)
	if err != nil {
		return fmt.Errorf("recipe %s failed; %w", filepath.Base(path), err)
	}

	name := rec.Name
	if name == "" {
		name = filepath.Base(path)
	}
	fmt.Fprintf(out, "Ran %s: %d steps, %d records\n", name, len(rec.Steps), table.Len())

	names := make([]string, 0, len(res.Names))
	for n := range res.Names {
		names = append(names, n)
	}
	slices.Sort(names)
	for _, n := range names {
		fmt.Fprintf(out, "  %-12s #%d\n", n, res.Names[n])
	}
	for _, p := range res.Exports {
		fmt.Fprintf(out, "Exported %s\n", p)
	}
	return nil
}
