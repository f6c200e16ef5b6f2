package info

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/aocxchange/internal/cmdutil"
	"github.com/leefowlercu/aocxchange/internal/exchange"
	"github.com/leefowlercu/aocxchange/internal/kernel/reference"
	"github.com/leefowlercu/aocxchange/internal/report"
	"github.com/leefowlercu/aocxchange/internal/report/formatters"
)

// Flag variables
var (
	infoFormat string
	infoOutput string
)

// InfoCmd is the info command.
var InfoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Report the topology of a CAD file",
	Long: `Report the topology of a CAD file.

The info command imports a STEP, IGES, STL or BREP file and prints one entry
per root shape: its type, solid, shell, face, wire, edge and vertex counts, its
bounding box and, for STEP files, its colour and layer.

Available formats:
  text  - Styled terminal output (default)
  json  - Indented JSON
  yaml  - YAML document
  toml  - TOML document
  xml   - XML document`,
	Example: `  # Summarize a STEP file
  aocx info bracket.step

  # Write a JSON summary to a file
  aocx info bracket.step --format json --output bracket.json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: validateInfo,
	RunE:    runInfo,
}

func init() {
	InfoCmd.Flags().StringVarP(&infoFormat, "format", "f", "text", "Output format (text, json, yaml, toml, xml)")
	InfoCmd.Flags().StringVarP(&infoOutput, "output", "o", "", "Output file (default: stdout)")
}

func validateInfo(cmd *cobra.Command, args []string) error {
	if _, err := formatters.NewRegistry().Get(infoFormat); err != nil {
		return err
	}

	cmd.SilenceUsage = true
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	path, err := cmdutil.ResolvePath(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve path; %w", err)
	}

	k := reference.New()
	im, err := exchange.Open(path, exchange.WithKernel(k))
	if err != nil {
		return fmt.Errorf("failed to import %s; %w", args[0], err)
	}

	r, err := report.Build(im, k.Builder())
	if err != nil {
		return err
	}

	f, err := formatters.NewRegistry().Get(infoFormat)
	if err != nil {
		return err
	}
	output, err := f.Format(r)
	if err != nil {
		return fmt.Errorf("failed to format report; %w", err)
	}

	if infoOutput != "" {
		if err := os.WriteFile(infoOutput, output, 0644); err != nil {
			return fmt.Errorf("failed to write output file; %w", err)
		}
		return nil
	}

	_, err = cmd.OutOrStdout().Write(output)
	return err
}
