// Package subcommands implements the make subcommands.
package subcommands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/aocxchange/internal/cmdutil"
	"github.com/leefowlercu/aocxchange/internal/config"
	"github.com/leefowlercu/aocxchange/internal/convert"
	"github.com/leefowlercu/aocxchange/internal/exchange"
	"github.com/leefowlercu/aocxchange/internal/workspace"
)

// build adds a primitive to the table from its positive dimensions.
type build func(t *workspace.Table, dims []float64) (workspace.ID, error)

// primitive returns the command for one primitive. Dimensions are positional
// arguments named by dims.
func primitive(name, short string, dims []string, fn build) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   name + " " + joinDims(dims),
		Short: short,
		Args:  cobra.ExactArgs(len(dims)),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return fmt.Errorf("--out is required")
			}
			if _, err := exchange.FormatForPath(out); err != nil {
				return err
			}
			if _, err := parseDims(dims, args); err != nil {
				return err
			}

			cmd.SilenceUsage = true
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseDims(dims, args)
			if err != nil {
				return err
			}
			path, err := cmdutil.ResolvePath(out)
			if err != nil {
				return fmt.Errorf("failed to resolve path; %w", err)
			}

			table := workspace.New()
			if _, err := fn(table, values); err != nil {
				return err
			}
			if err := table.Save(path, writerOptions()...); err != nil {
				return fmt.Errorf("failed to save %s; %w", name, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s to %s\n", name, path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (.step, .iges, .stl or .brep)")
	return cmd
}

func joinDims(dims []string) string {
	return "<" + strings.Join(dims, "> <") + ">"
}

func parseDims(dims, args []string) ([]float64, error) {
	values := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q; must be a number", dims[i], a)
		}
		if v <= 0 {
			return nil, fmt.Errorf("invalid %s %g; must be positive", dims[i], v)
		}
		values[i] = v
	}
	return values, nil
}

// writerOptions applies the configured writer settings.
func writerOptions() []exchange.Option {
	return convert.OptionsFromConfig(config.Get()).ExchangeOptions()
}

var (
	// BoxCmd builds an axis-aligned box with one corner at the origin.
	BoxCmd = newBoxCmd()

	// CylinderCmd builds a cylinder standing on the XY plane.
	CylinderCmd = newCylinderCmd()

	// SphereCmd builds a sphere centred on the origin.
	SphereCmd = newSphereCmd()
)

func newBoxCmd() *cobra.Command {
	return primitive("box", "Build a box", []string{"dx", "dy", "dz"},
		func(t *workspace.Table, d []float64) (workspace.ID, error) {
			return t.MakeBox(d[0], d[1], d[2])
		})
}

func newCylinderCmd() *cobra.Command {
	return primitive("cylinder", "Build a cylinder", []string{"radius", "height"},
		func(t *workspace.Table, d []float64) (workspace.ID, error) {
			return t.MakeCylinder(d[0], d[1])
		})
}

func newSphereCmd() *cobra.Command {
	return primitive("sphere", "Build a sphere", []string{"radius"},
		func(t *workspace.Table, d []float64) (workspace.ID, error) {
			return t.MakeSphere(d[0])
		})
}
