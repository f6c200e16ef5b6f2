// Package primitives provides the make parent command, which builds
// primitive solids and writes them to a file.
package primitives

import (
	"github.com/spf13/cobra"

	"github.com/leefowlercu/aocxchange/cmd/primitives/subcommands"
)

// MakeCmd is the parent command for the primitive builders.
var MakeCmd = &cobra.Command{
	Use:   "make",
	Short: "Build a primitive solid",
	Long: "Build a primitive solid and write it to a file.\n\n" +
		"The output format follows the extension of --out. STEP output carries the " +
		"default part colour and the part name as its layer. Dimensions are " +
		"positional; put them after -- when one starts with a minus sign.",
	Example: `  # A 10 x 20 x 5 box as STEP
  aocx make box 10 20 5 --out plate.step

  # A cylinder of radius 2 and height 8 as binary STL
  aocx make cylinder 2 8 -o pin.stl

  # Arguments after -- are never read as flags
  aocx make sphere -o ball.brep -- 3`,
}

func init() {
	MakeCmd.AddCommand(subcommands.BoxCmd)
	MakeCmd.AddCommand(subcommands.CylinderCmd)
	MakeCmd.AddCommand(subcommands.SphereCmd)
}
