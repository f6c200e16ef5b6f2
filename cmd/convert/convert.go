package convert

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/aocxchange/internal/cmdutil"
	"github.com/leefowlercu/aocxchange/internal/config"
	"github.com/leefowlercu/aocxchange/internal/convert"
)

// Flag variables
var (
	convertTo          string
	convertOut         string
	convertOutDir      string
	convertJobs        int
	convertSchema      string
	convertTolerance   float64
	convertIGESVersion string
	convertASCII       bool
)

// ConvertCmd is the convert command.
var ConvertCmd = &cobra.Command{
	Use:   "convert <src>...",
	Short: "Convert CAD files between formats",
	Long: `Convert CAD files between formats.

The convert command imports each source file and exports its shapes in the
target format. With --out a single source is written to the named file, whose
extension selects the format. Otherwise --to selects the format and every
source is written next to itself, or into --out-dir, under the same base name.

Sources may be doublestar patterns such as "parts/**/*.stp". Files are
converted in parallel, up to --jobs at a time. A failure on one file does not
stop the others.

Writer settings default to the step, iges and stl sections of the
configuration; the flags override them for one run.`,
	Example: `  # Convert one file
  aocx convert bracket.step --out bracket.stl

  # Convert a tree of STEP files to IGES 5.3
  aocx convert "parts/**/*.stp" --to iges --iges-version 5.3 --out-dir exports

  # Write AP203 STEP from an STL mesh
  aocx convert scan.stl --to step --schema AP203`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: validateConvert,
	RunE:    runConvert,
}

func init() {
	ConvertCmd.Flags().StringVarP(&convertTo, "to", "t", "", "Target format (step, iges, stl, brep)")
	ConvertCmd.Flags().StringVarP(&convertOut, "out", "o", "", "Output file for a single source")
	ConvertCmd.Flags().StringVar(&convertOutDir, "out-dir", "", "Output directory (default: next to each source)")
	ConvertCmd.Flags().IntVarP(&convertJobs, "jobs", "j", 0, "Parallel conversions (default: convert.jobs)")
	ConvertCmd.Flags().StringVar(&convertSchema, "schema", "", "STEP schema (AP203, AP214CD)")
	ConvertCmd.Flags().Float64Var(&convertTolerance, "tolerance", 0, "STEP uncertainty")
	ConvertCmd.Flags().StringVar(&convertIGESVersion, "iges-version", "", "IGES version (5.1, 5.3)")
	ConvertCmd.Flags().BoolVar(&convertASCII, "ascii", false, "Write ASCII STL instead of binary")
}

func validateConvert(cmd *cobra.Command, args []string) error {
	if convertOut == "" && convertTo == "" {
		return fmt.Errorf("one of --to or --out is required")
	}
	if convertOut != "" {
		if len(args) != 1 {
			return fmt.Errorf("--out takes exactly one source, got %d", len(args))
		}
		if convertOutDir != "" {
			return fmt.Errorf("--out and --out-dir are mutually exclusive")
		}
	}
	if convertTo != "" {
		if _, err := cmdutil.ParseFormat(convertTo); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("jobs") && convertJobs < 1 {
		return fmt.Errorf("--jobs must be at least 1, got %d", convertJobs)
	}

	cmd.SilenceUsage = true
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	opts := options(cmd)

	if convertOut != "" {
		src, err := cmdutil.ResolvePath(args[0])
		if err != nil {
			return fmt.Errorf("failed to resolve path; %w", err)
		}
		dst, err := cmdutil.ResolvePath(convertOut)
		if err != nil {
			return fmt.Errorf("failed to resolve path; %w", err)
		}
		res, err := convert.File(cmd.Context(), src, dst, opts)
		if err != nil {
			return err
		}
		printResult(cmd, res)
		return nil
	}

	f, err := cmdutil.ParseFormat(convertTo)
	if err != nil {
		return err
	}
	srcs, err := cmdutil.ExpandArgs(args)
	if err != nil {
		return err
	}
	outDir, err := cmdutil.ResolvePath(convertOutDir)
	if err != nil {
		return fmt.Errorf("failed to resolve path; %w", err)
	}
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory; %w", err)
		}
	}

	jobs := make([]convert.Job, len(srcs))
	for i, src := range srcs {
		jobs[i] = convert.Job{Src: src, Dst: convert.Destination(src, outDir, f)}
	}

	start := time.Now()
	results, batchErr := convert.Batch(cmd.Context(), jobs, jobLimit(cmd), opts)
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			if errors.Is(res.Err, cmd.Context().Err()) {
				continue
			}
			fmt.Fprintf(out, "FAIL %s: %v\n", res.Src, res.Err)
			continue
		}
		printResult(cmd, res)
	}
	fmt.Fprintf(out, "\nConverted %d of %d files to %s in %v\n",
		len(results)-failed, len(results), f, time.Since(start).Round(time.Millisecond))

	if batchErr != nil {
		return fmt.Errorf("%d conversions failed", failed)
	}
	return nil
}

// options starts from the configured writer settings and applies the flags
// given on the command line.
func options(cmd *cobra.Command) convert.Options {
	opts := convert.OptionsFromConfig(config.Get())
	flags := cmd.Flags()
	if flags.Changed("schema") {
		opts.Schema = convertSchema
	}
	if flags.Changed("tolerance") {
		opts.Tolerance = convertTolerance
	}
	if flags.Changed("iges-version") {
		opts.IGESVersion = convertIGESVersion
	}
	if flags.Changed("ascii") {
		opts.ASCII = convertASCII
	}
	return opts
}

func jobLimit(cmd *cobra.Command) int {
	if cmd.Flags().Changed("jobs") {
		return convertJobs
	}
	if n := config.GetInt("convert.jobs"); n > 0 {
		return n
	}
	return convert.DefaultJobs
}

func printResult(cmd *cobra.Command, res convert.Result) {
	noun := "shapes"
	if res.Shapes == 1 {
		noun = "shape"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%d %s, %s, %v)\n",
		res.Src, res.Dst, res.Shapes, noun, res.Format, res.Duration.Round(time.Millisecond))
}
