package watch

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/aocxchange/internal/cmdutil"
	"github.com/leefowlercu/aocxchange/internal/config"
	"github.com/leefowlercu/aocxchange/internal/metrics"
	"github.com/leefowlercu/aocxchange/internal/version"
	"github.com/leefowlercu/aocxchange/internal/watch"
)

// Flag variables
var (
	watchTo      string
	watchOutDir  string
	watchInclude []string
	watchOnce    bool
	watchMetrics string
)

// WatchCmd is the watch command.
var WatchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Convert CAD files as they change",
	Long: `Convert CAD files as they change.

The watch command converts every matching file under a directory to the
target format, then keeps watching the tree and converts each file again once
it has been quiet for watch.debounce_ms. Conversions are rate limited by
watch.rate_limit and watch.burst.

The content hash and outcome of every conversion are recorded in a ledger at
watch.ledger_path, so files that have not changed since the last run are
skipped, including across restarts. A file that failed to convert is not
retried until its content changes.

Send SIGHUP to reload the configuration; the log level and rate limit take
effect immediately. Use --once to convert what is present and exit.

With --metrics-addr, Prometheus metrics are served at /metrics on that
address while watching.`,
	Example: `  # Keep a STEP tree mirrored as STL
  aocx watch ./parts --to stl

  # Only IGES files, written to another directory
  aocx watch ./incoming --include "**/*.igs" --out-dir ./step

  # Convert what is there and exit
  aocx watch ./parts --once

  # Expose metrics for scraping
  aocx watch ./parts --metrics-addr 127.0.0.1:9464`,
	Args:    cobra.ExactArgs(1),
	PreRunE: validateWatch,
	RunE:    runWatch,
}

func init() {
	WatchCmd.Flags().StringVarP(&watchTo, "to", "t", "step", "Target format (step, iges, stl, brep)")
	WatchCmd.Flags().StringVar(&watchOutDir, "out-dir", "", "Output directory (default: <dir>/converted)")
	WatchCmd.Flags().StringSliceVar(&watchInclude, "include", nil, "Include patterns (default: watch.include)")
	WatchCmd.Flags().BoolVar(&watchOnce, "once", false, "Convert existing files and exit")
	WatchCmd.Flags().StringVar(&watchMetrics, "metrics-addr", "", "Serve Prometheus metrics on this address")
}

func validateWatch(cmd *cobra.Command, args []string) error {
	if _, err := cmdutil.ParseFormat(watchTo); err != nil {
		return err
	}

	cmd.SilenceUsage = true
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	dir, err := cmdutil.ResolvePath(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve path; %w", err)
	}
	format, err := cmdutil.ParseFormat(watchTo)
	if err != nil {
		return err
	}

	cfg, err := config.Current()
	if err != nil {
		return fmt.Errorf("invalid configuration; %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ledger, err := watch.OpenLedger(ctx, config.ExpandHome(cfg.Watch.LedgerPath))
	if err != nil {
		return err
	}
	defer func() { _ = ledger.Close() }()

	opts := []watch.Option{watch.WithFormat(format)}
	if watchOutDir != "" {
		outDir, err := cmdutil.ResolvePath(watchOutDir)
		if err != nil {
			return fmt.Errorf("failed to resolve path; %w", err)
		}
		opts = append(opts, watch.WithOutDir(outDir))
	}
	if len(watchInclude) > 0 {
		opts = append(opts, watch.WithInclude(watchInclude...))
	}

	svc, err := watch.NewFromConfig(dir, ledger, cfg, opts...)
	if err != nil {
		return err
	}

	if watchOnce {
		n, err := svc.Scan(ctx)
		printStats(cmd, svc)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Scanned %d files under %s\n", n, svc.Dir())
		return nil
	}

	metricsDone := make(chan struct{})
	if watchMetrics != "" {
		metrics.SetBuildInfo(version.Get().Short(), runtime.Version())
		go func() {
			defer close(metricsDone)
			if err := metrics.Serve(ctx, watchMetrics, slog.Default()); err != nil {
				slog.Warn("metrics server stopped", "error", err)
			}
		}()
	} else {
		close(metricsDone)
	}

	config.OnReload(func(c *config.Config) {
		svc.SetRate(c.Watch.RateLimit, c.Watch.Burst)
	})
	reloaded := config.ReloadOnSignal(ctx)

	fmt.Fprintf(out, "Watching %s, writing %s files to %s (Ctrl-C to stop)\n", svc.Dir(), format, svc.OutDir())
	err = svc.Run(ctx)
	stop()
	<-reloaded
	<-metricsDone

	printStats(cmd, svc)
	return err
}

func printStats(cmd *cobra.Command, svc *watch.Service) {
	st := svc.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "Converted %d, skipped %d, failed %d, forgotten %d\n",
		st.Converted, st.Skipped, st.Failed, st.Forgotten)
}
