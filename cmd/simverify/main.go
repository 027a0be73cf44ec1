package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/nvandessel/simverify/internal/clierr"
	"github.com/nvandessel/simverify/internal/constants"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit status. Panics are
// recovered here and reported as a diagnostic with exit status 1.
func run(args []string, stdout, stderr io.Writer) (code int) {
	defer func() {
		if p := recover(); p != nil {
			fmt.Fprintln(stderr, clierr.NewCrash(p))
			code = constants.ExitFailure
		}
	}()

	ctx, stop := signalContext()
	defer stop()

	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !isSilent(err) {
		fmt.Fprintln(stderr, err)
	}
	return clierr.ExitCode(err)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "simverify",
		Short: "Validate memory simulator test results",
		Long: `simverify checks the result reports written by the memory management
simulator's test suite and prints a per-test verdict and a tiered summary.

Reports are read from a results directory (default ./results). A run
succeeds when every test passes, or when at least the configured threshold
(default 70%) of tests pass.

Run without a subcommand, simverify behaves like "simverify check".`,
		Args:          cobra.NoArgs,
		RunE:          runCheck,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.simverify/config.yaml)")
	rootCmd.PersistentFlags().String("results-dir", "", "Results directory (overrides config)")
	rootCmd.PersistentFlags().Float64("threshold", 0, "Partial-success pass rate in (0,1] (overrides config)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug, trace (overrides config)")
	rootCmd.PersistentFlags().String("color", "", "Colour output: auto, always, never (overrides config)")
	rootCmd.PersistentFlags().String("manifest", "", "YAML manifest file (overrides config)")

	rootCmd.AddCommand(
		newCheckCmd(),
		newWatchCmd(),
		newHistoryCmd(),
		newManifestCmd(),
		newSampleCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

// signalContext returns a context cancelled on SIGINT (and SIGTERM where
// available).
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	notifySignals(sigCh)

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// isSilent reports whether err only carries an exit status; the command has
// already printed everything the user needs.
func isSilent(err error) bool {
	var ce *clierr.Error
	return errors.As(err, &ce) && ce.Message == ""
}
