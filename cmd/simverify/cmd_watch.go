package main

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/nvandessel/simverify/internal/clierr"
	"github.com/nvandessel/simverify/internal/constants"
	"github.com/nvandessel/simverify/internal/watch"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-validate whenever the results directory changes",
		Long: `Run a check, then run it again each time files in the results directory
are created, written or removed. Bursts of writes are coalesced using the
debounce window (watch.debounce, default 500ms). Stop with Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			if d, _ := cmd.Flags().GetDuration("debounce"); cmd.Flags().Changed("debounce") {
				a.cfg.Watch.Debounce = d
			}

			ctx := cmd.Context()
			if _, err := a.check(ctx); err != nil && ctx.Err() == nil {
				return err
			}

			w, err := watch.New(a.cfg.Results.Dir, watch.Options{
				Debounce:       a.cfg.Watch.Debounce,
				IgnorePatterns: a.watchIgnores(),
				Logger:         a.logger,
			})
			if err != nil {
				return err
			}

			a.logger.Info("watching results", "dir", w.Dir(), "debounce", a.cfg.Watch.Debounce)
			err = w.Run(ctx, func(ctx context.Context, changes []watch.Change) {
				if !a.jsonOut {
					fmt.Fprintf(a.stdout, "\nChange detected: %s\n\n", watch.Names(changes))
				}
				if _, err := a.check(ctx); err != nil && ctx.Err() == nil {
					// Keep watching: the next write may fix the directory.
					fmt.Fprintln(cmd.ErrOrStderr(), err)
				}
			})
			if err != nil {
				return err
			}
			return &clierr.Error{Err: ctx.Err(), Code: constants.ExitInterrupted}
		},
	}

	cmd.Flags().Duration("debounce", constants.DefaultWatchDebounce, "Quiet period before re-running (overrides config)")
	return cmd
}

// watchIgnores extends the default ignore list with outputs simverify itself
// writes into the results directory, so a run does not trigger the next one.
func (a *app) watchIgnores() []string {
	patterns := slices.Clone(watch.DefaultIgnorePatterns)
	if tf := a.cfg.Metrics.Textfile; tf != "" {
		dir, err1 := filepath.Abs(a.cfg.Results.Dir)
		file, err2 := filepath.Abs(tf)
		if err1 == nil && err2 == nil && filepath.Dir(file) == dir {
			// The textfile is written via a temp file named after it.
			patterns = append(patterns, filepath.Base(file)+"*")
		}
	}
	return patterns
}
