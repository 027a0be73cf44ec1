package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/nvandessel/simverify/internal/clierr"
	"github.com/nvandessel/simverify/internal/store"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded validation runs",
		Long: `List validation runs recorded in the run history, newest first.

Runs are recorded when history.enabled is true (or SIMVERIFY_HISTORY=true).
The database lives at ~/.simverify/history.db unless history.dir is set.
When history.max_runs or history.max_age is set, older runs are pruned after
each check, or on demand with --prune.

Examples:
  simverify history
  simverify history --limit 5 --json
  simverify history --run 3f0c9a1e-...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			runID, _ := cmd.Flags().GetString("run")
			prune, _ := cmd.Flags().GetBool("prune")

			dir := a.cfg.HistoryDir()
			if dir == "" {
				return &clierr.Error{
					Message:    "Error: Run history directory could not be determined",
					Suggestion: "Set history.dir in the config file.",
				}
			}
			hs, err := store.NewHistoryStore(dir)
			if err != nil {
				return fmt.Errorf("failed to open run history: %w", err)
			}
			defer hs.Close()

			ctx := cmd.Context()
			if prune {
				return pruneHistory(ctx, a, hs)
			}
			if runID != "" {
				run, err := hs.GetRun(ctx, runID)
				if errors.Is(err, store.ErrRunNotFound) {
					return &clierr.Error{
						Err:        err,
						Message:    fmt.Sprintf("Error: No recorded run with ID %s", runID),
						Suggestion: "Run 'simverify history' to list recorded runs.",
					}
				}
				if err != nil {
					return err
				}
				if a.jsonOut {
					return a.writeJSON(run)
				}
				printRun(a.stdout, run)
				return nil
			}

			runs, err := hs.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.writeJSON(map[string]any{
					"runs":        runs,
					"total_count": len(runs),
					"database":    hs.Path(),
				})
			}
			if len(runs) == 0 {
				fmt.Fprintf(a.stdout, "No runs recorded in %s\n", hs.Path())
				return nil
			}
			printRuns(a.stdout, runs)
			return nil
		},
	}

	cmd.Flags().Int("limit", 20, "Maximum number of runs to list (0 for all)")
	cmd.Flags().String("run", "", "Show the verdicts of one run")
	cmd.Flags().Bool("prune", false, "Delete runs outside history.max_runs / history.max_age")
	return cmd
}

func pruneHistory(ctx context.Context, a *app, hs *store.HistoryStore) error {
	policy := a.retention()
	if policy == nil {
		return &clierr.Error{
			Message:    "Error: No retention limits configured",
			Suggestion: "Set history.max_runs or history.max_age in the config file.",
		}
	}
	deleted, err := hs.Prune(ctx, policy)
	if err != nil {
		return fmt.Errorf("failed to prune run history: %w", err)
	}
	if a.jsonOut {
		return a.writeJSON(map[string]any{
			"deleted":       deleted,
			"deleted_count": len(deleted),
		})
	}
	fmt.Fprintf(a.stdout, "Pruned %d runs from %s\n", len(deleted), hs.Path())
	return nil
}

func printRuns(w io.Writer, runs []store.RunRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tSTARTED\tPASSED\tTIER\tRESULTS DIR")
	for _, r := range runs {
		tier := r.Tier
		if r.Interrupted {
			tier += " (interrupted)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\t%s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Passed, r.Total, tier, r.ResultsDir)
	}
	tw.Flush()
}

func printRun(w io.Writer, r store.RunRecord) {
	fmt.Fprintf(w, "Run %s\n", r.ID)
	fmt.Fprintf(w, "  Started:     %s\n", r.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  Duration:    %s\n", r.Duration)
	fmt.Fprintf(w, "  Results dir: %s\n", r.ResultsDir)
	fmt.Fprintf(w, "  Passed:      %d/%d (threshold %.0f%%)\n", r.Passed, r.Total, r.Threshold*100)
	fmt.Fprintf(w, "  Tier:        %s\n", r.Tier)
	if r.Interrupted {
		fmt.Fprintln(w, "  Interrupted: yes")
	}
	fmt.Fprintln(w)

	for _, v := range r.Verdicts {
		icon := "✗"
		if v.Success {
			icon = "✓"
		}
		fmt.Fprintf(w, "%s %s: %s\n", icon, v.Label, v.Message)
	}
}
