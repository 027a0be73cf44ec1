package main

import (
	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the results directory once",
		Long: `Validate every artifact in the manifest against the results directory.

Exit status is 0 when all tests pass or the pass rate reaches the threshold,
1 when it does not or the results directory is missing, and 130 when
interrupted.

Examples:
  simverify check
  simverify check --results-dir build/results --threshold 0.9
  simverify check --json`,
		Args: cobra.NoArgs,
		RunE: runCheck,
	}
}

// runCheck runs one validation and maps its outcome to the exit status. It
// backs both "check" and the bare root command.
func runCheck(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}

	s, err := a.check(cmd.Context())
	if err != nil && !s.Interrupted {
		return err
	}
	return exitStatus(s, err)
}
