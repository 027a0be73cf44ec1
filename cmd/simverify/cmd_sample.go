package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvandessel/simverify/internal/integrity"
	"github.com/nvandessel/simverify/internal/simulation"
	"github.com/spf13/cobra"
)

func newSampleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample <dir>",
		Short: "Write a passing results directory",
		Long: `Write a complete set of simulator result reports that passes every
validator. Useful as a smoke test for CI pipelines and for trying out
configuration such as integrity checks.

Examples:
  simverify sample /tmp/results
  simverify sample /tmp/results --checksums SHA256SUMS
  simverify check --results-dir /tmp/results`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			checksums, _ := cmd.Flags().GetString("checksums")
			dir := args[0]
			out := cmd.OutOrStdout()

			sc := simulation.DefaultScenario()
			if err := sc.WriteTo(dir); err != nil {
				return fmt.Errorf("failed to write sample results: %w", err)
			}

			if checksums != "" {
				var buf bytes.Buffer
				if err := integrity.WriteChecksums(dir, sc.Names(), &buf); err != nil {
					return fmt.Errorf("failed to compute checksums: %w", err)
				}
				path := checksums
				if !filepath.IsAbs(path) {
					path = filepath.Join(dir, path)
				}
				if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
					return fmt.Errorf("failed to write checksums: %w", err)
				}
			}

			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]any{
					"dir":       dir,
					"artifacts": sc.Names(),
					"checksums": checksums,
				})
			}
			fmt.Fprintf(out, "Wrote %d result files to %s\n", len(sc.Artifacts), dir)
			if checksums != "" {
				fmt.Fprintf(out, "Checksums: %s\n", checksums)
			}
			return nil
		},
	}

	cmd.Flags().String("checksums", "", "Also write a SHA-256 checksum file with this name")
	return cmd
}
