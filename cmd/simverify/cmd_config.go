package main

import (
	"fmt"

	"github.com/nvandessel/simverify/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Print the configuration simverify would use for a check, after applying
the config file, SIMVERIFY_* environment variables and command-line flags.

Configuration is read from ~/.simverify/config.yaml unless --config is given.

Examples:
  simverify config
  simverify config --json
  SIMVERIFY_THRESHOLD=0.9 simverify config`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.writeJSON(a.cfg)
			}

			data, err := yaml.Marshal(a.cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			if dir := config.StateDir(); dir != "" {
				fmt.Fprintf(a.stdout, "# state directory: %s\n", dir)
			}
			_, err = a.stdout.Write(data)
			return err
		},
	}
}
