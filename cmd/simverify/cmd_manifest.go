package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newManifestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "manifest",
		Short: "Print the artifacts a check validates",
		Long: `Print the active manifest: the ordered list of result artifacts, the
validator category applied to each, and its display label.

The output is valid input for --manifest, so it can be used as a starting
point for a custom manifest:

  simverify manifest > manifest.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			m, err := a.loadManifest()
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.writeJSON(m)
			}

			data, err := yaml.Marshal(m)
			if err != nil {
				return fmt.Errorf("failed to marshal manifest: %w", err)
			}
			_, err = a.stdout.Write(data)
			return err
		},
	}
}
