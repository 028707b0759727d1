package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/esxistate/esxistate/internal/plugin"
	"github.com/esxistate/esxistate/internal/plugins"
)

func newPluginsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List the available step types",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := plugin.NewRegistry()
			// Listing metadata needs no live connection.
			if err := plugins.RegisterDefaults(registry, nil); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-20s %-10s %s\n", "Type", "Version", "Description")
			for _, stepType := range registry.Types() {
				p, err := registry.Get(stepType)
				if err != nil {
					return err
				}
				meta := p.PluginMetadata()
				fmt.Fprintf(out, "%-20s %-10s %s\n", stepType, meta.Version, meta.Description)
			}
			return nil
		},
	}
}
