package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSourcesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List available metadata sources and the resolved primary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			registry, err := ctx.buildRegistry()
			if err != nil {
				return err
			}

			resolved, err := registry.ResolveSources(cfg.Sources.Enabled)
			if err != nil {
				return err
			}
			primary := registry.PickPrimary(resolved, cfg.Sources.Primary)

			rows := make([][]string, 0, len(registry.Names()))
			for _, name := range registry.Names() {
				enabled := "no"
				for _, provider := range resolved {
					if provider.Name() == name {
						enabled = "yes"
					}
				}
				primaryMark := ""
				if primary != nil && primary.Name() == name {
					primaryMark = "yes"
				}
				rows = append(rows, []string{name, enabled, primaryMark})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Source", "Enabled", "Primary"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft}))
			return nil
		},
	}
}
