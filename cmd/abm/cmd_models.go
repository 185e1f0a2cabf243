package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gridabm/pkg/core"
)

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models [name]",
		Short: "List registered models and their parameters",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := core.Models()
			if len(args) == 1 {
				names = []string{args[0]}
			}
			out := cmd.OutOrStdout()
			for _, name := range names {
				m, err := core.Build(name, nil, core.Options{})
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\n", name)
				for _, g := range m.Parameters().Groups {
					fmt.Fprintf(out, "  %s: %s\n", g.Name, g.Summary)
					for _, p := range g.Params {
						fmt.Fprintf(out, "    %-16s %-6s %-10s %s\n", p.Key, p.Type, p.Value, p.Description)
					}
				}
			}
			return nil
		},
	}
}
