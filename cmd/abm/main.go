package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "gridabm/internal/sims/schelling"
	_ "gridabm/internal/sims/wealth"
	_ "gridabm/internal/sims/wolfsheep"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "abm",
		Short: "Grid agent-based simulation runner",
		Long: `abm runs agent-based models on a 2D grid: Schelling segregation,
random wealth exchange and wolf-sheep predation.

Runs are reproducible from their seed. Results go to a SQLite store and
Arrow IPC files; abm serve streams a live run to websocket clients.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Run file (YAML)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: error, warn, info, debug, trace")

	rootCmd.AddCommand(
		newVersionCmd(),
		newModelsCmd(),
		newRunCmd(),
		newSweepCmd(),
		newServeCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "abm version %s\n", version)
		},
	}
}
