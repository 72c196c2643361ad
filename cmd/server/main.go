package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "swim24",
		Short:        "Live lap counting backend for 24h relay swims",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (defaults to $SWIM24_CONFIG)")

	cmd.AddCommand(serveCmd(&configPath), migrateCmd(&configPath))
	return cmd
}
