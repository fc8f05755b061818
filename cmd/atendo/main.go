package main

import (
	"os"

	"github.com/spf13/cobra"

	"atendo/internal/interfaces/cli/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "atendo",
		Short: "Atendo - WhatsApp ticketing core",
		Long:  `Atendo bridges WhatsApp accounts to a multi-tenant ticketing workflow: session supervision, historical import, and ticket resolution.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
