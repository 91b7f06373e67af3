package main

import (
	"fmt"
	"os"

	"github.com/benvon/chore-tracker/cmd/chorectl/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:           "chorectl",
		Short:         "Administration tool for the chore tracker",
		Long:          "CLI tool for importing task lists, running sweeps, seeding members and issuing session tokens",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewNextDueCmd())
	rootCmd.AddCommand(commands.NewImportCmd())
	rootCmd.AddCommand(commands.NewSweepCmd())
	rootCmd.AddCommand(commands.NewTokenCmd())
	rootCmd.AddCommand(commands.NewSeedAdminCmd())
	rootCmd.AddCommand(commands.NewMigrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
