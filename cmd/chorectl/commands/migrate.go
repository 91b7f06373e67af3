package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the migrate command
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, closeDB, err := openDatabase()
			if err != nil {
				return err
			}
			defer closeDB()

			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := db.Migrate(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
			return nil
		},
	}
}
