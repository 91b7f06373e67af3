package commands

import (
	"context"
	"fmt"

	"github.com/benvon/chore-tracker/internal/database"
	"github.com/spf13/cobra"
)

// NewSeedAdminCmd creates the seed-admin command
func NewSeedAdminCmd() *cobra.Command {
	var email, name string

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the first registered member",
		Long: "Create a registered member when the household has none yet. Defaults to " +
			"ADMIN_EMAIL and ADMIN_NAME; does nothing once any member can sign in.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, closeDB, err := openDatabase()
			if err != nil {
				return err
			}
			defer closeDB()

			if email == "" {
				email = cfg.AdminEmail
			}
			if name == "" {
				name = cfg.AdminName
			}
			if email == "" {
				return fmt.Errorf("--email or ADMIN_EMAIL is required")
			}

			admin, err := database.EnsureAdmin(context.Background(), database.NewMemberRepository(db), email, name)
			if err != nil {
				return err
			}
			if admin == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "A registered member already exists; nothing to do")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created member %s <%s> (%s)\n", admin.Name, *admin.Email, admin.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email of the member (default: ADMIN_EMAIL)")
	cmd.Flags().StringVar(&name, "name", "", "Display name (default: ADMIN_NAME)")

	return cmd
}
