package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/benvon/chore-tracker/internal/database"
	"github.com/benvon/chore-tracker/internal/services/session"
	"github.com/spf13/cobra"
)

// NewTokenCmd creates the token command
func NewTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token EMAIL",
		Short: "Issue a session token for a registered member",
		Long:  "Issue a bearer token for the member with the given email, signed with SESSION_SECRET and valid for SESSION_TTL.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, closeDB, err := openDatabase()
			if err != nil {
				return err
			}
			defer closeDB()

			if err := cfg.RequireSession(); err != nil {
				return err
			}
			manager, err := session.NewManager(cfg.SessionSecret, cfg.SessionTTL)
			if err != nil {
				return fmt.Errorf("failed to create session manager: %w", err)
			}

			member, err := database.NewMemberRepository(db).GetByEmail(context.Background(), args[0])
			if errors.Is(err, database.ErrNotFound) {
				return fmt.Errorf("no member registered with email %s", args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to look up member: %w", err)
			}

			token, err := manager.Issue(member)
			if err != nil {
				return fmt.Errorf("failed to issue token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	return cmd
}
