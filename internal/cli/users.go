package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kavindurs8/studifynew-sub001/internal/models"
	"github.com/kavindurs8/studifynew-sub001/pkg/utils"
)

func NewCreateAdminCmd(deps *Dependencies) *cobra.Command {
	var email, name, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(password) < 8 {
				return fmt.Errorf("password must be at least 8 characters")
			}
			hash, err := utils.HashPassword(password)
			if err != nil {
				return fmt.Errorf("hashing password: %w", err)
			}
			u, err := deps.Users.Create(cmd.Context(), strings.ToLower(strings.TrimSpace(email)), hash, name, models.RoleAdmin, true)
			if err != nil {
				return fmt.Errorf("creating admin: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", u.Email, u.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
