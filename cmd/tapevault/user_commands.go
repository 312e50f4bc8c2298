package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"tapevault/internal/auth"
	"tapevault/internal/catalog"
)

func newUserCommand(ctx *commandContext) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage gallery accounts",
	}

	userCmd.AddCommand(newUserAddCommand(ctx))

	return userCmd
}

func newUserAddCommand(ctx *commandContext) *cobra.Command {
	var (
		usernameFlag string
		passwordFlag string
		emailFlag    string
		roleFlag     string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a gallery account",
		RunE: func(cmd *cobra.Command, args []string) error {
			role := strings.ToUpper(strings.TrimSpace(roleFlag))
			switch role {
			case catalog.RoleAdmin, catalog.RoleMember, catalog.RoleGuest:
			default:
				return fmt.Errorf("role must be ADMIN, MEMBER, or GUEST, got %q", roleFlag)
			}

			hash, err := auth.HashPassword(passwordFlag)
			if err != nil {
				return err
			}

			p, err := ctx.openPipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer p.close()

			user := &catalog.User{
				ID:           uuid.NewString(),
				Username:     usernameFlag,
				Email:        emailFlag,
				PasswordHash: hash,
				Role:         role,
				IsActive:     true,
			}
			if err := p.store.CreateUser(cmd.Context(), user); err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), statusSuccess,
				fmt.Sprintf("created %s user %s (%s)", role, user.Username, user.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&usernameFlag, "username", "", "Account username")
	cmd.Flags().StringVar(&passwordFlag, "password", "", "Account password")
	cmd.Flags().StringVar(&emailFlag, "email", "", "Account email")
	cmd.Flags().StringVar(&roleFlag, "role", catalog.RoleMember, "Account role: ADMIN, MEMBER, or GUEST")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
