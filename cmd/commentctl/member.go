package main

import (
	"fmt"
	"time"

	"github.com/mx-space/comments/internal/modules/auth/user"
	"github.com/spf13/cobra"
)

func memberCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Manage members",
	}

	var dto user.CreateMemberDTO
	add := &cobra.Command{
		Use:   "add <username>",
		Short: "Register a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dto.Username = args[0]
			u, err := e.svc.Members.Create(cmd.Context(), &dto)
			if err != nil {
				return err
			}
			role := "member"
			if u.IsAdmin {
				role = "admin"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", role, u.Username, u.ID)
			return nil
		},
	}
	add.Flags().StringVar(&dto.Name, "name", "", "Display name (defaults to the username)")
	add.Flags().StringVar(&dto.Mail, "mail", "", "Email address")
	add.Flags().StringVar(&dto.URL, "url", "", "Website")
	add.Flags().BoolVar(&dto.IsAdmin, "admin", false, "Allow moderation and webhook administration")

	cmd.AddCommand(add)
	return cmd
}

func issueTokenCommand(e *env) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "issue-token <username>",
		Short: "Print a bearer token for a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, _, err := e.svc.Members.IssueToken(cmd.Context(), args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", user.DefaultTokenTTL, "Token lifetime")
	return cmd
}
