package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func purgeCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "purge-subscriptions",
		Aliases: []string{"purge"},
		Short:   "Delete unconfirmed subscriptions older than a day and expired opt-in tokens",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			subs, err := e.svc.Workflow.PurgeExpired(ctx)
			if err != nil {
				return err
			}
			tokens, err := e.svc.Tokens.PurgeExpired(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d subscriptions, %d opt-in tokens\n", subs, tokens)
			return nil
		},
	}
}
