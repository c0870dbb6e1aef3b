package main

import (
	"fmt"
	"strings"

	"github.com/mx-space/comments/internal/modules/webhook"
	"github.com/spf13/cobra"
)

func webhookCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Manage webhooks",
	}

	var (
		events   []string
		secret   string
		disabled bool
	)
	add := &cobra.Command{
		Use:   "add <payload-url>",
		Short: "Register a webhook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enabled := !disabled
			w, err := e.svc.Webhooks.Create(cmd.Context(), &webhook.CreateWebhookDTO{
				PayloadURL: args[0],
				Events:     events,
				Enabled:    &enabled,
				Secret:     secret,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "created webhook %s for %s\n", w.ID, strings.Join(w.Events, ", "))
			fmt.Fprintf(out, "secret: %s\n", w.Secret)
			return nil
		},
	}
	add.Flags().StringSliceVar(&events, "events", []string{webhook.EventCommentCreate, webhook.EventCommentPublish}, "Events to deliver")
	add.Flags().StringVar(&secret, "secret", "", "Signing secret (random when empty)")
	add.Flags().BoolVar(&disabled, "disabled", false, "Create the webhook disabled")

	list := &cobra.Command{
		Use:   "list",
		Short: "List webhooks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			hooks, err := e.svc.Webhooks.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, w := range hooks {
				state := "enabled"
				if !w.Enabled {
					state = "disabled"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", w.ID, state, w.PayloadURL, strings.Join(w.Events, ","))
			}
			return nil
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}
