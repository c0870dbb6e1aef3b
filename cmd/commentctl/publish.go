package main

import (
	"errors"
	"fmt"

	"github.com/mx-space/comments/internal/modules/content/comment"
	"github.com/spf13/cobra"
)

func publishCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <comment-id>...",
		Short: "Approve held comments and notify the thread's subscribers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var errs []error
			for _, id := range args {
				c, err := e.svc.Moderator.Approve(cmd.Context(), id)
				if errors.Is(err, comment.ErrCommentNotFound) {
					errs = append(errs, fmt.Errorf("comment %s not found", id))
					continue
				}
				if err != nil {
					errs = append(errs, fmt.Errorf("publish %s: %w", id, err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "published %s (%s/%d)\n", c.ID, c.Source, c.Parent)
			}
			return errors.Join(errs...)
		},
	}
}
