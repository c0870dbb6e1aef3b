package comment

import (
	"context"

	"github.com/mx-space/comments/internal/models"
)

// Hook is notified after a comment has been stored.
type Hook interface {
	OnCommentAdded(ctx context.Context, comment *models.CommentModel) error
}

// HookFunc adapts a function to Hook.
type HookFunc func(ctx context.Context, comment *models.CommentModel) error

func (f HookFunc) OnCommentAdded(ctx context.Context, comment *models.CommentModel) error {
	return f(ctx, comment)
}
