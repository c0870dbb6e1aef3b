package comment

import (
	"context"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mx-space/comments/internal/models"
	"github.com/mx-space/comments/internal/pkg/pagination"
	"github.com/mx-space/comments/internal/pkg/response"
	"go.uber.org/zap"
)

// Moderator carries out back end actions on comments.
type Moderator struct {
	comments *CommentStore
	workflow *OptInWorkflow
	policy   *bluemonday.Policy
	hooks    []Hook
	logger   *zap.Logger
}

func NewModerator(comments *CommentStore, workflow *OptInWorkflow, logger *zap.Logger) *Moderator {
	return &Moderator{
		comments: comments,
		workflow: workflow,
		policy:   bluemonday.UGCPolicy(),
		logger:   logger.Named("CommentModerator"),
	}
}

// RegisterHook adds a listener run when a held comment is approved.
func (m *Moderator) RegisterHook(h Hook) {
	m.hooks = append(m.hooks, h)
}

// Approve publishes a comment and notifies the thread's subscribers unless
// that already happened.
func (m *Moderator) Approve(ctx context.Context, id string) (*models.CommentModel, error) {
	c, changed, err := m.comments.Publish(ctx, id)
	if err != nil {
		return nil, err
	}
	if changed {
		m.logger.Info("comment approved", zap.String("comment", id))
		for _, h := range m.hooks {
			if err := h.OnCommentAdded(ctx, c); err != nil {
				m.logger.Warn("approval hook failed", zap.String("comment", id), zap.Error(err))
			}
		}
	}
	if err := m.workflow.NotifySubscribers(ctx, c); err != nil {
		m.logger.Warn("failed to notify subscribers", zap.String("comment", id), zap.Error(err))
	}
	return c, nil
}

// Reply sets the answer of a back end user shown below the comment.
func (m *Moderator) Reply(ctx context.Context, id, reply, authorID string) (*models.CommentModel, error) {
	return m.comments.SetReply(ctx, id, m.policy.Sanitize(reply), authorID)
}

func (m *Moderator) Pending(ctx context.Context, q pagination.Query) ([]models.CommentModel, response.Pagination, error) {
	return m.comments.ListPending(ctx, q)
}
