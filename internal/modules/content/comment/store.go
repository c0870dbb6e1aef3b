package comment

import (
	"context"
	"errors"
	"time"

	"github.com/mx-space/comments/internal/models"
	"github.com/mx-space/comments/internal/pkg/pagination"
	"github.com/mx-space/comments/internal/pkg/response"
	"gorm.io/gorm"
)

// CommentStore persists comments.
type CommentStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewCommentStore(db *gorm.DB) *CommentStore {
	return &CommentStore{db: db, now: time.Now}
}

func (s *CommentStore) published(ctx context.Context, source string, parent uint) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.CommentModel{}).
		Where("source = ? AND parent = ? AND published = ?", source, parent, true)
}

// CountPublished counts the visible comments of a thread.
func (s *CommentStore) CountPublished(ctx context.Context, source string, parent uint) (int64, error) {
	var total int64
	err := s.published(ctx, source, parent).Count(&total).Error
	return total, err
}

// ListPublished returns the visible comments of a thread ordered by date.
// limit 0 returns all of them.
func (s *CommentStore) ListPublished(ctx context.Context, source string, parent uint, descending bool, limit, offset int) ([]models.CommentModel, error) {
	order := "date ASC, created_at ASC"
	if descending {
		order = "date DESC, created_at DESC"
	}
	tx := s.published(ctx, source, parent).Preload("Author").Order(order)
	if limit > 0 {
		tx = tx.Limit(limit).Offset(offset)
	}
	var comments []models.CommentModel
	if err := tx.Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

func (s *CommentStore) Create(ctx context.Context, c *models.CommentModel) error {
	return s.db.WithContext(ctx).Create(c).Error
}

func (s *CommentStore) GetByID(ctx context.Context, id string) (*models.CommentModel, error) {
	var c models.CommentModel
	if err := s.db.WithContext(ctx).Preload("Author").First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// MarkNotified flips the notified flag. It reports false when another caller
// got there first.
func (s *CommentStore) MarkNotified(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.CommentModel{}).
		Where("id = ? AND notified = ?", id, false).
		Updates(map[string]interface{}{"notified": true, "tstamp": s.now().Unix()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Publish approves a pending comment and returns it. It reports false when
// the comment was already published.
func (s *CommentStore) Publish(ctx context.Context, id string) (*models.CommentModel, bool, error) {
	res := s.db.WithContext(ctx).Model(&models.CommentModel{}).
		Where("id = ? AND published = ?", id, false).
		Updates(map[string]interface{}{"published": true, "tstamp": s.now().Unix()})
	if res.Error != nil {
		return nil, false, res.Error
	}
	c, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if c == nil {
		return nil, false, ErrCommentNotFound
	}
	return c, res.RowsAffected == 1, nil
}

// SetReply stores the single reply of a back end user. An empty reply hides it.
func (s *CommentStore) SetReply(ctx context.Context, id, reply, authorID string) (*models.CommentModel, error) {
	var author interface{}
	if authorID != "" {
		author = authorID
	}
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrCommentNotFound
	}
	err = s.db.WithContext(ctx).Model(&models.CommentModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"add_reply": reply != "",
			"reply":     reply,
			"author_id": author,
			"tstamp":    s.now().Unix(),
		}).Error
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// ListPending returns comments awaiting moderation, newest first.
func (s *CommentStore) ListPending(ctx context.Context, q pagination.Query) ([]models.CommentModel, response.Pagination, error) {
	tx := s.db.WithContext(ctx).Model(&models.CommentModel{}).
		Where("published = ?", false).
		Order("date DESC, created_at DESC")

	var comments []models.CommentModel
	pag, err := pagination.Paginate(tx, q, &comments)
	return comments, pag, err
}
