package comment

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/mx-space/comments/internal/models"
	"gorm.io/gorm"
)

// SubscriptionStore persists notification subscriptions.
type SubscriptionStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSubscriptionStore(db *gorm.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db, now: time.Now}
}

func (s *SubscriptionStore) first(ctx context.Context, query string, args ...interface{}) (*models.SubscriptionModel, error) {
	var sub models.SubscriptionModel
	if err := s.db.WithContext(ctx).Where(query, args...).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (s *SubscriptionStore) FindByKey(ctx context.Context, source string, parent uint, email string) (*models.SubscriptionModel, error) {
	return s.first(ctx, "source = ? AND parent = ? AND email = ?", source, parent, email)
}

func (s *SubscriptionStore) FindByRemovalToken(ctx context.Context, token string) (*models.SubscriptionModel, error) {
	if !strings.HasPrefix(token, removalPrefix) {
		return nil, nil
	}
	return s.first(ctx, "token_remove = ?", token)
}

func (s *SubscriptionStore) FindByID(ctx context.Context, id string) (*models.SubscriptionModel, error) {
	return s.first(ctx, "id = ?", id)
}

// FindActive lists confirmed subscriptions of a thread.
func (s *SubscriptionStore) FindActive(ctx context.Context, source string, parent uint) ([]models.SubscriptionModel, error) {
	var subs []models.SubscriptionModel
	err := s.db.WithContext(ctx).
		Where("source = ? AND parent = ? AND active = ?", source, parent, true).
		Order("added_on ASC").
		Find(&subs).Error
	return subs, err
}

// FindExpiredUnconfirmed lists unconfirmed subscriptions added more than
// olderThan ago.
func (s *SubscriptionStore) FindExpiredUnconfirmed(ctx context.Context, olderThan time.Duration) ([]models.SubscriptionModel, error) {
	cutoff := s.now().Add(-olderThan).Unix()
	var subs []models.SubscriptionModel
	err := s.db.WithContext(ctx).
		Where("active = ? AND added_on < ?", false, cutoff).
		Find(&subs).Error
	return subs, err
}

// Create stores sub, filling in its removal token and added date.
func (s *SubscriptionStore) Create(ctx context.Context, sub *models.SubscriptionModel) error {
	if sub.TokenRemove == "" {
		token, err := newRemovalToken()
		if err != nil {
			return err
		}
		sub.TokenRemove = token
	}
	if sub.AddedOn == 0 {
		sub.AddedOn = s.now().Unix()
	}
	return s.db.WithContext(ctx).Create(sub).Error
}

func (s *SubscriptionStore) Save(ctx context.Context, sub *models.SubscriptionModel) error {
	return s.db.WithContext(ctx).Save(sub).Error
}

// Delete removes the row so the address can subscribe to the thread again.
func (s *SubscriptionStore) Delete(ctx context.Context, sub *models.SubscriptionModel) error {
	return s.db.WithContext(ctx).Unscoped().Delete(sub).Error
}

// newRemovalToken returns "cor-" followed by 20 hex characters.
func newRemovalToken() (string, error) {
	buf := make([]byte, 10)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return removalPrefix + hex.EncodeToString(buf), nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "Duplicate entry")
}
