// Package optin issues and resolves double opt-in tokens. A token binds an
// email address to a set of related records and is confirmed when the owner
// follows the link mailed to them.
package optin

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/mx-space/comments/internal/models"
	"github.com/mx-space/comments/internal/pkg/mail"
	"gorm.io/gorm"
)

// DefaultValidity is how long an unconfirmed token can be confirmed.
const DefaultValidity = 24 * time.Hour

var (
	ErrInvalidPrefix    = errors.New("optin: prefix must be 1-6 lowercase letters or digits")
	ErrAlreadyConfirmed = errors.New("optin: token already confirmed")
	ErrExpired          = errors.New("optin: token expired")
)

var prefixPattern = regexp.MustCompile(`^[a-z0-9]{1,6}$`)

// Service stores tokens and mails them to their owner.
type Service struct {
	db       *gorm.DB
	mailer   mail.Mailer
	validity time.Duration
	now      func() time.Time
}

type Option func(*Service)

func WithValidity(d time.Duration) Option {
	return func(s *Service) { s.validity = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(db *gorm.DB, mailer mail.Mailer, opts ...Option) *Service {
	s := &Service{db: db, mailer: mailer, validity: DefaultValidity, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new token "<prefix>-<24 hex chars>" for email.
func (s *Service) Create(ctx context.Context, prefix, email string, related map[string][]string) (*Token, error) {
	if !prefixPattern.MatchString(prefix) {
		return nil, ErrInvalidPrefix
	}
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}

	now := s.now()
	m := &models.OptInTokenModel{
		Identifier: prefix + "-" + hex.EncodeToString(buf),
		Email:      email,
		Related:    related,
		CreatedOn:  now.Unix(),
		ValidUntil: now.Add(s.validity).Unix(),
	}
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, fmt.Errorf("create opt-in token: %w", err)
	}
	return &Token{svc: s, model: m}, nil
}

// Find returns the token with the given identifier, or nil if there is none.
func (s *Service) Find(ctx context.Context, identifier string) (*Token, error) {
	var m models.OptInTokenModel
	err := s.db.WithContext(ctx).Where("identifier = ?", identifier).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &Token{svc: s, model: &m}, nil
}

// PurgeExpired deletes unconfirmed tokens past their validity.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Unscoped().
		Where("confirmed_on = 0 AND valid_until < ?", s.now().Unix()).
		Delete(&models.OptInTokenModel{})
	return res.RowsAffected, res.Error
}

// Token is a stored opt-in token.
type Token struct {
	svc   *Service
	model *models.OptInTokenModel
}

func (t *Token) Identifier() string { return t.model.Identifier }
func (t *Token) Email() string      { return t.model.Email }

// RelatedRecords maps table names to record ids.
func (t *Token) RelatedRecords() map[string][]string { return t.model.Related }

// IsValid reports whether the token is still inside its validity window.
func (t *Token) IsValid() bool {
	return t.model.ValidUntil > t.svc.now().Unix()
}

func (t *Token) IsConfirmed() bool { return t.model.ConfirmedOn > 0 }

// Confirm marks the token confirmed.
func (t *Token) Confirm(ctx context.Context) error {
	if t.IsConfirmed() {
		return ErrAlreadyConfirmed
	}
	if !t.IsValid() {
		return ErrExpired
	}
	now := t.svc.now().Unix()
	res := t.svc.db.WithContext(ctx).Model(&models.OptInTokenModel{}).
		Where("id = ? AND confirmed_on = 0", t.model.ID).
		Update("confirmed_on", now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyConfirmed
	}
	t.model.ConfirmedOn = now
	return nil
}

// Send mails the token owner and keeps a copy of the text with the token.
func (t *Token) Send(ctx context.Context, subject, text string) error {
	if t.IsConfirmed() {
		return ErrAlreadyConfirmed
	}
	err := t.svc.db.WithContext(ctx).Model(t.model).Updates(map[string]interface{}{
		"email_subject": subject,
		"email_text":    text,
	}).Error
	if err != nil {
		return err
	}
	t.model.EmailSubject = subject
	t.model.EmailText = text
	return t.svc.mailer.Send(ctx, mail.Message{
		To:      []string{t.model.Email},
		Subject: subject,
		Text:    text,
	})
}
