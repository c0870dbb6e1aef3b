package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mx-space/comments/internal/models"
	"github.com/mx-space/comments/internal/pkg/jwt"
	"gorm.io/gorm"
)

// DefaultTokenTTL is the lifetime of an issued member token.
const DefaultTokenTTL = 30 * 24 * time.Hour

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) first(ctx context.Context, query string, args ...interface{}) (*models.UserModel, error) {
	var u models.UserModel
	if err := s.db.WithContext(ctx).Where(query, args...).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.UserModel, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*models.UserModel, error) {
	return s.first(ctx, "username = ?", strings.TrimSpace(username))
}

// Create registers a member. The display name defaults to the username.
func (s *Service) Create(ctx context.Context, dto *CreateMemberDTO) (*models.UserModel, error) {
	name := strings.TrimSpace(dto.Name)
	if name == "" {
		name = dto.Username
	}
	u := models.UserModel{
		Username: strings.TrimSpace(dto.Username),
		Name:     name,
		Mail:     strings.TrimSpace(dto.Mail),
		URL:      strings.TrimSpace(dto.URL),
		IsAdmin:  dto.IsAdmin,
	}
	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return &u, nil
}

func (s *Service) UpdateProfile(ctx context.Context, id string, dto *UpdateMemberDTO) (*models.UserModel, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil || u == nil {
		return u, err
	}
	updates := map[string]interface{}{}
	if dto.Name != nil {
		updates["name"] = strings.TrimSpace(*dto.Name)
		u.Name = strings.TrimSpace(*dto.Name)
	}
	if dto.Mail != nil {
		updates["mail"] = strings.TrimSpace(*dto.Mail)
		u.Mail = strings.TrimSpace(*dto.Mail)
	}
	if dto.URL != nil {
		updates["url"] = strings.TrimSpace(*dto.URL)
		u.URL = strings.TrimSpace(*dto.URL)
	}
	if len(updates) == 0 {
		return u, nil
	}
	return u, s.db.WithContext(ctx).Model(u).Updates(updates).Error
}

// IssueToken signs a bearer token for the named member.
func (s *Service) IssueToken(ctx context.Context, username string, ttl time.Duration) (string, *models.UserModel, error) {
	u, err := s.GetByUsername(ctx, username)
	if err != nil {
		return "", nil, err
	}
	if u == nil {
		return "", nil, ErrMemberNotFound
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	token, err := jwt.Sign(u.ID, u.IsAdmin, ttl)
	return token, u, err
}

func toResponse(u *models.UserModel) *memberResponse {
	return &memberResponse{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.Name,
		Mail:     u.Mail,
		URL:      u.URL,
		IsAdmin:  u.IsAdmin,
		Created:  u.CreatedAt,
	}
}
