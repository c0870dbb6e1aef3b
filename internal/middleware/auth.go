package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mx-space/comments/internal/models"
	"github.com/mx-space/comments/internal/pkg/jwt"
	"github.com/mx-space/comments/internal/pkg/response"
	"gorm.io/gorm"
)

const (
	ContextKeyMember = "member"
	TokenCookie      = "mx-token"
)

var errMemberNotFound = errors.New("member not found")

// Auth rejects requests without a valid member token.
func Auth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		member, err := ResolveMember(db, extractToken(c))
		if err != nil {
			response.Unauthorized(c)
			return
		}
		c.Set(ContextKeyMember, member)
		c.Next()
	}
}

// OptionalAuth attaches the member when a valid token is present but never blocks.
func OptionalAuth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := extractToken(c); token != "" {
			if member, err := ResolveMember(db, token); err == nil {
				c.Set(ContextKeyMember, member)
			}
		}
		c.Next()
	}
}

// AdminOnly must run after Auth.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := CurrentMember(c)
		if member == nil {
			response.Unauthorized(c)
			return
		}
		if !member.IsAdmin {
			response.Forbidden(c)
			return
		}
		c.Next()
	}
}

// ResolveMember validates a JWT and loads the member it names.
func ResolveMember(db *gorm.DB, rawToken string) (*models.UserModel, error) {
	token := NormalizeToken(rawToken)
	if token == "" {
		return nil, errors.New("token is required")
	}
	claims, err := jwt.Parse(token)
	if err != nil {
		return nil, err
	}

	var member models.UserModel
	if err := db.Where("id = ?", claims.MemberID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errMemberNotFound
		}
		return nil, err
	}
	return &member, nil
}

// CurrentMember returns the authenticated member, nil for anonymous visitors.
func CurrentMember(c *gin.Context) *models.UserModel {
	v, ok := c.Get(ContextKeyMember)
	if !ok {
		return nil
	}
	member, _ := v.(*models.UserModel)
	return member
}

// IsAuthenticated returns true if the request carries a valid member token.
func IsAuthenticated(c *gin.Context) bool {
	return CurrentMember(c) != nil
}

// extractToken reads the Authorization header, then the token cookie. The
// token query parameter is reserved for confirmation links.
func extractToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		return NormalizeToken(auth)
	}
	if raw, err := c.Cookie(TokenCookie); err == nil {
		return NormalizeToken(raw)
	}
	return ""
}

// NormalizeToken trims spaces and strips optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
