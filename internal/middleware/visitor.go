package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ContextKeyVisitor = "visitor_id"
	VisitorCookie     = "mx_visitor"
	visitorCookieAge  = 365 * 24 * 60 * 60
)

// Visitor assigns every client a stable anonymous id kept in a cookie. The id
// keys per-visitor state such as captcha answers and pending-comment notices.
func Visitor(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(VisitorCookie)
		if err != nil || uuid.Validate(id) != nil {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(VisitorCookie, id, visitorCookieAge, "/", "", secure, true)
		}
		c.Set(ContextKeyVisitor, id)
		c.Next()
	}
}

// CurrentVisitor returns the visitor id set by Visitor.
func CurrentVisitor(c *gin.Context) string {
	return c.GetString(ContextKeyVisitor)
}
