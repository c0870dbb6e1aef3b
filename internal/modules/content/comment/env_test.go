package comment

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mx-space/comments/internal/database/dbtest"
	"github.com/mx-space/comments/internal/models"
	"github.com/mx-space/comments/internal/pkg/mail/mailtest"
	"github.com/mx-space/comments/internal/pkg/optin"
	"github.com/mx-space/comments/internal/pkg/session"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	optInLinkPattern   = regexp.MustCompile(`token=(com-[0-9a-f]{24})`)
	removalLinkPattern = regexp.MustCompile(`token=(cor-[0-9a-f]{20})`)
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

var testSite = Site{
	Name:      "Example",
	BaseURL:   "https://example.com",
	AdminURL:  "https://example.com/admin",
	FromEmail: "noreply@example.com",
	FromName:  "Example",
}

type testEnv struct {
	db       *gorm.DB
	clock    *clock
	mail     *mailtest.Recorder
	visitors *session.MemoryStore
	comments *CommentStore
	subs     *SubscriptionStore
	tokens   *optin.Service
	workflow *OptInWorkflow
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := dbtest.New(t)
	c := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	rec := &mailtest.Recorder{}

	comments := NewCommentStore(db)
	comments.now = c.now
	subs := NewSubscriptionStore(db)
	subs.now = c.now
	tokens := optin.NewService(db, rec, optin.WithClock(c.now))

	return &testEnv{
		db:       db,
		clock:    c,
		mail:     rec,
		visitors: session.NewMemoryStore(time.Minute),
		comments: comments,
		subs:     subs,
		tokens:   tokens,
		workflow: NewOptInWorkflow(comments, subs, tokens, rec, testSite, zap.NewNop()),
	}
}

// seedComment stores a comment at the given offset from the test clock.
func (e *testEnv) seedComment(t *testing.T, c models.CommentModel, offset time.Duration) *models.CommentModel {
	t.Helper()
	if c.Source == "" {
		c.Source = "tl_news"
	}
	if c.Parent == 0 {
		c.Parent = 1
	}
	if c.Name == "" {
		c.Name = "Jane"
	}
	if c.Email == "" {
		c.Email = "jane@example.com"
	}
	if c.Comment == "" {
		c.Comment = "<p>Hello</p>"
	}
	c.Date = e.clock.t.Add(offset).Unix()
	c.Tstamp = c.Date
	require.NoError(t, e.comments.Create(context.Background(), &c))
	return &c
}

// seedSubscription stores a subscription for thread tl_news/1.
func (e *testEnv) seedSubscription(t *testing.T, email string, active bool) *models.SubscriptionModel {
	t.Helper()
	sub := &models.SubscriptionModel{
		Source: "tl_news",
		Parent: 1,
		Name:   "Subscriber",
		Email:  email,
		URL:    "https://example.com/news/hello",
		Active: active,
	}
	require.NoError(t, e.subs.Create(context.Background(), sub))
	return sub
}
