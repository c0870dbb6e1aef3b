package app

import (
	"github.com/mx-space/comments/internal/config"
	"github.com/mx-space/comments/internal/modules/auth/user"
	"github.com/mx-space/comments/internal/modules/content/comment"
	"github.com/mx-space/comments/internal/modules/webhook"
	"github.com/mx-space/comments/internal/pkg/captcha"
	"github.com/mx-space/comments/internal/pkg/mail"
	"github.com/mx-space/comments/internal/pkg/optin"
	pkgredis "github.com/mx-space/comments/internal/pkg/redis"
	"github.com/mx-space/comments/internal/pkg/session"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services is the wired comment domain shared by the HTTP server and the
// command line tool.
type Services struct {
	Options  comment.Options
	Site     comment.Site
	Mailer   mail.Mailer
	Visitors session.Store
	Captcha  *captcha.Service
	Tokens   *optin.Service

	Comments      *comment.CommentStore
	Subscriptions *comment.SubscriptionStore
	Workflow      *comment.OptInWorkflow
	Submission    *comment.SubmissionController
	Moderator     *comment.Moderator
	Listing       *comment.Listing
	Webhooks      *webhook.Service
	Members       *user.Service
}

// NewServices builds the comment domain on top of an open database. rc may
// be nil, in which case visitor state is kept in process memory.
func NewServices(cfg *config.AppConfig, db *gorm.DB, rc *pkgredis.Client, logger *zap.Logger) *Services {
	opts := comment.OptionsFromConfig(cfg)
	site := comment.SiteFromConfig(cfg)
	mailer := newMailer(cfg, logger)

	var visitors session.Store
	if rc != nil {
		visitors = session.NewRedisStore(rc, session.DefaultTTL)
	} else {
		visitors = session.NewMemoryStore(session.DefaultTTL)
	}
	captchaSvc := captcha.New(visitors)
	tokens := optin.NewService(db, mailer)

	comments := comment.NewCommentStore(db)
	subs := comment.NewSubscriptionStore(db)
	workflow := comment.NewOptInWorkflow(comments, subs, tokens, mailer, site, logger)
	submission := comment.NewSubmissionController(comments, workflow, captchaSvc, visitors, mailer, opts, site, logger)
	moderator := comment.NewModerator(comments, workflow, logger)

	webhooks := webhook.NewService(db, logger)
	submission.RegisterHook(webhooks.Hook(webhook.EventCommentCreate))
	moderator.RegisterHook(webhooks.Hook(webhook.EventCommentPublish))

	return &Services{
		Options:       opts,
		Site:          site,
		Mailer:        mailer,
		Visitors:      visitors,
		Captcha:       captchaSvc,
		Tokens:        tokens,
		Comments:      comments,
		Subscriptions: subs,
		Workflow:      workflow,
		Submission:    submission,
		Moderator:     moderator,
		Listing:       comment.NewListing(comments, opts),
		Webhooks:      webhooks,
		Members:       user.NewService(db),
	}
}

// newMailer returns the configured sender, or a logging stand-in when mail
// delivery is disabled.
func newMailer(cfg *config.AppConfig, logger *zap.Logger) mail.Mailer {
	if !cfg.Mail.Enable {
		return mail.NewLogMailer(logger)
	}
	return mail.New(mail.FromConfig(cfg.Mail))
}
