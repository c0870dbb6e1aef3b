package comment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mx-space/comments/internal/models"
	"github.com/mx-space/comments/internal/pkg/mail"
	"github.com/mx-space/comments/internal/pkg/metrics"
	"github.com/mx-space/comments/internal/pkg/session"
	"go.uber.org/zap"
)

// CaptchaVerifier checks the answer to the security question shown to a visitor.
type CaptchaVerifier interface {
	Verify(ctx context.Context, visitorID, answer string) (bool, error)
}

// SubmissionController renders and processes the comment form of a thread.
type SubmissionController struct {
	comments  *CommentStore
	workflow  *OptInWorkflow
	sanitizer *Sanitizer
	validate  *validator.Validate
	spam      *spamFilter
	captcha   CaptchaVerifier
	visitors  session.Store
	mailer    mail.Mailer
	opts      Options
	site      Site
	hooks     []Hook
	logger    *zap.Logger
	now       func() time.Time
}

func NewSubmissionController(
	comments *CommentStore,
	workflow *OptInWorkflow,
	captcha CaptchaVerifier,
	visitors session.Store,
	mailer mail.Mailer,
	opts Options,
	site Site,
	logger *zap.Logger,
) *SubmissionController {
	return &SubmissionController{
		comments:  comments,
		workflow:  workflow,
		sanitizer: NewSanitizer(opts.BBCode, opts.StrictSanitize, adminPath(site.AdminURL)),
		validate:  newValidator(),
		spam:      newSpamFilter(opts),
		captcha:   captcha,
		visitors:  visitors,
		mailer:    mailer,
		opts:      opts,
		site:      site,
		logger:    logger.Named("CommentSubmission"),
		now:       time.Now,
	}
}

// RegisterHook adds a listener run after every stored comment.
func (s *SubmissionController) RegisterHook(h Hook) {
	s.hooks = append(s.hooks, h)
}

// Handle evaluates one request against the form of a thread. A nil
// req.Form renders the form; a confirmation token is resolved instead of the
// form. Errors are returned only for infrastructure failures before the
// comment is stored.
func (s *SubmissionController) Handle(ctx context.Context, req Request) (*Result, error) {
	res := &Result{FormID: FormID(req.Source, req.Parent), Meta: defaultMeta()}

	if s.opts.RequireLogin && req.Member == nil {
		res.RequireLogin = true
		res.Message = msgLoginRequired
		return res, nil
	}

	if strings.HasPrefix(req.Token, optInPrefix+"-") || strings.HasPrefix(req.Token, removalPrefix) {
		outcome, err := s.workflow.ConfirmOrRevoke(ctx, req.Token)
		if err != nil {
			return nil, err
		}
		res.Confirmation = outcome
		res.Message = outcome.Message()
		return res, nil
	}

	res.CaptchaRequired = s.captchaRequired(req.Member)
	res.Values = memberValues(req.Member)

	if req.VisitorID != "" {
		flag, err := s.visitors.Take(ctx, req.VisitorID, pendingKey)
		if err != nil {
			s.logger.Warn("failed to read pending flag", zap.Error(err))
		} else if flag != "" {
			markPending(res)
		}
	}

	if req.Form == nil || req.Form.FormSubmit != res.FormID {
		return res, nil
	}
	return s.submit(ctx, req, res)
}

func (s *SubmissionController) captchaRequired(member *models.UserModel) bool {
	return !s.opts.DisableCaptcha && member == nil && s.captcha != nil
}

func memberValues(member *models.UserModel) FormValues {
	if member == nil {
		return FormValues{}
	}
	return FormValues{Name: memberName(member), Email: member.Mail, Website: member.URL}
}

func memberName(member *models.UserModel) string {
	if member.Name != "" {
		return member.Name
	}
	return member.Username
}

func markPending(res *Result) {
	res.Meta = Meta{PendingConfirmation: true}
	res.Message = msgPending
}

func (s *SubmissionController) submit(ctx context.Context, req Request, res *Result) (*Result, error) {
	form := req.Form
	f := fields{
		Name:    stripTags(form.Name),
		Email:   stripTags(form.Email),
		Website: stripTags(form.Website),
		Comment: strings.TrimSpace(form.Comment),
	}
	if req.Member != nil {
		if f.Name == "" {
			f.Name = memberName(req.Member)
		}
		if f.Email == "" {
			f.Email = req.Member.Mail
		}
	}
	res.Values = FormValues{Name: f.Name, Email: f.Email, Website: f.Website, Comment: form.Comment, Notify: bool(form.Notify)}

	errs := validateFields(s.validate, f)
	if res.CaptchaRequired {
		msg, err := s.checkCaptcha(ctx, req.VisitorID, form.Captcha)
		if err != nil {
			return nil, fmt.Errorf("verify captcha: %w", err)
		}
		if msg != "" {
			if errs == nil {
				errs = make(map[string]string)
			}
			errs["captcha"] = msg
		}
	}
	if len(errs) > 0 {
		res.HasError = true
		res.Errors = errs
		metrics.CommentsRejected.WithLabelValues("validation").Inc()
		return res, nil
	}

	now := s.now()
	cm := &models.CommentModel{
		Source:    req.Source,
		Parent:    req.Parent,
		Name:      f.Name,
		Email:     f.Email,
		Website:   NormalizeWebsite(f.Website),
		Comment:   s.sanitizer.Comment(f.Comment),
		IP:        req.IP,
		Date:      now.Unix(),
		Tstamp:    now.Unix(),
		Published: !s.opts.Moderate,
	}
	if req.Member != nil {
		cm.Member = req.Member.ID
	}
	if cm.Published && s.spam.isSpam(req.IP, req.Member, f.Name, f.Website, f.Comment) {
		cm.Published = false
		metrics.CommentsRejected.WithLabelValues("spam").Inc()
		s.logger.Info("comment held for moderation as spam",
			zap.String("source", cm.Source), zap.Uint("parent", cm.Parent), zap.String("ip", cm.IP))
	}

	if err := s.comments.Create(ctx, cm); err != nil {
		return nil, fmt.Errorf("store comment: %w", err)
	}
	res.Comment = cm
	if cm.Published {
		metrics.CommentsSubmitted.WithLabelValues("published").Inc()
	} else {
		metrics.CommentsSubmitted.WithLabelValues("pending").Inc()
	}

	s.runHooks(ctx, cm)

	if form.Notify {
		if err := s.workflow.Subscribe(ctx, cm, req.PageURL); err != nil {
			s.logger.Warn("failed to subscribe comment author", zap.String("comment", cm.ID), zap.Error(err))
		}
	}

	s.notifyAdmins(ctx, req, cm)

	if !cm.Published {
		if req.VisitorID != "" {
			if err := s.visitors.Set(ctx, req.VisitorID, pendingKey, "1"); err != nil {
				s.logger.Warn("failed to store pending flag", zap.Error(err))
			}
		}
		markPending(res)
	} else if err := s.workflow.NotifySubscribers(ctx, cm); err != nil {
		s.logger.Warn("failed to notify subscribers", zap.String("comment", cm.ID), zap.Error(err))
	}

	res.Values = FormValues{}
	res.Redirect = true
	return res, nil
}

func (s *SubmissionController) checkCaptcha(ctx context.Context, visitorID, answer string) (string, error) {
	if strings.TrimSpace(answer) == "" {
		return msgCaptchaRequired, nil
	}
	ok, err := s.captcha.Verify(ctx, visitorID, answer)
	if err != nil {
		return "", err
	}
	if !ok {
		return msgCaptchaWrong, nil
	}
	return "", nil
}

func (s *SubmissionController) runHooks(ctx context.Context, cm *models.CommentModel) {
	for _, h := range s.hooks {
		if err := h.OnCommentAdded(ctx, cm); err != nil {
			s.logger.Warn("comment hook failed", zap.String("comment", cm.ID), zap.Error(err))
		}
	}
}

func (s *SubmissionController) notifyAdmins(ctx context.Context, req Request, cm *models.CommentModel) {
	to := uniqueAddresses(req.NotifyTo)
	if len(to) == 0 {
		return
	}
	msg := mail.Message{
		From:     s.site.FromEmail,
		FromName: s.site.FromName,
		To:       to,
		Subject:  notifySubject(displayHost(req.PageURL, s.site.Name)),
		Text: adminText(
			fmt.Sprintf("%s (%s)", cm.Name, cm.Email),
			ToPlainText(cm.Comment),
			displayURL(withFragment(req.PageURL, cm.ID)),
			s.site.editURL(cm.ID),
			!cm.Published,
		),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		metrics.MailErrors.WithLabelValues("admin").Inc()
		s.logger.Warn("failed to notify admins", zap.String("comment", cm.ID), zap.Error(err))
		return
	}
	metrics.NotificationsSent.WithLabelValues("admin").Inc()
}

// uniqueAddresses drops blanks and case-insensitive duplicates, keeping order.
func uniqueAddresses(addrs []string) []string {
	seen := make(map[string]struct{}, len(addrs))
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		a = strings.TrimSpace(a)
		key := strings.ToLower(a)
		if a == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}
