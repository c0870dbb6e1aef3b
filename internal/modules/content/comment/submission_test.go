package comment

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mx-space/comments/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubCaptcha struct {
	answer string
	err    error
}

func (s stubCaptcha) Verify(_ context.Context, _, answer string) (bool, error) {
	return strings.TrimSpace(answer) == s.answer, s.err
}

func (e *testEnv) controller(opts Options, captcha CaptchaVerifier) *SubmissionController {
	s := NewSubmissionController(e.comments, e.workflow, captcha, e.visitors, e.mail, opts, testSite, zap.NewNop())
	s.now = e.clock.now
	return s
}

func newRequest(form *Form) Request {
	return Request{
		Source:    "tl_news",
		Parent:    1,
		PageURL:   pageURL,
		IP:        "8.8.8.8",
		VisitorID: "visitor-1",
		NotifyTo:  []string{"admin@example.com", " Admin@example.com", "editor@example.com", ""},
		Form:      form,
	}
}

func validForm() *Form {
	return &Form{
		FormSubmit: "com_tl_news_1",
		Name:       "Jane",
		Email:      "jane@example.com",
		Website:    "jane.example",
		Comment:    "Hello [b]world[/b]",
	}
}

func (e *testEnv) countComments(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.CommentModel{}).Count(&n).Error)
	return n
}

func TestSubmission_Render(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	s := env.controller(Options{}, stubCaptcha{answer: "7"})

	res, err := s.Handle(context.Background(), newRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, "com_tl_news_1", res.FormID)
	assert.True(t, res.CaptchaRequired)
	assert.Equal(t, defaultMeta(), res.Meta)
	assert.False(t, res.Redirect)
	assert.Empty(t, res.Message)
}

func TestSubmission_RequireLogin(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	s := env.controller(Options{RequireLogin: true}, nil)

	res, err := s.Handle(context.Background(), newRequest(validForm()))
	require.NoError(t, err)
	assert.True(t, res.RequireLogin)
	assert.Equal(t, msgLoginRequired, res.Message)
	assert.Zero(t, env.countComments(t))

	req := newRequest(validForm())
	req.Member = &models.UserModel{Base: models.Base{ID: "m-1"}, Username: "jane", Mail: "jane@example.com"}
	res, err = s.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.Redirect)
}

func TestSubmission_MemberSkipsCaptchaAndPrefills(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	s := env.controller(Options{}, stubCaptcha{answer: "7"})

	req := newRequest(nil)
	req.Member = &models.UserModel{Base: models.Base{ID: "m-1"}, Username: "jane", Name: "Jane Doe", Mail: "jane@example.com", URL: "https://jane.example"}
	res, err := s.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, res.CaptchaRequired)
	assert.Equal(t, FormValues{Name: "Jane Doe", Email: "jane@example.com", Website: "https://jane.example"}, res.Values)

	req.Form = &Form{FormSubmit: "com_tl_news_1", Comment: "From a member"}
	res, err = s.Handle(context.Background(), req)
	require.NoError(t, err)
	require.True(t, res.Redirect, res.Errors)
	assert.Equal(t, "Jane Doe", res.Comment.Name)
	assert.Equal(t, "m-1", res.Comment.Member)
}

func TestSubmission_IgnoresOtherForms(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	s := env.controller(Options{DisableCaptcha: true}, nil)

	form := validForm()
	form.FormSubmit = "com_tl_news_2"
	res, err := s.Handle(context.Background(), newRequest(form))
	require.NoError(t, err)
	assert.False(t, res.Redirect)
	assert.False(t, res.HasError)
	assert.Zero(t, env.countComments(t))
}

func TestSubmission_ValidationErrors(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	s := env.controller(Options{}, stubCaptcha{answer: "7"})

	form := validForm()
	form.Name = "<b></b>"
	res, err := s.Handle(context.Background(), newRequest(form))
	require.NoError(t, err)
	assert.True(t, res.HasError)
	assert.Contains(t, res.Errors, "name")
	assert.Equal(t, msgCaptchaRequired, res.Errors["captcha"])
	assert.Equal(t, "Hello [b]world[/b]", res.Values.Comment)
	assert.Zero(t, env.countComments(t))

	form = validForm()
	form.Captcha = "8"
	res, err = s.Handle(context.Background(), newRequest(form))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"captcha": msgCaptchaWrong}, res.Errors)
	assert.Zero(t, env.countComments(t))
}

func TestSubmission_CaptchaStoreError(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	s := env.controller(Options{}, stubCaptcha{err: errors.New("redis down")})

	form := validForm()
	form.Captcha = "7"
	_, err := s.Handle(context.Background(), newRequest(form))
	assert.Error(t, err)
	assert.Zero(t, env.countComments(t))
}

func TestSubmission_Published(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	bob := env.seedSubscription(t, "bob@example.com", true)
	s := env.controller(Options{BBCode: true}, stubCaptcha{answer: "7"})

	form := validForm()
	form.Captcha = " 7 "
	res, err := s.Handle(ctx, newRequest(form))
	require.NoError(t, err)
	require.True(t, res.Redirect, res.Errors)
	assert.Empty(t, res.Message)
	assert.Equal(t, FormValues{}, res.Values)

	c := res.Comment
	assert.True(t, c.Published)
	assert.True(t, c.Notified)
	assert.Equal(t, "http://jane.example", c.Website)
	assert.Equal(t, "<p>Hello <strong>world</strong></p>", c.Comment)
	assert.Equal(t, env.clock.t.Unix(), c.Date)
	assert.Equal(t, "8.8.8.8", c.IP)

	admin := env.mail.To("admin@example.com")
	require.Len(t, admin, 1)
	assert.Equal(t, []string{"admin@example.com", "editor@example.com"}, admin[0].To)
	assert.Equal(t, "New comment on example.com", admin[0].Subject)
	assert.Contains(t, admin[0].Text, "Jane (jane@example.com) has written a new comment")
	assert.Contains(t, admin[0].Text, "Hello world")
	assert.Contains(t, admin[0].Text, "https://example.com/admin/comments/"+c.ID+"/edit")
	assert.NotContains(t, admin[0].Text, msgModerated)

	require.Len(t, env.mail.To(bob.Email), 1)

	flag, err := env.visitors.Get(ctx, "visitor-1", pendingKey)
	require.NoError(t, err)
	assert.Empty(t, flag)
}

func TestSubmission_ModeratedPendingFlag(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	bob := env.seedSubscription(t, "bob@example.com", true)
	s := env.controller(Options{Moderate: true, DisableCaptcha: true}, nil)

	res, err := s.Handle(ctx, newRequest(validForm()))
	require.NoError(t, err)
	require.True(t, res.Redirect)
	assert.False(t, res.Comment.Published)
	assert.True(t, res.Meta.PendingConfirmation)

	admin := env.mail.To("admin@example.com")
	require.Len(t, admin, 1)
	assert.Contains(t, admin[0].Text, msgModerated)
	assert.Empty(t, env.mail.To(bob.Email))

	// the reload after the redirect shows the notice once
	res, err = s.Handle(ctx, newRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, Meta{PendingConfirmation: true}, res.Meta)
	assert.Equal(t, msgPending, res.Message)

	res, err = s.Handle(ctx, newRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, defaultMeta(), res.Meta)
	assert.Empty(t, res.Message)

	other := newRequest(nil)
	other.VisitorID = "visitor-2"
	res, err = s.Handle(ctx, other)
	require.NoError(t, err)
	assert.False(t, res.Meta.PendingConfirmation)
}

func TestSubmission_SpamIsHeld(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	s := env.controller(Options{AntiSpam: true, DisableCaptcha: true}, nil)

	form := validForm()
	form.Comment = "Visit my casino"
	res, err := s.Handle(context.Background(), newRequest(form))
	require.NoError(t, err)
	require.True(t, res.Redirect)
	assert.False(t, res.Comment.Published)
	assert.True(t, res.Meta.PendingConfirmation)
}

func TestSubmission_NotifySubscribesAuthor(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	s := env.controller(Options{DisableCaptcha: true}, nil)

	form := validForm()
	form.Notify = true
	res, err := s.Handle(ctx, newRequest(form))
	require.NoError(t, err)
	require.True(t, res.Redirect)

	optIn := env.mail.To("jane@example.com")
	require.Len(t, optIn, 1)
	assert.Regexp(t, optInLinkPattern, optIn[0].Text)

	sub, err := env.subs.FindByKey(ctx, "tl_news", 1, "jane@example.com")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.False(t, sub.Active)
}

func TestSubmission_HooksAndMailFailuresAreNotFatal(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.mail.Err = errors.New("smtp down")
	s := env.controller(Options{DisableCaptcha: true}, nil)

	var seen []string
	s.RegisterHook(HookFunc(func(_ context.Context, c *models.CommentModel) error {
		seen = append(seen, c.ID)
		return errors.New("hook failed")
	}))
	s.RegisterHook(HookFunc(func(_ context.Context, c *models.CommentModel) error {
		seen = append(seen, c.ID)
		return nil
	}))

	res, err := s.Handle(context.Background(), newRequest(validForm()))
	require.NoError(t, err)
	require.True(t, res.Redirect)
	assert.Equal(t, []string{res.Comment.ID, res.Comment.ID}, seen)
	assert.Equal(t, int64(1), env.countComments(t))
}

func TestSubmission_ConfirmationToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	s := env.controller(Options{DisableCaptcha: true}, nil)
	confirm, revoke := subscribe(t, env, "jane@example.com")

	req := newRequest(nil)
	req.Token = confirm
	res, err := s.Handle(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, ConfirmationConfirmed, res.Confirmation)
	assert.Equal(t, ConfirmationConfirmed.Message(), res.Message)

	req.Token = revoke
	res, err = s.Handle(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, ConfirmationRevoked, res.Confirmation)

	req.Token = "com-0000"
	res, err = s.Handle(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, ConfirmationInvalid, res.Confirmation)

	// other token values are not ours
	req.Token = "abc"
	res, err = s.Handle(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, ConfirmationNone, res.Confirmation)
}

func TestSubmission_AdminSubjectUsesUnicodeHost(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	s := env.controller(Options{DisableCaptcha: true}, nil)

	req := newRequest(validForm())
	req.PageURL = "https://xn--bcher-kva.example/post"
	_, err := s.Handle(context.Background(), req)
	require.NoError(t, err)

	msgs := env.mail.To("admin@example.com")
	require.Len(t, msgs, 1)
	assert.Equal(t, "New comment on bücher.example", msgs[0].Subject)
	assert.True(t, strings.Contains(msgs[0].Text, "https://bücher.example/post#c"))
}

func TestUniqueAddresses(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"a@x.io", "b@x.io"}, uniqueAddresses([]string{" a@x.io", "", "A@X.io", "b@x.io"}))
	assert.Empty(t, uniqueAddresses(nil))
}
