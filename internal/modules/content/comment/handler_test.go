package comment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mx-space/comments/internal/middleware"
	"github.com/mx-space/comments/internal/models"
	"github.com/mx-space/comments/internal/pkg/captcha"
	"github.com/mx-space/comments/internal/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const visitorID = "6f1c3c2e-8a4b-4d7e-9f00-1a2b3c4d5e6f"

type httpEnv struct {
	*testEnv
	router *gin.Engine
}

func newHTTPEnv(t *testing.T, opts Options) *httpEnv {
	t.Helper()
	env := newTestEnv(t)
	submission := env.controller(opts, captcha.New(env.visitors))
	h := NewHandler(
		NewListing(env.comments, opts),
		submission,
		NewModerator(env.comments, env.workflow, zap.NewNop()),
		captcha.New(env.visitors),
		opts,
		testSite,
	)

	r := gin.New()
	r.Use(middleware.Visitor(false))
	h.RegisterRoutes(r.Group("/api"), Middlewares{
		OptionalAuth: middleware.OptionalAuth(env.db),
		Admin:        []gin.HandlerFunc{middleware.Auth(env.db), middleware.AdminOnly()},
	})
	return &httpEnv{testEnv: env, router: r}
}

func (e *httpEnv) do(method, target string, body url.Values, setup func(*http.Request)) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(body.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.AddCookie(&http.Cookie{Name: middleware.VisitorCookie, Value: visitorID})
	if setup != nil {
		setup(req)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func formValues() url.Values {
	return url.Values{
		"FORM_SUBMIT": {"com_tl_news_1"},
		"name":        {"Jane"},
		"email":       {"jane@example.com"},
		"comment":     {"Hello"},
		"page_url":    {pageURL},
	}
}

func TestHandler_Thread(t *testing.T) {
	t.Parallel()
	env := newHTTPEnv(t, Options{PerPage: 2, DisableCaptcha: true})
	for i := 0; i < 3; i++ {
		env.seedComment(t, models.CommentModel{Published: true}, time.Duration(i)*time.Minute)
	}

	w := env.do(http.MethodGet, "/api/comments/tl_news/1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, w.Header().Get("Cache-Control"))

	var body struct {
		Thread Thread `json:"thread"`
		Form   Result `json:"form"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Thread.Comments, 2)
	assert.Equal(t, int64(3), body.Thread.CommentsTotal)
	assert.Equal(t, "com_tl_news_1", body.Form.FormID)

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/comments/tl_news/1?page_cn1=2", nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/comments/tl_news/1?page_cn1=3", nil, nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/comments/tl_news/abc", nil, nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/comments/tl-news!/1", nil, nil).Code)
}

func TestHandler_SubmitRedirects(t *testing.T) {
	t.Parallel()
	env := newHTTPEnv(t, Options{DisableCaptcha: true})

	w := env.do(http.MethodPost, "/api/comments/tl_news/1?lang=en", formValues(), nil)
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	assert.Equal(t, "/api/comments/tl_news/1?lang=en", w.Header().Get("Location"))
	id := w.Header().Get("X-Comment-Id")
	require.NotEmpty(t, id)

	stored, err := env.comments.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.Published)
}

func TestHandler_SubmitErrors(t *testing.T) {
	t.Parallel()
	env := newHTTPEnv(t, Options{DisableCaptcha: true})

	form := formValues()
	form.Set("email", "nope")
	w := env.do(http.MethodPost, "/api/comments/tl_news/1", form, nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body.Errors, "email")

	form = formValues()
	form.Set("FORM_SUBMIT", "com_tl_news_2")
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/api/comments/tl_news/1", form, nil).Code)
}

func TestHandler_SubmitCheckboxNotify(t *testing.T) {
	t.Parallel()
	env := newHTTPEnv(t, Options{DisableCaptcha: true})

	form := formValues()
	form.Set("notify", "on")
	w := env.do(http.MethodPost, "/api/comments/tl_news/1", form, nil)
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())

	sub, err := env.subs.FindByKey(context.Background(), "tl_news", 1, "jane@example.com")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Len(t, env.mail.To("jane@example.com"), 1)

	form = formValues()
	form.Set("notify", "maybe")
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/api/comments/tl_news/1", form, nil).Code)
}

func TestCheckbox(t *testing.T) {
	t.Parallel()

	for _, v := range []string{"on", "1", "true", "ON"} {
		var b Checkbox
		require.NoError(t, b.UnmarshalParam(v))
		assert.True(t, bool(b), v)
	}
	for _, v := range []string{"", "0", "off", "false"} {
		b := Checkbox(true)
		require.NoError(t, b.UnmarshalParam(v))
		assert.False(t, bool(b), v)
	}

	var f Form
	require.NoError(t, json.Unmarshal([]byte(`{"notify":"on"}`), &f))
	assert.True(t, bool(f.Notify))
	require.NoError(t, json.Unmarshal([]byte(`{"notify":false}`), &f))
	assert.False(t, bool(f.Notify))
	require.NoError(t, json.Unmarshal([]byte(`{"notify":1}`), &f))
	assert.True(t, bool(f.Notify))
}

func TestHandler_SubmitWithCaptcha(t *testing.T) {
	t.Parallel()
	env := newHTTPEnv(t, Options{})

	form := formValues()
	form.Set("captcha", "99")
	assert.Equal(t, http.StatusUnprocessableEntity, env.do(http.MethodPost, "/api/comments/tl_news/1", form, nil).Code)

	w := env.do(http.MethodGet, "/api/captcha", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	answer, err := env.visitors.Get(context.Background(), visitorID, "captcha")
	require.NoError(t, err)
	require.NotEmpty(t, answer)

	form.Set("captcha", answer)
	assert.Equal(t, http.StatusSeeOther, env.do(http.MethodPost, "/api/comments/tl_news/1", form, nil).Code)
}

func TestHandler_PendingNoticeIsNotCached(t *testing.T) {
	t.Parallel()
	env := newHTTPEnv(t, Options{Moderate: true, DisableCaptcha: true})

	w := env.do(http.MethodPost, "/api/comments/tl_news/1", formValues(), nil)
	require.Equal(t, http.StatusSeeOther, w.Code)

	w = env.do(http.MethodGet, "/api/comments/tl_news/1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, "noindex", w.Header().Get("X-Robots-Tag"))
	assert.Contains(t, w.Body.String(), msgPending)

	w = env.do(http.MethodGet, "/api/comments/tl_news/1", nil, nil)
	assert.Empty(t, w.Header().Get("Cache-Control"))
	assert.NotContains(t, w.Body.String(), msgPending)
}

func TestHandler_RequireLogin(t *testing.T) {
	t.Parallel()
	env := newHTTPEnv(t, Options{RequireLogin: true, DisableCaptcha: true})

	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPost, "/api/comments/tl_news/1", formValues(), nil).Code)
}

func TestHandler_Admin(t *testing.T) {
	jwt.SetSecret("comment-handler-test")
	env := newHTTPEnv(t, Options{Moderate: true, DisableCaptcha: true})

	admin := models.UserModel{Username: "admin", Name: "Admin", IsAdmin: true}
	require.NoError(t, env.db.Create(&admin).Error)
	token, err := jwt.Sign(admin.ID, true, time.Hour)
	require.NoError(t, err)
	bearer := func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
	}
	c := env.seedComment(t, models.CommentModel{}, 0)

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/admin/comments/pending", nil, nil).Code)

	w := env.do(http.MethodGet, "/api/admin/comments/pending", nil, bearer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), c.ID)

	w = env.do(http.MethodPatch, "/api/admin/comments/"+c.ID+"/publish", nil, bearer)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPatch, "/api/admin/comments/missing/publish", nil, bearer).Code)

	req := httptest.NewRequest(http.MethodPut, "/api/admin/comments/"+c.ID+"/reply", strings.NewReader(`{"reply":"<p>Thanks</p>"}`))
	bearer(req)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored, err := env.comments.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.True(t, stored.Published)
	assert.Equal(t, "<p>Thanks</p>", stored.Reply)
	require.NotNil(t, stored.AuthorID)
	assert.Equal(t, admin.ID, *stored.AuthorID)
}

func TestAllowedPageURL(t *testing.T) {
	t.Parallel()
	base := testSite.BaseURL

	assert.Equal(t, "https://example.com/news?lang=en", allowedPageURL("https://example.com/news?lang=en&token=com-abc#c1", base))
	assert.Equal(t, "https://example.com", allowedPageURL("https://example.com", base))
	assert.Empty(t, allowedPageURL("https://example.com.evil.io/news", base))
	assert.Empty(t, allowedPageURL("https://evil.io/?https://example.com", base))
	assert.Empty(t, allowedPageURL("javascript:alert(1)", base))
	assert.Empty(t, allowedPageURL("", base))
	assert.Empty(t, allowedPageURL("https://anywhere.io/x", ""))
}

func TestHandler_PageURLWithoutBaseURL(t *testing.T) {
	t.Parallel()
	h := &Handler{}

	req := httptest.NewRequest(http.MethodPost, "http://comments.local/api/comments/tl_news/1", nil)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req

	assert.Equal(t, "http://comments.local", h.pageURL(c, ""))
	assert.Equal(t, "http://comments.local", h.pageURL(c, "https://evil.example/phish"))
	assert.Equal(t, "http://comments.local/news/1", h.pageURL(c, "http://comments.local/news/1"))

	req.Header.Set("Referer", "https://evil.example/phish")
	assert.Equal(t, "http://comments.local", h.pageURL(c, ""))
}
