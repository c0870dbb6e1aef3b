package comment

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mx-space/comments/internal/middleware"
	"github.com/mx-space/comments/internal/pkg/pagination"
	"github.com/mx-space/comments/internal/pkg/response"
)

var sourcePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,64}$`)

// CaptchaIssuer hands out a new security question to a visitor.
type CaptchaIssuer interface {
	Generate(ctx context.Context, visitorID string) (string, error)
}

// Middlewares are applied to the comment routes by the router.
type Middlewares struct {
	OptionalAuth gin.HandlerFunc
	Submit       []gin.HandlerFunc
	Admin        []gin.HandlerFunc
}

type Handler struct {
	listing    *Listing
	submission *SubmissionController
	moderator  *Moderator
	captcha    CaptchaIssuer
	opts       Options
	site       Site
}

func NewHandler(listing *Listing, submission *SubmissionController, moderator *Moderator, captcha CaptchaIssuer, opts Options, site Site) *Handler {
	return &Handler{
		listing:    listing,
		submission: submission,
		moderator:  moderator,
		captcha:    captcha,
		opts:       opts,
		site:       site,
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, mw Middlewares) {
	g := rg.Group("/comments")
	if mw.OptionalAuth != nil {
		g.Use(mw.OptionalAuth)
	}
	g.GET("/:source/:parent", h.thread)
	submit := append(append([]gin.HandlerFunc{}, mw.Submit...), h.submit)
	g.POST("/:source/:parent", submit...)

	a := rg.Group("/admin/comments", mw.Admin...)
	a.GET("/pending", h.pending)
	a.PATCH("/:id/publish", h.publish)
	a.PUT("/:id/reply", h.reply)

	rg.GET("/captcha", h.newCaptcha)
}

func (h *Handler) request(c *gin.Context) (Request, bool) {
	source := c.Param("source")
	if !sourcePattern.MatchString(source) {
		response.BadRequest(c, "Invalid comment source.")
		return Request{}, false
	}
	parent, err := strconv.ParseUint(c.Param("parent"), 10, 32)
	if err != nil {
		response.BadRequest(c, "Invalid parent id.")
		return Request{}, false
	}
	return Request{
		Source:    source,
		Parent:    uint(parent),
		IP:        c.ClientIP(),
		VisitorID: middleware.CurrentVisitor(c),
		Member:    middleware.CurrentMember(c),
		NotifyTo:  h.opts.NotifyAddresses,
	}, true
}

func (h *Handler) thread(c *gin.Context) {
	req, ok := h.request(c)
	if !ok {
		return
	}
	req.PageURL = h.pageURL(c, "")
	req.Token = c.Query("token")

	ctx := c.Request.Context()
	thread, err := h.listing.Thread(ctx, req.Source, req.Parent, c.Query(pagination.ParamKey(req.Source, req.Parent)), req.PageURL)
	if errors.Is(err, ErrPageNotFound) {
		response.NotFound(c)
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}

	res, err := h.submission.Handle(ctx, req)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	applyMeta(c, res.Meta)
	response.OK(c, gin.H{"thread": thread, "form": res})
}

func (h *Handler) submit(c *gin.Context) {
	req, ok := h.request(c)
	if !ok {
		return
	}
	var form Form
	if err := c.ShouldBind(&form); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	req.Form = &form
	req.PageURL = h.pageURL(c, form.PageURL)

	res, err := h.submission.Handle(c.Request.Context(), req)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	switch {
	case res.RequireLogin:
		response.ForbiddenMsg(c, res.Message)
	case res.HasError:
		response.FieldErrors(c, "Please correct the errors in the form.", res.Errors)
	case res.Redirect:
		applyMeta(c, res.Meta)
		c.Header("X-Comment-Id", res.Comment.ID)
		c.Redirect(http.StatusSeeOther, c.Request.URL.RequestURI())
	default:
		response.BadRequest(c, "Unknown form.")
	}
}

func (h *Handler) pending(c *gin.Context) {
	comments, pag, err := h.moderator.Pending(c.Request.Context(), pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, comments, pag)
}

func (h *Handler) publish(c *gin.Context) {
	cm, err := h.moderator.Approve(c.Request.Context(), c.Param("id"))
	if errors.Is(err, ErrCommentNotFound) {
		response.NotFoundMsg(c, "Comment not found.")
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, cm)
}

func (h *Handler) reply(c *gin.Context) {
	var body struct {
		Reply string `json:"reply"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	var authorID string
	if m := middleware.CurrentMember(c); m != nil {
		authorID = m.ID
	}
	cm, err := h.moderator.Reply(c.Request.Context(), c.Param("id"), body.Reply, authorID)
	if errors.Is(err, ErrCommentNotFound) {
		response.NotFoundMsg(c, "Comment not found.")
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, cm)
}

func (h *Handler) newCaptcha(c *gin.Context) {
	if h.captcha == nil || h.opts.DisableCaptcha {
		response.NotFound(c)
		return
	}
	question, err := h.captcha.Generate(c.Request.Context(), middleware.CurrentVisitor(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	response.OK(c, gin.H{"question": question})
}

// pageURL picks the page the comment form is embedded in: the posted value,
// the page_url query or the Referer, whichever is an allowed URL first. Pages
// must live under the site base URL, or under the request origin when no base
// URL is configured.
func (h *Handler) pageURL(c *gin.Context, posted string) string {
	base := strings.TrimRight(h.site.BaseURL, "/")
	if base == "" {
		base = requestOrigin(c.Request)
	}
	for _, candidate := range []string{posted, c.Query("page_url"), c.GetHeader("Referer")} {
		if u := allowedPageURL(candidate, base); u != "" {
			return u
		}
	}
	return base
}

func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func allowedPageURL(raw, base string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || base == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	if raw != base && !strings.HasPrefix(raw, base+"/") && !strings.HasPrefix(raw, base+"?") {
		return ""
	}
	q := u.Query()
	q.Del("token")
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String()
}

func applyMeta(c *gin.Context, meta Meta) {
	if !meta.Cacheable {
		c.Header("Cache-Control", "no-store")
	}
	if !meta.Indexable {
		c.Header("X-Robots-Tag", "noindex")
	}
}
