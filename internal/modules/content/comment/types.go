package comment

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mx-space/comments/internal/config"
	"github.com/mx-space/comments/internal/models"
)

const (
	// optInPrefix and removalPrefix tag the two kinds of token a subscriber
	// receives by mail.
	optInPrefix   = "com"
	removalPrefix = "cor-"

	// relatedTable names the subscription records in an opt-in token.
	relatedTable = "tl_comments_notify"

	// pendingKey marks a visitor whose last comment awaits moderation.
	pendingKey = "comment_added"
)

var (
	// ErrPageNotFound is returned when the requested page of a thread is out of range.
	ErrPageNotFound = errors.New("comment: page not found")
	// ErrCommentNotFound is returned by moderation actions on an unknown id.
	ErrCommentNotFound = errors.New("comment: not found")
)

// Options controls how threads are listed and submissions processed.
type Options struct {
	PerPage            int
	Descending         bool
	Moderate           bool
	BBCode             bool
	RequireLogin       bool
	DisableCaptcha     bool
	StrictSanitize     bool
	MaxPaginationLinks int
	NotifyAddresses    []string

	AntiSpam     bool
	BlockIPs     []string
	SpamKeywords []string
}

// OptionsFromConfig maps the comments section of the app config.
func OptionsFromConfig(cfg *config.AppConfig) Options {
	c := cfg.Comments
	notify := c.Notify
	if len(notify) == 0 && cfg.Site.AdminEmail != "" {
		notify = []string{cfg.Site.AdminEmail}
	}
	return Options{
		PerPage:            c.PerPage,
		Descending:         c.Order == config.OrderDescending,
		Moderate:           c.Moderate,
		BBCode:             c.BBCode,
		RequireLogin:       c.RequireLogin,
		DisableCaptcha:     c.DisableCaptcha,
		StrictSanitize:     c.StrictSanitize,
		MaxPaginationLinks: c.MaxPaginationLinks,
		NotifyAddresses:    notify,
		AntiSpam:           c.AntiSpam,
		BlockIPs:           c.BlockIPs,
		SpamKeywords:       c.SpamKeywords,
	}
}

// Site describes the public site and its back end, used to build links and
// mail headers.
type Site struct {
	Name      string
	BaseURL   string
	AdminURL  string
	FromEmail string
	FromName  string
}

// SiteFromConfig maps the site and mail sections of the app config.
func SiteFromConfig(cfg *config.AppConfig) Site {
	return Site{
		Name:      cfg.Site.Name,
		BaseURL:   cfg.Site.BaseURL,
		AdminURL:  cfg.Site.AdminURL,
		FromEmail: cfg.Mail.From,
		FromName:  cfg.Mail.FromName,
	}
}

// editURL links to the back end form of a comment.
func (s Site) editURL(id string) string {
	return strings.TrimRight(s.AdminURL, "/") + "/comments/" + id + "/edit"
}

// FormID identifies the submission form of one thread.
func FormID(source string, parent uint) string {
	return fmt.Sprintf("com_%s_%d", source, parent)
}

// Form carries the posted form fields.
type Form struct {
	FormSubmit string   `form:"FORM_SUBMIT" json:"FORM_SUBMIT"`
	Name       string   `form:"name"        json:"name"`
	Email      string   `form:"email"       json:"email"`
	Website    string   `form:"website"     json:"website"`
	Captcha    string   `form:"captcha"     json:"captcha"`
	Comment    string   `form:"comment"     json:"comment"`
	Notify     Checkbox `form:"notify"      json:"notify"`
	PageURL    string   `form:"page_url"    json:"page_url"`
}

// Checkbox is a posted flag. Browsers send "on" for a ticked box without a
// value attribute.
type Checkbox bool

// UnmarshalParam implements gin's binding.BindUnmarshaler.
func (b *Checkbox) UnmarshalParam(param string) error {
	switch strings.ToLower(strings.TrimSpace(param)) {
	case "", "0", "off", "false", "no":
		*b = false
	case "1", "on", "true", "yes":
		*b = true
	default:
		return fmt.Errorf("invalid checkbox value %q", param)
	}
	return nil
}

func (b *Checkbox) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v := v.(type) {
	case nil:
		*b = false
	case bool:
		*b = Checkbox(v)
	case float64:
		*b = v != 0
	case string:
		return b.UnmarshalParam(v)
	default:
		return fmt.Errorf("invalid checkbox value %s", data)
	}
	return nil
}

// Request is one render or submit of a thread's comment form.
type Request struct {
	Source    string
	Parent    uint
	PageURL   string
	IP        string
	VisitorID string
	Member    *models.UserModel
	// Token is the "token" query value of confirmation links.
	Token string
	// NotifyTo lists the addresses told about new comments.
	NotifyTo []string
	// Form is nil when nothing was posted.
	Form *Form
}

// Meta tells the caller how the response may be cached and indexed.
type Meta struct {
	Cacheable           bool `json:"cacheable"`
	Indexable           bool `json:"indexable"`
	PendingConfirmation bool `json:"pending_confirmation"`
}

func defaultMeta() Meta {
	return Meta{Cacheable: true, Indexable: true}
}

// ConfirmationResult is the outcome of following an opt-in or removal link.
type ConfirmationResult string

const (
	ConfirmationNone             ConfirmationResult = ""
	ConfirmationConfirmed        ConfirmationResult = "confirmed"
	ConfirmationRevoked          ConfirmationResult = "revoked"
	ConfirmationInvalid          ConfirmationResult = "invalid"
	ConfirmationAlreadyConfirmed ConfirmationResult = "already_confirmed"
	ConfirmationEmailMismatch    ConfirmationResult = "email_mismatch"
)

// FormValues are the field values echoed back to the form.
type FormValues struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Website string `json:"website"`
	Comment string `json:"comment"`
	Notify  bool   `json:"notify"`
}

// Result is the state of the comment form after a request.
type Result struct {
	FormID          string               `json:"form_id"`
	Meta            Meta                 `json:"meta"`
	RequireLogin    bool                 `json:"require_login"`
	CaptchaRequired bool                 `json:"captcha_required"`
	Confirmation    ConfirmationResult   `json:"confirmation,omitempty"`
	Message         string               `json:"message,omitempty"`
	HasError        bool                 `json:"has_error"`
	Errors          map[string]string    `json:"errors,omitempty"`
	Values          FormValues           `json:"values"`
	Comment         *models.CommentModel `json:"-"`
	Redirect        bool                 `json:"-"`
}
