package comment

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

const (
	msgLoginRequired   = "You have to be logged in to add a comment."
	msgPending         = "Your comment has been added and is now pending for approval."
	msgCaptchaRequired = "Please answer the security question."
	msgCaptchaWrong    = "Please answer the security question correctly."
	msgModerated       = "The comment is awaiting moderation. Log in to the back end to publish it."
)

var confirmationMessages = map[ConfirmationResult]string{
	ConfirmationConfirmed:        "Thank you for confirming your subscription.",
	ConfirmationRevoked:          "Your subscription has been cancelled.",
	ConfirmationInvalid:          "The confirmation link is invalid or has expired.",
	ConfirmationAlreadyConfirmed: "This subscription has already been confirmed.",
	ConfirmationEmailMismatch:    "The e-mail address does not match the subscription.",
}

// Message returns the text shown to the visitor for a confirmation outcome.
func (r ConfirmationResult) Message() string {
	return confirmationMessages[r]
}

func optInSubject(host string) string {
	return "Your subscription on " + host
}

func optInText(name, pageURL, confirmURL, revokeURL string) string {
	return fmt.Sprintf(`Hello %s,

please confirm your subscription to new comments on the following page:

%s

To confirm, click here:
%s

If you did not subscribe, click here to cancel:
%s
`, name, pageURL, confirmURL, revokeURL)
}

func notifySubject(host string) string {
	return "New comment on " + host
}

func notifyText(name, commentURL, unsubscribeURL string) string {
	return fmt.Sprintf(`Hello %s,

a new comment has been added to a page you are subscribed to:

%s

To unsubscribe, click here:
%s
`, name, commentURL, unsubscribeURL)
}

func adminText(author, comment, viewURL, editURL string, moderated bool) string {
	text := fmt.Sprintf(`%s has written a new comment on your website.

---

%s

---

View: %s
Edit: %s
`, author, comment, viewURL, editURL)
	if moderated {
		text += "\n" + msgModerated + "\n"
	}
	return text
}

// withToken returns rawURL with the token query parameter set.
func withToken(rawURL, token string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		return rawURL + sep + "token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// withFragment points rawURL at the anchor of a comment.
func withFragment(rawURL, id string) string {
	if i := strings.IndexByte(rawURL, '#'); i >= 0 {
		rawURL = rawURL[:i]
	}
	return rawURL + "#c" + id
}

// displayURL decodes a punycode host for use in mail text.
func displayURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	host, err := idna.ToUnicode(u.Hostname())
	if err != nil || host == u.Hostname() {
		return rawURL
	}
	if port := u.Port(); port != "" {
		host += ":" + port
	}
	return strings.Replace(rawURL, u.Host, host, 1)
}

// displayHost returns the unicode host of rawURL, or fallback.
func displayHost(rawURL, fallback string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return fallback
	}
	host, err := idna.ToUnicode(u.Hostname())
	if err != nil {
		return u.Hostname()
	}
	return host
}
