package comment

import (
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/k3a/html2text"
	"github.com/microcosm-cc/bluemonday"
)

var (
	toPlaceholders   = strings.NewReplacer("&amp;", "[&]", "&lt;", "[lt]", "&gt;", "[gt]")
	fromPlaceholders = strings.NewReplacer("[&]", "&", "[lt]", "<", "[gt]", ">")
	toEntities       = strings.NewReplacer("[&]", "&amp;", "[lt]", "&lt;", "[gt]", "&gt;")

	multiNewline     = regexp.MustCompile(`\n\n+`)
	preBlock         = regexp.MustCompile(`(?is)<pre[^>]*>.*?</pre>`)
	doubleBreak      = regexp.MustCompile(`<br>\s?<br>\s?`)
	breakBeforeClose = regexp.MustCompile(`\s?<br></p>`)
	websiteScheme    = regexp.MustCompile(`(?i)^(https?://|ftp://|mailto:|#)`)

	// block containers emitted by the renderer must not sit inside a paragraph
	unwrapBlocks = strings.NewReplacer(
		"<p><div", "<div",
		"</div></p>", "</div>",
		"<p><blockquote", "<blockquote",
		"</blockquote></p>", "</blockquote>",
	)

	denylistWords = []string{"javascript", "vbscri?pt", "script", "alert", "document", "cookie", "window"}

	plainPolicy = bluemonday.StrictPolicy()
)

// Sanitizer turns raw comment text into the HTML that is stored.
type Sanitizer struct {
	bbcode   *Renderer
	denylist *regexp.Regexp
	policy   *bluemonday.Policy
}

// NewSanitizer builds the pipeline. adminPaths are URL paths that links in a
// comment must never point to.
func NewSanitizer(bbcode, strict bool, adminPaths ...string) *Sanitizer {
	s := &Sanitizer{denylist: buildDenylist(adminPaths)}
	if bbcode {
		s.bbcode = NewRenderer()
	}
	if strict {
		s.policy = strictPolicy()
	}
	return s
}

func buildDenylist(adminPaths []string) *regexp.Regexp {
	words := make([]string, 0, len(adminPaths)+len(denylistWords))
	for _, p := range adminPaths {
		p = strings.TrimRight(strings.TrimSpace(p), "/")
		if p != "" {
			words = append(words, regexp.QuoteMeta(p))
		}
	}
	words = append(words, denylistWords...)
	return regexp.MustCompile(`(?i)(href|src|on[a-z]+)="[^"]*(` + strings.Join(words, "|") + `)[^"]*"+`)
}

// strictPolicy admits exactly the markup the BBCode renderer emits.
func strictPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("strong", "em", "span", "div", "p", "pre", "blockquote")
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^code$`)).OnElements("div")
	p.AllowStyles("color").Matching(regexp.MustCompile(`^#?[0-9A-Za-z]+$`)).OnElements("span")
	p.AllowStyles("text-decoration").MatchingEnum("underline").OnElements("span")
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("src", "alt").OnElements("img")
	p.AllowURLSchemes("http", "https", "ftp", "mailto")
	p.AllowRelativeURLs(true)
	p.RequireParseableURLs(true)
	return p
}

// Comment runs raw text through escaping, placeholder encoding, blank line
// collapsing, BBCode, the attribute denylist, the optional allowlist and
// line feed conversion.
func (s *Sanitizer) Comment(raw string) string {
	text := strings.ReplaceAll(strings.TrimSpace(raw), "\r\n", "\n")
	text = toPlaceholders.Replace(html.EscapeString(text))
	text = multiNewline.ReplaceAllString(text, "\n\n")
	if s.bbcode != nil {
		text = s.bbcode.RenderTags(text)
	}
	text = s.denylist.ReplaceAllString(text, `${1}="#"`)
	if s.policy != nil {
		// the policy re-escapes the ampersand of the [&] placeholder
		text = strings.ReplaceAll(s.policy.Sanitize(text), "[&amp;]", "[&]")
	}
	if s.bbcode != nil {
		text = ObfuscateEmails(text)
	}
	return ConvertLineFeeds(text)
}

// ConvertLineFeeds turns newlines into <br> and blank lines into paragraph
// breaks. Newlines inside <pre> are kept as they are.
func ConvertLineFeeds(s string) string {
	s = nl2brPre(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "<p>") {
		s = "<p>" + s + "</p>"
	}
	s = doubleBreak.ReplaceAllString(s, "</p>\n<p>")
	s = breakBeforeClose.ReplaceAllString(s, "</p>")
	return unwrapBlocks.Replace(s)
}

func nl2brPre(s string) string {
	var b strings.Builder
	last := 0
	for _, loc := range preBlock.FindAllStringIndex(s, -1) {
		b.WriteString(strings.ReplaceAll(s[last:loc[0]], "\n", "<br>\n"))
		b.WriteString(s[loc[0]:loc[1]])
		last = loc[1]
	}
	b.WriteString(strings.ReplaceAll(s[last:], "\n", "<br>\n"))
	return b.String()
}

// ToPlainText converts stored comment HTML back to text, restoring the
// characters hidden behind placeholders.
func ToPlainText(s string) string {
	text := html2text.HTML2TextWithOptions(strings.ReplaceAll(s, "[&]", "&amp;"), html2text.WithUnixLineBreaks())
	return strings.TrimSpace(fromPlaceholders.Replace(text))
}

// RestoreEntities turns placeholders back into HTML entities for display.
func RestoreEntities(s string) string {
	return toEntities.Replace(s)
}

// NormalizeWebsite prefixes http:// unless the value already has a scheme.
func NormalizeWebsite(website string) string {
	website = strings.TrimSpace(website)
	if website == "" || websiteScheme.MatchString(website) {
		return website
	}
	return "http://" + website
}

// stripTags removes markup from single line fields.
func stripTags(s string) string {
	return strings.TrimSpace(html.UnescapeString(plainPolicy.Sanitize(s)))
}

// adminPath extracts the path component of the back end URL.
func adminPath(adminURL string) string {
	u, err := url.Parse(adminURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return ""
	}
	return u.Path
}
