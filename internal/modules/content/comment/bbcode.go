package comment

import (
	"fmt"
	"regexp"
	"strings"
)

type bbcodeRule struct {
	pattern *regexp.Regexp
	replace string
}

func rule(pattern, replace string) bbcodeRule {
	return bbcodeRule{pattern: regexp.MustCompile(pattern), replace: replace}
}

// Tags are matched lazily so the first closing tag wins. Block tags swallow
// the whitespace around them and emit exactly one blank line on each side.
var bbcodeRules = []bbcodeRule{
	rule(`(?is)\[b\](.*?)\[/b\]`, `<strong>${1}</strong>`),
	rule(`(?is)\[i\](.*?)\[/i\]`, `<em>${1}</em>`),
	rule(`(?is)\[u\](.*?)\[/u\]`, `<span style="text-decoration:underline">${1}</span>`),
	rule(`(?is)\s*\[code\](.*?)\[/code\]\s*`, "\n\n"+`<div class="code"><p>Code:</p><pre>${1}</pre></div>`+"\n\n"),
	rule(`(?is)\[color=([^\]" ]+)\](.*?)\[/color\]`, `<span style="color:${1}">${2}</span>`),
	rule(`(?is)\s*\[quote\](.*?)\[/quote\]\s*`, "\n\n"+`<blockquote>${1}</blockquote>`+"\n\n"),
	rule(`(?is)\s*\[quote=([^\]]+)\](.*?)\[/quote\]\s*`, "\n\n"+`<blockquote><p>${1} wrote:</p>${2}</blockquote>`+"\n\n"),
	rule(`(?i)\[img\]\s*([^\[" ]+\.(jpe?g|png|gif|bmp|tiff?|ico))\s*\[/img\]`, `<img src="${1}" alt="" />`),
	rule(`(?i)\[url\]\s*([^\[" ]+)\s*\[/url\]`, `<a href="${1}">${1}</a>`),
	rule(`(?is)\[url=([^\]" ]+)\](.*?)\[/url\]`, `<a href="${1}">${2}</a>`),
	rule(`(?i)\[email\]\s*([^\[" ]+)\s*\[/email\]`, `<a href="mailto:${1}">${1}</a>`),
	rule(`(?is)\[email=([^\]" ]+)\](.*?)\[/email\]`, `<a href="mailto:${1}">${2}</a>`),
	rule(`(?i)href="(([a-z0-9]+\.)*[a-z0-9]+\.([a-z]{2}|asia|biz|com|info|name|net|org|tel)(/|"))`, `href="http://${1}`),
}

// Renderer turns BBCode into HTML.
type Renderer struct {
	rules []bbcodeRule
}

func NewRenderer() *Renderer {
	return &Renderer{rules: bbcodeRules}
}

// RenderTags applies the tag table. Unknown or unbalanced tags stay literal.
func (r *Renderer) RenderTags(text string) string {
	for _, rl := range r.rules {
		text = rl.pattern.ReplaceAllString(text, rl.replace)
	}
	return text
}

// Render applies the tag table and obfuscates the resulting mailto links.
func (r *Renderer) Render(text string) string {
	return ObfuscateEmails(r.RenderTags(text))
}

const encodedMailto = "&#109;&#97;&#105;&#108;&#116;&#111;&#58;"

var emailPattern = regexp.MustCompile(`(?i)[\w.!#$%&'*+/=?^{|}~-]{1,64}@(?:[\w-]+\.)+[a-z]{2,63}\b`)

// ObfuscateEmails entity-encodes every address in s, alternating decimal and
// hexadecimal references, and encodes the mailto scheme. Text without a
// mailto link is returned unchanged.
func ObfuscateEmails(s string) string {
	if !strings.Contains(s, "mailto:") {
		return s
	}
	s = emailPattern.ReplaceAllStringFunc(s, encodeEntities)
	return strings.ReplaceAll(s, "mailto:", encodedMailto)
}

func encodeEntities(s string) string {
	var b strings.Builder
	i := 0
	for _, r := range s {
		if i%2 == 0 {
			fmt.Fprintf(&b, "&#%d;", r)
		} else {
			fmt.Fprintf(&b, "&#x%X;", r)
		}
		i++
	}
	return b.String()
}
