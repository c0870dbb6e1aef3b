package comment

import (
	"regexp"
	"strings"

	"github.com/mx-space/comments/internal/models"
)

// defaultBlockedKeywords always count as spam when the filter is enabled.
var defaultBlockedKeywords = []string{
	"casino", "viagra", "cialis", "gambling", "lottery", "blackjack",
	"porn", "payday loan", "crypto giveaway", "work from home",
}

type spamFilter struct {
	enabled  bool
	blockIPs map[string]struct{}
	ipRules  []*regexp.Regexp
	keywords []*regexp.Regexp
}

// newSpamFilter compiles the configured lists once. Blocked IPs are exact
// addresses or regular expressions. Keywords match as plain text, case
// insensitively, unless written as /pattern/.
func newSpamFilter(opts Options) *spamFilter {
	f := &spamFilter{enabled: opts.AntiSpam, blockIPs: map[string]struct{}{}}
	for _, pattern := range opts.BlockIPs {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		f.blockIPs[pattern] = struct{}{}
		if re, err := regexp.Compile(pattern); err == nil {
			f.ipRules = append(f.ipRules, re)
		}
	}

	keywords := make([]string, 0, len(opts.SpamKeywords)+len(defaultBlockedKeywords))
	keywords = append(keywords, opts.SpamKeywords...)
	keywords = append(keywords, defaultBlockedKeywords...)
	for _, kw := range keywords {
		if re := keywordPattern(kw); re != nil {
			f.keywords = append(f.keywords, re)
		}
	}
	return f
}

func keywordPattern(kw string) *regexp.Regexp {
	kw = strings.TrimSpace(kw)
	if len(kw) > 2 && strings.HasPrefix(kw, "/") && strings.HasSuffix(kw, "/") {
		re, err := regexp.Compile("(?i)" + kw[1:len(kw)-1])
		if err != nil {
			return nil
		}
		return re
	}
	if kw == "" {
		return nil
	}
	return regexp.MustCompile("(?i)" + regexp.QuoteMeta(kw))
}

// isSpam reports whether a submission should be held for moderation.
// Comments of back end admins are never spam.
func (f *spamFilter) isSpam(ip string, member *models.UserModel, texts ...string) bool {
	if !f.enabled {
		return false
	}
	if member != nil && member.IsAdmin {
		return false
	}

	if ip = strings.TrimSpace(ip); ip != "" {
		if _, blocked := f.blockIPs[ip]; blocked {
			return true
		}
		for _, re := range f.ipRules {
			if re.MatchString(ip) {
				return true
			}
		}
	}

	text := strings.Join(texts, "\n")
	for _, re := range f.keywords {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
