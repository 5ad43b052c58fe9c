package chrome

import (
	"regexp"
	"strings"
)

// trackerPatterns are aborted on every rendered fetch. They never carry
// transcript content and keep the network from going idle.
var trackerPatterns = []string{
	"*doubleclick.net*",
	"*google-analytics.com*",
	"*googletagmanager.com*",
	"*googlesyndication.com*",
	"*googleadservices.com*",
	"*facebook.com/tr*",
	"*hotjar.com*",
	"*clarity.ms*",
	"*static.cloudflareinsights.com*",
	"*browser-intake-datadoghq.com*",
	"*sentry.io*",
	"*segment.io*",
	"*intercom.io*",
}

type urlMatcher func(url string) bool

// Blocklist decides which page requests are aborted during a rendered fetch
type Blocklist struct {
	matchers      []urlMatcher
	resourceTypes map[string]struct{}
}

// NewBlocklist combines the built-in tracker list with custom patterns.
// Patterns may be exact, contain '*' wildcards, or start with '~' (regexp)
// or '~*' (case-insensitive regexp). Invalid regexps are skipped.
func NewBlocklist(patterns, resourceTypes []string) *Blocklist {
	bl := &Blocklist{resourceTypes: make(map[string]struct{}, len(resourceTypes))}

	for _, p := range append(append([]string(nil), trackerPatterns...), patterns...) {
		if m := compileMatcher(strings.TrimSpace(p)); m != nil {
			bl.matchers = append(bl.matchers, m)
		}
	}
	for _, rt := range resourceTypes {
		if rt = strings.TrimSpace(rt); rt != "" {
			bl.resourceTypes[rt] = struct{}{}
		}
	}
	return bl
}

func compileMatcher(p string) urlMatcher {
	switch {
	case p == "":
		return nil
	case strings.HasPrefix(p, "~*"):
		re, err := regexp.Compile("(?i)" + p[2:])
		if err != nil {
			return nil
		}
		return re.MatchString
	case strings.HasPrefix(p, "~"):
		re, err := regexp.Compile(p[1:])
		if err != nil {
			return nil
		}
		return re.MatchString
	case strings.Contains(p, "*"):
		parts := strings.Split(strings.ToLower(p), "*")
		return func(url string) bool {
			return matchWildcard(strings.ToLower(url), parts)
		}
	default:
		return func(url string) bool {
			return strings.EqualFold(url, p)
		}
	}
}

// matchWildcard matches text against pattern pieces split on '*'
func matchWildcard(text string, parts []string) bool {
	if !strings.HasPrefix(text, parts[0]) {
		return false
	}
	text = text[len(parts[0]):]

	last := parts[len(parts)-1]
	if !strings.HasSuffix(text, last) {
		return false
	}
	text = text[:len(text)-len(last)]

	for _, part := range parts[1 : len(parts)-1] {
		idx := strings.Index(text, part)
		if idx == -1 {
			return false
		}
		text = text[idx+len(part):]
	}
	return true
}

// IsBlocked reports whether requests to url are aborted
func (bl *Blocklist) IsBlocked(url string) bool {
	for _, m := range bl.matchers {
		if m(url) {
			return true
		}
	}
	return false
}

// IsResourceTypeBlocked reports whether a CDP resource type is aborted
func (bl *Blocklist) IsResourceTypeBlocked(resourceType string) bool {
	_, ok := bl.resourceTypes[resourceType]
	return ok
}
