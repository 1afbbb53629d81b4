package links

import (
	"net/url"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExcludes are href path patterns that never lead to revision views.
var DefaultExcludes = []string{
	"**/*.css",
	"**/*.js",
	"**/*.png",
	"**/*.jpg",
	"**/*.svg",
	"static/**",
}

// Filter decides which anchors are candidates for resolution.
type Filter struct {
	Include []string
	Exclude []string
}

// NewFilter creates a filter. The default excludes are always applied.
func NewFilter(include, exclude []string) *Filter {
	return &Filter{
		Include: include,
		Exclude: append(append([]string{}, DefaultExcludes...), exclude...),
	}
}

// Allow reports whether href should become a descriptor. Fragment-only,
// javascript: and mailto: links are always skipped.
func (f *Filter) Allow(href string) bool {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return false
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") {
		return false
	}
	if f == nil {
		return true
	}

	u, err := url.Parse(href)
	if err != nil {
		// Malformed hrefs still get a descriptor so they are reported as
		// parse failures instead of vanishing.
		return true
	}
	p := strings.TrimPrefix(u.Path, "/")
	if p == "" {
		p = "."
	}
	return MatchesInclude(p, f.Include) && !MatchesExclude(p, f.Exclude)
}

// MatchesInclude returns true if the given path matches any of the include
// patterns. If patterns is empty, everything is included.
func MatchesInclude(p string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	return matchesAny(p, patterns)
}

// MatchesExclude returns true if the given path matches any of the exclude
// patterns. If patterns is empty, nothing is excluded.
func MatchesExclude(p string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	return matchesAny(p, patterns)
}

// matchesAny checks the full path and its last element against each pattern.
func matchesAny(p string, patterns []string) bool {
	for _, pattern := range patterns {
		pattern = strings.TrimPrefix(pattern, "/")
		if matched, err := doublestar.Match(pattern, p); err == nil && matched {
			return true
		}
		if matched, err := doublestar.Match(pattern, path.Base(p)); err == nil && matched {
			return true
		}
	}
	return false
}
