package reference

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Site describes the URL grammar of the wiki being browsed.
type Site struct {
	// Server is the scheme and host, possibly scheme-relative ("//host").
	Server string
	// ArticlePath is the pretty-URL pattern with "$1" standing for the title.
	ArticlePath string
	// Script is the path of the index entry point.
	Script string
	// Hosts lists extra hosts whose links are accepted.
	Hosts []string
}

// DefaultSite returns the URL grammar of a stock installation.
func DefaultSite(server string) Site {
	return Site{
		Server:      server,
		ArticlePath: "/wiki/$1",
		Script:      "/w/index.php",
	}
}

// serverURL returns the server as a URL, forcing https for scheme-relative
// servers.
func (s Site) serverURL() (*url.URL, error) {
	server := s.Server
	if strings.HasPrefix(server, "//") {
		server = "https:" + server
	}
	u, err := url.Parse(server)
	if err != nil {
		return nil, fmt.Errorf("parsing server %q: %w", s.Server, err)
	}
	return u, nil
}

// acceptsHost reports whether links to host belong to this site.
func (s Site) acceptsHost(host string) bool {
	if host == "" {
		return true
	}
	if u, err := s.serverURL(); err == nil && strings.EqualFold(u.Host, host) {
		return true
	}
	for _, h := range s.Hosts {
		if strings.EqualFold(h, host) {
			return true
		}
	}
	return false
}

// articleTitle extracts the title from a path matching the article path.
func (s Site) articleTitle(path string) (string, bool) {
	prefix, suffix, ok := strings.Cut(s.ArticlePath, "$1")
	if !ok || !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		return "", false
	}
	title := strings.TrimSuffix(strings.TrimPrefix(path, prefix), suffix)
	if title == "" {
		return "", false
	}
	return title, true
}

// Title is the output of the title normalization service.
type Title struct {
	Text            string `json:"text"`
	Section         string `json:"section,omitempty"`
	TextWithSection string `json:"text_with_section"`
	URL             string `json:"url"`
}

// TitleNormalizer turns raw titles into canonical prefixed titles.
type TitleNormalizer interface {
	Normalize(raw string) (Title, error)
}

// DefaultNamespaces maps lower-cased namespace names and aliases to the
// canonical namespace name of a stock installation.
var DefaultNamespaces = map[string]string{
	"media":          "Media",
	"special":        "Special",
	"talk":           "Talk",
	"user":           "User",
	"user talk":      "User talk",
	"project":        "Project",
	"project talk":   "Project talk",
	"file":           "File",
	"image":          "File",
	"file talk":      "File talk",
	"mediawiki":      "MediaWiki",
	"mediawiki talk": "MediaWiki talk",
	"template":       "Template",
	"template talk":  "Template talk",
	"help":           "Help",
	"help talk":      "Help talk",
	"category":       "Category",
	"category talk":  "Category talk",
}

// SiteTitles normalizes titles with the site's namespace table.
type SiteTitles struct {
	site       Site
	namespaces map[string]string
}

// NewSiteTitles creates a normalizer. Namespace keys are matched
// case-insensitively with underscores treated as spaces; a nil map selects
// DefaultNamespaces.
func NewSiteTitles(site Site, namespaces map[string]string) *SiteTitles {
	if namespaces == nil {
		namespaces = DefaultNamespaces
	}
	normalized := make(map[string]string, len(namespaces))
	for k, v := range namespaces {
		normalized[normalizeName(k)] = v
	}
	return &SiteTitles{site: site, namespaces: normalized}
}

// Normalize implements TitleNormalizer.
func (t *SiteTitles) Normalize(raw string) (Title, error) {
	name, section, _ := strings.Cut(raw, "#")
	name = collapseSpaces(name)
	if name == "" {
		return Title{}, fmt.Errorf("%w: empty title", ErrInvalidTitle)
	}
	if strings.ContainsAny(name, "<>[]{}|") {
		return Title{}, fmt.Errorf("%w: %q", ErrInvalidTitle, name)
	}

	if prefix, rest, ok := strings.Cut(name, ":"); ok {
		if canonical, known := t.namespaces[normalizeName(prefix)]; known {
			rest = collapseSpaces(rest)
			if rest == "" {
				return Title{}, fmt.Errorf("%w: %q has no page name", ErrInvalidTitle, name)
			}
			name = canonical + ":" + upperFirst(rest)
		} else {
			name = upperFirst(name)
		}
	} else {
		name = upperFirst(name)
	}

	title := Title{
		Text:            name,
		Section:         collapseSpaces(section),
		TextWithSection: name,
	}
	if title.Section != "" {
		title.TextWithSection = name + "#" + title.Section
	}
	title.URL = strings.Replace(t.site.ArticlePath, "$1", escapeTitle(name), 1)
	if title.Section != "" {
		title.URL += "#" + escapeTitle(title.Section)
	}
	return title, nil
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "_", " ")), " ")
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// escapeTitle encodes a title the way the platform writes it into URLs:
// spaces become underscores, ":" and "/" stay readable.
func escapeTitle(s string) string {
	s = url.PathEscape(strings.ReplaceAll(s, " ", "_"))
	return strings.ReplaceAll(s, "%2F", "/")
}

// escapeQueryTitle encodes a title for the "title" query parameter.
func escapeQueryTitle(s string) string {
	s = url.QueryEscape(strings.ReplaceAll(s, " ", "_"))
	s = strings.ReplaceAll(s, "%3A", ":")
	return strings.ReplaceAll(s, "%2F", "/")
}
