package fetch

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"

	"github.com/ziadkadry99/revlens/internal/reference"
)

// Content is a fetched revision, page or diff.
type Content struct {
	Type      reference.Classification `json:"type"`
	Title     string                   `json:"title"`
	PageID    int                      `json:"page_id,omitempty"`
	FromRev   int                      `json:"from_rev,omitempty"`
	ToRev     int                      `json:"to_rev,omitempty"`
	User      string                   `json:"user,omitempty"`
	Timestamp string                   `json:"timestamp,omitempty"`
	Comment   string                   `json:"comment,omitempty"`
	// Hidden is set when part of the revision was suppressed.
	Hidden bool   `json:"hidden,omitempty"`
	HTML   string `json:"html"`
}

// RevisionID returns the revision the content shows, the newer side for
// diffs.
func (c *Content) RevisionID() int {
	if c.ToRev != 0 {
		return c.ToRev
	}
	return c.FromRev
}

var policy = newPolicy()

// newPolicy allows user content plus the markup of diff tables.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("ins", "del", "colgroup", "col")
	p.AllowAttrs("class").Globally()
	p.AllowAttrs("colspan").OnElements("td", "th")
	p.AllowAttrs("data-marker").OnElements("td")
	return p
}

// Sanitize strips scripts and unsafe attributes from platform HTML.
func Sanitize(html string) string {
	return policy.Sanitize(html)
}

var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

// Markdown renders the content HTML as markdown.
func (c *Content) Markdown() (string, error) {
	if strings.TrimSpace(c.HTML) == "" {
		return "", nil
	}
	html := c.HTML
	if c.Type == reference.ClassDiff && !strings.Contains(html, "<table") {
		// Compare bodies are bare table rows.
		html = "<table>" + html + "</table>"
	}
	md, err := mdConverter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("converting to markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}
