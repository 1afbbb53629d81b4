package links

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ScanOptions configures the anchor scanners.
type ScanOptions struct {
	// Selector picks the anchors in HTML documents. Defaults to "a[href]".
	Selector string
	// Filter drops anchors that cannot lead to revision views. Nil keeps
	// every http(s) or relative link.
	Filter *Filter
	// UserAgent and Timeout apply to ScanURL.
	UserAgent string
	Timeout   time.Duration
}

func (o ScanOptions) selector() string {
	if o.Selector == "" {
		return "a[href]"
	}
	return o.Selector
}

// titleSources are containers that carry the page title of the links inside
// them, used when a link minifier stripped the title from the href.
const titleSources = "[data-mw-title], [data-title]"

// rowTitleLinks are the title links of history and recent-changes rows.
const rowTitleLinks = "a.mw-changeslist-title, a.mw-title"

// ScanHTML collects anchors from an HTML document in document order.
func ScanHTML(r io.Reader, opts ScanOptions) ([]Anchor, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	var anchors []Anchor
	doc.Find(opts.selector()).Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if !opts.Filter.Allow(href) {
			return
		}
		anchors = append(anchors, Anchor{
			ID:        len(anchors),
			Href:      href,
			Text:      strings.TrimSpace(sel.Text()),
			TitleHint: titleHint(sel),
		})
	})
	return anchors, nil
}

// titleHint looks for the title of the page a link belongs to in the
// surrounding markup.
func titleHint(sel *goquery.Selection) string {
	if container := sel.Closest(titleSources); container.Length() > 0 {
		if v, ok := container.Attr("data-mw-title"); ok && v != "" {
			return v
		}
		if v, ok := container.Attr("data-title"); ok && v != "" {
			return v
		}
	}

	row := sel.Closest("li, tr")
	if row.Length() == 0 {
		return ""
	}
	title := row.Find(rowTitleLinks).First()
	if title.Length() == 0 {
		return ""
	}
	if v, ok := title.Attr("title"); ok && v != "" {
		return v
	}
	return strings.TrimSpace(title.Text())
}

// ScanURL fetches a rendered page and collects its anchors. Relative hrefs
// are made absolute against the page URL.
func ScanURL(ctx context.Context, pageURL string, opts ScanOptions) ([]Anchor, error) {
	c := colly.NewCollector(colly.StdlibContext(ctx))
	if opts.UserAgent != "" {
		c.UserAgent = opts.UserAgent
	}
	if opts.Timeout > 0 {
		c.SetRequestTimeout(opts.Timeout)
	}

	var (
		anchors  []Anchor
		visitErr error
	)
	c.OnError(func(r *colly.Response, err error) {
		visitErr = fmt.Errorf("fetching %s (status %d): %w", r.Request.URL, r.StatusCode, err)
	})
	c.OnHTML(opts.selector(), func(e *colly.HTMLElement) {
		href := e.Attr("href")
		if !opts.Filter.Allow(href) {
			return
		}
		if abs := e.Request.AbsoluteURL(href); abs != "" {
			href = abs
		}
		anchors = append(anchors, Anchor{
			ID:        len(anchors),
			Href:      href,
			Text:      strings.TrimSpace(e.Text),
			TitleHint: titleHint(e.DOM),
		})
	})

	if err := c.Visit(pageURL); err != nil {
		if visitErr != nil {
			return nil, visitErr
		}
		return nil, fmt.Errorf("visiting %s: %w", pageURL, err)
	}
	c.Wait()
	if visitErr != nil {
		return nil, visitErr
	}
	return anchors, nil
}

// ScanMarkdown collects the links of a markdown document in document
// order. A link title, as in [text](url "Title"), becomes the title hint.
func ScanMarkdown(src []byte, opts ScanOptions) ([]Anchor, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var anchors []Anchor
	add := func(href, label, hint string) {
		if !opts.Filter.Allow(href) {
			return
		}
		anchors = append(anchors, Anchor{ID: len(anchors), Href: href, Text: label, TitleHint: hint})
	}

	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch l := n.(type) {
		case *ast.Link:
			add(string(l.Destination), nodeText(l, src), string(l.Title))
			return ast.WalkSkipChildren, nil
		case *ast.AutoLink:
			if l.AutoLinkType == ast.AutoLinkURL {
				u := string(l.URL(src))
				add(u, u, "")
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking markdown: %w", err)
	}
	return anchors, nil
}

func nodeText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := c.(*ast.Text); ok {
				buf.Write(t.Segment.Value(src))
				if t.SoftLineBreak() {
					buf.WriteByte(' ')
				}
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}
