package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/revlens/internal/links"
	"github.com/ziadkadry99/revlens/internal/reference"
)

// scannedLink is one entry of the scan_page result.
type scannedLink struct {
	ID        int                      `json:"id"`
	Href      string                   `json:"href"`
	Text      string                   `json:"text,omitempty"`
	Reference *reference.PageReference `json:"reference,omitempty"`
	Error     string                   `json:"error,omitempty"`
	Kind      string                   `json:"kind,omitempty"`
}

// handleResolveLink resolves one link to its canonical reference.
func (s *Server) handleResolveLink(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: url"), nil
	}

	ref, err := s.deps.Resolver.Resolve(raw, reference.ResolveOptions{
		FallbackTitle: request.GetString("title", ""),
		Base:          request.GetString("base", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", reference.ErrorKind(err), err)), nil
	}
	return jsonResult(ref)
}

// handleBuildHref resolves a link and renders it back in the requested form.
func (s *Server) handleBuildHref(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: url"), nil
	}

	ref, err := s.deps.Resolver.Resolve(raw, reference.ResolveOptions{FallbackTitle: request.GetString("title", "")})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", reference.ErrorKind(err), err)), nil
	}

	opts := s.deps.Href
	opts.Minify = request.GetBool("minify", opts.Minify)
	opts.Relative = request.GetBool("relative", opts.Relative)
	opts.Wikilink = request.GetBool("wikilink", opts.Wikilink)
	if preset := request.GetString("preset", ""); preset != "" {
		opts.WikilinkPreset = reference.WikilinkPreset(preset)
	}

	href, err := s.deps.Builder.Build(ref, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("building link: %v", err)), nil
	}
	return mcp.NewToolResultText(href), nil
}

// handleScanPage lists the links of a page with their resolution results.
func (s *Server) handleScanPage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	html := request.GetString("html", "")
	markdown := request.GetString("markdown", "")
	pageURL := request.GetString("url", "")
	includeAll := request.GetBool("all", false)

	var (
		anchors []links.Anchor
		err     error
	)
	switch {
	case strings.TrimSpace(html) != "":
		anchors, err = links.ScanHTML(strings.NewReader(html), s.deps.Scan)
	case strings.TrimSpace(markdown) != "":
		anchors, err = links.ScanMarkdown([]byte(markdown), s.deps.Scan)
	case pageURL != "":
		anchors, err = links.ScanURL(ctx, pageURL, s.deps.Scan)
	default:
		return mcp.NewToolResultError("one of html, markdown or url is required"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scanning page: %v", err)), nil
	}

	result := []scannedLink{}
	for _, a := range anchors {
		entry := scannedLink{ID: a.ID, Href: a.Href, Text: a.Text}
		ref, err := s.deps.Resolver.Resolve(a.Href, reference.ResolveOptions{FallbackTitle: a.TitleHint, Base: pageURL})
		if err != nil {
			if !includeAll {
				continue
			}
			entry.Error = err.Error()
			entry.Kind = reference.ErrorKind(err)
		} else {
			entry.Reference = &ref
		}
		result = append(result, entry)
	}
	return jsonResult(result)
}

// handleShowRevision fetches the content behind a link as markdown.
func (s *Server) handleShowRevision(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: url"), nil
	}

	ref, err := s.deps.Resolver.Resolve(raw, reference.ResolveOptions{FallbackTitle: request.GetString("title", "")})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", reference.ErrorKind(err), err)), nil
	}
	content, err := s.deps.Fetcher.Fetch(ctx, ref)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("fetching %s: %v", ref.Type, err)), nil
	}
	md, err := content.Markdown()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", content.Title)
	if content.User != "" || content.Timestamp != "" {
		fmt.Fprintf(&sb, "_%s %s_\n\n", content.User, content.Timestamp)
	}
	if content.Comment != "" {
		fmt.Fprintf(&sb, "> %s\n\n", content.Comment)
	}
	sb.WriteString(md)
	return mcp.NewToolResultText(sb.String()), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
