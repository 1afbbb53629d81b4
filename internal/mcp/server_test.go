package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/revlens/internal/fetch"
	"github.com/ziadkadry99/revlens/internal/reference"
)

type mockFetcher struct {
	err error
}

func (m *mockFetcher) Fetch(_ context.Context, ref reference.PageReference) (*fetch.Content, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &fetch.Content{
		Type:    ref.Type,
		Title:   "Cat",
		User:    "Alice",
		Comment: "copyedit",
		HTML:    "<p>Cats are <b>small</b>.</p>",
	}, nil
}

func newTestServer(f Fetcher) *Server {
	resolver := reference.NewResolver(reference.DefaultSite("https://en.wikipedia.org"), nil, nil)
	return NewServer(Deps{Resolver: resolver, Fetcher: f})
}

// resultText returns the text of the first content item.
func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", result.Content[0])
	}
	return text.Text
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
	}{
		{"resolve_link", resolveLinkTool, "resolve_link"},
		{"build_href", buildHrefTool, "build_href"},
		{"scan_page", scanPageTool, "scan_page"},
		{"show_revision", showRevisionTool, "show_revision"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}
}

func TestNewServer(t *testing.T) {
	srv := newTestServer(nil)
	if srv == nil {
		t.Fatal("NewServer returned nil")
	}
	if srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
	if srv.deps.Builder == nil {
		t.Error("builder should default from the resolver site")
	}
}

func TestHandleResolveLink(t *testing.T) {
	srv := newTestServer(nil)
	ctx := context.Background()

	t.Run("diff link", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"url": "https://en.wikipedia.org/wiki/Special:Diff/200/100",
		}

		result, err := srv.handleResolveLink(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		var ref reference.PageReference
		if err := json.Unmarshal([]byte(resultText(t, result)), &ref); err != nil {
			t.Fatalf("result is not a reference: %v", err)
		}
		if ref.OldID != "100" || ref.DiffID != "200" || ref.Type != reference.ClassDiff {
			t.Errorf("reference = %+v, want diff 100 to 200", ref)
		}
	})

	t.Run("fallback title", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"url":   "/w/index.php?oldid=5",
			"title": "Cat",
		}

		result, _ := srv.handleResolveLink(ctx, req)
		if !strings.Contains(resultText(t, result), `"title": "Cat"`) {
			t.Errorf("result = %s, want the fallback title", resultText(t, result))
		}
	})

	t.Run("article link", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"url": "/wiki/Cat"}

		result, err := srv.handleResolveLink(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected a tool error for an article link")
		}
	})

	t.Run("missing url", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{}

		result, err := srv.handleResolveLink(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for missing url")
		}
	})
}

func TestHandleBuildHref(t *testing.T) {
	srv := newTestServer(nil)
	ctx := context.Background()

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{
			name: "wikilink",
			args: map[string]any{"url": "/w/index.php?oldid=100&diff=200", "wikilink": true},
			want: "[[Special:Diff/100/200]]",
		},
		{
			name: "relative url",
			args: map[string]any{"url": "https://en.wikipedia.org/wiki/Special:PermanentLink/5", "relative": true},
			want: "/w/index.php?oldid=5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := mcp.CallToolRequest{}
			req.Params.Arguments = tt.args

			result, err := srv.handleBuildHref(ctx, req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.IsError {
				t.Fatalf("unexpected tool error: %v", result.Content)
			}
			if got := resultText(t, result); got != tt.want {
				t.Errorf("href = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHandleScanPage(t *testing.T) {
	srv := newTestServer(nil)
	ctx := context.Background()
	html := `<p><a href="/w/index.php?oldid=10">10</a> <a href="/wiki/Cat">Cat</a> <a href="#x">x</a></p>`

	t.Run("valid links only", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"html": html}

		result, err := srv.handleScanPage(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var got []scannedLink
		if err := json.Unmarshal([]byte(resultText(t, result)), &got); err != nil {
			t.Fatalf("result is not a link list: %v", err)
		}
		if len(got) != 1 || got[0].ID != 0 || got[0].Reference == nil {
			t.Errorf("links = %+v, want the revision link only", got)
		}
	})

	t.Run("all links", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"html": html, "all": true}

		result, _ := srv.handleScanPage(ctx, req)
		var got []scannedLink
		json.Unmarshal([]byte(resultText(t, result)), &got)
		if len(got) != 2 || got[1].Kind == "" {
			t.Errorf("links = %+v, want both links with a kind on the article", got)
		}
	})

	t.Run("markdown", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"markdown": "[d](/w/index.php?diff=5)"}

		result, _ := srv.handleScanPage(ctx, req)
		if result.IsError || !strings.Contains(resultText(t, result), `"diff": "prev"`) {
			t.Errorf("result = %v, want one diff link", result.Content)
		}
	})

	t.Run("no input", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{}

		result, _ := srv.handleScanPage(ctx, req)
		if !result.IsError {
			t.Error("expected error without input")
		}
	})
}

func TestHandleShowRevision(t *testing.T) {
	ctx := context.Background()

	t.Run("markdown body", func(t *testing.T) {
		srv := newTestServer(&mockFetcher{})
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"url": "/w/index.php?oldid=5"}

		result, err := srv.handleShowRevision(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		text := resultText(t, result)
		for _, want := range []string{"# Cat", "> copyedit", "**small**"} {
			if !strings.Contains(text, want) {
				t.Errorf("output missing %q:\n%s", want, text)
			}
		}
	})

	t.Run("fetch failure", func(t *testing.T) {
		srv := newTestServer(&mockFetcher{err: errors.New("boom")})
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"url": "/w/index.php?oldid=5"}

		result, _ := srv.handleShowRevision(ctx, req)
		if !result.IsError {
			t.Error("expected a tool error")
		}
	})
}
