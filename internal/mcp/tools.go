package mcp

import "github.com/mark3labs/mcp-go/mcp"

// resolveLinkTool defines the resolve_link MCP tool.
var resolveLinkTool = mcp.NewTool("resolve_link",
	mcp.WithDescription("Resolve a wiki hyperlink to the revision, page or diff it points to. Returns the canonical reference as JSON."),
	mcp.WithString("url",
		mcp.Required(),
		mcp.Description("Absolute, scheme-relative or relative link"),
	),
	mcp.WithString("title",
		mcp.Description("Page title to use when the link carries none"),
	),
	mcp.WithString("base",
		mcp.Description("URL of the page the link was found on"),
	),
)

// buildHrefTool defines the build_href MCP tool.
var buildHrefTool = mcp.NewTool("build_href",
	mcp.WithDescription("Rewrite a wiki revision or diff link into its canonical URL or wikilink form."),
	mcp.WithString("url",
		mcp.Required(),
		mcp.Description("Link to rewrite"),
	),
	mcp.WithString("title",
		mcp.Description("Page title to use when the link carries none"),
	),
	mcp.WithBoolean("minify",
		mcp.Description("Keep only the revision-identifying parameters"),
	),
	mcp.WithBoolean("relative",
		mcp.Description("Omit scheme and host"),
	),
	mcp.WithBoolean("wikilink",
		mcp.Description("Render wiki markup instead of a URL"),
	),
	mcp.WithString("preset",
		mcp.Description("Wikilink style"),
		mcp.Enum("special", "link"),
	),
)

// scanPageTool defines the scan_page MCP tool.
var scanPageTool = mcp.NewTool("scan_page",
	mcp.WithDescription("List the revision and diff links on a rendered wiki page, in document order."),
	mcp.WithString("html",
		mcp.Description("Rendered page HTML"),
	),
	mcp.WithString("markdown",
		mcp.Description("Markdown page, used when html is empty"),
	),
	mcp.WithString("url",
		mcp.Description("Page URL; fetched when neither html nor markdown is given, otherwise the base for relative links"),
	),
	mcp.WithBoolean("all",
		mcp.Description("Include links that do not resolve (default false)"),
	),
)

// showRevisionTool defines the show_revision MCP tool.
var showRevisionTool = mcp.NewTool("show_revision",
	mcp.WithDescription("Fetch the revision, page or diff a link points to and return it as markdown."),
	mcp.WithString("url",
		mcp.Required(),
		mcp.Description("Link to show"),
	),
	mcp.WithString("title",
		mcp.Description("Page title to use when the link carries none"),
	),
)
