package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/revlens/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long: `Starts a Model Context Protocol (MCP) server on stdio, exposing link
resolution, href rewriting, page scanning and revision lookup tools to AI
agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()
		a.ensureSiteInfo(cmd.Context())

		deps := mcpserver.Deps{
			Resolver: a.resolver,
			Builder:  a.builder,
			Scan:     a.scanOptions(),
			Href:     a.cfg.HrefOptions(),
		}
		if !offline {
			deps.Fetcher = a.client
		}

		mcpserver.Version = Version

		// stdout carries the protocol.
		fmt.Fprintf(os.Stderr, "revlens MCP server started on stdio (wiki=%s)\n", a.cfg.Site.Server)

		srv := mcpserver.NewServer(deps)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
