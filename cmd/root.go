package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/revlens/internal/config"
)

var (
	cfgFile string
	verbose bool
	offline bool
)

var rootCmd = &cobra.Command{
	Use:   "revlens",
	Short: "Resolve, rewrite and browse MediaWiki revision and diff links",
	Long: `revlens understands the many spellings of MediaWiki revision, page and
diff links. It resolves them to canonical references, rewrites them as
URLs or wikilinks, scans rendered pages for them, and serves a viewing
session that steps through a page's links without leaving it.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.FileName, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "skip site info lookup and use the built-in English aliases")
}
