package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/revlens/internal/reference"
)

var (
	hrefTitle    string
	hrefMinify   bool
	hrefRelative bool
	hrefWikilink bool
	hrefPreset   string
)

var hrefCmd = &cobra.Command{
	Use:   "href <url>",
	Short: "Rewrite a revision or diff link in canonical form",
	Long: `Resolves a link and renders it back as a canonical URL, a minified or
relative URL, or a wikilink. Unset flags take their defaults from the
href section of the config.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()
		a.ensureSiteInfo(cmd.Context())

		ref, err := a.resolver.Resolve(args[0], reference.ResolveOptions{FallbackTitle: hrefTitle})
		if err != nil {
			return fmt.Errorf("%s error: %w", reference.ErrorKind(err), err)
		}

		opts := a.cfg.HrefOptions()
		flags := cmd.Flags()
		if flags.Changed("minify") {
			opts.Minify = hrefMinify
		}
		if flags.Changed("relative") {
			opts.Relative = hrefRelative
		}
		opts.Wikilink = hrefWikilink
		if flags.Changed("preset") {
			opts.WikilinkPreset = reference.WikilinkPreset(hrefPreset)
		}

		href, err := a.builder.Build(ref, opts)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), href)
		return nil
	},
}

func init() {
	hrefCmd.Flags().StringVar(&hrefTitle, "title", "", "page title for links that carry none")
	hrefCmd.Flags().BoolVar(&hrefMinify, "minify", false, "keep only the revision-identifying parameters")
	hrefCmd.Flags().BoolVar(&hrefRelative, "relative", false, "omit scheme and host")
	hrefCmd.Flags().BoolVarP(&hrefWikilink, "wikilink", "w", false, "render wiki markup instead of a URL")
	hrefCmd.Flags().StringVar(&hrefPreset, "preset", "", "wikilink style: special or link")
	rootCmd.AddCommand(hrefCmd)
}
