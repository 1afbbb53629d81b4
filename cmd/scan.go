package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/revlens/internal/links"
	"github.com/ziadkadry99/revlens/internal/reference"
)

var (
	scanMarkdown bool
	scanAll      bool
	scanJSON     bool
)

// scannedLink is one anchor of scan output.
type scannedLink struct {
	ID        int                      `json:"id"`
	Href      string                   `json:"href"`
	Text      string                   `json:"text,omitempty"`
	Reference *reference.PageReference `json:"reference,omitempty"`
	Error     string                   `json:"error,omitempty"`
	Kind      string                   `json:"kind,omitempty"`
}

var scanCmd = &cobra.Command{
	Use:   "scan <file|url>",
	Short: "List the revision links of a rendered page",
	Long: `Scans an HTML or Markdown file, or a page fetched over HTTP, for links
and prints the ones that resolve to revisions, pages or diffs. With --all
the links that do not resolve are listed too, with the reason.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()
		a.ensureSiteInfo(cmd.Context())

		target := args[0]
		opts := a.scanOptions()

		var (
			anchors []links.Anchor
			base    string
		)
		switch {
		case strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://"):
			base = target
			anchors, err = links.ScanURL(cmd.Context(), target, opts)
		default:
			data, rerr := os.ReadFile(target)
			if rerr != nil {
				return fmt.Errorf("reading %s: %w", target, rerr)
			}
			if scanMarkdown || strings.EqualFold(filepath.Ext(target), ".md") {
				anchors, err = links.ScanMarkdown(data, opts)
			} else {
				anchors, err = links.ScanHTML(strings.NewReader(string(data)), opts)
			}
		}
		if err != nil {
			return err
		}

		var out []scannedLink
		for _, anchor := range anchors {
			d := links.NewDescriptor(anchor, a.resolver, base)
			l := scannedLink{ID: anchor.ID, Href: anchor.Href, Text: anchor.Text}
			if d.IsValid() {
				ref := d.Reference()
				l.Reference = &ref
			} else {
				if !scanAll {
					continue
				}
				l.Error = d.ResolveErr().Error()
				l.Kind = reference.ErrorKind(d.ResolveErr())
			}
			out = append(out, l)
		}

		w := cmd.OutOrStdout()
		if scanJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}
		for _, l := range out {
			if l.Reference == nil {
				fmt.Fprintf(w, "%d\t%s\t%s\n", l.ID, l.Kind, l.Href)
				continue
			}
			fmt.Fprintf(w, "%d\t%s\t%s\n", l.ID, l.Reference.Type, l.Href)
		}
		a.logger.Debug("scan finished", "target", target, "anchors", len(anchors), "listed", len(out))
		return nil
	},
}

func init() {
	scanCmd.Flags().BoolVar(&scanMarkdown, "markdown", false, "treat the file as Markdown (implied by .md)")
	scanCmd.Flags().BoolVar(&scanAll, "all", false, "also list links that do not resolve")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "print JSON")
	rootCmd.AddCommand(scanCmd)
}
