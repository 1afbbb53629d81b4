package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/revlens/internal/progress"
	"github.com/ziadkadry99/revlens/internal/reference"
)

var (
	resolveTitle string
	resolveBase  string
	resolveFile  string
	resolveJSON  bool
)

// resolveResult is one line of resolve output.
type resolveResult struct {
	URL       string                   `json:"url"`
	Reference *reference.PageReference `json:"reference,omitempty"`
	Href      string                   `json:"href,omitempty"`
	Error     string                   `json:"error,omitempty"`
	Kind      string                   `json:"kind,omitempty"`
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [url...]",
	Short: "Resolve revision, page and diff links to canonical references",
	Long: `Resolves each link to the revision, page or diff it points to and prints
its canonical form. Links that are not revision links are reported with
their error kind (parse or validation).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		urls := args
		if resolveFile != "" {
			fromFile, err := readLines(resolveFile)
			if err != nil {
				return err
			}
			urls = append(urls, fromFile...)
		}
		if len(urls) == 0 {
			return fmt.Errorf("no links given; pass them as arguments or with --file")
		}

		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()
		a.ensureSiteInfo(cmd.Context())

		var reporter progress.Reporter
		if resolveFile != "" {
			reporter = progress.NewReporter(os.Stderr, "Resolving links")
			reporter.Start(len(urls))
		}

		results := make([]resolveResult, 0, len(urls))
		for i, raw := range urls {
			results = append(results, resolveOne(a, raw))
			if reporter != nil {
				reporter.Update(i+1, raw)
			}
		}
		if reporter != nil {
			reporter.Finish()
		}

		out := cmd.OutOrStdout()
		if resolveJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}
		for _, r := range results {
			if r.Error != "" {
				fmt.Fprintf(out, "%s\t%s\t%s\n", r.URL, r.Kind, r.Error)
				continue
			}
			fmt.Fprintf(out, "%s\t%s\t%s\n", r.URL, r.Reference.Type, r.Href)
		}
		return nil
	},
}

func resolveOne(a *app, raw string) resolveResult {
	res := resolveResult{URL: raw}
	ref, err := a.resolver.Resolve(raw, reference.ResolveOptions{FallbackTitle: resolveTitle, Base: resolveBase})
	if err != nil {
		res.Error = err.Error()
		res.Kind = reference.ErrorKind(err)
		return res
	}
	res.Reference = &ref
	href, err := a.builder.Build(ref, a.cfg.HrefOptions())
	if err != nil {
		res.Error = err.Error()
		res.Kind = reference.ErrorKind(err)
		return res
	}
	res.Href = href
	return res
}

// readLines reads non-empty, non-comment lines from path, or stdin for "-".
func readLines(path string) ([]string, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return lines, nil
}

func init() {
	resolveCmd.Flags().StringVar(&resolveTitle, "title", "", "page title for links that carry none")
	resolveCmd.Flags().StringVar(&resolveBase, "base", "", "URL relative links are resolved against")
	resolveCmd.Flags().StringVarP(&resolveFile, "file", "f", "", "read links from a file, one per line (- for stdin)")
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "print JSON")
	rootCmd.AddCommand(resolveCmd)
}
