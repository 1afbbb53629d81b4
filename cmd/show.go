package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/revlens/internal/fetch"
	"github.com/ziadkadry99/revlens/internal/reference"
)

var (
	showTitle string
	showHTML  bool
)

var showCmd = &cobra.Command{
	Use:   "show <url>",
	Short: "Print the revision, page or diff a link points to",
	Long: `Resolves a link, validates it against the wiki and prints the content it
shows, converted to Markdown. With --html the sanitized HTML is printed
instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if offline {
			return fmt.Errorf("show needs the wiki; drop --offline")
		}
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()
		a.ensureSiteInfo(cmd.Context())

		ctx := cmd.Context()
		ref, err := a.resolver.Resolve(args[0], reference.ResolveOptions{FallbackTitle: showTitle})
		if err != nil {
			return fmt.Errorf("%s error: %w", reference.ErrorKind(err), err)
		}
		ref, err = a.client.Validate(ctx, ref)
		if err != nil {
			return err
		}
		content, err := a.client.Fetch(ctx, ref)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "# %s\n\n", content.Title)
		if content.User != "" {
			fmt.Fprintf(w, "%s, %s\n\n", content.User, content.Timestamp)
		}
		if content.Comment != "" {
			fmt.Fprintf(w, "> %s\n\n", content.Comment)
		}
		if showHTML {
			fmt.Fprintln(w, fetch.Sanitize(content.HTML))
			return nil
		}
		md, err := content.Markdown()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, md)
		return nil
	},
}

func init() {
	showCmd.Flags().StringVar(&showTitle, "title", "", "page title for links that carry none")
	showCmd.Flags().BoolVar(&showHTML, "html", false, "print sanitized HTML instead of Markdown")
	rootCmd.AddCommand(showCmd)
}
