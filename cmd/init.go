package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/revlens/internal/config"
	"github.com/ziadkadry99/revlens/internal/fetch"
	"github.com/ziadkadry99/revlens/internal/reference"
	"github.com/ziadkadry99/revlens/internal/siteinfo"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize revlens configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure the wiki revlens works with and generates a .revlens.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var probe config.SiteProbe
		if !offline {
			probe = probeSite
		}
		_, err := config.RunWizard(cfgFile, probe)
		return err
	},
}

// probeSite asks the wiki for its URL grammar.
func probeSite(api string) (reference.Site, string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client := fetch.NewClient(fetch.Options{API: api})
	info, err := siteinfo.NewClient(client).Fetch(ctx)
	if err != nil {
		return reference.Site{}, "", err
	}
	site := info.Site(config.DefaultConfig().ReferenceSite())
	return site, info.General.SiteName, nil
}

func init() {
	rootCmd.AddCommand(initCmd)
}
