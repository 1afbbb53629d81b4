package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ziadkadry99/revlens/internal/config"
	"github.com/ziadkadry99/revlens/internal/db"
	"github.com/ziadkadry99/revlens/internal/fetch"
	"github.com/ziadkadry99/revlens/internal/links"
	"github.com/ziadkadry99/revlens/internal/logging"
	"github.com/ziadkadry99/revlens/internal/reference"
	"github.com/ziadkadry99/revlens/internal/siteinfo"
)

// app holds the components shared by the commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	resolver *reference.Resolver
	builder  *reference.HrefBuilder
	client   *fetch.Client
	loader   *siteinfo.Loader
	db       *db.DB
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `revlens init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// newApp builds the shared components. With requireDB a database failure is
// fatal; otherwise the commands run without the siteinfo cache.
func newApp(requireDB bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logger := logging.New(level, cfg.Log.Format, os.Stderr)
	slog.SetDefault(logger)

	a := &app{
		cfg:      cfg,
		logger:   logger,
		resolver: reference.NewResolver(cfg.ReferenceSite(), nil, nil),
		builder:  reference.NewHrefBuilder(cfg.ReferenceSite()),
		client: fetch.NewClient(fetch.Options{
			API:       cfg.APIURL(),
			UserAgent: cfg.Fetch.UserAgent,
			Timeout:   cfg.FetchTimeout(),
			Logger:    logger,
		}),
	}

	database, err := db.Open(cfg.DBPath())
	if err != nil {
		if requireDB {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		logger.Warn("running without the siteinfo cache", "path", cfg.DBPath(), "error", err)
	} else {
		a.db = database
	}

	opts := siteinfo.LoaderOptions{
		API:      cfg.APIURL(),
		TTL:      cfg.SiteInfoTTL(),
		Refresh:  cfg.SiteInfo.Refresh,
		Resolver: a.resolver,
		Logger:   logger,
	}
	if a.db != nil {
		opts.Store = siteinfo.NewStore(a.db)
	}
	a.loader = siteinfo.NewLoader(siteinfo.NewClient(a.client), opts)
	return a, nil
}

// ensureSiteInfo installs the wiki's aliases and namespaces on the
// resolver. Failures fall back to the built-in English aliases.
func (a *app) ensureSiteInfo(ctx context.Context) {
	if offline {
		return
	}
	if err := a.loader.Ensure(ctx); err != nil {
		a.logger.Warn("site info unavailable, using built-in aliases", "error", err)
	}
}

// scanOptions returns the anchor scanner settings from the config.
func (a *app) scanOptions() links.ScanOptions {
	return links.ScanOptions{
		Filter:    links.NewFilter(a.cfg.Links.Include, a.cfg.Links.Exclude),
		UserAgent: a.cfg.Fetch.UserAgent,
		Timeout:   a.cfg.FetchTimeout(),
	}
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}
