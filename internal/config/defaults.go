package config

import (
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/ziadkadry99/revlens/internal/reference"
)

// FileName is the default configuration file.
const FileName = ".revlens.yml"

// DefaultServer is the wiki used when none is configured.
const DefaultServer = "https://en.wikipedia.org"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			Server:      DefaultServer,
			ArticlePath: "/wiki/$1",
			Script:      "/w/index.php",
		},
		Links: LinksConfig{
			Lazy:           true,
			ViewportMargin: 10,
		},
		Href: HrefConfig{
			WikilinkPreset: string(reference.PresetSpecial),
		},
		Fetch: FetchConfig{
			TimeoutSeconds: 30,
		},
		SiteInfo: SiteInfoConfig{
			CacheTTLHours: 24,
		},
		DataDir: ".revlens",
		Notifications: NotificationsConfig{
			MinSeverity: "warning",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Port: 8080,
		},
	}
}

// ReferenceSite returns the URL grammar for the resolver.
func (c *Config) ReferenceSite() reference.Site {
	return reference.Site{
		Server:      c.Site.Server,
		ArticlePath: c.Site.ArticlePath,
		Script:      c.Site.Script,
		Hosts:       c.Site.Hosts,
	}
}

// APIURL returns the Action API endpoint, derived from the server and
// script path when not set.
func (c *Config) APIURL() string {
	if c.Site.API != "" {
		return c.Site.API
	}
	server := c.Site.Server
	if strings.HasPrefix(server, "//") {
		server = "https:" + server
	}
	return strings.TrimSuffix(server, "/") + path.Join(path.Dir(c.Site.Script), "api.php")
}

// DBPath returns the sqlite database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "revlens.db")
}

// FetchTimeout returns the API request timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// SiteInfoTTL returns how long cached siteinfo stays fresh.
func (c *Config) SiteInfoTTL() time.Duration {
	return time.Duration(c.SiteInfo.CacheTTLHours) * time.Hour
}

// HrefOptions returns the configured default link output shape.
func (c *Config) HrefOptions() reference.HrefOptions {
	return reference.HrefOptions{
		Minify:         c.Href.Minify,
		Relative:       c.Href.Relative,
		WikilinkPreset: reference.WikilinkPreset(c.Href.WikilinkPreset),
	}
}
