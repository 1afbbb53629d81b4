package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/ziadkadry99/revlens/internal/reference"
)

// EnvPrefix marks environment overrides.
const EnvPrefix = "REVLENS_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (REVLENS_*). A double underscore separates
// nested keys: REVLENS_SITE__SERVER sets site.server.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

func envKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(s, EnvPrefix), "__", "."))
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validPresets = map[string]bool{
	"":                              true,
	string(reference.PresetLink):    true,
	string(reference.PresetSpecial): true,
}

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

var validFormats = map[string]bool{"text": true, "json": true}

var validSeverities = map[string]bool{"info": true, "warning": true, "critical": true}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Site.Server == "" {
		return fmt.Errorf("site.server is required")
	}
	server := c.Site.Server
	if strings.HasPrefix(server, "//") {
		server = "https:" + server
	}
	u, err := url.Parse(server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid site.server %q: must be an http(s) or scheme-relative URL", c.Site.Server)
	}

	if !strings.Contains(c.Site.ArticlePath, "$1") {
		return fmt.Errorf("invalid site.article_path %q: must contain $1", c.Site.ArticlePath)
	}
	if !strings.HasPrefix(c.Site.Script, "/") {
		return fmt.Errorf("invalid site.script %q: must be an absolute path", c.Site.Script)
	}

	if c.Links.ViewportMargin < 0 {
		return fmt.Errorf("links.viewport_margin must be non-negative")
	}

	if !validPresets[c.Href.WikilinkPreset] {
		return fmt.Errorf("invalid href.wikilink_preset %q: must be one of link, special", c.Href.WikilinkPreset)
	}

	if c.Fetch.TimeoutSeconds < 0 {
		return fmt.Errorf("fetch.timeout_seconds must be non-negative")
	}
	if c.SiteInfo.CacheTTLHours < 0 {
		return fmt.Errorf("siteinfo.cache_ttl_hours must be non-negative")
	}

	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.Notifications.WebhookURL != "" {
		if u, err := url.Parse(c.Notifications.WebhookURL); err != nil || u.Host == "" {
			return fmt.Errorf("invalid notifications.webhook_url %q", c.Notifications.WebhookURL)
		}
	}
	if c.Notifications.MinSeverity != "" && !validSeverities[c.Notifications.MinSeverity] {
		return fmt.Errorf("invalid notifications.min_severity %q: must be one of info, warning, critical", c.Notifications.MinSeverity)
	}

	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log.level %q: must be one of debug, info, warn, error", c.Log.Level)
	}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("invalid log.format %q: must be text or json", c.Log.Format)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	return nil
}
