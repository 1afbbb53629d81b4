package config

// Config is the top-level revlens configuration, corresponding to .revlens.yml.
type Config struct {
	Site          SiteConfig          `yaml:"site" koanf:"site"`
	Links         LinksConfig         `yaml:"links" koanf:"links"`
	Href          HrefConfig          `yaml:"href" koanf:"href"`
	Fetch         FetchConfig         `yaml:"fetch" koanf:"fetch"`
	SiteInfo      SiteInfoConfig      `yaml:"siteinfo" koanf:"siteinfo"`
	DataDir       string              `yaml:"data_dir" koanf:"data_dir"`
	Notifications NotificationsConfig `yaml:"notifications" koanf:"notifications"`
	Log           LogConfig           `yaml:"log" koanf:"log"`
	Server        ServerConfig        `yaml:"server" koanf:"server"`
}

// SiteConfig describes the wiki links are resolved against.
type SiteConfig struct {
	Server      string `yaml:"server" koanf:"server"`
	ArticlePath string `yaml:"article_path" koanf:"article_path"`
	Script      string `yaml:"script" koanf:"script"`
	// API defaults to api.php next to Script.
	API   string   `yaml:"api,omitempty" koanf:"api"`
	Hosts []string `yaml:"hosts,omitempty" koanf:"hosts"`
}

// LinksConfig controls which page links are registered and when they are
// validated.
type LinksConfig struct {
	Include        []string `yaml:"include,omitempty" koanf:"include"`
	Exclude        []string `yaml:"exclude,omitempty" koanf:"exclude"`
	Lazy           bool     `yaml:"lazy" koanf:"lazy"`
	ViewportMargin int      `yaml:"viewport_margin" koanf:"viewport_margin"`
}

// HrefConfig holds the default link output shape.
type HrefConfig struct {
	Minify         bool   `yaml:"minify" koanf:"minify"`
	Relative       bool   `yaml:"relative" koanf:"relative"`
	WikilinkPreset string `yaml:"wikilink_preset" koanf:"wikilink_preset"`
}

// FetchConfig holds Action API client settings.
type FetchConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds" koanf:"timeout_seconds"`
	UserAgent      string `yaml:"user_agent,omitempty" koanf:"user_agent"`
}

// SiteInfoConfig controls the alias and namespace cache.
type SiteInfoConfig struct {
	CacheTTLHours int  `yaml:"cache_ttl_hours" koanf:"cache_ttl_hours"`
	Refresh       bool `yaml:"refresh" koanf:"refresh"`
}

// NotificationsConfig holds failure report delivery settings.
type NotificationsConfig struct {
	WebhookURL  string `yaml:"webhook_url,omitempty" koanf:"webhook_url"`
	MinSeverity string `yaml:"min_severity" koanf:"min_severity"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port" koanf:"port"`
}
