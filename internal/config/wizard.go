package config

import (
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/ziadkadry99/revlens/internal/reference"
)

// SiteProbe asks a wiki's API for its URL grammar and display name.
type SiteProbe func(api string) (site reference.Site, name string, err error)

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it. A nil probe skips wiki detection.
func RunWizard(path string, probe SiteProbe) (*Config, error) {
	fmt.Println("Welcome to revlens! Let's configure the wiki you browse.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Server.
	serverPrompt := promptui.Prompt{
		Label:   "Wiki server (scheme and host)",
		Default: DefaultServer,
		Validate: func(s string) error {
			candidate := *cfg
			candidate.Site.Server = strings.TrimSpace(s)
			return candidate.Validate()
		},
	}
	server, err := serverPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	cfg.Site.Server = strings.TrimSuffix(strings.TrimSpace(server), "/")

	// 2. Detect the URL grammar, falling back to manual entry.
	detected := false
	if probe != nil {
		site, name, err := probe(cfg.APIURL())
		if err == nil {
			fmt.Printf("Detected wiki: %s\n\n", name)
			cfg.Site.ArticlePath = site.ArticlePath
			cfg.Site.Script = site.Script
			detected = true
		} else {
			fmt.Printf("Could not reach %s (%v); enter the paths manually.\n\n", cfg.APIURL(), err)
		}
	}
	if !detected {
		articlePrompt := promptui.Prompt{
			Label:   "Article path ($1 stands for the title)",
			Default: cfg.Site.ArticlePath,
		}
		if cfg.Site.ArticlePath, err = articlePrompt.Run(); err != nil {
			return nil, fmt.Errorf("article path: %w", err)
		}
		scriptPrompt := promptui.Prompt{
			Label:   "Script path",
			Default: cfg.Site.Script,
		}
		if cfg.Site.Script, err = scriptPrompt.Run(); err != nil {
			return nil, fmt.Errorf("script path: %w", err)
		}
	}

	// 3. Extra hosts.
	hostsPrompt := promptui.Prompt{
		Label:   "Extra hosts serving the same wiki (comma-separated, blank for none)",
		Default: "",
	}
	hosts, err := hostsPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("hosts: %w", err)
	}
	cfg.Site.Hosts = splitAndTrim(hosts)

	// 4. Link activation.
	lazyPrompt := promptui.Select{
		Label: "Validate page links",
		Items: []string{
			"lazy  - when they scroll into view",
			"eager - as soon as the page is registered",
		},
	}
	lazyIdx, _, err := lazyPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("link activation: %w", err)
	}
	cfg.Links.Lazy = lazyIdx == 0

	// 5. Wikilink preset.
	presetPrompt := promptui.Select{
		Label: "Wikilink output",
		Items: []string{
			"special - [[Special:Diff/1/2]]",
			"link    - [https://... Special:Diff/1/2]",
		},
	}
	presetIdx, _, err := presetPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("wikilink preset: %w", err)
	}
	presets := []reference.WikilinkPreset{reference.PresetSpecial, reference.PresetLink}
	cfg.Href.WikilinkPreset = string(presets[presetIdx])

	// 6. Failure webhook.
	webhookPrompt := promptui.Prompt{
		Label:   "Webhook URL for fetch failures (blank to disable)",
		Default: "",
	}
	webhook, err := webhookPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("webhook: %w", err)
	}
	cfg.Notifications.WebhookURL = strings.TrimSpace(webhook)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if token := strings.TrimSpace(part); token != "" {
			result = append(result, token)
		}
	}
	return result
}
