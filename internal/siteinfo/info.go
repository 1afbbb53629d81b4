// Package siteinfo bootstraps the special-page alias table and namespace
// names of a wiki from its Action API, with a sqlite cache.
package siteinfo

import (
	"strings"

	"github.com/ziadkadry99/revlens/internal/reference"
)

// specialNamespace is the id of the Special: namespace.
const specialNamespace = -1

// General is the subset of siprop=general the resolver needs.
type General struct {
	SiteName    string `json:"sitename"`
	Server      string `json:"server"`
	ArticlePath string `json:"articlepath"`
	Script      string `json:"script"`
	Lang        string `json:"lang"`
}

// Namespace is one entry of siprop=namespaces.
type Namespace struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Canonical string `json:"canonical,omitempty"`
}

// NamespaceAlias is one entry of siprop=namespacealiases.
type NamespaceAlias struct {
	ID    int    `json:"id"`
	Alias string `json:"alias"`
}

// SpecialPageAlias is one entry of siprop=specialpagealiases.
type SpecialPageAlias struct {
	RealName string   `json:"realname"`
	Aliases  []string `json:"aliases"`
}

// Info is the decoded siteinfo payload. The JSON shape matches the API's
// formatversion=2 query object so cached copies decode the same way.
type Info struct {
	General            General              `json:"general"`
	Namespaces         map[string]Namespace `json:"namespaces"`
	NamespaceAliases   []NamespaceAlias     `json:"namespacealiases"`
	SpecialPageAliases []SpecialPageAlias   `json:"specialpagealiases"`
}

// Site returns the URL grammar described by the general section, falling
// back to fallback for unset fields.
func (i *Info) Site(fallback reference.Site) reference.Site {
	site := fallback
	if i.General.Server != "" {
		site.Server = i.General.Server
	}
	if i.General.ArticlePath != "" {
		site.ArticlePath = i.General.ArticlePath
	}
	if i.General.Script != "" {
		site.Script = i.General.Script
	}
	return site
}

// AliasTable returns the special namespace names and the tracked
// special-page aliases of the wiki.
func (i *Info) AliasTable() *reference.AliasTable {
	var names []string
	for _, ns := range i.Namespaces {
		if ns.ID != specialNamespace {
			continue
		}
		names = append(names, ns.Name)
		if ns.Canonical != "" {
			names = append(names, ns.Canonical)
		}
	}
	for _, a := range i.NamespaceAliases {
		if a.ID == specialNamespace {
			names = append(names, a.Alias)
		}
	}

	aliases := make(map[string][]string, len(i.SpecialPageAliases))
	for _, sp := range i.SpecialPageAliases {
		aliases[sp.RealName] = append(aliases[sp.RealName], sp.Aliases...)
	}
	return reference.NewAliasTable(names, aliases)
}

// NamespaceNames maps every namespace name, canonical name and alias to the
// local namespace name. The main namespace is skipped.
func (i *Info) NamespaceNames() map[string]string {
	out := make(map[string]string)
	byID := make(map[int]string, len(i.Namespaces))
	for _, ns := range i.Namespaces {
		if ns.ID == 0 || ns.Name == "" {
			continue
		}
		byID[ns.ID] = ns.Name
		out[ns.Name] = ns.Name
		if ns.Canonical != "" {
			out[ns.Canonical] = ns.Name
		}
	}
	for _, a := range i.NamespaceAliases {
		if name, ok := byID[a.ID]; ok {
			out[a.Alias] = name
		}
	}
	return out
}

// Apply installs the wiki's aliases and namespaces on a resolver, merged
// over the built-in English names.
func (i *Info) Apply(r *reference.Resolver) {
	r.SetAliases(reference.DefaultAliasTable().Merge(i.AliasTable()))

	namespaces := make(map[string]string, len(reference.DefaultNamespaces))
	for k, v := range reference.DefaultNamespaces {
		namespaces[k] = v
	}
	// Keys are folded so the wiki's names replace the defaults.
	for k, v := range i.NamespaceNames() {
		namespaces[strings.ToLower(strings.ReplaceAll(k, "_", " "))] = v
	}
	r.SetTitles(reference.NewSiteTitles(r.Site(), namespaces))
}
