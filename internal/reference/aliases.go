package reference

import "strings"

// Canonical names of the special pages the resolver understands.
const (
	SpecialDiff          = "Diff"
	SpecialPermanentLink = "PermanentLink"
	SpecialRedirect      = "Redirect"
	SpecialMobileDiff    = "MobileDiff"
)

// TrackedSpecialPages lists the canonical special pages that can address
// revisions.
var TrackedSpecialPages = []string{
	SpecialDiff,
	SpecialPermanentLink,
	SpecialRedirect,
	SpecialMobileDiff,
}

// AliasTable maps localized special-page names and special namespace names
// to their canonical forms. A table is immutable once built.
type AliasTable struct {
	namespaces map[string]struct{}
	names      map[string]string
}

// NewAliasTable builds a table from the special namespace names (canonical
// and localized) and a canonical name -> aliases mapping. Only tracked
// special pages are kept.
func NewAliasTable(namespaceNames []string, aliases map[string][]string) *AliasTable {
	t := &AliasTable{
		namespaces: make(map[string]struct{}),
		names:      make(map[string]string),
	}
	tracked := make(map[string]bool, len(TrackedSpecialPages))
	for _, name := range TrackedSpecialPages {
		tracked[name] = true
		t.names[normalizeName(name)] = name
	}
	for _, ns := range namespaceNames {
		if key := normalizeName(ns); key != "" {
			t.namespaces[key] = struct{}{}
		}
	}
	for canonical, list := range aliases {
		if !tracked[canonical] {
			continue
		}
		for _, alias := range list {
			if key := normalizeName(alias); key != "" {
				t.names[key] = canonical
			}
		}
	}
	return t
}

// DefaultAliasTable returns the built-in English names.
func DefaultAliasTable() *AliasTable {
	return NewAliasTable([]string{"Special"}, map[string][]string{
		SpecialDiff:          {"Diff"},
		SpecialPermanentLink: {"PermanentLink", "Permalink"},
		SpecialRedirect:      {"Redirect"},
		SpecialMobileDiff:    {"MobileDiff"},
	})
}

// Merge returns a new table holding the entries of both tables.
func (t *AliasTable) Merge(other *AliasTable) *AliasTable {
	merged := &AliasTable{
		namespaces: make(map[string]struct{}, len(t.namespaces)+len(other.namespaces)),
		names:      make(map[string]string, len(t.names)+len(other.names)),
	}
	for _, src := range []*AliasTable{t, other} {
		for k := range src.namespaces {
			merged.namespaces[k] = struct{}{}
		}
		for k, v := range src.names {
			merged.names[k] = v
		}
	}
	return merged
}

// IsSpecialNamespace reports whether ns names the special namespace.
func (t *AliasTable) IsSpecialNamespace(ns string) bool {
	_, ok := t.namespaces[normalizeName(ns)]
	return ok
}

// Canonical returns the canonical special-page name for an alias.
func (t *AliasTable) Canonical(name string) (string, bool) {
	canonical, ok := t.names[normalizeName(name)]
	return canonical, ok
}

// Len returns the number of known special-page aliases.
func (t *AliasTable) Len() int {
	return len(t.names)
}

// MatchSpecial splits a prefixed title such as "Special:Diff/1/2" and
// returns the canonical special-page name plus the trailing "/" segments.
func (t *AliasTable) MatchSpecial(title string) (string, []string, bool) {
	ns, rest, ok := strings.Cut(title, ":")
	if !ok || !t.IsSpecialNamespace(ns) {
		return "", nil, false
	}
	parts := strings.Split(rest, "/")
	canonical, ok := t.Canonical(parts[0])
	if !ok {
		return "", nil, false
	}
	var segments []string
	for _, p := range parts[1:] {
		if p = strings.TrimSpace(p); p != "" {
			segments = append(segments, p)
		}
	}
	return canonical, segments, true
}

func normalizeName(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", " ")
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
