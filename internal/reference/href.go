package reference

import (
	"fmt"
	"net/url"
	"strings"
)

// WikilinkPreset selects the markup template used in wikilink mode.
type WikilinkPreset string

const (
	// PresetLink renders a bracketed external link.
	PresetLink WikilinkPreset = "link"
	// PresetSpecial renders an internal link to a special page.
	PresetSpecial WikilinkPreset = "special"
)

// HrefOptions selects the output shape of HrefBuilder.Build.
type HrefOptions struct {
	// Minify drops the entry-point path and the title, keeping only the
	// revision-identifying parameters. Title-relative diffs keep their title.
	Minify bool
	// Relative omits scheme and host.
	Relative bool
	// Wikilink renders wiki markup instead of a URL.
	Wikilink bool
	// WikilinkPreset defaults to PresetSpecial.
	WikilinkPreset WikilinkPreset
}

// HrefBuilder renders references back into links. It mirrors the
// resolver's canonicalization so that build -> resolve -> build is stable.
type HrefBuilder struct {
	site Site
}

// NewHrefBuilder creates a builder for the given site.
func NewHrefBuilder(site Site) *HrefBuilder {
	return &HrefBuilder{site: site}
}

// hrefParams is the canonical parameter set of a reference, in emit order.
type hrefParams struct {
	keys          []string
	values        []string
	titleRequired bool
	// special is the special-page path ("Diff/1/2") for the reference, or
	// empty when a special page cannot express it.
	special string
}

func (p *hrefParams) add(key, value string) {
	p.keys = append(p.keys, key)
	p.values = append(p.values, value)
}

// Build renders ref according to opts.
func (b *HrefBuilder) Build(ref PageReference, opts HrefOptions) (string, error) {
	p, err := canonicalParams(ref)
	if err != nil {
		return "", err
	}
	if opts.Wikilink {
		return b.wikilink(ref, p, opts.WikilinkPreset)
	}
	return b.url(ref, p, opts.Minify, opts.Relative)
}

func canonicalParams(ref PageReference) (hrefParams, error) {
	var p hrefParams
	if ref.Direction == "" {
		ref.Direction = DirPrev
	}

	switch ref.Type {
	case ClassDiff:
		switch {
		case IsValidID(ref.OldID) || IsValidID(ref.DiffID):
			canonicalizeDiff(&ref)
			if IsValidID(ref.OldID) && ref.DiffID == DirPrev {
				p.add("diff", ref.OldID)
				p.special = SpecialDiff + "/" + ref.OldID
				break
			}
			p.add("oldid", ref.OldID)
			p.add("diff", ref.DiffID)
			if IsValidID(ref.OldID) {
				p.special = SpecialDiff + "/" + ref.OldID + "/" + ref.DiffID
			} else {
				p.titleRequired = true
			}
		case ref.Title != "" && IsValidDir(ref.DiffID):
			if ref.OldID != "" {
				p.add("oldid", ref.OldID)
			}
			p.add("diff", ref.DiffID)
			p.titleRequired = true
		case IsValidID(ref.CurID):
			p.add("curid", ref.CurID)
			p.special = SpecialRedirect + "/page/" + ref.CurID
		default:
			return p, fmt.Errorf("%w: diff without revisions", ErrInsufficientParams)
		}
	case ClassRevision:
		switch {
		case IsValidID(ref.OldID):
			p.add("oldid", ref.OldID)
			if ref.Direction == DirNext {
				p.add("direction", DirNext)
			} else {
				p.special = SpecialPermanentLink + "/" + ref.OldID
			}
		case IsValidID(ref.CurID):
			p.add("curid", ref.CurID)
			p.special = SpecialRedirect + "/page/" + ref.CurID
		default:
			return p, fmt.Errorf("%w: revision without id", ErrInsufficientParams)
		}
	default:
		return p, fmt.Errorf("%w: unclassified reference", ErrInsufficientParams)
	}
	return p, nil
}

func (b *HrefBuilder) url(ref PageReference, p hrefParams, minify, relative bool) (string, error) {
	var parts []string
	if ref.Title != "" && (!minify || p.titleRequired) {
		parts = append(parts, "title="+escapeQueryTitle(ref.Title))
	}
	for i, k := range p.keys {
		parts = append(parts, k+"="+url.QueryEscape(p.values[i]))
	}

	path := b.site.Script
	if minify {
		path = "/"
	}
	href := path + "?" + strings.Join(parts, "&")
	if !minify && ref.Section != "" {
		href += "#" + escapeTitle(ref.Section)
	}
	if relative {
		return href, nil
	}

	server, err := b.site.serverURL()
	if err != nil {
		return "", err
	}
	return server.Scheme + "://" + server.Host + href, nil
}

func (b *HrefBuilder) wikilink(ref PageReference, p hrefParams, preset WikilinkPreset) (string, error) {
	if preset == "" {
		preset = PresetSpecial
	}
	if preset == PresetSpecial && p.special != "" {
		return "[[Special:" + p.special + "]]", nil
	}

	href, err := b.url(ref, p, true, false)
	if err != nil {
		return "", err
	}
	label := ref.TitleText
	if p.special != "" {
		label = "Special:" + p.special
	}
	if label == "" {
		label = ref.Title
	}
	return "[" + href + " " + label + "]", nil
}
