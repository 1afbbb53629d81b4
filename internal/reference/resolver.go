package reference

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// ResolveOptions configures a single Resolve call.
type ResolveOptions struct {
	// FallbackTitle is used when the link carries no title of its own, for
	// example when a link minifier stripped it.
	FallbackTitle string
	// Base is the URL of the page the link was found on. Relative links are
	// resolved against it; it defaults to the site server.
	Base string
}

// Resolver turns raw hyperlinks into canonical page references.
type Resolver struct {
	site Site

	mu      sync.RWMutex
	titles  TitleNormalizer
	aliases *AliasTable
}

// NewResolver creates a Resolver. Nil titles or aliases select the built-in
// defaults.
func NewResolver(site Site, titles TitleNormalizer, aliases *AliasTable) *Resolver {
	if titles == nil {
		titles = NewSiteTitles(site, nil)
	}
	if aliases == nil {
		aliases = DefaultAliasTable()
	}
	return &Resolver{site: site, titles: titles, aliases: aliases}
}

// Site returns the URL grammar the resolver was built for.
func (r *Resolver) Site() Site {
	return r.site
}

// SetAliases replaces the special-page alias table.
func (r *Resolver) SetAliases(t *AliasTable) {
	r.mu.Lock()
	r.aliases = t
	r.mu.Unlock()
}

// SetTitles replaces the title normalization service.
func (r *Resolver) SetTitles(t TitleNormalizer) {
	r.mu.Lock()
	r.titles = t
	r.mu.Unlock()
}

// Aliases returns the current special-page alias table.
func (r *Resolver) Aliases() *AliasTable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.aliases
}

// Titles returns the current title normalization service.
func (r *Resolver) Titles() TitleNormalizer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.titles
}

// Resolve parses a raw link into a canonical reference. Malformed links fail
// with ErrMalformedURL, links without enough parameters with
// ErrInsufficientParams. Both leave the link a plain link.
func (r *Resolver) Resolve(rawURL string, opts ResolveOptions) (PageReference, error) {
	u, err := r.parseURL(rawURL, opts.Base)
	if err != nil {
		return PageReference{}, err
	}
	if !r.site.acceptsHost(u.Host) {
		return PageReference{}, fmt.Errorf("%w: %s", ErrForeignHost, u.Host)
	}

	ref := r.extract(u)

	ref.Title = strings.TrimSpace(ref.Title)
	ref.OldID = firstSegment(ref.OldID)
	ref.DiffID = normalizeDiffID(firstSegment(ref.DiffID))
	ref.CurID = firstSegment(ref.CurID)
	ref.Direction = normalizeDirection(firstSegment(ref.Direction))

	if ref.Title == "" && opts.FallbackTitle != "" {
		ref.Title = opts.FallbackTitle
	}

	classified, ok := classify(ref)
	if !ok {
		return PageReference{}, fmt.Errorf("%w: %s", ErrInsufficientParams, rawURL)
	}
	return r.canonicalTitle(classified)
}

// Extend re-derives a reference once a fetch reveals its true title.
func (r *Resolver) Extend(ref PageReference, title string) PageReference {
	if title == "" {
		return ref
	}
	raw := title
	if ref.Section != "" {
		raw += "#" + ref.Section
	}
	t, err := r.Titles().Normalize(raw)
	if err != nil {
		return ref
	}
	ref.Title = t.Text
	ref.Section = t.Section
	ref.TitleText = t.TextWithSection
	ref.Href = t.URL
	return ref
}

func (r *Resolver) parseURL(rawURL, base string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformedURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrMalformedURL, u.Scheme)
	}
	if u.IsAbs() {
		return u, nil
	}

	var baseURL *url.URL
	if base != "" {
		if baseURL, err = url.Parse(base); err != nil {
			return nil, fmt.Errorf("%w: base: %v", ErrMalformedURL, err)
		}
	} else if baseURL, err = r.site.serverURL(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	return baseURL.ResolveReference(u), nil
}

// extract reads the raw parameters from the first address shape that
// matches: special page by name, query parameters, article path.
func (r *Resolver) extract(u *url.URL) PageReference {
	q := u.Query()
	ref := PageReference{Section: u.Fragment}

	pathTitle, hasPathTitle := r.site.articleTitle(u.Path)
	candidate := q.Get("title")
	if candidate == "" && hasPathTitle {
		candidate = pathTitle
	}

	if name, segments, ok := r.Aliases().MatchSpecial(candidate); ok {
		ref.Direction = q.Get("direction")
		n := len(segments)
		switch name {
		case SpecialPermanentLink:
			if n > 0 {
				ref.OldID = segments[n-1]
			}
		case SpecialRedirect:
			if n >= 2 {
				switch strings.ToLower(segments[0]) {
				case "revision":
					ref.OldID = segments[1]
				case "page":
					ref.CurID = segments[1]
				}
			}
		default:
			if n > 0 {
				ref.DiffID = segments[n-1]
			}
			if n > 1 {
				ref.OldID = segments[n-2]
			}
		}
		return ref
	}

	ref.Title = q.Get("title")
	ref.CurID = q.Get("curid")
	ref.OldID = q.Get("oldid")
	ref.DiffID = q.Get("diff")
	ref.Direction = q.Get("direction")

	if ref.Title == "" && hasPathTitle {
		ref.Title = pathTitle
	}
	return ref
}

// canonicalTitle resolves the title through the normalization service and
// caches its output on the reference.
func (r *Resolver) canonicalTitle(ref PageReference) (PageReference, error) {
	if ref.Title == "" {
		return ref, nil
	}
	raw := ref.Title
	if ref.Section != "" {
		raw += "#" + ref.Section
	}
	t, err := r.Titles().Normalize(raw)
	if err != nil {
		if titleRelative(ref) {
			return PageReference{}, errors.Join(ErrInsufficientParams, err)
		}
		ref.Title, ref.Section = "", ""
		return ref, nil
	}
	ref.Title = t.Text
	ref.Section = t.Section
	ref.TitleText = t.TextWithSection
	ref.Href = t.URL
	return ref, nil
}
