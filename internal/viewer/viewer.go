// Package viewer owns the page being browsed: its link registry, the
// visibility window that drives lazy validation, and the single session
// that shows revision views over it.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ziadkadry99/revlens/internal/links"
	"github.com/ziadkadry99/revlens/internal/reference"
	"github.com/ziadkadry99/revlens/internal/session"
)

var (
	// ErrUnknownAnchor is returned for anchor ids the page does not have.
	ErrUnknownAnchor = errors.New("viewer: unknown anchor")
	// ErrEmptyPage is returned when a page has neither a body nor a URL.
	ErrEmptyPage = errors.New("viewer: page needs html, markdown or a url")
)

// Config wires a Viewer. Resolver is required.
type Config struct {
	Resolver     *reference.Resolver
	Fetcher      session.Fetcher
	Validator    links.Validator
	Dependencies session.Dependencies
	Filter       *links.Filter
	// Lazy validates links only once they scroll into view.
	Lazy   bool
	Margin int
	Scan   links.ScanOptions

	Globals  *session.Globals
	Events   session.EventSink
	Notifier session.Notifier
	Logger   *slog.Logger
}

// PageInput is a rendered page to browse. HTML wins over Markdown; with
// neither, URL is fetched and scanned.
type PageInput struct {
	URL      string `json:"url"`
	HTML     string `json:"html,omitempty"`
	Markdown string `json:"markdown,omitempty"`
}

// Page describes the page currently registered.
type Page struct {
	URL    string `json:"url"`
	Source string `json:"source"`
	Links  int    `json:"links"`
	Valid  int    `json:"valid"`
}

// Link is the serializable state of one registered anchor.
type Link struct {
	ID        int                      `json:"id"`
	Href      string                   `json:"href"`
	Text      string                   `json:"text,omitempty"`
	Valid     bool                     `json:"valid"`
	Loaded    bool                     `json:"loaded"`
	Processed bool                     `json:"processed"`
	Navigable bool                     `json:"navigable"`
	Open      bool                     `json:"open"`
	Reference *reference.PageReference `json:"reference,omitempty"`
	Error     string                   `json:"error,omitempty"`
	Kind      string                   `json:"kind,omitempty"`
}

// Viewer coordinates one browsed page and its session.
type Viewer struct {
	registry *links.Registry
	viewport *links.Viewport
	session  *session.Session
	hub      *Hub
	deps     session.Dependencies
	scan     links.ScanOptions
	lazy     bool
	logger   *slog.Logger

	mu   sync.Mutex
	page Page
}

// New creates a viewer with an empty page and an idle session.
func New(cfg Config) *Viewer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	viewport := links.NewViewport(cfg.Margin)
	registry := links.NewRegistry(cfg.Resolver, links.RegistryOptions{
		Filter:    cfg.Filter,
		Validator: cfg.Validator,
		Observer:  viewport,
		Lazy:      cfg.Lazy,
		Logger:    logger,
	})
	hub := NewHub(logger)
	scan := cfg.Scan
	if scan.Filter == nil {
		scan.Filter = cfg.Filter
	}
	sess := session.New(session.Config{
		Registry:     registry,
		Fetcher:      cfg.Fetcher,
		Dependencies: cfg.Dependencies,
		Globals:      cfg.Globals,
		Events:       session.Sinks{cfg.Events, hub},
		Notifier:     cfg.Notifier,
		Logger:       logger,
	})
	return &Viewer{
		registry: registry,
		viewport: viewport,
		session:  sess,
		hub:      hub,
		deps:     cfg.Dependencies,
		scan:     scan,
		lazy:     cfg.Lazy,
		logger:   logger,
	}
}

// LoadPage replaces the browsed page. An open session is closed first, the
// page's anchors are registered in document order, and with eager
// validation every link is validated before LoadPage returns.
func (v *Viewer) LoadPage(ctx context.Context, in PageInput) (Page, error) {
	if v.deps != nil {
		// Registration still works with the built-in aliases.
		if err := v.deps.Ensure(ctx); err != nil {
			v.logger.Warn("site info unavailable, using defaults", "error", err)
		}
	}

	anchors, source, err := v.scanPage(ctx, in)
	if err != nil {
		return Page{}, err
	}

	if err := v.session.Close(ctx); err != nil && !errors.Is(err, session.ErrNotOpen) {
		return Page{}, err
	}
	v.registry.Reset()
	v.registry.SetBase(in.URL)
	descriptors := v.registry.RegisterAll(anchors)

	if !v.lazy {
		if err := v.registry.RequestAll(ctx); err != nil {
			return Page{}, fmt.Errorf("validating links: %w", err)
		}
	}

	page := Page{URL: in.URL, Source: source, Links: len(descriptors)}
	for _, d := range descriptors {
		if d.IsValid() {
			page.Valid++
		}
	}
	v.mu.Lock()
	v.page = page
	v.mu.Unlock()

	v.logger.Info("page registered", "url", in.URL, "source", source, "links", page.Links, "valid", page.Valid)
	return page, nil
}

func (v *Viewer) scanPage(ctx context.Context, in PageInput) ([]links.Anchor, string, error) {
	switch {
	case strings.TrimSpace(in.HTML) != "":
		anchors, err := links.ScanHTML(strings.NewReader(in.HTML), v.scan)
		return anchors, "html", err
	case strings.TrimSpace(in.Markdown) != "":
		anchors, err := links.ScanMarkdown([]byte(in.Markdown), v.scan)
		return anchors, "markdown", err
	case in.URL != "":
		anchors, err := links.ScanURL(ctx, in.URL, v.scan)
		return anchors, "url", err
	}
	return nil, "", ErrEmptyPage
}

// Page returns the currently registered page.
func (v *Viewer) Page() Page {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.page
}

// Scroll reports the anchors in view. Lazy links in the window validate
// before Scroll returns.
func (v *Viewer) Scroll(ctx context.Context, first, last int) {
	v.viewport.Scroll(ctx, first, last)
}

// Links returns the state of every registered anchor in document order.
func (v *Viewer) Links() []Link {
	descriptors := v.registry.Descriptors()
	out := make([]Link, 0, len(descriptors))
	for _, d := range descriptors {
		l := Link{
			ID:        d.Anchor.ID,
			Href:      d.Anchor.Href,
			Text:      d.Anchor.Text,
			Valid:     d.IsValid(),
			Loaded:    d.IsLoaded(),
			Processed: d.IsProcessed(),
			Navigable: d.IsNavigable(),
			Open:      d.IsOpen(),
		}
		if l.Valid {
			ref := d.Reference()
			l.Reference = &ref
		}
		err := d.ResolveErr()
		if err == nil {
			err = d.RequestErr()
		}
		if err != nil {
			l.Error = err.Error()
			l.Kind = session.KindOf(err)
		}
		out = append(out, l)
	}
	return out
}

// Open shows the view of a registered anchor.
func (v *Viewer) Open(ctx context.Context, anchorID int) error {
	d, ok := v.registry.Get(anchorID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownAnchor, anchorID)
	}
	return v.session.Process(ctx, d, session.Options{})
}

// Compare shows the diff between two revisions of title, the way a history
// page's compare button does.
func (v *Viewer) Compare(ctx context.Context, title, oldID, diffID string) error {
	trigger, err := session.NewDialogTrigger(session.SourceHistoryCompare, nil, title)
	if err != nil {
		return err
	}
	trigger.Select(oldID, diffID)
	return trigger.Open(ctx, v.session, session.Options{})
}

// Next moves to the next navigable link of the session snapshot.
func (v *Viewer) Next(ctx context.Context) error { return v.session.Next(ctx) }

// Previous moves to the previous navigable link of the session snapshot.
func (v *Viewer) Previous(ctx context.Context) error { return v.session.Previous(ctx) }

// Back returns from a nested link to the initiator.
func (v *Viewer) Back(ctx context.Context) error { return v.session.Back(ctx) }

// Close hides the view.
func (v *Viewer) Close(ctx context.Context) error { return v.session.Close(ctx) }

// Status summarizes the session.
func (v *Viewer) Status() session.Status { return v.session.Status() }

// Session returns the underlying session.
func (v *Viewer) Session() *session.Session { return v.session }

// Registry returns the link registry of the current page.
func (v *Viewer) Registry() *links.Registry { return v.registry }

// Hub returns the websocket broadcaster.
func (v *Viewer) Hub() *Hub { return v.hub }
