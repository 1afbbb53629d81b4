package siteinfo

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ziadkadry99/revlens/internal/fetch"
	"github.com/ziadkadry99/revlens/internal/reference"
)

// DefaultTTL is how long a cached payload counts as fresh.
const DefaultTTL = 24 * time.Hour

// Fetcher retrieves live siteinfo. *Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context) (*Info, error)
}

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	// API keys the cache.
	API   string
	TTL   time.Duration
	Store *Store
	// Refresh ignores a fresh cached copy.
	Refresh bool
	// Resolver receives the aliases and namespaces once loaded.
	Resolver *reference.Resolver
	Logger   *slog.Logger
}

// Loader resolves siteinfo from the cache or the API, once per process.
type Loader struct {
	fetcher Fetcher
	opts    LoaderOptions
	logger  *slog.Logger
	now     func() time.Time

	mu   sync.Mutex
	info *Info
}

// NewLoader creates a loader.
func NewLoader(f Fetcher, opts LoaderOptions) *Loader {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{fetcher: f, opts: opts, logger: logger, now: time.Now}
}

// Load returns a fresh cached copy, else fetches and caches a live one,
// else falls back to a stale cached copy. With neither it fails with a
// dependency error.
func (l *Loader) Load(ctx context.Context) (*Info, error) {
	var cached *Cached
	if l.opts.Store != nil {
		c, err := l.opts.Store.Get(ctx, l.opts.API)
		if err != nil {
			l.logger.Warn("siteinfo cache unreadable", "api", l.opts.API, "error", err)
		}
		cached = c
	}
	if cached != nil && !l.opts.Refresh && l.now().Sub(cached.FetchedAt) < l.opts.TTL {
		l.logger.Debug("siteinfo from cache", "api", l.opts.API, "fetched_at", cached.FetchedAt)
		return cached.Info, nil
	}

	var fetchErr error
	if l.fetcher == nil {
		fetchErr = errors.New("no siteinfo source configured")
	} else {
		info, err := l.fetcher.Fetch(ctx)
		if err == nil {
			if l.opts.Store != nil {
				if err := l.opts.Store.Save(ctx, l.opts.API, info, l.now()); err != nil {
					l.logger.Warn("siteinfo not cached", "api", l.opts.API, "error", err)
				}
			}
			l.logger.Info("siteinfo fetched", "api", l.opts.API, "site", info.General.SiteName)
			return info, nil
		}
		fetchErr = err
	}

	if cached != nil {
		l.logger.Warn("using stale siteinfo", "api", l.opts.API, "fetched_at", cached.FetchedAt, "error", fetchErr)
		return cached.Info, nil
	}
	return nil, fetch.DependencyError("siteinfo", fetchErr)
}

// Ensure loads siteinfo the first time it is called and installs it on the
// resolver. Later calls return immediately; failures are retried.
func (l *Loader) Ensure(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.info != nil {
		return nil
	}
	info, err := l.Load(ctx)
	if err != nil {
		return err
	}
	l.info = info
	if l.opts.Resolver != nil {
		info.Apply(l.opts.Resolver)
	}
	return nil
}

// Info returns the loaded siteinfo, or nil before Ensure succeeded.
func (l *Loader) Info() *Info {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.info
}
