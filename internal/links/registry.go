package links

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/ziadkadry99/revlens/internal/reference"
)

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	Filter    *Filter
	Validator Validator
	// Observer defers validation until an anchor is visible. With Lazy
	// false, or a nil Observer, callers validate through RequestAll.
	Observer Observer
	Lazy     bool
	Logger   *slog.Logger
}

// Registry maps anchor ids to descriptors for the page being viewed.
type Registry struct {
	resolver *reference.Resolver
	opts     RegistryOptions
	logger   *slog.Logger

	mu    sync.RWMutex
	base  string
	byID  map[int]*Descriptor
	order []int
}

// NewRegistry creates an empty registry.
func NewRegistry(resolver *reference.Resolver, opts RegistryOptions) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		resolver: resolver,
		opts:     opts,
		logger:   logger,
		byID:     make(map[int]*Descriptor),
	}
}

// Resolver returns the resolver used for new descriptors.
func (r *Registry) Resolver() *reference.Resolver {
	return r.resolver
}

// SetBase sets the URL relative hrefs are resolved against.
func (r *Registry) SetBase(base string) {
	r.mu.Lock()
	r.base = base
	r.mu.Unlock()
}

// Register creates the descriptor for an anchor. An anchor id is only ever
// registered once; later calls return the existing descriptor. Anchors
// rejected by the filter are not registered.
func (r *Registry) Register(a Anchor) (*Descriptor, bool) {
	if !r.opts.Filter.Allow(a.Href) {
		return nil, false
	}

	r.mu.Lock()
	if d, ok := r.byID[a.ID]; ok {
		r.mu.Unlock()
		return d, true
	}
	d := NewDescriptor(a, r.resolver, r.base)
	r.byID[a.ID] = d
	i := sort.SearchInts(r.order, a.ID)
	r.order = append(r.order, 0)
	copy(r.order[i+1:], r.order[i:])
	r.order[i] = a.ID
	r.mu.Unlock()

	if err := d.ResolveErr(); err != nil {
		r.logger.Debug("link not enhanced", "anchor", a.ID, "href", a.Href, "kind", reference.ErrorKind(err))
		return d, true
	}
	if r.opts.Lazy && r.opts.Observer != nil && r.opts.Validator != nil {
		r.opts.Observer.Observe(a.ID, func(ctx context.Context) {
			r.request(ctx, d)
		})
	}
	return d, true
}

// RegisterAll registers anchors and returns the accepted descriptors in
// document order.
func (r *Registry) RegisterAll(anchors []Anchor) []*Descriptor {
	var out []*Descriptor
	for _, a := range anchors {
		if d, ok := r.Register(a); ok {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Anchor.ID < out[j].Anchor.ID })
	return out
}

// Get returns the descriptor for an anchor id.
func (r *Registry) Get(id int) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	return d, ok
}

// Descriptors returns every descriptor in document order.
func (r *Registry) Descriptors() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Valid returns the descriptors whose href resolved, in document order.
func (r *Registry) Valid() []*Descriptor {
	var out []*Descriptor
	for _, d := range r.Descriptors() {
		if d.IsValid() {
			out = append(out, d)
		}
	}
	return out
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// RequestAll validates every pending descriptor in document order. Failures
// stay on their descriptors.
func (r *Registry) RequestAll(ctx context.Context) error {
	if r.opts.Validator == nil {
		return nil
	}
	for _, d := range r.Valid() {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.request(ctx, d)
	}
	return nil
}

func (r *Registry) request(ctx context.Context, d *Descriptor) {
	if err := d.Request(ctx, r.opts.Validator); err != nil {
		r.logger.Debug("link validation failed", "anchor", d.Anchor.ID, "error", err)
	}
}

// Reset drops every descriptor, for when a new page is loaded.
func (r *Registry) Reset() {
	r.mu.Lock()
	ids := r.order
	r.byID = make(map[int]*Descriptor)
	r.order = nil
	r.mu.Unlock()

	if r.opts.Observer != nil {
		for _, id := range ids {
			r.opts.Observer.Unobserve(id)
		}
	}
}
