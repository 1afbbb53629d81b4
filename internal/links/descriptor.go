// Package links binds page anchors to resolved references and tracks their
// lazy validation lifecycle.
package links

import (
	"context"
	"sync"

	"github.com/ziadkadry99/revlens/internal/reference"
)

// Anchor is a hyperlink captured from a rendered page. IDs are positions in
// document order.
type Anchor struct {
	ID        int    `json:"id"`
	Href      string `json:"href"`
	Text      string `json:"text,omitempty"`
	TitleHint string `json:"title_hint,omitempty"`
}

// Validator confirms a reference against the platform and returns it
// extended with what the platform knows, such as the true title.
type Validator interface {
	Validate(ctx context.Context, ref reference.PageReference) (reference.PageReference, error)
}

// Hooks are per-descriptor lifecycle callbacks.
type Hooks struct {
	OnOpen  func(*Descriptor)
	OnClose func(*Descriptor)
}

// Descriptor binds one anchor to its reference and lifecycle flags.
type Descriptor struct {
	Anchor Anchor

	mu          sync.Mutex
	ref         reference.PageReference
	resolveErr  error
	requestErr  error
	isLoading   bool
	isLoaded    bool
	isProcessed bool
	hasRequest  bool
	open        bool
	hooks       Hooks
}

// NewDescriptor resolves the anchor's href. A link that fails resolution
// still gets a descriptor; it just never requests anything.
func NewDescriptor(a Anchor, resolver *reference.Resolver, base string) *Descriptor {
	d := &Descriptor{Anchor: a}
	ref, err := resolver.Resolve(a.Href, reference.ResolveOptions{FallbackTitle: a.TitleHint, Base: base})
	if err != nil {
		d.resolveErr = err
		return d
	}
	d.ref = ref
	d.hasRequest = true
	return d
}

// NewDescriptorFor binds an already resolved reference to an anchor, for
// views that do not start from a page link.
func NewDescriptorFor(a Anchor, ref reference.PageReference) *Descriptor {
	d := &Descriptor{Anchor: a, ref: ref}
	if !ref.IsValid() {
		d.resolveErr = reference.ErrInsufficientParams
		return d
	}
	d.hasRequest = true
	return d
}

// Reference returns the current reference.
func (d *Descriptor) Reference() reference.PageReference {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ref
}

// SetReference replaces the reference with one re-derived from new facts.
func (d *Descriptor) SetReference(ref reference.PageReference) {
	d.mu.Lock()
	d.ref = ref
	d.mu.Unlock()
}

// IsValid reports whether the href resolved to a reference.
func (d *Descriptor) IsValid() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resolveErr == nil && d.ref.IsValid()
}

// ResolveErr returns the resolution failure, if any.
func (d *Descriptor) ResolveErr() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resolveErr
}

// RequestErr returns the validation failure of the last request, if any.
func (d *Descriptor) RequestErr() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.requestErr
}

func (d *Descriptor) IsLoading() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isLoading
}

func (d *Descriptor) IsLoaded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isLoaded
}

func (d *Descriptor) IsProcessed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isProcessed
}

func (d *Descriptor) HasRequest() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hasRequest
}

// IsNavigable reports whether previous/next navigation may land on the
// descriptor: it validated successfully, or its validation is still pending.
func (d *Descriptor) IsNavigable() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isProcessed || (!d.isLoaded && d.hasRequest)
}

// Request validates the reference once. Calls while a validation is in
// flight or after it finished are no-ops.
func (d *Descriptor) Request(ctx context.Context, v Validator) error {
	d.mu.Lock()
	if !d.hasRequest || d.isLoading || d.isLoaded {
		err := d.resolveErr
		d.mu.Unlock()
		return err
	}
	d.isLoading = true
	ref := d.ref
	d.mu.Unlock()

	extended, err := v.Validate(ctx, ref)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.isLoading = false
	d.isLoaded = true
	if err != nil {
		d.requestErr = err
		return err
	}
	if extended.IsValid() {
		d.ref = extended
	}
	d.isProcessed = true
	return nil
}

// SetHooks replaces the lifecycle callbacks.
func (d *Descriptor) SetHooks(h Hooks) {
	d.mu.Lock()
	d.hooks = h
	d.mu.Unlock()
}

// IsOpen reports whether the descriptor is currently shown.
func (d *Descriptor) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// NotifyOpen marks the descriptor as shown and fires OnOpen on the
// transition. It reports whether the hook was due.
func (d *Descriptor) NotifyOpen() bool {
	d.mu.Lock()
	if d.open {
		d.mu.Unlock()
		return false
	}
	d.open = true
	hook := d.hooks.OnOpen
	d.mu.Unlock()

	if hook != nil {
		hook(d)
	}
	return true
}

// NotifyClose marks the descriptor as hidden and fires OnClose on the
// transition. It reports whether the hook was due.
func (d *Descriptor) NotifyClose() bool {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return false
	}
	d.open = false
	hook := d.hooks.OnClose
	d.mu.Unlock()

	if hook != nil {
		hook(d)
	}
	return true
}
