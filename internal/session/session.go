// Package session runs the single viewing session of a page: which link
// opened it, which link is in focus, and what previous, next and back lead
// to.
package session

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/revlens/internal/fetch"
	"github.com/ziadkadry99/revlens/internal/links"
	"github.com/ziadkadry99/revlens/internal/navigation"
	"github.com/ziadkadry99/revlens/internal/reference"
)

// State is the lifecycle state of a session.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Options are the callbacks of one Process call. The options of the latest
// call belong to the session until it closes.
type Options struct {
	OnOpen  func(*Session)
	OnClose func(*Session)
}

// Fetcher retrieves the content a reference points to.
type Fetcher interface {
	Fetch(ctx context.Context, ref reference.PageReference) (*fetch.Content, error)
}

// Dependencies loads the resources a session needs before it can show
// anything.
type Dependencies interface {
	Ensure(ctx context.Context) error
}

// Config wires a Session. Registry is required.
type Config struct {
	Registry     *links.Registry
	Fetcher      Fetcher
	Dependencies Dependencies
	Globals      *Globals
	Events       EventSink
	Notifier     Notifier
	Logger       *slog.Logger
}

// View is what the session shows. A failed fetch is a view too: Err is set
// and Content is nil.
type View struct {
	Link      *links.Descriptor
	Reference reference.PageReference
	Content   *fetch.Content
	Err       error
}

// Session is the state machine behind the overlay.
type Session struct {
	registry *links.Registry
	fetcher  Fetcher
	deps     Dependencies
	globals  *Globals
	events   EventSink
	notifier Notifier
	logger   *slog.Logger

	mu                sync.Mutex
	id                string
	state             State
	opts              Options
	snapshot          *navigation.Snapshot
	opener            *links.Descriptor
	initiator         *links.Descriptor
	previousInitiator *links.Descriptor
	current           *links.Descriptor
	loading           *links.Descriptor
	view              *View
	saved             savedGlobals
	// gen changes whenever an in-flight fetch stops being relevant.
	gen uint64
}

// New creates an idle session.
func New(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	globals := cfg.Globals
	if globals == nil {
		globals = NewGlobals(nil)
	}
	return &Session{
		registry: cfg.Registry,
		fetcher:  cfg.Fetcher,
		deps:     cfg.Dependencies,
		globals:  globals,
		events:   cfg.Events,
		notifier: cfg.Notifier,
		logger:   logger,
	}
}

// Process shows the view for d. On an idle session it starts a new session
// with a fresh snapshot; on an open one it replaces the view in place.
// While another view is loading it returns ErrBusy and changes nothing.
// Fetch failures do not fail Process: the session opens on an error view.
func (s *Session) Process(ctx context.Context, d *links.Descriptor, opts Options) error {
	if d == nil {
		return ErrNoTarget
	}
	if !d.IsValid() {
		if err := d.ResolveErr(); err != nil {
			return err
		}
		return reference.ErrInsufficientParams
	}

	s.mu.Lock()
	if s.state == StateLoading {
		s.mu.Unlock()
		return ErrBusy
	}
	replace := s.state == StateOpen
	if replace && s.current == d && s.view != nil && s.view.Reference.Key() == d.Reference().Key() {
		s.mu.Unlock()
		return nil
	}

	if !replace {
		s.id = uuid.NewString()
		s.snapshot = navigation.Capture(s.registry)
		s.opener = d
		s.initiator, s.previousInitiator = nil, nil
	}
	if s.snapshot.Has(d) {
		s.previousInitiator = s.initiator
		s.initiator = d
		s.snapshot.SetCurrent(d)
	}

	var lostFocus []*links.Descriptor
	if replace {
		for _, old := range []*links.Descriptor{s.current, s.previousInitiator} {
			if old != nil && old != d && old != s.opener && old != s.initiator {
				lostFocus = append(lostFocus, old)
			}
		}
	}

	s.opts = opts
	s.state = StateLoading
	s.loading = d
	s.gen++
	gen, id := s.gen, s.id
	s.mu.Unlock()

	for _, old := range lostFocus {
		old.NotifyClose()
	}

	ref := d.Reference()
	s.emit(ctx, Event{Type: EventLoading, SessionID: id, AnchorID: d.Anchor.ID, Reference: ref})

	content, err := s.load(ctx, ref)

	s.mu.Lock()
	if s.gen != gen || s.state != StateLoading {
		s.mu.Unlock()
		s.logger.Debug("discarding superseded view", "session", id, "anchor", d.Anchor.ID)
		return ErrStale
	}
	if err == nil && content != nil && content.Title != "" && s.registry != nil {
		ref = s.registry.Resolver().Extend(ref, content.Title)
		d.SetReference(ref)
	}
	// The previous view stays attached until the new one is ready.
	s.view = &View{Link: d, Reference: ref, Content: content, Err: err}
	s.current = d
	s.loading = nil
	s.state = StateOpen
	if s.saved == nil {
		s.saved = s.globals.save()
	}
	s.globals.override(ref, content)
	s.mu.Unlock()

	d.NotifyOpen()
	if opts.OnOpen != nil {
		opts.OnOpen(s)
	}

	evType := EventOpen
	if replace {
		evType = EventReplace
	}
	s.emit(ctx, Event{Type: evType, SessionID: id, AnchorID: d.Anchor.ID, Reference: ref})
	if err != nil {
		s.reportFailure(ctx, Event{
			Type:      EventError,
			SessionID: id,
			AnchorID:  d.Anchor.ID,
			Reference: ref,
			Error:     err.Error(),
			Kind:      KindOf(err),
			Code:      CodeOf(err),
		})
	}
	s.logger.Info("session view", "session", id, "event", evType, "anchor", d.Anchor.ID, "type", ref.Type)
	return nil
}

func (s *Session) load(ctx context.Context, ref reference.PageReference) (*fetch.Content, error) {
	if s.deps != nil {
		if err := s.deps.Ensure(ctx); err != nil {
			if KindOf(err) != KindDependency {
				err = fetch.DependencyError("dependencies", err)
			}
			return nil, err
		}
	}
	if s.fetcher == nil {
		return nil, nil
	}
	content, err := s.fetcher.Fetch(ctx, ref)
	if err != nil {
		if _, ok := fetch.AsError(err); !ok {
			err = &fetch.Error{Type: fetch.TypeFetch, Message: err.Error(), Err: err}
		}
		return nil, err
	}
	return content, nil
}

func (s *Session) reportFailure(ctx context.Context, ev Event) {
	s.emit(ctx, ev)
	s.logger.Warn("view failed", "session", ev.SessionID, "anchor", ev.AnchorID, "kind", ev.Kind, "error", ev.Error)
	if s.notifier == nil || (ev.Kind != KindFetch && ev.Kind != KindDependency) {
		return
	}
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.logger.Warn("failure notification not delivered", "session", ev.SessionID, "error", err)
	}
}

// Close hides the view, restores the page globals and fires the close
// callbacks: the session's own, then the opener's when it is not the
// current link, then the initiator's. Links that the session's own
// callback reopened are left open. Closing while loading discards the
// in-flight result.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateOpen && s.state != StateLoading {
		s.mu.Unlock()
		return ErrNotOpen
	}
	s.gen++
	id, opts := s.id, s.opts
	current, opener, initiator, previous := s.current, s.opener, s.initiator, s.previousInitiator
	ev := Event{Type: EventClose, SessionID: id, AnchorID: -1}
	if s.view != nil {
		ev.AnchorID = s.view.Link.Anchor.ID
		ev.Reference = s.view.Reference
	}
	s.view, s.current, s.loading = nil, nil, nil
	if s.saved != nil {
		s.globals.restore(s.saved)
		s.saved = nil
	}
	s.state = StateClosed
	s.mu.Unlock()

	if opts.OnClose != nil {
		opts.OnClose(s)
	}

	// Links a session started by the callback still shows stay open.
	s.mu.Lock()
	var live []*links.Descriptor
	if s.state != StateClosed {
		live = []*links.Descriptor{s.current, s.loading, s.opener, s.initiator}
	}
	s.mu.Unlock()

	var closing []*links.Descriptor
	if opener != nil && opener != current {
		closing = append(closing, opener)
	}
	// A nested link or a stale previous initiator may still be marked open.
	closing = append(closing, initiator, current, previous)
	for _, d := range closing {
		if d != nil && !slices.Contains(live, d) {
			d.NotifyClose()
		}
	}

	s.mu.Lock()
	// A close callback may already have started a new session.
	if s.state == StateClosed {
		s.state = StateIdle
		s.snapshot = nil
		s.opener, s.initiator, s.previousInitiator = nil, nil, nil
	}
	s.mu.Unlock()

	s.emit(ctx, ev)
	s.logger.Info("session closed", "session", id)
	return nil
}

// Previous opens the nearest navigable link before the initiator.
func (s *Session) Previous(ctx context.Context) error {
	return s.navigate(ctx, (*navigation.Snapshot).Previous)
}

// Next opens the nearest navigable link after the initiator.
func (s *Session) Next(ctx context.Context) error {
	return s.navigate(ctx, (*navigation.Snapshot).Next)
}

func (s *Session) navigate(ctx context.Context, pick func(*navigation.Snapshot) *links.Descriptor) error {
	s.mu.Lock()
	if s.state != StateOpen || s.snapshot == nil {
		s.mu.Unlock()
		return ErrNotOpen
	}
	target := pick(s.snapshot)
	opts := s.opts
	s.mu.Unlock()

	if target == nil {
		return ErrNoTarget
	}
	return s.Process(ctx, target, opts)
}

// Back returns from a link opened inside the view to the initiator.
func (s *Session) Back(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateOpen {
		s.mu.Unlock()
		return ErrNotOpen
	}
	target := s.initiator
	if target == s.current {
		target = nil
	}
	opts := s.opts
	s.mu.Unlock()

	if target == nil {
		return ErrNoTarget
	}
	return s.Process(ctx, target, opts)
}

func (s *Session) emit(ctx context.Context, ev Event) {
	if s.events == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	s.events.Emit(ctx, ev)
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ID returns the id of the current or last session.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Opener returns the link that started the session.
func (s *Session) Opener() *links.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opener
}

// Initiator returns the snapshot link in focus.
func (s *Session) Initiator() *links.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initiator
}

// PreviousInitiator returns the snapshot link that was in focus before the
// initiator.
func (s *Session) PreviousInitiator() *links.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previousInitiator
}

// Current returns the link whose view is shown.
func (s *Session) Current() *links.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// View returns the shown view, or nil.
func (s *Session) View() *View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Snapshot returns the active snapshot, or nil when idle.
func (s *Session) Snapshot() *navigation.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Globals returns the page globals the session overrides.
func (s *Session) Globals() *Globals {
	return s.globals
}

// Status is a serializable summary of the session. Anchor ids are -1 when
// unset.
type Status struct {
	ID                string                   `json:"id,omitempty"`
	State             State                    `json:"state"`
	Opener            int                      `json:"opener"`
	Initiator         int                      `json:"initiator"`
	PreviousInitiator int                      `json:"previous_initiator"`
	Current           int                      `json:"current"`
	Loading           int                      `json:"loading"`
	Reference         *reference.PageReference `json:"reference,omitempty"`
	Content           *fetch.Content           `json:"content,omitempty"`
	Error             string                   `json:"error,omitempty"`
	Kind              string                   `json:"kind,omitempty"`
	HasPrevious       bool                     `json:"has_previous"`
	HasNext           bool                     `json:"has_next"`
	CanGoBack         bool                     `json:"can_go_back"`
	Snapshot          []int                    `json:"snapshot,omitempty"`
}

// Status summarizes the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		ID:                s.id,
		State:             s.state,
		Opener:            anchorID(s.opener),
		Initiator:         anchorID(s.initiator),
		PreviousInitiator: anchorID(s.previousInitiator),
		Current:           anchorID(s.current),
		Loading:           anchorID(s.loading),
	}
	if s.view != nil {
		ref := s.view.Reference
		st.Reference = &ref
		st.Content = s.view.Content
		if s.view.Err != nil {
			st.Error = s.view.Err.Error()
			st.Kind = KindOf(s.view.Err)
		}
	}
	if s.snapshot != nil {
		for _, d := range s.snapshot.Links() {
			st.Snapshot = append(st.Snapshot, d.Anchor.ID)
		}
		if s.state == StateOpen {
			st.HasPrevious = s.snapshot.Previous() != nil
			st.HasNext = s.snapshot.Next() != nil
		}
	}
	st.CanGoBack = s.state == StateOpen && s.initiator != nil && s.initiator != s.current
	return st
}

func anchorID(d *links.Descriptor) int {
	if d == nil {
		return -1
	}
	return d.Anchor.ID
}
