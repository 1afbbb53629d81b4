// Package navigation computes previous and next targets over the links that
// were on the page when a viewing session started.
package navigation

import (
	"sync"

	"github.com/ziadkadry99/revlens/internal/links"
)

// Source provides the descriptors to capture, in document order.
type Source interface {
	Valid() []*links.Descriptor
}

// Snapshot is the ordered list of candidate links captured at session
// start. Its order never changes after capture.
type Snapshot struct {
	items []*links.Descriptor
	index map[*links.Descriptor]int

	mu      sync.Mutex
	current int
}

// Capture takes a snapshot of the source's valid descriptors.
func Capture(src Source) *Snapshot {
	items := src.Valid()
	s := &Snapshot{
		items:   items,
		index:   make(map[*links.Descriptor]int, len(items)),
		current: -1,
	}
	for i, d := range items {
		s.index[d] = i
	}
	return s
}

// Len returns the number of captured links.
func (s *Snapshot) Len() int {
	return len(s.items)
}

// Links returns the captured links in order.
func (s *Snapshot) Links() []*links.Descriptor {
	return append([]*links.Descriptor(nil), s.items...)
}

// Index returns the position of d, or -1 when d was not captured.
func (s *Snapshot) Index(d *links.Descriptor) int {
	if i, ok := s.index[d]; ok {
		return i
	}
	return -1
}

// Has reports whether d was captured.
func (s *Snapshot) Has(d *links.Descriptor) bool {
	_, ok := s.index[d]
	return ok
}

// SetCurrent moves the pivot for Previous and Next to d. It reports false,
// leaving the pivot alone, when d was not captured.
func (s *Snapshot) SetCurrent(d *links.Descriptor) bool {
	i, ok := s.index[d]
	if !ok {
		return false
	}
	s.mu.Lock()
	s.current = i
	s.mu.Unlock()
	return true
}

// Current returns the pivot link, or nil before SetCurrent.
func (s *Snapshot) Current() *links.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current < 0 {
		return nil
	}
	return s.items[s.current]
}

// CurrentIndex returns the pivot position, or -1.
func (s *Snapshot) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Previous returns the nearest navigable link before the pivot.
func (s *Snapshot) Previous() *links.Descriptor {
	return s.PreviousFrom(s.CurrentIndex())
}

// Next returns the nearest navigable link after the pivot.
func (s *Snapshot) Next() *links.Descriptor {
	return s.NextFrom(s.CurrentIndex())
}

// PreviousFrom walks backward from index, skipping links that are not
// navigable, and returns nil when it runs off the start.
func (s *Snapshot) PreviousFrom(index int) *links.Descriptor {
	if index > len(s.items) {
		index = len(s.items)
	}
	for i := index - 1; i >= 0; i-- {
		if s.items[i].IsNavigable() {
			return s.items[i]
		}
	}
	return nil
}

// NextFrom walks forward from index, skipping links that are not
// navigable, and returns nil when it runs off the end.
func (s *Snapshot) NextFrom(index int) *links.Descriptor {
	if index < -1 {
		index = -1
	}
	for i := index + 1; i < len(s.items); i++ {
		if s.items[i].IsNavigable() {
			return s.items[i]
		}
	}
	return nil
}
