package links

import (
	"context"
	"sort"
	"sync"
)

// Observer notifies when an anchor comes into view.
type Observer interface {
	// Observe starts watching id. fn fires at most once per Observe call.
	Observe(id int, fn func(ctx context.Context))
	// Unobserve stops watching id.
	Unobserve(id int)
}

// Viewport is an Observer over a window of visible anchor ids. Anchors
// within Margin positions of the window count as visible.
type Viewport struct {
	Margin int

	mu       sync.Mutex
	visible  bool
	first    int
	last     int
	watchers map[int]func(context.Context)
}

// NewViewport creates a viewport with nothing visible.
func NewViewport(margin int) *Viewport {
	if margin < 0 {
		margin = 0
	}
	return &Viewport{Margin: margin, watchers: make(map[int]func(context.Context))}
}

// Observe implements Observer. If id is already in view the callback fires
// on the next Scroll.
func (v *Viewport) Observe(id int, fn func(ctx context.Context)) {
	v.mu.Lock()
	v.watchers[id] = fn
	v.mu.Unlock()
}

// Unobserve implements Observer.
func (v *Viewport) Unobserve(id int) {
	v.mu.Lock()
	delete(v.watchers, id)
	v.mu.Unlock()
}

// Pending returns the number of anchors still being watched.
func (v *Viewport) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.watchers)
}

// Scroll moves the visible window to [first, last] and fires, in document
// order, the callbacks of every watched anchor that came into view. When ctx
// is cancelled the unfired callbacks stay watched for the next Scroll.
func (v *Viewport) Scroll(ctx context.Context, first, last int) {
	if last < first {
		first, last = last, first
	}

	v.mu.Lock()
	v.visible, v.first, v.last = true, first, last
	var ids []int
	for id := range v.watchers {
		if v.inView(id) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	fns := make([]func(context.Context), len(ids))
	for i, id := range ids {
		fns[i] = v.watchers[id]
		delete(v.watchers, id)
	}
	v.mu.Unlock()

	for i, fn := range fns {
		if ctx.Err() != nil {
			v.rewatch(ids[i:], fns[i:])
			return
		}
		fn(ctx)
	}
}

// rewatch puts back callbacks that a cancelled Scroll did not fire, unless
// the anchor was observed again meanwhile.
func (v *Viewport) rewatch(ids []int, fns []func(context.Context)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i, id := range ids {
		if _, ok := v.watchers[id]; !ok {
			v.watchers[id] = fns[i]
		}
	}
}

// InView reports whether id is inside the visible window plus margin.
func (v *Viewport) InView(id int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.inView(id)
}

func (v *Viewport) inView(id int) bool {
	return v.visible && id >= v.first-v.Margin && id <= v.last+v.Margin
}
