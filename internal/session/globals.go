package session

import (
	"strconv"
	"strings"
	"sync"

	"github.com/ziadkadry99/revlens/internal/fetch"
	"github.com/ziadkadry99/revlens/internal/reference"
)

// Page-global keys overridden while a view is open.
const (
	GlobalPageName   = "wgPageName"
	GlobalRevisionID = "wgRevisionId"
	GlobalDiffOldID  = "wgDiffOldId"
	GlobalDiffNewID  = "wgDiffNewId"
	GlobalArticleID  = "wgArticleId"
)

var overriddenGlobals = []string{
	GlobalPageName,
	GlobalRevisionID,
	GlobalDiffOldID,
	GlobalDiffNewID,
	GlobalArticleID,
}

// Globals is the platform's page-level key/value state. Page scripts read
// it to learn what is being shown.
type Globals struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewGlobals creates a store seeded with initial values.
func NewGlobals(initial map[string]string) *Globals {
	g := &Globals{values: make(map[string]string, len(initial))}
	for k, v := range initial {
		g.values[k] = v
	}
	return g
}

// Get returns a value and whether it is set.
func (g *Globals) Get(key string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.values[key]
	return v, ok
}

// Set stores a value.
func (g *Globals) Set(key, value string) {
	g.mu.Lock()
	g.values[key] = value
	g.mu.Unlock()
}

// All returns a copy of every value.
func (g *Globals) All() map[string]string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string]string, len(g.values))
	for k, v := range g.values {
		out[k] = v
	}
	return out
}

// savedGlobals remembers the pre-override state of the overridden keys.
type savedGlobals map[string]*string

func (g *Globals) save() savedGlobals {
	g.mu.RLock()
	defer g.mu.RUnlock()
	saved := make(savedGlobals, len(overriddenGlobals))
	for _, k := range overriddenGlobals {
		if v, ok := g.values[k]; ok {
			saved[k] = &v
		} else {
			saved[k] = nil
		}
	}
	return saved
}

func (g *Globals) restore(saved savedGlobals) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for k, v := range saved {
		if v == nil {
			delete(g.values, k)
		} else {
			g.values[k] = *v
		}
	}
}

// override points the globals at the shown content.
func (g *Globals) override(ref reference.PageReference, c *fetch.Content) {
	values := map[string]string{
		GlobalPageName:   ref.Title,
		GlobalRevisionID: ref.OldID,
		GlobalDiffOldID:  "",
		GlobalDiffNewID:  "",
		GlobalArticleID:  ref.CurID,
	}
	if ref.Type == reference.ClassDiff {
		values[GlobalRevisionID] = ""
		values[GlobalDiffOldID] = ref.OldID
		values[GlobalDiffNewID] = ref.DiffID
	}
	if c != nil {
		if c.Title != "" {
			values[GlobalPageName] = c.Title
		}
		if c.PageID != 0 {
			values[GlobalArticleID] = strconv.Itoa(c.PageID)
		}
		if rev := c.RevisionID(); rev != 0 {
			values[GlobalRevisionID] = strconv.Itoa(rev)
		}
		if ref.Type == reference.ClassDiff {
			if c.FromRev != 0 {
				values[GlobalDiffOldID] = strconv.Itoa(c.FromRev)
			}
			if c.ToRev != 0 {
				values[GlobalDiffNewID] = strconv.Itoa(c.ToRev)
			}
		}
	}
	values[GlobalPageName] = strings.ReplaceAll(values[GlobalPageName], " ", "_")

	g.mu.Lock()
	for k, v := range values {
		g.values[k] = v
	}
	g.mu.Unlock()
}
