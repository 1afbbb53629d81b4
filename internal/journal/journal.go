// Package journal persists session lifecycle events.
package journal

import (
	"time"

	"github.com/ziadkadry99/revlens/internal/reference"
	"github.com/ziadkadry99/revlens/internal/session"
)

// NoAnchor marks entries whose view did not start from a page link.
const NoAnchor = -1

// Entry is a single journal record.
type Entry struct {
	ID        string                  `json:"id"`
	Timestamp time.Time               `json:"timestamp"`
	SessionID string                  `json:"session_id"`
	Type      session.EventType       `json:"type"`
	AnchorID  int                     `json:"anchor_id"`
	Reference reference.PageReference `json:"reference"`
	Error     string                  `json:"error,omitempty"`
	Kind      string                  `json:"kind,omitempty"`
}

// FromEvent converts a session event into an entry.
func FromEvent(ev session.Event) Entry {
	return Entry{
		Timestamp: ev.At,
		SessionID: ev.SessionID,
		Type:      ev.Type,
		AnchorID:  ev.AnchorID,
		Reference: ev.Reference,
		Error:     ev.Error,
		Kind:      ev.Kind,
	}
}
