package session

import (
	"context"
	"time"

	"github.com/ziadkadry99/revlens/internal/reference"
)

// EventType names a session lifecycle step.
type EventType string

const (
	EventLoading EventType = "loading"
	EventOpen    EventType = "open"
	EventReplace EventType = "replace"
	EventClose   EventType = "close"
	EventError   EventType = "error"
)

// Event describes one session lifecycle step. AnchorID is -1 for views not
// started from a page link.
type Event struct {
	Type      EventType               `json:"type"`
	SessionID string                  `json:"session_id"`
	AnchorID  int                     `json:"anchor_id"`
	Reference reference.PageReference `json:"reference"`
	Error     string                  `json:"error,omitempty"`
	Kind      string                  `json:"kind,omitempty"`
	Code      string                  `json:"code,omitempty"`
	At        time.Time               `json:"at"`
}

// EventSink receives session events.
type EventSink interface {
	Emit(ctx context.Context, ev Event)
}

// Notifier is told about fetch and dependency failures.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Sinks fans events out to several sinks in order.
type Sinks []EventSink

// Emit implements EventSink.
func (s Sinks) Emit(ctx context.Context, ev Event) {
	for _, sink := range s {
		if sink != nil {
			sink.Emit(ctx, ev)
		}
	}
}
