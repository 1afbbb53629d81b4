package session

import (
	"errors"

	"github.com/ziadkadry99/revlens/internal/fetch"
	"github.com/ziadkadry99/revlens/internal/reference"
)

var (
	// ErrBusy is returned when a view is requested while another is loading.
	ErrBusy = errors.New("session: a view is already loading")
	// ErrNotOpen is returned by navigation on a session with nothing shown.
	ErrNotOpen = errors.New("session: not open")
	// ErrNoTarget is returned when there is no link to navigate to.
	ErrNoTarget = errors.New("session: no link to navigate to")
	// ErrStale is returned when a fetch finished after the session moved on.
	ErrStale = errors.New("session: result superseded")
)

// Error kinds.
const (
	KindParse      = reference.KindParse
	KindValidation = reference.KindValidation
	KindFetch      = fetch.TypeFetch
	KindDependency = fetch.TypeDependency
)

// KindOf classifies err as parse, validation, fetch or dependency. Other
// errors map to "".
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	if kind := reference.ErrorKind(err); kind != "" {
		return kind
	}
	if fe, ok := fetch.AsError(err); ok {
		return fe.Type
	}
	return ""
}

// CodeOf returns the platform error code carried by err, if any.
func CodeOf(err error) string {
	if fe, ok := fetch.AsError(err); ok {
		return fe.Code
	}
	return ""
}
