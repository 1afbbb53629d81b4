package notifications

import (
	"time"

	"github.com/ziadkadry99/revlens/internal/reference"
)

// Severity indicates the importance of a notification.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Kind is the failure class that triggered the notification.
type Kind string

const (
	KindFetch      Kind = "fetch"
	KindDependency Kind = "dependency"
)

// Severity returns the severity a failure kind is reported with. A missing
// dependency breaks every view, a failed fetch only one.
func (k Kind) Severity() Severity {
	if k == KindDependency {
		return SeverityCritical
	}
	return SeverityWarning
}

// Notification is a single failure report.
type Notification struct {
	ID        string                  `json:"id"`
	Kind      Kind                    `json:"kind"`
	Severity  Severity                `json:"severity"`
	Code      string                  `json:"code,omitempty"`
	Message   string                  `json:"message"`
	SessionID string                  `json:"session_id,omitempty"`
	Reference reference.PageReference `json:"reference"`
	Delivered bool                    `json:"delivered"`
	CreatedAt time.Time               `json:"created_at"`
}
