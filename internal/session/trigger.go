package session

import (
	"context"
	"errors"

	"github.com/ziadkadry99/revlens/internal/links"
	"github.com/ziadkadry99/revlens/internal/reference"
)

// Source tells where a dialog trigger lives.
type Source int

const (
	// SourceGeneric triggers open the view of one page link.
	SourceGeneric Source = iota
	// SourceHistoryCompare triggers compare the two revisions selected on a
	// history page.
	SourceHistoryCompare
)

func (s Source) String() string {
	if s == SourceHistoryCompare {
		return "history_compare"
	}
	return "generic"
}

// CompareAnchorID marks views opened from a history compare trigger.
const CompareAnchorID = -1

// DialogTrigger is a button that opens a session view.
type DialogTrigger struct {
	Source Source
	Title  string

	link   *links.Descriptor
	oldID  string
	diffID string
}

// NewDialogTrigger creates a trigger. Generic triggers need link; history
// compare triggers take their revisions from Select.
func NewDialogTrigger(src Source, link *links.Descriptor, title string) (*DialogTrigger, error) {
	if src == SourceGeneric && link == nil {
		return nil, errors.New("session: generic trigger needs a link")
	}
	return &DialogTrigger{Source: src, Title: title, link: link}, nil
}

// Select records the two revisions picked on a history page.
func (t *DialogTrigger) Select(oldID, diffID string) {
	t.oldID, t.diffID = oldID, diffID
}

// Descriptor returns the link the trigger opens.
func (t *DialogTrigger) Descriptor() (*links.Descriptor, error) {
	if t.Source == SourceGeneric {
		return t.link, nil
	}
	ref, err := reference.Compare(t.Title, t.oldID, t.diffID)
	if err != nil {
		return nil, err
	}
	return links.NewDescriptorFor(links.Anchor{ID: CompareAnchorID, TitleHint: t.Title}, ref), nil
}

// Open starts or replaces the session view with the trigger's target.
func (t *DialogTrigger) Open(ctx context.Context, s *Session, opts Options) error {
	d, err := t.Descriptor()
	if err != nil {
		return err
	}
	return s.Process(ctx, d, opts)
}
