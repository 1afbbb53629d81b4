// Package reference resolves hyperlinks into canonical revision references
// and renders references back into links.
package reference

import (
	"strconv"
	"strings"
)

// Classification tells whether a reference denotes a single revision view
// or a comparison between two revisions.
type Classification string

const (
	ClassRevision Classification = "revision"
	ClassDiff     Classification = "diff"
)

// Variant refines a Classification.
type Variant string

const (
	VariantNone Variant = ""
	// VariantPage marks a reference resolved through the current page id
	// because no specific revision is known.
	VariantPage Variant = "page"
	// VariantCompare marks an explicit two-revision comparison picked by the
	// user. It is never derived from a link.
	VariantCompare Variant = "compare"
)

// Symbolic revision directions.
const (
	DirPrev = "prev"
	DirNext = "next"
	DirCur  = "cur"
)

// PageReference identifies a point in document history.
type PageReference struct {
	Title     string `json:"title,omitempty"`
	Section   string `json:"section,omitempty"`
	OldID     string `json:"oldid,omitempty"`
	DiffID    string `json:"diff,omitempty"`
	CurID     string `json:"curid,omitempty"`
	Direction string `json:"direction,omitempty"`

	Type    Classification `json:"type,omitempty"`
	Variant Variant        `json:"variant,omitempty"`

	// TitleText and Href are cached from the title normalization service.
	TitleText string `json:"title_text,omitempty"`
	Href      string `json:"href,omitempty"`
}

// IsValid reports whether the reference has a resolvable classification.
func (r PageReference) IsValid() bool {
	return r.Type != ""
}

// Key returns a string identifying the document state the reference points
// to. Two references with the same key show the same content.
func (r PageReference) Key() string {
	return strings.Join([]string{
		string(r.Type), string(r.Variant), r.Title, r.OldID, r.DiffID, r.CurID, r.Direction,
	}, "|")
}

// SameIDs reports whether both references carry the same canonical ids.
func (r PageReference) SameIDs(other PageReference) bool {
	return r.Type == other.Type &&
		r.OldID == other.OldID &&
		r.DiffID == other.DiffID &&
		r.CurID == other.CurID
}

// IsValidID reports whether s is a positive numeric revision or page id.
func IsValidID(s string) bool {
	if s == "" {
		return false
	}
	n, err := strconv.ParseUint(s, 10, 64)
	return err == nil && n > 0
}

// IsValidDir reports whether s is one of the symbolic directions.
func IsValidDir(s string) bool {
	return s == DirPrev || s == DirNext || s == DirCur
}

// Compare builds a user-picked two-revision comparison. The older revision
// always ends up on the "from" side.
func Compare(title, oldID, diffID string) (PageReference, error) {
	if !IsValidID(oldID) || !IsValidID(diffID) {
		return PageReference{}, ErrInsufficientParams
	}
	ref := PageReference{
		Title:     title,
		OldID:     oldID,
		DiffID:    diffID,
		Direction: DirPrev,
		Type:      ClassDiff,
		Variant:   VariantCompare,
	}
	orderIDs(&ref)
	return ref, nil
}

// firstSegment keeps the first value of a "|"-delimited list.
func firstSegment(s string) string {
	if i := strings.IndexByte(s, '|'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// normalizeDiffID maps the legacy spellings of the current revision to "cur".
func normalizeDiffID(s string) string {
	switch s {
	case "0", "current":
		return DirCur
	}
	return s
}

func normalizeDirection(s string) string {
	if IsValidDir(s) {
		return s
	}
	return DirPrev
}

// classify applies the classification rules in priority order to a raw
// reference. It returns false when no rule matches.
func classify(ref PageReference) (PageReference, bool) {
	ref.Direction = normalizeDirection(ref.Direction)
	ref.Type = ""
	if ref.Variant != VariantCompare {
		ref.Variant = VariantNone
	}

	switch {
	case IsValidID(ref.OldID) && ref.DiffID == "":
		ref.Type = ClassRevision
	case IsValidID(ref.OldID) || IsValidID(ref.DiffID):
		ref.Type = ClassDiff
		canonicalizeDiff(&ref)
	case ref.Title != "" && IsValidDir(ref.DiffID):
		ref.Type = ClassDiff
	case IsValidID(ref.CurID):
		ref.Type = ClassRevision
		ref.Variant = VariantPage
	default:
		return ref, false
	}
	return ref, true
}

// canonicalizeDiff orders the two sides of a diff reference.
func canonicalizeDiff(ref *PageReference) {
	if ref.Title == "" && IsValidDir(ref.OldID) {
		ref.OldID, ref.DiffID = ref.DiffID, ref.OldID
	}
	if ref.OldID == "" {
		ref.OldID = ref.DiffID
		ref.DiffID = ref.Direction
	}
	orderIDs(ref)
}

// orderIDs swaps two numeric ids so that the older revision is the "from" side.
func orderIDs(ref *PageReference) {
	if !IsValidID(ref.OldID) || !IsValidID(ref.DiffID) {
		return
	}
	oldN, _ := strconv.ParseUint(ref.OldID, 10, 64)
	diffN, _ := strconv.ParseUint(ref.DiffID, 10, 64)
	if oldN > diffN {
		ref.OldID, ref.DiffID = ref.DiffID, ref.OldID
	}
}

// titleRelative reports whether a diff reference only makes sense together
// with its title, as in "?title=X&oldid=prev&diff=cur".
func titleRelative(ref PageReference) bool {
	return ref.Type == ClassDiff && ref.Title != "" && !IsValidID(ref.OldID)
}
