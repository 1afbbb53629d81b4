package reference

import "errors"

// ErrMalformedURL is returned when a link cannot be parsed as a URL.
var ErrMalformedURL = errors.New("reference: malformed url")

// ErrInsufficientParams is returned when a link is recognizable but does not
// carry enough parameters to identify a revision, diff or page.
var ErrInsufficientParams = errors.New("reference: insufficient parameters")

// ErrForeignHost is returned when a link points to a host outside the site.
var ErrForeignHost = errors.New("reference: link points to a foreign host")

// ErrInvalidTitle is returned by title normalization for unusable titles.
var ErrInvalidTitle = errors.New("reference: invalid title")

// Error kinds reported for resolution failures.
const (
	KindParse      = "parse"
	KindValidation = "validation"
)

// ErrorKind classifies a resolution error as KindParse or KindValidation.
// It returns "" for errors that did not come from resolution.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedURL):
		return KindParse
	case errors.Is(err, ErrInsufficientParams), errors.Is(err, ErrForeignHost), errors.Is(err, ErrInvalidTitle):
		return KindValidation
	}
	return ""
}
