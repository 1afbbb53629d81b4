package fetch

import (
	"errors"
	"fmt"
)

// Error types.
const (
	TypeFetch      = "fetch"
	TypeDependency = "dependency"
)

// Error is a content or dependency failure reported by the platform or the
// transport.
type Error struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	msg := e.Type
	if e.Code != "" {
		msg += ": " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil && e.Message == "" {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// DependencyError wraps a failure to load supporting resources.
func DependencyError(code string, err error) *Error {
	return &Error{Type: TypeDependency, Code: code, Message: errMessage(err), Err: err}
}

func transportError(err error) *Error {
	return &Error{Type: TypeFetch, Code: "http", Message: errMessage(err), Err: err}
}

func apiError(code, info string) *Error {
	return &Error{Type: TypeFetch, Code: code, Message: info}
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// Errorf builds a fetch error with a formatted message.
func Errorf(code, format string, args ...any) *Error {
	return &Error{Type: TypeFetch, Code: code, Message: fmt.Sprintf(format, args...)}
}
