// Package errors augments the standard errors
// provided by fmt (https://golang.org/src/fmt/errors.go)
// with a Wrap() method to wrap errors without resorting
// to fmt.Errorf("%w", err), plus structural context:
// every error raised by this module may carry the offending
// tree path and the index of the container in its chain.
package errors

import (
	stderr "errors"
	"fmt"
)

var _ error = New("")

// New Error
func New(msg string) *Error {
	return &Error{msg: msg, index: -1}
}

// Error augments the standard error interface with a Wrap method
// and with the path / container index the error refers to.
//
// The main difference with github.com/pkg/errors is that we are wrapping
// errors from errors, not from text.
type Error struct {
	msg   string
	err   error
	path  string
	index int
}

// Error message, including path and container index when set
func (e *Error) Error() string {
	msg := e.msg
	if e.path != "" {
		msg = fmt.Sprintf("%s [path: %s]", msg, e.path)
	}
	if e.index >= 0 {
		msg = fmt.Sprintf("%s [container: %d]", msg, e.index)
	}
	if e.err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.err)
	}
	return msg
}

// Unwrap nested error
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// Wrap a nested error
func (e *Error) Wrap(err error) *Error {
	e.err = err
	return e
}

// WithPath records the tree path the error relates to
func (e *Error) WithPath(path string) *Error {
	e.path = path
	return e
}

// WithIndex records the index of the offending container in its chain
func (e *Error) WithIndex(index int) *Error {
	e.index = index
	return e
}

// Path the error relates to (empty if none was recorded)
func (e *Error) Path() string {
	return e.path
}

// Index of the offending container (-1 if none was recorded)
func (e *Error) Index() int {
	return e.index
}

// Is of some error type?
func (e *Error) Is(target error) bool {
	return e == target || e.err == target
}

// Path extracts the tree path recorded anywhere in err's chain, or ""
func Path(err error) string {
	var e *Error
	for stderr.As(err, &e) {
		if e.path != "" {
			return e.path
		}
		err = e.Unwrap()
	}
	return ""
}

// Index extracts the container index recorded anywhere in err's chain,
// or -1
func Index(err error) int {
	var e *Error
	for stderr.As(err, &e) {
		if e.index >= 0 {
			return e.index
		}
		err = e.Unwrap()
	}
	return -1
}

// As finds the first error in err's chain that matches target, and if so, sets target to that error value and returns true.
// (a shortcut to standard lib errors.As)
func As(err error, target interface{}) bool {
	return stderr.As(err, target)
}

// Is reports whether any error in err's chain matches target
// (a shortcut to standard lib errors.As)
func Is(err, target error) bool {
	return stderr.Is(err, target)
}
