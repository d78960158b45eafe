package models

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by where it happened.
type Kind string

const (
	// KindAcquisition covers network failures, missing files and
	// unreachable databases. The operation aborts and prior state is kept.
	KindAcquisition Kind = "acquisition"
	// KindParse covers page markup or cell values of the wrong shape. The
	// offending item is skipped.
	KindParse Kind = "parse"
	// KindView covers an unresolved field or a view with nothing to show.
	// The dependent section is disabled.
	KindView Kind = "view"
)

// Error is an operation failure tagged with its kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Acquisition wraps err as an acquisition failure of op.
func Acquisition(op string, err error) error {
	return &Error{Kind: KindAcquisition, Op: op, Err: err}
}

// Parse wraps err as a parse failure of op.
func Parse(op string, err error) error {
	return &Error{Kind: KindParse, Op: op, Err: err}
}

// View wraps err as a view failure of op.
func View(op string, err error) error {
	return &Error{Kind: KindView, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when err
// carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
