package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Failure categories for page fetches. Match with errors.Is.
var (
	ErrTimeout     = errors.New("timeout")
	ErrConnection  = errors.New("connection")
	ErrForbidden   = errors.New("forbidden")
	ErrNotFound    = errors.New("not_found")
	ErrRateLimited = errors.New("rate_limited")
	ErrMissingList = errors.New("listing container not found")
)

// PageError describes why a catalogue page produced no records.
type PageError struct {
	Page     int
	URL      string
	Status   int
	Category error
	Err      error
}

func (e *PageError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("page %d (%s): status %d: %v", e.Page, e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("page %d (%s): %v", e.Page, e.URL, e.Err)
}

func (e *PageError) Unwrap() []error {
	if e.Category == nil {
		return []error{e.Err}
	}
	return []error{e.Category, e.Err}
}

// classify maps a transport error or HTTP status onto a category sentinel,
// or nil when none applies.
func classify(err error, statusCode int) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection
	}

	switch statusCode {
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}
	return nil
}

// errorTypeLabel returns the metrics label for err.
func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	for _, category := range []error{ErrTimeout, ErrConnection, ErrForbidden, ErrNotFound, ErrRateLimited} {
		if errors.Is(err, category) {
			return category.Error()
		}
	}
	if errors.Is(err, ErrMissingList) {
		return "markup"
	}
	return "other"
}
