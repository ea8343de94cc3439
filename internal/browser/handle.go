// Package browser provides the browser automation handle the portal
// driver works through, backed by go-rod.
package browser

import (
	"context"
	"errors"
	"time"
)

// ErrElementNotFound is returned when an element does not appear in time
var ErrElementNotFound = errors.New("element not found")

// Handle is an exclusively owned browser page. Element arguments are DOM
// element ids.
type Handle interface {
	// Navigate loads url and waits for the page load event
	Navigate(ctx context.Context, url string) error

	// WaitElement blocks until the element is present or timeout expires
	WaitElement(ctx context.Context, id string, timeout time.Duration) error

	// HasElement reports whether the element is present right now
	HasElement(ctx context.Context, id string) (bool, error)

	// SetValue clears an input and types value into it
	SetValue(ctx context.Context, id, value string) error

	// Click clicks the element
	Click(ctx context.Context, id string) error

	// WaitURLContains blocks until the page URL contains substr or timeout expires
	WaitURLContains(ctx context.Context, substr string, timeout time.Duration) error

	// Close tears the browser down
	Close() error
}
