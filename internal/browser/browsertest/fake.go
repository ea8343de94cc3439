// Package browsertest provides an in-memory browser.Handle for tests.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/toolstock/gls-rpa/internal/browser"
)

// Page lists the element ids present once a URL has loaded
type Page struct {
	Elements []string
}

// Fake is a scripted browser. Pages are keyed by URL; clicks can be
// scripted to navigate, reveal elements or run arbitrary side effects.
type Fake struct {
	mu sync.Mutex

	Pages   map[string]Page
	OnClick map[string]func(f *Fake)

	// NavigateErr forces Navigate to fail for a URL
	NavigateErr map[string]error

	url      string
	elements map[string]bool
	values   map[string]string
	clicks   []string
	closed   int
}

// New creates an empty fake
func New() *Fake {
	return &Fake{
		Pages:       make(map[string]Page),
		OnClick:     make(map[string]func(f *Fake)),
		NavigateErr: make(map[string]error),
		elements:    make(map[string]bool),
		values:      make(map[string]string),
	}
}

var _ browser.Handle = (*Fake)(nil)

// Load switches the fake to url and its page's elements. Safe to call
// from OnClick callbacks.
func (f *Fake) Load(url string) {
	f.url = url
	f.elements = make(map[string]bool)
	for _, id := range f.Pages[url].Elements {
		f.elements[id] = true
	}
}

// Reveal makes an element present on the current page
func (f *Fake) Reveal(id string) {
	f.elements[id] = true
}

// Hide removes an element from the current page
func (f *Fake) Hide(id string) {
	delete(f.elements, id)
}

func (f *Fake) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.NavigateErr[url]; err != nil {
		return err
	}
	f.Load(url)
	return nil
}

func (f *Fake) WaitElement(ctx context.Context, id string, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.elements[id] {
		return fmt.Errorf("%w: #%s", browser.ErrElementNotFound, id)
	}
	return nil
}

func (f *Fake) HasElement(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.elements[id], nil
}

func (f *Fake) SetValue(ctx context.Context, id, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.elements[id] {
		return fmt.Errorf("%w: #%s", browser.ErrElementNotFound, id)
	}
	f.values[id] = value
	return nil
}

func (f *Fake) Click(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.elements[id] {
		return fmt.Errorf("%w: #%s", browser.ErrElementNotFound, id)
	}
	f.clicks = append(f.clicks, id)
	if fn := f.OnClick[id]; fn != nil {
		fn(f)
	}
	return nil
}

func (f *Fake) WaitURLContains(ctx context.Context, substr string, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !strings.Contains(f.url, substr) {
		return fmt.Errorf("url %q never contained %q", f.url, substr)
	}
	return nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

// Value returns what was typed into an element
func (f *Fake) Value(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[id]
}

// Clicks returns the clicked element ids in order
func (f *Fake) Clicks() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.clicks...)
}

// URL returns the current URL
func (f *Fake) URL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url
}

// Closed returns how many times Close was called
func (f *Fake) Closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
