package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// rodHandle drives a single rod page
type rodHandle struct {
	browser         *rod.Browser
	page            *rod.Page
	pageLoadTimeout time.Duration
	actionTimeout   time.Duration
	cleanup         func()
	logger          *zap.Logger
}

func selector(id string) string {
	return "#" + id
}

func (h *rodHandle) Navigate(ctx context.Context, url string) error {
	p := h.page.Context(ctx).Timeout(h.pageLoadTimeout)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("page load did not complete for %s: %w", url, err)
	}
	return nil
}

func (h *rodHandle) WaitElement(ctx context.Context, id string, timeout time.Duration) error {
	if _, err := h.page.Context(ctx).Timeout(timeout).Element(selector(id)); err != nil {
		return elementError(id, err)
	}
	return nil
}

func (h *rodHandle) HasElement(ctx context.Context, id string) (bool, error) {
	has, _, err := h.page.Context(ctx).Has(selector(id))
	if err != nil {
		return false, fmt.Errorf("failed to look up #%s: %w", id, err)
	}
	return has, nil
}

func (h *rodHandle) element(ctx context.Context, id string) (*rod.Element, error) {
	el, err := h.page.Context(ctx).Timeout(h.actionTimeout).Element(selector(id))
	if err != nil {
		return nil, elementError(id, err)
	}
	// Rebind so the action itself is bounded by ctx, not the lookup timeout
	return el.Context(ctx), nil
}

func (h *rodHandle) SetValue(ctx context.Context, id, value string) error {
	el, err := h.element(ctx, id)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("failed to clear #%s: %w", id, err)
	}
	if err := el.Input(value); err != nil {
		return fmt.Errorf("failed to type into #%s: %w", id, err)
	}
	return nil
}

func (h *rodHandle) Click(ctx context.Context, id string) error {
	el, err := h.element(ctx, id)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("failed to click #%s: %w", id, err)
	}
	return nil
}

func (h *rodHandle) WaitURLContains(ctx context.Context, substr string, timeout time.Duration) error {
	err := h.page.Context(ctx).Timeout(timeout).Wait(rod.Eval(`(s) => window.location.href.includes(s)`, substr))
	if err != nil {
		return fmt.Errorf("url never contained %q: %w", substr, err)
	}
	return nil
}

func (h *rodHandle) Close() error {
	err := h.browser.Close()
	if h.cleanup != nil {
		h.cleanup()
	}
	if err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	h.logger.Info("Browser closed")
	return nil
}

func elementError(id string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: #%s: %v", ErrElementNotFound, id, err)
	}
	return fmt.Errorf("failed to find #%s: %w", id, err)
}
