// Package portal drives the carrier portal's login and shipment search pages.
package portal

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/toolstock/gls-rpa/internal/browser"
	"github.com/toolstock/gls-rpa/internal/config"
	"github.com/toolstock/gls-rpa/internal/report"
)

// Driver performs the portal steps that precede an export. Every step
// returns false instead of an error; the cause is logged. There are no
// retries at this layer.
type Driver struct {
	handle         browser.Handle
	portal         config.PortalConfig
	elementTimeout time.Duration
	logger         *zap.Logger
}

// NewDriver creates a portal driver over an exclusively owned handle
func NewDriver(handle browser.Handle, cfg *config.Config, logger *zap.Logger) *Driver {
	return &Driver{
		handle:         handle,
		portal:         cfg.Portal,
		elementTimeout: cfg.Timeouts.ElementPresent,
		logger:         logger.Named("portal"),
	}
}

// Login opens the login page, types the configured credentials and waits
// until the post-login URL marker shows up.
func (d *Driver) Login(ctx context.Context) bool {
	el := d.portal.Elements

	d.logger.Info("Navigating to login page", zap.String("url", d.portal.LoginURL))
	if err := d.handle.Navigate(ctx, d.portal.LoginURL); err != nil {
		d.logger.Error("Login failed", zap.String("step", "navigate"), zap.Error(err))
		return false
	}

	if err := d.handle.WaitElement(ctx, el.Username, d.elementTimeout); err != nil {
		d.logger.Error("Login failed", zap.String("step", "wait_login_form"), zap.Error(err))
		return false
	}

	// Only fill credentials that are configured
	if d.portal.Username != "" {
		if err := d.handle.SetValue(ctx, el.Username, d.portal.Username); err != nil {
			d.logger.Error("Login failed", zap.String("step", "username"), zap.Error(err))
			return false
		}
		d.logger.Debug("Username entered")
	}
	if d.portal.Password != "" {
		if err := d.handle.SetValue(ctx, el.Password, d.portal.Password); err != nil {
			d.logger.Error("Login failed", zap.String("step", "password"), zap.Error(err))
			return false
		}
		d.logger.Debug("Password entered")
	}

	if err := d.handle.Click(ctx, el.LoginButton); err != nil {
		d.logger.Error("Login failed", zap.String("step", "submit"), zap.Error(err))
		return false
	}

	if err := d.handle.WaitURLContains(ctx, el.LoggedInURL, d.elementTimeout); err != nil {
		d.logger.Error("Login failed", zap.String("step", "wait_logged_in"), zap.Error(err))
		return false
	}

	d.logger.Info("Login successful")
	return true
}

// NavigateToShipments opens the shipment search page and waits for its
// date field.
func (d *Driver) NavigateToShipments(ctx context.Context) bool {
	d.logger.Info("Navigating to shipments page", zap.String("url", d.portal.ShipmentsURL))
	if err := d.handle.Navigate(ctx, d.portal.ShipmentsURL); err != nil {
		d.logger.Error("Navigation to shipments failed", zap.Error(err))
		return false
	}

	if err := d.handle.WaitElement(ctx, d.portal.Elements.DateFrom, d.elementTimeout); err != nil {
		d.logger.Error("Shipments search form never appeared", zap.Error(err))
		return false
	}

	d.logger.Info("Shipments page ready")
	return true
}

// SearchShipments searches a single day. The search is complete once the
// export control appears, or failing that, once the results table is
// present.
func (d *Driver) SearchShipments(ctx context.Context, date report.Date) bool {
	el := d.portal.Elements
	day := date.Display()

	d.logger.Info("Searching shipments", zap.String("date", day))

	for _, id := range []string{el.DateFrom, el.DateTo} {
		if err := d.handle.SetValue(ctx, id, day); err != nil {
			d.logger.Error("Search failed", zap.String("field", id), zap.Error(err))
			return false
		}
	}

	if err := d.handle.Click(ctx, el.SearchButton); err != nil {
		d.logger.Error("Search failed", zap.String("step", "submit"), zap.Error(err))
		return false
	}

	err := d.handle.WaitElement(ctx, el.ExportButton, d.elementTimeout)
	if err == nil {
		d.logger.Info("Search completed")
		return true
	}
	d.logger.Warn("Export control did not appear after search", zap.Error(err))

	has, lookupErr := d.handle.HasElement(ctx, el.ResultsTable)
	if lookupErr != nil {
		d.logger.Error("Search failed", zap.String("step", "results_table"), zap.Error(lookupErr))
		return false
	}
	if !has {
		d.logger.Warn("Results table not found")
		return false
	}

	d.logger.Info("Results table found, continuing")
	return true
}
