// Package export triggers the portal's spreadsheet export and captures the
// file the browser downloads.
package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/toolstock/gls-rpa/internal/browser"
	"github.com/toolstock/gls-rpa/internal/config"
	"github.com/toolstock/gls-rpa/internal/report"
	"github.com/toolstock/gls-rpa/internal/storage"
)

// ErrDownloadTimeout is returned when no recognized file appears in the
// staging directory before the polling bound.
var ErrDownloadTimeout = errors.New("no downloaded file detected")

// Watcher clicks the export control and watches the staging directory
type Watcher struct {
	handle        browser.Handle
	staging       *storage.StagingDir
	exportButton  string
	resultsTable  string
	buttonTimeout time.Duration
	pollInterval  time.Duration
	pollTimeout   time.Duration
	retry         *storage.RetryStrategy
	extensions    []string
	logger        *zap.Logger
}

// NewWatcher creates an export watcher for the configured staging directory
func NewWatcher(handle browser.Handle, staging *storage.StagingDir, cfg *config.Config, logger *zap.Logger) *Watcher {
	return &Watcher{
		handle:        handle,
		staging:       staging,
		exportButton:  cfg.Portal.Elements.ExportButton,
		resultsTable:  cfg.Portal.Elements.ResultsTable,
		buttonTimeout: cfg.Timeouts.ExportButton,
		pollInterval:  cfg.Timeouts.PollInterval,
		pollTimeout:   cfg.Timeouts.PollTimeout,
		retry:         storage.NewRetryStrategy(cfg.Timeouts.RenameAttempts, cfg.Timeouts.RenameBackoff),
		extensions:    storage.SpreadsheetExtensions,
		logger:        logger.Named("export"),
	}
}

// ExportAndCapture exports the current search results and returns the path
// of the downloaded file, renamed to GLS_<yyyymmdd>.xls.
//
// ("", nil) means the portal offered no export control: a valid day
// without shipments. ("", ErrDownloadTimeout) means the export was
// triggered but nothing arrived. If the rename keeps failing, the
// original download path is returned.
func (w *Watcher) ExportAndCapture(ctx context.Context, date report.Date) (string, error) {
	if err := w.handle.WaitElement(ctx, w.exportButton, w.buttonTimeout); err != nil {
		w.logger.Warn("Export control not found, probably no results", zap.Error(err))
		w.logNoResults(ctx)
		return "", nil
	}

	stagingName := date.StagingName(".xls")
	finalPath := w.staging.Path(stagingName)
	if err := w.staging.RemoveIfExists(stagingName); err != nil {
		return "", err
	}

	before, err := w.staging.Snapshot()
	if err != nil {
		return "", err
	}

	if err := w.handle.Click(ctx, w.exportButton); err != nil {
		return "", fmt.Errorf("failed to trigger export: %w", err)
	}
	w.logger.Info("Export triggered")

	downloaded, err := w.waitForDownload(ctx, before)
	if err != nil {
		w.logger.Error("No downloaded file detected",
			zap.Duration("waited", w.pollTimeout),
			zap.Error(err))
		return "", err
	}
	w.logger.Info("Downloaded file detected", zap.String("path", downloaded))

	if downloaded == finalPath {
		return finalPath, nil
	}

	if err := storage.RenameWithRetry(ctx, downloaded, finalPath, w.retry, w.logger); err != nil {
		w.logger.Error("Failed to rename downloaded file, keeping original name",
			zap.String("path", downloaded),
			zap.Error(err))
		return downloaded, nil
	}

	w.logger.Info("Downloaded file renamed", zap.String("path", finalPath))
	return finalPath, nil
}

// waitForDownload polls the staging directory every pollInterval until a
// new recognized file appears or pollTimeout has elapsed.
func (w *Watcher) waitForDownload(ctx context.Context, before storage.Snapshot) (string, error) {
	maxPolls := int(w.pollTimeout / w.pollInterval)
	if maxPolls < 1 {
		maxPolls = 1
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for poll := 1; poll <= maxPolls; poll++ {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("download wait interrupted: %w", ctx.Err())
		case <-ticker.C:
		}

		candidates, err := w.staging.NewFiles(before, w.extensions)
		if err != nil {
			return "", err
		}
		if len(candidates) == 0 {
			continue
		}

		newest, err := w.staging.Newest(candidates)
		if err != nil {
			w.logger.Debug("Candidates vanished before stat", zap.Int("poll", poll), zap.Error(err))
			continue
		}
		return newest, nil
	}

	return "", fmt.Errorf("%w after %d polls", ErrDownloadTimeout, maxPolls)
}

func (w *Watcher) logNoResults(ctx context.Context) {
	has, err := w.handle.HasElement(ctx, w.resultsTable)
	switch {
	case err != nil:
		w.logger.Warn("Could not check results table", zap.Error(err))
	case has:
		w.logger.Info("No results to export")
	default:
		w.logger.Warn("No results message found either")
	}
}
