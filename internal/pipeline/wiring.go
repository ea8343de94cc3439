package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/toolstock/gls-rpa/internal/browser"
	"github.com/toolstock/gls-rpa/internal/config"
	"github.com/toolstock/gls-rpa/internal/export"
	"github.com/toolstock/gls-rpa/internal/normalize"
	"github.com/toolstock/gls-rpa/internal/portal"
	"github.com/toolstock/gls-rpa/internal/reconcile"
	"github.com/toolstock/gls-rpa/internal/storage"
)

// BrowserOptions maps the configuration onto browser bootstrap options
func BrowserOptions(cfg *config.Config) browser.Options {
	return browser.Options{
		Headless:        cfg.Browser.Headless,
		DisableImages:   cfg.Browser.DisableImages,
		DebuggerURL:     cfg.Browser.DebuggerURL,
		BinPath:         cfg.Browser.BinPath,
		SearchPaths:     cfg.Browser.SearchPaths,
		AllowDownload:   cfg.Browser.AllowDownload,
		DownloadDir:     cfg.Paths.DownloadDir,
		PageLoadTimeout: cfg.Timeouts.PageLoad,
		ActionTimeout:   cfg.Timeouts.ElementPresent,
	}
}

// NewNormalizer builds the normalizer writing into the final directory
func NewNormalizer(cfg *config.Config, logger *zap.Logger) *normalize.Normalizer {
	return normalize.NewNormalizer(storage.NewLocalFileStorage(cfg.Paths.FinalDir, logger), logger)
}

// NewReconciler builds the reconciler backed by the order database
func NewReconciler(cfg *config.Config, logger *zap.Logger) (*reconcile.Reconciler, error) {
	final := storage.NewLocalFileStorage(cfg.Paths.FinalDir, logger)
	return reconcile.NewReconciler(reconcile.NewMySQLSource(cfg, logger), final, cfg, logger)
}

// New builds an orchestrator with the production components
func New(cfg *config.Config, logger *zap.Logger) (*Orchestrator, error) {
	staging := storage.NewStagingDir(cfg.Paths.DownloadDir, logger)
	if err := staging.Ensure(); err != nil {
		return nil, fmt.Errorf("failed to prepare staging directory: %w", err)
	}

	reconciler, err := NewReconciler(cfg, logger)
	if err != nil {
		return nil, err
	}

	return NewOrchestrator(Components{
		Acquirer: browser.NewAcquirer(BrowserOptions(cfg), logger),
		NewPortal: func(h browser.Handle) Portal {
			return portal.NewDriver(h, cfg, logger)
		},
		NewExporter: func(h browser.Handle) Exporter {
			return export.NewWatcher(h, staging, cfg, logger)
		},
		Normalizer: NewNormalizer(cfg, logger),
		Reconciler: reconciler,
	}, logger), nil
}
