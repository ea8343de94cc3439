package pipeline

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/toolstock/gls-rpa/internal/browser"
	"github.com/toolstock/gls-rpa/internal/browser/browsertest"
	"github.com/toolstock/gls-rpa/internal/config"
	"github.com/toolstock/gls-rpa/internal/export"
	"github.com/toolstock/gls-rpa/internal/portal"
	"github.com/toolstock/gls-rpa/internal/reconcile"
	"github.com/toolstock/gls-rpa/internal/sheet"
	"github.com/toolstock/gls-rpa/internal/storage"
)

const (
	loginURL     = "https://portal.example/login.aspx"
	extranetURL  = "https://portal.example/Extranet/home.aspx"
	shipmentsURL = "https://portal.example/Extranet/envios.aspx"
)

const exportHTML = `<!DOCTYPE html><html><body><form><table id="envios">
<tr><th>Expedicion</th><th>DptoDst</th></tr>
<tr><td>0001</td><td>402-111</td></tr>
<tr><td>0002</td><td>REF0002</td></tr>
</table></form></body></html>`

type recordSource []reconcile.Record

func (s recordSource) ActiveRecords(context.Context) ([]reconcile.Record, error) {
	return s, nil
}

func endToEndConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Portal: config.PortalConfig{
			LoginURL:     loginURL,
			ShipmentsURL: shipmentsURL,
			Username:     "agency",
			Password:     "secret",
			Elements: config.ElementIDConfig{
				Username:     "usuario",
				Password:     "pass",
				LoginButton:  "Button1",
				LoggedInURL:  "Extranet",
				DateFrom:     "fechadesde",
				DateTo:       "fechahasta",
				SearchButton: "btBuscar",
				ExportButton: "btXLS",
				ResultsTable: "envios",
			},
		},
		Paths: config.PathsConfig{DownloadDir: t.TempDir(), FinalDir: t.TempDir()},
		Timeouts: config.TimeoutsConfig{
			ElementPresent: 50 * time.Millisecond,
			ExportButton:   50 * time.Millisecond,
			PollInterval:   5 * time.Millisecond,
			PollTimeout:    time.Second,
			RenameBackoff:  time.Millisecond,
			RenameAttempts: 3,
		},
		Reconcile: config.ReconcileConfig{JoinColumn: "DptoDst", DuplicatePolicy: "first"},
	}
}

// portalFake scripts the portal; withExport controls whether the search
// offers the export control.
func portalFake(cfg *config.Config, withExport bool) *browsertest.Fake {
	f := browsertest.New()
	f.Pages[loginURL] = browsertest.Page{Elements: []string{"usuario", "pass", "Button1"}}
	f.Pages[extranetURL] = browsertest.Page{}
	f.Pages[shipmentsURL] = browsertest.Page{Elements: []string{"fechadesde", "fechahasta", "btBuscar"}}
	f.OnClick["Button1"] = func(f *browsertest.Fake) { f.Load(extranetURL) }
	f.OnClick["btBuscar"] = func(f *browsertest.Fake) {
		f.Reveal("envios")
		if withExport {
			f.Reveal("btXLS")
		}
	}
	f.OnClick["btXLS"] = func(*browsertest.Fake) {
		partial := filepath.Join(cfg.Paths.DownloadDir, "export.xls.crdownload")
		_ = os.WriteFile(partial, []byte(exportHTML), 0644)
		_ = os.Rename(partial, filepath.Join(cfg.Paths.DownloadDir, "export.xls"))
	}
	return f
}

func newEndToEnd(t *testing.T, cfg *config.Config, handle browser.Handle, logger *zap.Logger) *Orchestrator {
	t.Helper()
	staging := storage.NewStagingDir(cfg.Paths.DownloadDir, logger)
	final := storage.NewLocalFileStorage(cfg.Paths.FinalDir, logger)

	source := recordSource{
		{OrderID: 11, Reference: "REF0001", MarketplaceOrderID: sql.NullString{String: "402-111", Valid: true}},
		{OrderID: 12, Reference: "REF0002", MarketplaceOrderID: sql.NullString{String: "402-222", Valid: true}},
	}
	reconciler, err := reconcile.NewReconciler(source, final, cfg, logger)
	require.NoError(t, err)

	return NewOrchestrator(Components{
		Acquirer: &stubAcquirer{handle: handle},
		NewPortal: func(h browser.Handle) Portal {
			return portal.NewDriver(h, cfg, logger)
		},
		NewExporter: func(h browser.Handle) Exporter {
			return export.NewWatcher(h, staging, cfg, logger)
		},
		Normalizer: NewNormalizer(cfg, logger),
		Reconciler: reconciler,
	}, logger)
}

func TestRun_EndToEnd(t *testing.T) {
	cfg := endToEndConfig(t)
	handle := portalFake(cfg, true)

	res := newEndToEnd(t, cfg, handle, zap.NewNop()).Run(context.Background(), reportDate)

	require.True(t, res.Success)
	assert.Equal(t, filepath.Join(cfg.Paths.DownloadDir, "GLS_20240604.xls"), res.Download)
	assert.NoFileExists(t, res.Download)
	assert.Equal(t, 1, handle.Closed())
	assert.Equal(t, "04/06/2024", handle.Value("fechadesde"))

	tbl, err := sheet.Read(filepath.Join(cfg.Paths.FinalDir, "20240604.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Expedicion", "DptoDst", "id_order_ps", "reference_ps"}, tbl.Header)
	assert.Equal(t, [][]string{
		{"0001", "402-111", "11", "REF0001"},
		{"0002", "REF0002", "12", "REF0002"},
	}, tbl.Rows)
}

func TestRun_EndToEndNoResults(t *testing.T) {
	cfg := endToEndConfig(t)
	handle := portalFake(cfg, false)
	core, logs := observer.New(zap.DebugLevel)

	res := newEndToEnd(t, cfg, handle, zap.New(core)).Run(context.Background(), reportDate)

	assert.True(t, res.Success)
	assert.True(t, res.NoResults)
	assert.Equal(t, 1, handle.Closed())
	assert.Zero(t, logs.FilterLevelExact(zap.ErrorLevel).Len())

	entries, err := os.ReadDir(cfg.Paths.FinalDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no canonical file for an empty day")
}
