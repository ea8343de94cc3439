package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/toolstock/gls-rpa/internal/browser/browsertest"
	"github.com/toolstock/gls-rpa/internal/config"
	"github.com/toolstock/gls-rpa/internal/report"
	"github.com/toolstock/gls-rpa/internal/storage"
)

const resultsURL = "https://portal.example/Extranet/envios.aspx"

var reportDate = report.New(time.Date(2024, time.June, 4, 10, 0, 0, 0, time.UTC), 0)

func testConfig() *config.Config {
	return &config.Config{
		Portal: config.PortalConfig{
			Elements: config.ElementIDConfig{ExportButton: "btXLS", ResultsTable: "envios"},
		},
		Timeouts: config.TimeoutsConfig{
			ExportButton:   time.Second,
			PollInterval:   5 * time.Millisecond,
			PollTimeout:    500 * time.Millisecond,
			RenameBackoff:  time.Millisecond,
			RenameAttempts: 3,
		},
	}
}

func newWatcher(t *testing.T, f *browsertest.Fake, dir string) *Watcher {
	t.Helper()
	return NewWatcher(f, storage.NewStagingDir(dir, zap.NewNop()), testConfig(), zap.NewNop())
}

// downloadAfter makes name appear in dir shortly after the export click,
// the way a browser finishes a download: write a partial file, then rename.
func downloadAfter(dir, name string, delay time.Duration) func(f *browsertest.Fake) {
	return func(f *browsertest.Fake) {
		go func() {
			time.Sleep(delay)
			partial := filepath.Join(dir, name+".part")
			if err := os.WriteFile(partial, []byte("export"), 0644); err != nil {
				return
			}
			_ = os.Rename(partial, filepath.Join(dir, name))
		}()
	}
}

func TestWatcher_CapturesNewFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.xls"), []byte("old"), 0644))

	f := browsertest.New()
	f.Pages[resultsURL] = browsertest.Page{Elements: []string{"btXLS", "envios"}}
	f.Load(resultsURL)
	f.OnClick["btXLS"] = downloadAfter(dir, "b.xlsx", 30*time.Millisecond)

	path, err := newWatcher(t, f, dir).ExportAndCapture(context.Background(), reportDate)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "GLS_20240604.xls"), path)
	assert.FileExists(t, path)
	assert.NoFileExists(t, filepath.Join(dir, "b.xlsx"))
	assert.FileExists(t, filepath.Join(dir, "a.xls"), "pre-existing files are left alone")
	assert.Equal(t, []string{"btXLS"}, f.Clicks())
}

func TestWatcher_IgnoresUnrecognizedExtensions(t *testing.T) {
	dir := t.TempDir()

	f := browsertest.New()
	f.Pages[resultsURL] = browsertest.Page{Elements: []string{"btXLS"}}
	f.Load(resultsURL)
	f.OnClick["btXLS"] = downloadAfter(dir, "report.xls.crdownload", 0)

	path, err := newWatcher(t, f, dir).ExportAndCapture(context.Background(), reportDate)

	assert.ErrorIs(t, err, ErrDownloadTimeout)
	assert.Empty(t, path)
}

func TestWatcher_TimesOutWithoutDownload(t *testing.T) {
	dir := t.TempDir()

	f := browsertest.New()
	f.Pages[resultsURL] = browsertest.Page{Elements: []string{"btXLS"}}
	f.Load(resultsURL)

	var path string
	var err error
	assert.NotPanics(t, func() {
		path, err = newWatcher(t, f, dir).ExportAndCapture(context.Background(), reportDate)
	})
	assert.Empty(t, path)
	assert.ErrorIs(t, err, ErrDownloadTimeout)
}

func TestWatcher_NoExportControlIsAnEmptyDay(t *testing.T) {
	dir := t.TempDir()

	f := browsertest.New()
	f.Pages[resultsURL] = browsertest.Page{Elements: []string{"envios"}}
	f.Load(resultsURL)

	path, err := newWatcher(t, f, dir).ExportAndCapture(context.Background(), reportDate)

	assert.NoError(t, err)
	assert.Empty(t, path)
	assert.Empty(t, f.Clicks())
}

func TestWatcher_ReplacesStaleStagingFile(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "GLS_20240604.xls")
	require.NoError(t, os.WriteFile(stale, []byte("stale"), 0644))

	f := browsertest.New()
	f.Pages[resultsURL] = browsertest.Page{Elements: []string{"btXLS"}}
	f.Load(resultsURL)
	// The browser itself saves the export under the canonical name
	f.OnClick["btXLS"] = downloadAfter(dir, "GLS_20240604.xls", 10*time.Millisecond)

	path, err := newWatcher(t, f, dir).ExportAndCapture(context.Background(), reportDate)

	require.NoError(t, err)
	assert.Equal(t, stale, path)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "export", string(content))
}

func TestWatcher_StopsWhenContextEnds(t *testing.T) {
	dir := t.TempDir()

	f := browsertest.New()
	f.Pages[resultsURL] = browsertest.Page{Elements: []string{"btXLS"}}
	f.Load(resultsURL)

	ctx, cancel := context.WithCancel(context.Background())
	f.OnClick["btXLS"] = func(*browsertest.Fake) { cancel() }

	path, err := newWatcher(t, f, dir).ExportAndCapture(ctx, reportDate)

	assert.Empty(t, path)
	assert.ErrorIs(t, err, context.Canceled)
}
