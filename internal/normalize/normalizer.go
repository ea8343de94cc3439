// Package normalize turns a downloaded export of uncertain format into the
// canonical spreadsheet for a report date.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/toolstock/gls-rpa/internal/report"
	"github.com/toolstock/gls-rpa/internal/sheet"
	"github.com/toolstock/gls-rpa/internal/storage"
)

// ErrDegraded is returned when an HTML export could not be converted and
// only a raw copy was kept for manual handling.
var ErrDegraded = errors.New("html export kept as raw copy")

// Normalizer converts downloads into <final>/<yyyymmdd>.xlsx
type Normalizer struct {
	final       *storage.LocalFileStorage
	html        []Strategy
	spreadsheet []Strategy
	logger      *zap.Logger
}

// NewNormalizer creates a normalizer writing into final with the default
// strategy order.
func NewNormalizer(final *storage.LocalFileStorage, logger *zap.Logger) *Normalizer {
	return &Normalizer{
		final:       final,
		html:        DefaultHTMLStrategies(),
		spreadsheet: DefaultSpreadsheetStrategies(),
		logger:      logger.Named("normalize"),
	}
}

// WithStrategies replaces the HTML and spreadsheet strategy lists. A nil
// list keeps the current one.
func (n *Normalizer) WithStrategies(html, spreadsheet []Strategy) *Normalizer {
	if html != nil {
		n.html = html
	}
	if spreadsheet != nil {
		n.spreadsheet = spreadsheet
	}
	return n
}

// Normalize converts path and reports whether the canonical spreadsheet
// was written. Failures are logged, never returned.
func (n *Normalizer) Normalize(ctx context.Context, path string, date report.Date) bool {
	out, err := n.Convert(ctx, path, date)
	if err != nil {
		if errors.Is(err, ErrDegraded) {
			n.logger.Error("HTML export could not be converted, manual intervention required",
				zap.String("source", path),
				zap.Error(err))
		} else {
			n.logger.Error("Failed to normalize export",
				zap.String("source", path),
				zap.Error(err))
		}
		return false
	}

	n.logger.Info("Export normalized",
		zap.String("source", path),
		zap.String("output", out))
	return true
}

// Convert classifies path, runs the matching strategy cascade and writes
// the canonical spreadsheet, returning its path. An HTML file no strategy
// can read is copied next to the output as GLS_<yyyymmdd>.html and
// ErrDegraded is returned.
func (n *Normalizer) Convert(ctx context.Context, path string, date report.Date) (string, error) {
	format, err := ClassifyFile(path)
	if err != nil {
		return "", err
	}
	n.logger.Info("Export classified",
		zap.String("path", path),
		zap.Stringer("format", format))

	strategies := n.spreadsheet
	if format == FormatHTML {
		strategies = n.html
	}

	table, err := n.parse(ctx, strategies, path)
	if err != nil {
		if format == FormatHTML && ctx.Err() == nil {
			raw, copyErr := n.final.CopyFile(path, date.RawHTMLName())
			if copyErr != nil {
				return "", fmt.Errorf("%w, and raw copy failed: %v", err, copyErr)
			}
			return "", fmt.Errorf("%w at %s: %v", ErrDegraded, raw, err)
		}
		return "", err
	}

	return n.final.WriteAtomic(date.CanonicalName(), func(tmpPath string) error {
		return sheet.Write(tmpPath, table)
	})
}

// parse tries strategies in order and returns the first table produced
func (n *Normalizer) parse(ctx context.Context, strategies []Strategy, path string) (*sheet.Table, error) {
	var errs []error
	for _, s := range strategies {
		table, err := safeParse(ctx, s, path)
		if err == nil {
			n.logger.Info("Parse strategy succeeded",
				zap.String("strategy", s.Name()),
				zap.Int("columns", len(table.Header)),
				zap.Int("rows", len(table.Rows)))
			return table, nil
		}

		n.logger.Warn("Parse strategy failed",
			zap.String("strategy", s.Name()),
			zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
	}
	return nil, fmt.Errorf("%w: %w", ErrAllStrategiesFailed, errors.Join(errs...))
}

// ClassifyFile classifies the leading bytes of the file at path
func ClassifyFile(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatSpreadsheet, fmt.Errorf("failed to open export: %w", err)
	}
	defer f.Close()

	buf := make([]byte, SniffLength)
	read, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return FormatSpreadsheet, fmt.Errorf("failed to read export: %w", err)
	}
	return Classify(buf[:read]), nil
}
