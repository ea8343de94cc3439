package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/toolstock/gls-rpa/internal/config"
	"github.com/toolstock/gls-rpa/internal/report"
	"github.com/toolstock/gls-rpa/internal/sheet"
	"github.com/toolstock/gls-rpa/internal/storage"
)

// Columns appended to the canonical spreadsheet
const (
	ColumnOrderID   = "id_order_ps"
	ColumnReference = "reference_ps"
)

// ErrJoinColumnMissing is returned when the spreadsheet lacks the join column
var ErrJoinColumnMissing = errors.New("join column not found")

// Summary counts the outcome of one reconciliation
type Summary struct {
	Rows          int
	ByMarketplace int
	ByReference   int
	Unmatched     int
}

// Reconciler fills id_order_ps and reference_ps for every row whose join
// column matches an active order.
type Reconciler struct {
	source     RecordSource
	final      *storage.LocalFileStorage
	joinColumn string
	policy     Policy
	logger     *zap.Logger
}

// NewReconciler creates a reconciler over the canonical spreadsheets in final
func NewReconciler(source RecordSource, final *storage.LocalFileStorage, cfg *config.Config, logger *zap.Logger) (*Reconciler, error) {
	policy, err := ParsePolicy(cfg.Reconcile.DuplicatePolicy)
	if err != nil {
		return nil, err
	}
	return &Reconciler{
		source:     source,
		final:      final,
		joinColumn: cfg.Reconcile.JoinColumn,
		policy:     policy,
		logger:     logger.Named("reconcile"),
	}, nil
}

// Reconcile enriches the spreadsheet for date and reports success.
// On failure the spreadsheet is left as it was.
func (r *Reconciler) Reconcile(ctx context.Context, date report.Date) bool {
	summary, err := r.Apply(ctx, date)
	if err != nil {
		r.logger.Error("Failed to reconcile spreadsheet",
			zap.Stringer("date", date),
			zap.Error(err))
		return false
	}

	r.logger.Info("Spreadsheet reconciled",
		zap.Stringer("date", date),
		zap.Int("rows", summary.Rows),
		zap.Int("matched_marketplace", summary.ByMarketplace),
		zap.Int("matched_reference", summary.ByReference),
		zap.Int("unmatched", summary.Unmatched))
	return true
}

// Apply performs the reconciliation and returns its counts
func (r *Reconciler) Apply(ctx context.Context, date report.Date) (Summary, error) {
	records, err := r.source.ActiveRecords(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load reference records: %w", err)
	}
	index := NewIndex(records, r.policy)
	r.logger.Info("Reference records loaded",
		zap.Int("records", len(records)),
		zap.Int("marketplace_keys", index.Len()))

	path := r.final.Path(date.CanonicalName())
	table, err := sheet.Read(path)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load %s: %w", path, err)
	}

	summary, err := r.enrich(table, index)
	if err != nil {
		return Summary{}, err
	}

	if _, err := r.final.WriteAtomic(date.CanonicalName(), func(tmpPath string) error {
		return sheet.Write(tmpPath, table)
	}); err != nil {
		return Summary{}, err
	}
	return summary, nil
}

// enrich resets both output columns and fills them from the first rule
// that matches each row.
func (r *Reconciler) enrich(table *sheet.Table, index *Index) (Summary, error) {
	join := table.Column(r.joinColumn)
	if join < 0 {
		return Summary{}, fmt.Errorf("%w: %s", ErrJoinColumnMissing, r.joinColumn)
	}
	idCol := table.EnsureColumn(ColumnOrderID)
	refCol := table.EnsureColumn(ColumnReference)

	summary := Summary{Rows: len(table.Rows)}
	for i := range table.Rows {
		table.Set(i, idCol, "")
		table.Set(i, refCol, "")

		rec, rule := index.Match(table.Get(i, join))
		switch rule {
		case RuleMarketplace:
			summary.ByMarketplace++
		case RuleReference:
			summary.ByReference++
		default:
			summary.Unmatched++
			continue
		}

		table.Set(i, idCol, strconv.FormatInt(rec.OrderID, 10))
		table.Set(i, refCol, rec.Reference)
	}
	return summary, nil
}
