package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// QueryConfig names the tables and statuses of the active order query
type QueryConfig struct {
	OrdersTable      string
	MarketplaceTable string
	ActiveStatuses   []int
}

// Repository reads active orders from the shop database
type Repository struct {
	db     *sql.DB
	query  string
	args   []interface{}
	logger *zap.Logger
}

// NewRepository creates a new repository. Table names must be plain or
// schema-qualified identifiers.
func NewRepository(db *sql.DB, cfg QueryConfig, logger *zap.Logger) (*Repository, error) {
	for _, table := range []string{cfg.OrdersTable, cfg.MarketplaceTable} {
		if !identifierPattern.MatchString(table) {
			return nil, fmt.Errorf("invalid table name %q", table)
		}
	}
	if len(cfg.ActiveStatuses) == 0 {
		return nil, errors.New("no active statuses configured")
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cfg.ActiveStatuses)), ", ")
	args := make([]interface{}, len(cfg.ActiveStatuses))
	for i, s := range cfg.ActiveStatuses {
		args[i] = s
	}

	query := fmt.Sprintf(`
		SELECT o.id_order, o.reference, bo.marketplace_order_id
		FROM %s o
		LEFT JOIN %s bo ON bo.id_order = o.id_order
		WHERE o.current_state IN (%s)
		ORDER BY o.id_order
	`, cfg.OrdersTable, cfg.MarketplaceTable, placeholders)

	return &Repository{
		db:     db,
		query:  query,
		args:   args,
		logger: logger,
	}, nil
}

// ActiveRecords returns every order in an active status, ordered by id
func (r *Repository) ActiveRecords(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, r.query, r.args...)
	if err != nil {
		r.logger.Error("Failed to query active orders", zap.Error(err))
		return nil, fmt.Errorf("failed to query active orders: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var reference sql.NullString
		if err := rows.Scan(&rec.OrderID, &reference, &rec.MarketplaceOrderID); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		rec.Reference = reference.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read active orders: %w", err)
	}

	r.logger.Info("Active orders loaded", zap.Int("count", len(records)))
	return records, nil
}
