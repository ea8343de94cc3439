package reconcile

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/toolstock/gls-rpa/internal/config"
	"github.com/toolstock/gls-rpa/pkg/database"
)

// RecordSource supplies the active orders for one reconciliation
type RecordSource interface {
	ActiveRecords(ctx context.Context) ([]Record, error)
}

// MySQLSource opens a fresh connection for every fetch and closes it
// before returning.
type MySQLSource struct {
	db           database.Config
	query        QueryConfig
	queryTimeout time.Duration
	logger       *zap.Logger
}

// NewMySQLSource creates a record source from the application config
func NewMySQLSource(cfg *config.Config, logger *zap.Logger) *MySQLSource {
	return &MySQLSource{
		db: database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			Name:     cfg.Database.Name,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Timeout:  cfg.Database.Timeout,
		},
		query: QueryConfig{
			OrdersTable:      cfg.Reconcile.OrdersTable,
			MarketplaceTable: cfg.Reconcile.MarketplaceTable,
			ActiveStatuses:   cfg.Reconcile.ActiveStatuses,
		},
		queryTimeout: cfg.Database.QueryTimeout,
		logger:       logger.Named("database"),
	}
}

func (s *MySQLSource) ActiveRecords(ctx context.Context) ([]Record, error) {
	db, err := database.New(ctx, s.db, s.logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := db.Close(); err != nil {
			s.logger.Warn("Failed to close database connection", zap.Error(err))
		}
	}()

	repo, err := NewRepository(db.DB, s.query, s.logger)
	if err != nil {
		return nil, err
	}

	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}
	return repo.ActiveRecords(ctx)
}
