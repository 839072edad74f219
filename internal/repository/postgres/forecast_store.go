package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/repository"
)

// Store implements repository.Store on Postgres.
type Store struct {
	db *DB
}

var _ repository.Store = (*Store)(nil)

func NewStore(db *DB) *Store {
	return &Store{db: db}
}

func (s *Store) selectInto(ctx context.Context, dest interface{}, q sq.SelectBuilder) error {
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return sqlx.SelectContext(ctx, s.db, dest, query, args...)
}

func (s *Store) FindProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	query, args, err := productsQuery().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p domain.Product
	if err := sqlx.GetContext(ctx, s.db, &p, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	return &p, nil
}

func (s *Store) FindActiveProducts(ctx context.Context) ([]*domain.Product, error) {
	var products []*domain.Product
	if err := s.selectInto(ctx, &products, activeProductsQuery()); err != nil {
		return nil, fmt.Errorf("failed to list active products: %w", err)
	}
	return products, nil
}

func (s *Store) FindLowStockProducts(ctx context.Context) ([]*domain.Product, error) {
	var products []*domain.Product
	if err := s.selectInto(ctx, &products, lowStockProductsQuery()); err != nil {
		return nil, fmt.Errorf("failed to list low stock products: %w", err)
	}
	return products, nil
}

func (s *Store) FindExpiringProducts(ctx context.Context) ([]*domain.Product, error) {
	var products []*domain.Product
	if err := s.selectInto(ctx, &products, expiringProductsQuery()); err != nil {
		return nil, fmt.Errorf("failed to list products with expiry dates: %w", err)
	}
	return products, nil
}

func (s *Store) SumSaleQuantitiesByDay(ctx context.Context, productID int64, since time.Time) ([]domain.DailySales, error) {
	var rows []domain.DailySales
	if err := s.selectInto(ctx, &rows, dailySalesQuery(productID, since)); err != nil {
		return nil, fmt.Errorf("failed to sum sales for product %d: %w", productID, err)
	}
	return rows, nil
}

func (s *Store) FindReceiptDates(ctx context.Context, productID int64) ([]time.Time, error) {
	var dates []time.Time
	if err := s.selectInto(ctx, &dates, receiptDatesQuery(productID)); err != nil {
		return nil, fmt.Errorf("failed to get receipts for product %d: %w", productID, err)
	}
	return dates, nil
}

func (s *Store) CreateForecastRun(ctx context.Context, run *domain.ForecastRun) error {
	query, args, err := insertRunQuery(run).ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if err := s.db.QueryRowxContext(ctx, query, args...).Scan(&run.ID, &run.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert forecast run: %w", err)
	}
	return nil
}

func (s *Store) CreateForecastPoints(ctx context.Context, runID int64, points []domain.ForecastPoint) error {
	if len(points) == 0 {
		return nil
	}
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, batch := range pointBatches(points, pointBatchSize) {
			query, args, err := insertPointsQuery(runID, batch).ToSql()
			if err != nil {
				return fmt.Errorf("build query: %w", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("failed to insert forecast points: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) FindLatestForecastRun(ctx context.Context, productID int64) (*domain.ForecastRun, error) {
	runs, err := s.FindForecastRuns(ctx, domain.ForecastHistoryFilter{ProductID: productID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return runs[0], nil
}

func (s *Store) FindForecastRuns(ctx context.Context, filter domain.ForecastHistoryFilter) ([]*domain.ForecastRun, error) {
	var runs []*domain.ForecastRun
	if err := s.selectInto(ctx, &runs, runsQuery(filter)); err != nil {
		return nil, fmt.Errorf("failed to list forecast runs: %w", err)
	}
	if len(runs) == 0 {
		return runs, nil
	}

	ids := make([]int64, len(runs))
	byID := make(map[int64]*domain.ForecastRun, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
		byID[r.ID] = r
	}

	var points []domain.ForecastPoint
	if err := s.selectInto(ctx, &points, pointsQuery(ids)); err != nil {
		return nil, fmt.Errorf("failed to load forecast points: %w", err)
	}
	for _, p := range points {
		if r, ok := byID[p.RunID]; ok {
			r.Points = append(r.Points, p)
		}
	}
	return runs, nil
}

func (s *Store) CreateAlerts(ctx context.Context, alerts []domain.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	query, args, err := insertAlertsQuery(alerts).ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert alerts: %w", err)
	}
	return nil
}

func (s *Store) CreateJobLog(ctx context.Context, summary *domain.JobRunSummary) error {
	query, args, err := insertJobLogQuery(summary).ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert job log: %w", err)
	}
	return nil
}
