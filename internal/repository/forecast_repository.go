// backend-go/internal/repository/forecast_repository.go
package repository

import (
	"context"
	"time"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

// ProductReader exposes the catalogue lookups the engine needs.
type ProductReader interface {
	FindProductByID(ctx context.Context, id int64) (*domain.Product, error)
	// FindActiveProducts returns active products ordered by id.
	FindActiveProducts(ctx context.Context) ([]*domain.Product, error)
	// FindLowStockProducts returns active products at or below their threshold.
	FindLowStockProducts(ctx context.Context) ([]*domain.Product, error)
	// FindExpiringProducts returns active products that have an expiry date, ordered by id.
	FindExpiringProducts(ctx context.Context) ([]*domain.Product, error)
}

// SalesReader exposes sale and receipt history.
type SalesReader interface {
	// SumSaleQuantitiesByDay returns one row per calendar day with sales since the given time.
	SumSaleQuantitiesByDay(ctx context.Context, productID int64, since time.Time) ([]domain.DailySales, error)
	FindReceiptDates(ctx context.Context, productID int64) ([]time.Time, error)
}

// ForecastRepository creates and reads forecast runs. Runs are never updated.
type ForecastRepository interface {
	// CreateForecastRun inserts the run and fills in ID and CreatedAt.
	CreateForecastRun(ctx context.Context, run *domain.ForecastRun) error
	CreateForecastPoints(ctx context.Context, runID int64, points []domain.ForecastPoint) error
	// FindLatestForecastRun returns the newest run with its points, or nil when none exists.
	FindLatestForecastRun(ctx context.Context, productID int64) (*domain.ForecastRun, error)
	FindForecastRuns(ctx context.Context, filter domain.ForecastHistoryFilter) ([]*domain.ForecastRun, error)
}

type AlertRepository interface {
	CreateAlerts(ctx context.Context, alerts []domain.Alert) error
}

type JobLogRepository interface {
	CreateJobLog(ctx context.Context, summary *domain.JobRunSummary) error
}

// Store is the whole datastore collaborator, constructed once at startup.
type Store interface {
	ProductReader
	SalesReader
	ForecastRepository
	AlertRepository
	JobLogRepository
}
