package postgres

import (
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// pointBatchSize keeps a multi-row point insert well under Postgres' 65535
// bind parameter limit (five parameters per point).
const pointBatchSize = 1000

var (
	productColumns = []string{"id", "sku", "name", "current_stock", "low_stock_threshold", "unit_cost", "expiry_date", "active"}
	runColumns     = []string{"id", "product_id", "method", "horizon", "params", "mae", "accuracy", "created_at"}
	pointColumns   = []string{"id", "run_id", "period", "predicted", "lower95", "upper95"}
)

func productsQuery() sq.SelectBuilder {
	return psql.Select(productColumns...).From("products").OrderBy("id")
}

func activeProductsQuery() sq.SelectBuilder {
	return productsQuery().Where(sq.Eq{"active": true})
}

func lowStockProductsQuery() sq.SelectBuilder {
	return activeProductsQuery().Where("current_stock <= low_stock_threshold")
}

func expiringProductsQuery() sq.SelectBuilder {
	return activeProductsQuery().Where(sq.NotEq{"expiry_date": nil})
}

func dailySalesQuery(productID int64, since time.Time) sq.SelectBuilder {
	return psql.
		Select("date_trunc('day', sold_at AT TIME ZONE 'UTC') AS day", "SUM(quantity) AS quantity").
		From("sales").
		Where(sq.Eq{"product_id": productID}).
		Where(sq.GtOrEq{"sold_at": since}).
		GroupBy("1").
		OrderBy("1")
}

func receiptDatesQuery(productID int64) sq.SelectBuilder {
	return psql.Select("received_at").
		From("stock_receipts").
		Where(sq.Eq{"product_id": productID}).
		OrderBy("received_at")
}

func insertRunQuery(run *domain.ForecastRun) sq.InsertBuilder {
	return psql.Insert("forecast_runs").
		Columns("product_id", "method", "horizon", "params", "mae", "accuracy").
		Values(run.ProductID, string(run.Method), run.Horizon, run.Params, run.MAE, run.Accuracy).
		Suffix("RETURNING id, created_at")
}

// pointBatches splits points into chunks of at most size.
func pointBatches(points []domain.ForecastPoint, size int) [][]domain.ForecastPoint {
	var batches [][]domain.ForecastPoint
	for len(points) > size {
		batches = append(batches, points[:size])
		points = points[size:]
	}
	if len(points) > 0 {
		batches = append(batches, points)
	}
	return batches
}

func insertPointsQuery(runID int64, points []domain.ForecastPoint) sq.InsertBuilder {
	q := psql.Insert("forecast_points").Columns("run_id", "period", "predicted", "lower95", "upper95")
	for _, p := range points {
		q = q.Values(runID, p.Period, p.Predicted, p.Lower95, p.Upper95)
	}
	return q
}

// runsQuery lists runs newest first. Ties on created_at go to the higher id.
func runsQuery(filter domain.ForecastHistoryFilter) sq.SelectBuilder {
	q := psql.Select(runColumns...).From("forecast_runs").OrderBy("created_at DESC", "id DESC")
	if filter.ProductID != 0 {
		q = q.Where(sq.Eq{"product_id": filter.ProductID})
	}
	if filter.Method != "" {
		q = q.Where(sq.Eq{"method": string(filter.Method)})
	}
	if filter.Since != nil {
		q = q.Where(sq.GtOrEq{"created_at": *filter.Since})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	return q
}

func pointsQuery(runIDs []int64) sq.SelectBuilder {
	return psql.Select(pointColumns...).
		From("forecast_points").
		Where("run_id = ANY(?)", pq.Array(runIDs)).
		OrderBy("run_id", "period")
}

func insertAlertsQuery(alerts []domain.Alert) sq.InsertBuilder {
	q := psql.Insert("alerts").Columns("product_id", "type", "description", "severity", "resolved")
	for _, a := range alerts {
		q = q.Values(a.ProductID, string(a.Type), a.Description, string(a.Severity), a.Resolved)
	}
	return q
}

func insertJobLogQuery(s *domain.JobRunSummary) sq.InsertBuilder {
	return psql.Insert("job_logs").
		Columns("run_id", "job_type", "status", "products_processed", "error_count", "details", "started_at", "finished_at").
		Values(s.RunID, string(s.JobType), string(s.Status), s.ProductsProcessed, s.ErrorCount, s.Details, s.StartedAt, s.FinishedAt)
}
