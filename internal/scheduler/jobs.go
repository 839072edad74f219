package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stockcast/backend-go/internal/alert"
	"github.com/andresuchdata/stockcast/backend-go/internal/cache"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/repository"
	"github.com/andresuchdata/stockcast/backend-go/internal/risk"
)

// Job names accepted by Trigger and used as cron entry names.
const (
	JobDaily    = "daily"
	JobWeekly   = "weekly"
	JobLowStock = "low_stock"
	JobExpiry   = "expiry"
)

// ErrUnknownJob is returned by Trigger for a name that is not a job.
var ErrUnknownJob = errors.New("unknown job")

// weeklyDemandDays is the forecast window compared with stock in the weekly analysis.
const weeklyDemandDays = 14

// ProductForecaster runs and stores a forecast for one product. A nil run
// means the product is not forecastable yet.
type ProductForecaster interface {
	Run(ctx context.Context, productID int64, horizon int) (*domain.ForecastRun, error)
}

// Jobs holds the batch jobs. Products are processed sequentially in the order
// the product listing returns them.
type Jobs struct {
	products   repository.ProductReader
	forecasts  repository.ForecastRepository
	jobLogs    repository.JobLogRepository
	forecaster ProductForecaster
	alerts     alert.Emitter
	cache      cache.ForecastCache
	horizon    int
	now        func() time.Time
}

// NewJobs builds the batch jobs. latest is the cache read by the forecast
// service; the daily sweep evicts the entries it supersedes. A nil cache is
// treated as no cache.
func NewJobs(store repository.Store, forecaster ProductForecaster, alerts alert.Emitter, latest cache.ForecastCache, horizon int) *Jobs {
	if horizon <= 0 {
		horizon = 14
	}
	if latest == nil {
		latest = cache.NewNoopForecastCache()
	}
	return &Jobs{
		products:   store,
		forecasts:  store,
		jobLogs:    store,
		forecaster: forecaster,
		alerts:     alerts,
		cache:      latest,
		horizon:    horizon,
		now:        time.Now,
	}
}

// WithClock returns a copy of the jobs using now for timestamps and expiry.
func (j *Jobs) WithClock(now func() time.Time) *Jobs {
	cp := *j
	cp.now = now
	return &cp
}

// Trigger runs the named job.
func (j *Jobs) Trigger(ctx context.Context, name string) (*domain.JobRunSummary, error) {
	switch name {
	case JobDaily:
		return j.RunDailyForecasts(ctx)
	case JobWeekly:
		return j.RunWeeklyAnalysis(ctx)
	case JobLowStock:
		return j.RunLowStockSweep(ctx)
	case JobExpiry:
		return j.RunExpiryCheck(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
}

// RunDailyForecasts forecasts every active product. Per-product failures are
// counted and logged and never stop the sweep.
func (j *Jobs) RunDailyForecasts(ctx context.Context) (*domain.JobRunSummary, error) {
	summary := j.begin(domain.JobDailyForecast)
	logger := log.With().Str("job", string(summary.JobType)).Str("run_id", summary.RunID).Logger()

	products, err := j.products.FindActiveProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active products: %w", err)
	}
	logger.Info().Int("products", len(products)).Msg("daily forecast sweep started")

	skipped := 0
	for _, p := range products {
		if ctx.Err() != nil {
			break
		}
		run, err := j.forecaster.Run(ctx, p.ID, j.horizon)
		if err != nil {
			summary.ErrorCount++
			logger.Error().Err(err).Int64("product_id", p.ID).Msg("forecast failed")
			continue
		}
		if run == nil {
			skipped++
		} else if err := j.cache.InvalidateLatest(ctx, p.ID); err != nil {
			logger.Warn().Err(err).Int64("product_id", p.ID).Msg("cached forecast not invalidated")
		}
		summary.ProductsProcessed++
	}

	summary.Details = fmt.Sprintf("processed %d of %d products, %d without enough history", summary.ProductsProcessed, len(products), skipped)
	j.finish(ctx, summary)
	return summary, nil
}

// RunWeeklyAnalysis compares each active product's stock with its latest
// forecast and raises stockout and overstock alerts.
func (j *Jobs) RunWeeklyAnalysis(ctx context.Context) (*domain.JobRunSummary, error) {
	summary := j.begin(domain.JobWeeklyAnalysis)
	logger := log.With().Str("job", string(summary.JobType)).Str("run_id", summary.RunID).Logger()

	products, err := j.products.FindActiveProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active products: %w", err)
	}

	var alerts []domain.Alert
	for _, p := range products {
		run, err := j.forecasts.FindLatestForecastRun(ctx, p.ID)
		if err != nil {
			summary.ErrorCount++
			logger.Error().Err(err).Int64("product_id", p.ID).Msg("latest forecast lookup failed")
			continue
		}
		summary.ProductsProcessed++
		if run == nil || len(run.Points) == 0 {
			continue
		}

		demand := risk.TotalDemand(run.Points, weeklyDemandDays)
		stock := float64(p.CurrentStock)
		if stock < demand {
			alerts = append(alerts, alert.New(p.ID, domain.AlertStockoutRisk, domain.SeverityHigh,
				fmt.Sprintf("%s: stock %d is below forecast demand %.1f for the next %d days", p.Name, p.CurrentStock, demand, weeklyDemandDays)))
		}
		if demand > 0 && stock > 3*demand {
			alerts = append(alerts, alert.New(p.ID, domain.AlertOverstockRisk, domain.SeverityMedium,
				fmt.Sprintf("%s: stock %d is more than three times forecast demand %.1f", p.Name, p.CurrentStock, demand)))
		}
	}

	j.emit(ctx, &logger, alerts)
	summary.Details = fmt.Sprintf("analysed %d products, %d alerts", summary.ProductsProcessed, len(alerts))
	j.finish(ctx, summary)
	return summary, nil
}

// RunLowStockSweep raises alerts for products at or below their low-stock
// threshold. It does not look at forecasts.
func (j *Jobs) RunLowStockSweep(ctx context.Context) (*domain.JobRunSummary, error) {
	summary := j.begin(domain.JobLowStockSweep)
	logger := log.With().Str("job", string(summary.JobType)).Str("run_id", summary.RunID).Logger()

	products, err := j.products.FindLowStockProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list low stock products: %w", err)
	}

	alerts := make([]domain.Alert, 0, len(products))
	for _, p := range products {
		summary.ProductsProcessed++
		if p.CurrentStock <= 0 {
			alerts = append(alerts, alert.New(p.ID, domain.AlertOutOfStock, domain.SeverityHigh,
				fmt.Sprintf("%s is out of stock", p.Name)))
			continue
		}
		alerts = append(alerts, alert.New(p.ID, domain.AlertLowStock, domain.SeverityMedium,
			fmt.Sprintf("%s is low on stock (%d left, threshold %d)", p.Name, p.CurrentStock, p.LowStockThreshold)))
	}

	j.emit(ctx, &logger, alerts)
	summary.Details = fmt.Sprintf("%d products at or below threshold", len(products))
	j.finish(ctx, summary)
	return summary, nil
}

// RunExpiryCheck raises EXPIRED alerts for products past or within a week of
// their expiry date and EXPIRING_SOON alerts for those within 30 days.
func (j *Jobs) RunExpiryCheck(ctx context.Context) (*domain.JobRunSummary, error) {
	summary := j.begin(domain.JobExpiryCheck)
	logger := log.With().Str("job", string(summary.JobType)).Str("run_id", summary.RunID).Logger()

	products, err := j.products.FindExpiringProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products with expiry dates: %w", err)
	}

	now := j.now()
	var alerts []domain.Alert
	for _, p := range products {
		summary.ProductsProcessed++
		a := risk.EvaluateExpiryRisk(p.ExpiryDate, now)
		switch a.Level {
		case domain.RiskHigh:
			alerts = append(alerts, alert.New(p.ID, domain.AlertExpired, domain.SeverityHigh,
				fmt.Sprintf("%s: %s (%d in stock)", p.Name, a.Reason, p.CurrentStock)))
		case domain.RiskMedium:
			alerts = append(alerts, alert.New(p.ID, domain.AlertExpiringSoon, domain.SeverityMedium,
				fmt.Sprintf("%s: %s (%d in stock)", p.Name, a.Reason, p.CurrentStock)))
		}
	}

	j.emit(ctx, &logger, alerts)
	summary.Details = fmt.Sprintf("checked %d products, %d alerts", len(products), len(alerts))
	j.finish(ctx, summary)
	return summary, nil
}

func (j *Jobs) emit(ctx context.Context, logger *zerolog.Logger, alerts []domain.Alert) {
	if len(alerts) == 0 {
		return
	}
	if err := j.alerts.Emit(ctx, alerts...); err != nil {
		logger.Warn().Err(err).Int("alerts", len(alerts)).Msg("failed to store alerts")
		return
	}
	logger.Info().Int("alerts", len(alerts)).Msg("alerts emitted")
}

func (j *Jobs) begin(jobType domain.JobType) *domain.JobRunSummary {
	return &domain.JobRunSummary{
		RunID:     uuid.NewString(),
		JobType:   jobType,
		StartedAt: j.now(),
	}
}

// finish sets the status and writes the job log. A failed write is logged and
// otherwise ignored.
func (j *Jobs) finish(ctx context.Context, summary *domain.JobRunSummary) {
	summary.FinishedAt = j.now()
	summary.Status = domain.JobSuccess
	if summary.ErrorCount > 0 {
		summary.Status = domain.JobPartialFailure
	}

	event := log.Info()
	if summary.Status == domain.JobPartialFailure {
		event = log.Warn()
	}
	event.
		Str("job", string(summary.JobType)).
		Str("run_id", summary.RunID).
		Int("processed", summary.ProductsProcessed).
		Int("errors", summary.ErrorCount).
		Dur("duration", summary.FinishedAt.Sub(summary.StartedAt)).
		Msg("job finished")

	if err := j.jobLogs.CreateJobLog(ctx, summary); err != nil {
		log.Warn().Err(err).Str("run_id", summary.RunID).Msg("failed to write job log")
	}
}
