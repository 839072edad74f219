package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stockcast/backend-go/internal/alert"
	"github.com/andresuchdata/stockcast/backend-go/internal/cache"
	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/repository"
	"github.com/andresuchdata/stockcast/backend-go/internal/risk"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

// ModelRunner runs and stores a forecast with an explicit model choice.
type ModelRunner interface {
	RunWithModel(ctx context.Context, productID int64, horizon int, model domain.ForecastMethod) (*domain.ForecastRun, error)
}

// ForecastOutcome is the result of an on-demand forecast.
type ForecastOutcome struct {
	ProductID int64                    `json:"product_id"`
	Run       *domain.ForecastRun      `json:"run"`
	Risk      *risk.StockoutAssessment `json:"risk"`
}

// ProductRisk combines both risk assessments for a product's latest forecast.
type ProductRisk struct {
	ProductID    int64                    `json:"product_id"`
	CurrentStock int                      `json:"current_stock"`
	RunID        int64                    `json:"run_id"`
	Method       domain.ForecastMethod    `json:"method"`
	Stockout     risk.StockoutAssessment  `json:"stockout"`
	Overstock    risk.OverstockAssessment `json:"overstock"`
}

type ForecastService struct {
	store           repository.Store
	runner          ModelRunner
	cache           cache.ForecastCache
	alerts          alert.Emitter
	defaultHorizon  int
	defaultLeadTime int
}

func NewForecastService(store repository.Store, runner ModelRunner, cacheImpl cache.ForecastCache, alerts alert.Emitter, cfg config.ForecastConfig) *ForecastService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopForecastCache()
	}
	if alerts == nil {
		alerts = alert.NewStoreEmitter(store)
	}
	horizon := cfg.DefaultHorizon
	if horizon <= 0 {
		horizon = 14
	}
	leadTime := cfg.DefaultLeadTimeDays
	if leadTime <= 0 {
		leadTime = 7
	}
	return &ForecastService{
		store:           store,
		runner:          runner,
		cache:           cacheImpl,
		alerts:          alerts,
		defaultHorizon:  horizon,
		defaultLeadTime: leadTime,
	}
}

// ForecastProduct forecasts one product now and raises a stockout alert when
// the new forecast puts it at MEDIUM or HIGH risk. A zero horizon uses the
// configured default. A product with too little sales history returns
// domain.ErrInsufficientHistory and nothing is stored.
func (s *ForecastService) ForecastProduct(ctx context.Context, productID int64, horizon int, model domain.ForecastMethod) (*ForecastOutcome, error) {
	if horizon == 0 {
		horizon = s.defaultHorizon
	}
	if horizon < 0 || horizon > domain.MaxHorizon {
		return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidHorizon, horizon)
	}

	product, err := s.store.FindProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	run, err := s.runner.RunWithModel(ctx, productID, horizon, model)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("%w: product %d", domain.ErrInsufficientHistory, productID)
	}
	outcome := &ForecastOutcome{ProductID: productID, Run: run}

	if err := s.cache.InvalidateLatest(ctx, productID); err != nil {
		log.Warn().Err(err).Int64("product_id", productID).Msg("forecast: cache invalidate failed")
	}

	assessment := risk.EvaluateStockoutRisk(product.CurrentStock, run.Points, s.leadTime(ctx, productID))
	outcome.Risk = &assessment

	var severity domain.Severity
	switch assessment.Level {
	case domain.RiskHigh:
		severity = domain.SeverityHigh
	case domain.RiskMedium:
		severity = domain.SeverityMedium
	default:
		return outcome, nil
	}

	a := alert.New(productID, domain.AlertStockoutRisk, severity, fmt.Sprintf(
		"%s: expected demand %.1f over %d days lead time against stock %d",
		product.Name, assessment.ExpectedDemand, assessment.LeadTimeDays, product.CurrentStock))
	if err := s.alerts.Emit(ctx, a); err != nil {
		log.Warn().Err(err).Int64("product_id", productID).Msg("forecast: stockout alert not emitted")
	}
	return outcome, nil
}

// LatestForecast returns the newest run of a product, reading through the cache.
func (s *ForecastService) LatestForecast(ctx context.Context, productID int64) (*domain.ForecastRun, error) {
	if run, ok, err := s.cache.GetLatest(ctx, productID); err == nil && ok {
		return run, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("forecast: cache get latest failed")
	}

	run, err := s.store.FindLatestForecastRun(ctx, productID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, domain.ErrForecastNotFound
	}

	if err := s.cache.SetLatest(ctx, run); err != nil {
		log.Warn().Err(err).Msg("forecast: cache set latest failed")
	}
	return run, nil
}

// ForecastHistory lists a product's runs, newest first.
func (s *ForecastService) ForecastHistory(ctx context.Context, productID int64, limit int) ([]*domain.ForecastRun, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	runs, err := s.store.FindForecastRuns(ctx, domain.ForecastHistoryFilter{ProductID: productID, Limit: limit})
	if err != nil {
		return nil, err
	}
	if runs == nil {
		runs = make([]*domain.ForecastRun, 0)
	}
	return runs, nil
}

// ProductRisk evaluates stockout and overstock risk from the latest forecast.
func (s *ForecastService) ProductRisk(ctx context.Context, productID int64) (*ProductRisk, error) {
	product, err := s.store.FindProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	run, err := s.LatestForecast(ctx, productID)
	if err != nil {
		return nil, err
	}

	return &ProductRisk{
		ProductID:    productID,
		CurrentStock: product.CurrentStock,
		RunID:        run.ID,
		Method:       run.Method,
		Stockout:     risk.EvaluateStockoutRisk(product.CurrentStock, run.Points, s.leadTime(ctx, productID)),
		Overstock:    risk.EvaluateOverstockRisk(product.CurrentStock, run.Points, product.UnitCost),
	}, nil
}

func (s *ForecastService) leadTime(ctx context.Context, productID int64) int {
	receipts, err := s.store.FindReceiptDates(ctx, productID)
	if err != nil {
		log.Warn().Err(err).Int64("product_id", productID).Msg("forecast: receipt history unavailable, using default lead time")
		return s.defaultLeadTime
	}
	return risk.EstimateLeadTime(receipts, s.defaultLeadTime)
}

// IsNotFound reports whether err means the product or its forecast is missing.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrProductNotFound) || errors.Is(err, domain.ErrForecastNotFound)
}
