package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/repository"
)

// Operation names used for failure injection.
const (
	OpFindProducts    = "find_products"
	OpSumSales        = "sum_sales"
	OpReceipts        = "receipts"
	OpCreateRun       = "create_run"
	OpCreatePoints    = "create_points"
	OpFindLatestRun   = "find_latest_run"
	OpFindRuns        = "find_runs"
	OpCreateAlerts    = "create_alerts"
	OpCreateJobLog    = "create_job_log"
	OpFindLowStock    = "find_low_stock"
	OpFindProductByID = "find_product_by_id"
	OpFindExpiring    = "find_expiring"
)

type sale struct {
	productID int64
	at        time.Time
	quantity  int
}

// Store is an in-process implementation of repository.Store.
type Store struct {
	mu sync.Mutex

	products map[int64]*domain.Product
	sales    []sale
	receipts map[int64][]time.Time
	runs     []*domain.ForecastRun
	points   map[int64][]domain.ForecastPoint
	alerts   []domain.Alert
	jobLogs  []domain.JobRunSummary

	nextRunID   int64
	nextAlertID int64

	failures        map[string]error
	productFailures map[int64]error
	writeCalls      int
	now             func() time.Time
}

var _ repository.Store = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		products:        make(map[int64]*domain.Product),
		receipts:        make(map[int64][]time.Time),
		points:          make(map[int64][]domain.ForecastPoint),
		failures:        make(map[string]error),
		productFailures: make(map[int64]error),
		now:             time.Now,
	}
}

// SetClock overrides the clock used for CreatedAt stamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Fail makes every call of op return err. A nil err clears the failure.
func (s *Store) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// FailSalesFor makes sales reads for one product return err.
func (s *Store) FailSalesFor(productID int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.productFailures[productID] = err
}

// AddProduct inserts or replaces a product.
func (s *Store) AddProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	s.products[p.ID] = &cp
}

// AddSale records a sale line.
func (s *Store) AddSale(productID int64, at time.Time, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sales = append(s.sales, sale{productID: productID, at: at, quantity: quantity})
}

// AddReceipt records a stock receipt.
func (s *Store) AddReceipt(productID int64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts[productID] = append(s.receipts[productID], at)
}

// Alerts returns a copy of the stored alerts.
func (s *Store) Alerts() []domain.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Alert(nil), s.alerts...)
}

// JobLogs returns a copy of the stored job summaries.
func (s *Store) JobLogs() []domain.JobRunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.JobRunSummary(nil), s.jobLogs...)
}

// Runs returns all forecast runs in insertion order.
func (s *Store) Runs() []*domain.ForecastRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.ForecastRun, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, s.withPoints(r))
	}
	return out
}

// WriteCalls counts forecast run and point writes, successful or not.
func (s *Store) WriteCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeCalls
}

func (s *Store) FindProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[OpFindProductByID]; err != nil {
		return nil, err
	}
	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) FindActiveProducts(ctx context.Context) ([]*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[OpFindProducts]; err != nil {
		return nil, err
	}
	return s.filterProducts(func(p *domain.Product) bool { return p.Active }), nil
}

func (s *Store) FindLowStockProducts(ctx context.Context) ([]*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[OpFindLowStock]; err != nil {
		return nil, err
	}
	return s.filterProducts(func(p *domain.Product) bool {
		return p.Active && p.CurrentStock <= p.LowStockThreshold
	}), nil
}

func (s *Store) FindExpiringProducts(ctx context.Context) ([]*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[OpFindExpiring]; err != nil {
		return nil, err
	}
	return s.filterProducts(func(p *domain.Product) bool {
		return p.Active && p.ExpiryDate != nil
	}), nil
}

func (s *Store) filterProducts(keep func(*domain.Product) bool) []*domain.Product {
	var out []*domain.Product
	for _, p := range s.products {
		if keep(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) SumSaleQuantitiesByDay(ctx context.Context, productID int64, since time.Time) ([]domain.DailySales, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[OpSumSales]; err != nil {
		return nil, err
	}
	if err := s.productFailures[productID]; err != nil {
		return nil, err
	}

	byDay := make(map[time.Time]int)
	for _, sl := range s.sales {
		if sl.productID != productID || sl.at.Before(since) {
			continue
		}
		day := time.Date(sl.at.Year(), sl.at.Month(), sl.at.Day(), 0, 0, 0, 0, time.UTC)
		byDay[day] += sl.quantity
	}

	out := make([]domain.DailySales, 0, len(byDay))
	for day, qty := range byDay {
		out = append(out, domain.DailySales{Day: day, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

func (s *Store) FindReceiptDates(ctx context.Context, productID int64) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[OpReceipts]; err != nil {
		return nil, err
	}
	out := append([]time.Time(nil), s.receipts[productID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func (s *Store) CreateForecastRun(ctx context.Context, run *domain.ForecastRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeCalls++
	if err := s.failures[OpCreateRun]; err != nil {
		return err
	}
	s.nextRunID++
	run.ID = s.nextRunID
	run.CreatedAt = s.now()

	stored := *run
	stored.Points = nil
	s.runs = append(s.runs, &stored)
	return nil
}

func (s *Store) CreateForecastPoints(ctx context.Context, runID int64, points []domain.ForecastPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeCalls++
	if err := s.failures[OpCreatePoints]; err != nil {
		return err
	}
	for _, p := range points {
		p.RunID = runID
		s.points[runID] = append(s.points[runID], p)
	}
	return nil
}

func (s *Store) FindLatestForecastRun(ctx context.Context, productID int64) (*domain.ForecastRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[OpFindLatestRun]; err != nil {
		return nil, err
	}
	var latest *domain.ForecastRun
	for _, r := range s.runs {
		if r.ProductID != productID {
			continue
		}
		if latest == nil || !r.CreatedAt.Before(latest.CreatedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, nil
	}
	return s.withPoints(latest), nil
}

func (s *Store) FindForecastRuns(ctx context.Context, filter domain.ForecastHistoryFilter) ([]*domain.ForecastRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[OpFindRuns]; err != nil {
		return nil, err
	}
	var out []*domain.ForecastRun
	for i := len(s.runs) - 1; i >= 0; i-- {
		r := s.runs[i]
		if filter.ProductID != 0 && r.ProductID != filter.ProductID {
			continue
		}
		if filter.Method != "" && r.Method != filter.Method {
			continue
		}
		if filter.Since != nil && r.CreatedAt.Before(*filter.Since) {
			continue
		}
		out = append(out, s.withPoints(r))
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) withPoints(r *domain.ForecastRun) *domain.ForecastRun {
	cp := *r
	cp.Points = append([]domain.ForecastPoint(nil), s.points[r.ID]...)
	return &cp
}

func (s *Store) CreateAlerts(ctx context.Context, alerts []domain.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[OpCreateAlerts]; err != nil {
		return err
	}
	for _, a := range alerts {
		s.nextAlertID++
		a.ID = s.nextAlertID
		if a.CreatedAt.IsZero() {
			a.CreatedAt = s.now()
		}
		s.alerts = append(s.alerts, a)
	}
	return nil
}

func (s *Store) CreateJobLog(ctx context.Context, summary *domain.JobRunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[OpCreateJobLog]; err != nil {
		return err
	}
	s.jobLogs = append(s.jobLogs, *summary)
	return nil
}
