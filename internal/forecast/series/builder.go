package series

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/repository"
)

// DefaultLookbackDays is the history window used when callers pass zero.
const DefaultLookbackDays = 60

// Builder turns per-day sale sums into a demand series.
type Builder struct {
	sales repository.SalesReader
	now   func() time.Time
}

// NewBuilder creates a Builder reading from the given sales source.
func NewBuilder(sales repository.SalesReader) *Builder {
	return &Builder{sales: sales, now: time.Now}
}

// WithClock returns a copy of the builder using now as its clock.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	cp := *b
	cp.now = now
	return &cp
}

// Build returns the demand series for productID over [now-lookbackDays, now],
// ascending by date. The series is sparse: days without sales are absent.
func (b *Builder) Build(ctx context.Context, productID int64, lookbackDays int) ([]domain.DemandPoint, error) {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}

	today := Day(b.now())
	since := today.AddDate(0, 0, -lookbackDays)

	rows, err := b.sales.SumSaleQuantitiesByDay(ctx, productID, since)
	if err != nil {
		return nil, fmt.Errorf("%w: product %d: %v", domain.ErrDataUnavailable, productID, err)
	}

	// Rows are expected one per day already; merge duplicates anyway in case the
	// source groups by timestamp rather than date.
	byDay := make(map[time.Time]int, len(rows))
	for _, row := range rows {
		day := Day(row.Day)
		if day.Before(since) || day.After(today) {
			continue
		}
		byDay[day] += row.Quantity
	}

	points := make([]domain.DemandPoint, 0, len(byDay))
	for day, qty := range byDay {
		if qty < 0 {
			// net returns on a day count as no demand
			qty = 0
		}
		points = append(points, domain.DemandPoint{Date: day, Demand: qty})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	return points, nil
}

// Densify zero-fills every missing day in [from, to]. Points outside the range
// are dropped.
func Densify(points []domain.DemandPoint, from, to time.Time) []domain.DemandPoint {
	from, to = Day(from), Day(to)
	if to.Before(from) {
		return nil
	}

	byDay := make(map[time.Time]int, len(points))
	for _, p := range points {
		byDay[Day(p.Date)] += p.Demand
	}

	var out []domain.DemandPoint
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		out = append(out, domain.DemandPoint{Date: d, Demand: byDay[d]})
	}
	return out
}

// DensifyObserved zero-fills gaps between the first and last observed day.
func DensifyObserved(points []domain.DemandPoint) []domain.DemandPoint {
	if len(points) == 0 {
		return nil
	}
	return Densify(points, points[0].Date, points[len(points)-1].Date)
}

// Day truncates t to its calendar day in UTC.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
