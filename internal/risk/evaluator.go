// Package risk classifies stockout and overstock risk from current stock and
// forecast points. Everything here is pure.
package risk

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

const (
	mediumStockoutRatio = 0.7
	overstockHighRatio  = 3.0
	overstockMedRatio   = 1.5
)

// StockoutAssessment is the derived stockout risk of one product.
// DaysToStockout is nil for LOW risk.
type StockoutAssessment struct {
	Level          domain.RiskLevel `json:"risk_level"`
	DaysToStockout *int             `json:"days_to_stockout"`
	ExpectedDemand float64          `json:"expected_demand"`
	LeadTimeDays   int              `json:"lead_time_days"`
}

// OverstockAssessment is the derived overstock risk of one product.
type OverstockAssessment struct {
	Level          domain.RiskLevel `json:"risk_level"`
	ForecastDemand float64          `json:"forecast_demand"`
	ExcessUnits    int              `json:"excess_units"`
	ExcessValue    decimal.Decimal  `json:"excess_value"`
}

// TotalDemand sums predicted demand over the first days points, or over all
// points when days is not positive.
func TotalDemand(points []domain.ForecastPoint, days int) float64 {
	if days <= 0 || days > len(points) {
		days = len(points)
	}
	var total float64
	for _, p := range points[:days] {
		total += p.Predicted
	}
	return total
}

// EvaluateStockoutRisk compares current stock with the demand expected over
// the lead time.
func EvaluateStockoutRisk(currentStock int, points []domain.ForecastPoint, leadTimeDays int) StockoutAssessment {
	if currentStock <= 0 {
		return StockoutAssessment{Level: domain.RiskHigh, DaysToStockout: domain.IntPtr(0), LeadTimeDays: leadTimeDays}
	}

	expected := 0.0
	if leadTimeDays > 0 {
		expected = TotalDemand(points, leadTimeDays)
	}
	stock := float64(currentStock)
	a := StockoutAssessment{ExpectedDemand: expected, LeadTimeDays: leadTimeDays}

	switch {
	case expected > stock:
		a.Level = domain.RiskHigh
		a.DaysToStockout = domain.IntPtr(int(math.Floor(stock / expected * float64(leadTimeDays))))
	case expected > mediumStockoutRatio*stock:
		a.Level = domain.RiskMedium
		a.DaysToStockout = domain.IntPtr(leadTimeDays)
	default:
		a.Level = domain.RiskLow
	}
	return a
}

// EvaluateOverstockRisk compares current stock with demand over the whole
// forecast. Stock above 1.5x demand with no demand at all is still MEDIUM.
func EvaluateOverstockRisk(currentStock int, points []domain.ForecastPoint, unitCost decimal.Decimal) OverstockAssessment {
	demand := TotalDemand(points, 0)
	a := OverstockAssessment{Level: domain.RiskLow, ForecastDemand: demand, ExcessValue: decimal.Zero}
	if currentStock <= 0 {
		return a
	}

	stock := float64(currentStock)
	switch {
	case demand > 0 && stock > overstockHighRatio*demand:
		a.Level = domain.RiskHigh
	case stock > overstockMedRatio*demand:
		a.Level = domain.RiskMedium
	default:
		return a
	}

	excess := currentStock - int(math.Ceil(demand))
	if excess < 0 {
		excess = 0
	}
	a.ExcessUnits = excess
	a.ExcessValue = unitCost.Mul(decimal.NewFromInt(int64(excess)))
	return a
}

// EstimateLeadTime is the mean gap in whole days between consecutive stock
// receipts. Fewer than two receipts yield defaultDays. The result is at least 1.
func EstimateLeadTime(receipts []time.Time, defaultDays int) int {
	if len(receipts) < 2 {
		return defaultDays
	}
	sorted := append([]time.Time(nil), receipts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	span := sorted[len(sorted)-1].Sub(sorted[0])
	days := int(math.Round(span.Hours() / 24 / float64(len(sorted)-1)))
	if days < 1 {
		return 1
	}
	return days
}
