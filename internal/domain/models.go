// backend-go/internal/domain/models.go
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Product is the slice of the product catalogue the forecasting engine reads.
type Product struct {
	ID                int64           `json:"id" db:"id"`
	SKU               string          `json:"sku" db:"sku"`
	Name              string          `json:"name" db:"name"`
	CurrentStock      int             `json:"current_stock" db:"current_stock"`
	LowStockThreshold int             `json:"low_stock_threshold" db:"low_stock_threshold"`
	UnitCost          decimal.Decimal `json:"unit_cost" db:"unit_cost"`
	ExpiryDate        *time.Time      `json:"expiry_date,omitempty" db:"expiry_date"`
	Active            bool            `json:"active" db:"active"`
}

// DailySales is one row of the per-day sale quantity aggregation.
type DailySales struct {
	Day      time.Time `db:"day"`
	Quantity int       `db:"quantity"`
}

// DemandPoint is a single day of observed demand. Series built from sales are
// sparse: days without sales may be missing.
type DemandPoint struct {
	Date   time.Time `json:"date"`
	Demand int       `json:"demand"`
}

// Params is the opaque key/value bag stored alongside a forecast run.
type Params map[string]interface{}

// Value implements driver.Valuer so Params can be written to a JSONB column.
func (p Params) Value() (driver.Value, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner for JSONB columns.
func (p *Params) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*p = Params{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("params: unsupported scan type %T", src)
	}

	out := Params{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("params: decode: %w", err)
	}
	*p = out
	return nil
}

// ForecastRun is one persisted forecast invocation. Runs are never updated;
// the newest run by CreatedAt supersedes older ones.
type ForecastRun struct {
	ID        int64          `json:"id" db:"id"`
	ProductID int64          `json:"product_id" db:"product_id"`
	Method    ForecastMethod `json:"method" db:"method"`
	Horizon   int            `json:"horizon" db:"horizon"`
	Params    Params         `json:"params" db:"params"`
	MAE       *float64       `json:"mae" db:"mae"`
	Accuracy  *float64       `json:"accuracy" db:"accuracy"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`

	Points []ForecastPoint `json:"points,omitempty" db:"-"`
}

// ForecastPoint is the prediction for one future day of a run.
type ForecastPoint struct {
	ID        int64     `json:"-" db:"id"`
	RunID     int64     `json:"run_id" db:"run_id"`
	Period    time.Time `json:"period" db:"period"`
	Predicted float64   `json:"predicted" db:"predicted"`
	Lower95   *float64  `json:"lower95" db:"lower95"`
	Upper95   *float64  `json:"upper95" db:"upper95"`
}

// Alert is the record handed to the alert store.
type Alert struct {
	ID          int64     `json:"id" db:"id"`
	ProductID   int64     `json:"product_id" db:"product_id"`
	Type        AlertType `json:"type" db:"type"`
	Description string    `json:"description" db:"description"`
	Severity    Severity  `json:"severity" db:"severity"`
	Resolved    bool      `json:"resolved" db:"resolved"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// JobRunSummary is the audit record of one scheduled batch.
type JobRunSummary struct {
	RunID             string    `json:"run_id" db:"run_id"`
	JobType           JobType   `json:"job_type" db:"job_type"`
	Status            JobStatus `json:"status" db:"status"`
	ProductsProcessed int       `json:"products_processed" db:"products_processed"`
	ErrorCount        int       `json:"error_count" db:"error_count"`
	Details           string    `json:"details" db:"details"`
	StartedAt         time.Time `json:"started_at" db:"started_at"`
	FinishedAt        time.Time `json:"finished_at" db:"finished_at"`
}

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 {
	return &v
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

// ForecastHistoryFilter narrows forecast history queries.
type ForecastHistoryFilter struct {
	ProductID int64
	Method    ForecastMethod
	Since     *time.Time
	Limit     int
}
