package risk

import (
	"fmt"
	"math"
	"time"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

const (
	expiryHighDays   = 7
	expiryMediumDays = 30
)

// ExpiryAssessment is the shelf-life risk of one product. DaysLeft is nil when
// the product has no expiry date.
type ExpiryAssessment struct {
	Level    domain.RiskLevel `json:"risk_level"`
	DaysLeft *int             `json:"days_left"`
	Reason   string           `json:"reason"`
}

// Expired reports whether the expiry date has been reached.
func (a ExpiryAssessment) Expired() bool {
	return a.DaysLeft != nil && *a.DaysLeft <= 0
}

// EvaluateExpiryRisk classifies a product by the whole days left until expiry,
// rounded up: expired or within 7 days is HIGH, within 30 days MEDIUM.
func EvaluateExpiryRisk(expiry *time.Time, now time.Time) ExpiryAssessment {
	if expiry == nil {
		return ExpiryAssessment{Level: domain.RiskLow, Reason: "no expiry date set"}
	}

	days := int(math.Ceil(expiry.Sub(now).Hours() / 24))
	a := ExpiryAssessment{DaysLeft: domain.IntPtr(days)}
	switch {
	case days <= 0:
		a.Level = domain.RiskHigh
		a.Reason = "product expired"
	case days <= expiryHighDays:
		a.Level = domain.RiskHigh
		a.Reason = fmt.Sprintf("expiring very soon, in %d days", days)
	case days <= expiryMediumDays:
		a.Level = domain.RiskMedium
		a.Reason = fmt.Sprintf("expiring soon, in %d days", days)
	default:
		a.Level = domain.RiskLow
		a.Reason = fmt.Sprintf("expires in %d days", days)
	}
	return a
}
