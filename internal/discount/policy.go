// Package discount computes the discount applied to an order total.
package discount

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultFrequentThreshold is the order count from which a customer earns the loyalty bonus.
const DefaultFrequentThreshold = 5

var (
	RandomOrderRate  = decimal.RequireFromString("0.50")
	RegularOrderRate = decimal.RequireFromString("0.10")
	LoyaltyBonus     = decimal.RequireFromString("0.05")
)

// Rate returns the discount rate for an order. The base rate applies only
// inside the half-open window [start, end); the loyalty bonus is added
// whenever orderCount reaches threshold. The result never exceeds 1.
func Rate(isRandom bool, now, start, end time.Time, orderCount int64, threshold int) decimal.Decimal {
	if threshold <= 0 {
		threshold = DefaultFrequentThreshold
	}

	rate := decimal.Zero
	if inWindow(now, start, end) {
		if isRandom {
			rate = RandomOrderRate
		} else {
			rate = RegularOrderRate
		}
	}

	if orderCount >= int64(threshold) {
		rate = rate.Add(LoyaltyBonus)
	}

	return decimal.Min(rate, decimal.NewFromInt(1))
}

func inWindow(now, start, end time.Time) bool {
	if start.IsZero() || end.IsZero() {
		return false
	}
	return !now.Before(start) && now.Before(end)
}

// ApplyRate discounts subtotal by rate and rounds half-up to cents.
func ApplyRate(subtotal, rate decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(decimal.NewFromInt(1).Sub(rate)).Round(2)
}

// Policy binds Rate to a configured window and threshold.
type Policy struct {
	WindowStart       time.Time
	WindowEnd         time.Time
	FrequentThreshold int
}

func NewPolicy(start, end time.Time, threshold int) Policy {
	return Policy{WindowStart: start, WindowEnd: end, FrequentThreshold: threshold}
}

func (p Policy) Rate(isRandom bool, now time.Time, orderCount int64) decimal.Decimal {
	return Rate(isRandom, now, p.WindowStart, p.WindowEnd, orderCount, p.FrequentThreshold)
}
