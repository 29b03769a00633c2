package parking

import (
	"math"
	"time"
)

// Charge is the structured result of billing an elapsed duration. Cost
// keeps full precision; BilledHours is rounded to two decimals for
// display alongside it.
type Charge struct {
	BilledMinutes int     `json:"billed_minutes"`
	BilledHours   float64 `json:"billed_hours"`
	Cost          float64 `json:"cost"`
}

// BillingEngine converts elapsed wall-clock time into billed time and
// cost. The policy is a flat first hour at the category's hourly rate,
// then overage rounded up to the next multiple of the billing increment,
// with each additional billed minute costing rate/60.
type BillingEngine struct {
	rates RateTable
}

func NewBillingEngine(rates RateTable) *BillingEngine {
	return &BillingEngine{rates: rates}
}

// Bill computes the charge for an elapsed duration in category. Elapsed
// time is rounded up to the next whole minute before the policy applies;
// a session of 61 minutes with a 15 minute increment bills 75 minutes.
func (b *BillingEngine) Bill(category Category, elapsed time.Duration) Charge {
	rate := b.rates[category]

	if elapsed < 0 {
		elapsed = 0
	}
	elapsedMinutes := int(math.Ceil(float64(elapsed.Milliseconds()) / float64(time.Minute.Milliseconds())))

	if elapsedMinutes <= 60 {
		return Charge{
			BilledMinutes: 60,
			BilledHours:   1.00,
			Cost:          rate.HourlyRate,
		}
	}

	extra := elapsedMinutes - 60
	increment := rate.IncrementMinutes
	if increment <= 0 {
		// No rounding granularity configured: bill raw overage minutes.
		increment = 1
	}
	additional := ((extra + increment - 1) / increment) * increment
	billedMinutes := 60 + additional

	return Charge{
		BilledMinutes: billedMinutes,
		BilledHours:   roundHours(billedMinutes),
		Cost:          rate.HourlyRate + rate.HourlyRate*(float64(additional)/60),
	}
}

// Quote computes the charge a session would incur if it ended after
// elapsed time. It is the same rule as Bill, applied to in-progress
// sessions for search and reporting.
func (b *BillingEngine) Quote(category Category, elapsed time.Duration) Charge {
	return b.Bill(category, elapsed)
}

// HourlyRate exposes the configured rate for a category.
func (b *BillingEngine) HourlyRate(category Category) float64 {
	return b.rates[category].HourlyRate
}

func roundHours(billedMinutes int) float64 {
	return math.Round(float64(billedMinutes)/60*100) / 100
}
