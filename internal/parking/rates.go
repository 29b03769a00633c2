package parking

// Rate is the pricing policy for one category: an hourly rate and the
// minute granularity to which time beyond the first hour is rounded up.
type Rate struct {
	HourlyRate       float64
	IncrementMinutes int
}

// RateTable maps each category to its rate.
type RateTable map[Category]Rate

// DefaultRates returns the site's standard pricing: a shared 15 minute
// billing increment with per-category hourly rates.
func DefaultRates() RateTable {
	return RateTable{
		CategoryCar:   {HourlyRate: 60, IncrementMinutes: 15},
		CategoryBike:  {HourlyRate: 30, IncrementMinutes: 15},
		CategoryTruck: {HourlyRate: 100, IncrementMinutes: 15},
	}
}

// DefaultCapacities returns the site's standard pool sizes.
func DefaultCapacities() map[Category]int {
	return map[Category]int{
		CategoryCar:   100,
		CategoryBike:  300,
		CategoryTruck: 50,
	}
}
