package parking

import (
	"fmt"
	"time"
)

// Analytics summarizes the history log for reporting.
type Analytics struct {
	RevenueByCategory map[Category]float64 `json:"revenue_by_category"`
	OccupancyByHour   [24]int              `json:"occupancy_by_hour"`
	PeakHours         []string             `json:"peak_hours"`
	TotalRevenue      float64              `json:"total_revenue"`
	CompletedSessions int                  `json:"completed_sessions"`
}

// Analytics aggregates completed sessions: revenue per category, how many
// sessions touched each hour of the day, and which hours were busiest.
func (s *Service) Analytics() Analytics {
	revenue := make(map[Category]float64, len(s.pools))
	for _, category := range Categories() {
		revenue[category] = 0
	}

	var occupancy [24]int
	total := 0.0
	records := s.history.Records()
	for _, record := range records {
		revenue[record.Category] += record.TotalCost
		total += record.TotalCost

		checkInHour := record.CheckInTime.Hour()
		checkOutHour := record.CheckOutTime.Hour()
		for hour := checkInHour; hour <= checkOutHour; hour++ {
			occupancy[hour%24]++
		}
	}

	max := 0
	for _, count := range occupancy {
		if count > max {
			max = count
		}
	}
	var peaks []string
	if max > 0 {
		for hour, count := range occupancy {
			if count == max {
				peaks = append(peaks, fmt.Sprintf("%d:00-%d:00", hour, hour+1))
			}
		}
	}

	return Analytics{
		RevenueByCategory: revenue,
		OccupancyByHour:   occupancy,
		PeakHours:         peaks,
		TotalRevenue:      total,
		CompletedSessions: len(records),
	}
}

// ReportEntry is one occupied slot in the live status report.
type ReportEntry struct {
	Plate       string        `json:"plate"`
	Category    Category      `json:"category"`
	SlotIndex   int           `json:"slot_index"`
	CheckInTime time.Time     `json:"check_in_time"`
	Elapsed     time.Duration `json:"elapsed"`
	Quote       Charge        `json:"quote"`
}

// Report is the live view of everything currently parked.
type Report struct {
	GeneratedAt      time.Time     `json:"generated_at"`
	Occupied         int           `json:"occupied"`
	Entries          []ReportEntry `json:"entries"`
	ProjectedRevenue float64       `json:"projected_revenue"`
}

// Report quotes every active session against the current clock. Entries
// follow category order, then ascending slot index. Read-only.
func (s *Service) Report() Report {
	now := s.now()
	report := Report{GeneratedAt: now}

	for _, category := range Categories() {
		for _, slot := range s.pools[category].Occupied() {
			session, ok := s.ledger.Lookup(slot.Occupant)
			if !ok {
				continue
			}
			elapsed := now.Sub(session.CheckInTime)
			if elapsed < 0 {
				elapsed = 0
			}
			quote := s.billing.Quote(category, elapsed)
			report.Entries = append(report.Entries, ReportEntry{
				Plate:       session.Plate,
				Category:    category,
				SlotIndex:   slot.Index,
				CheckInTime: session.CheckInTime,
				Elapsed:     elapsed,
				Quote:       quote,
			})
			report.ProjectedRevenue += quote.Cost
		}
	}

	report.Occupied = len(report.Entries)
	return report
}
