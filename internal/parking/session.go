package parking

import "time"

// ActiveSession is the live record linking a parked vehicle to its slot
// from check-in until check-out. It is owned by the ledger, keyed by the
// normalized plate.
type ActiveSession struct {
	Plate        string    `json:"plate"`
	Category     Category  `json:"category"`
	SlotIndex    int       `json:"slot_index"`
	CheckInTime  time.Time `json:"check_in_time"`
	PlannedHours int       `json:"planned_hours"`
	QuotedCost   float64   `json:"quoted_cost"`
	ReceiptID    string    `json:"receipt_id,omitempty"`
}

// ClosedSession is one completed parking session as recorded in the
// history log. Records are immutable once appended.
type ClosedSession struct {
	Plate        string    `json:"plate"`
	Category     Category  `json:"category"`
	CheckInTime  time.Time `json:"check_in_time"`
	CheckOutTime time.Time `json:"check_out_time"`
	BilledHours  float64   `json:"billed_hours"`
	TotalCost    float64   `json:"total_cost"`
}
