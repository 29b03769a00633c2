package parking

import "time"

// SnapshotSlot is the persisted form of one slot.
type SnapshotSlot struct {
	Status   SlotStatus `json:"status"`
	Occupant string     `json:"occupant,omitempty"`
}

// Snapshot is the serialized state of the whole site: one document per
// deployment, written to the durable store after every mutation and used
// verbatim for export and import.
type Snapshot struct {
	ExportedAt              time.Time                         `json:"exported_at,omitempty"`
	Capacities              map[Category]int                  `json:"capacities"`
	Rates                   map[Category]float64              `json:"rates"`
	BillingIncrementMinutes int                               `json:"billing_increment_minutes"`
	Slots                   map[Category]map[int]SnapshotSlot `json:"slots"`
	ActiveSessions          map[string]*ActiveSession         `json:"active_sessions"`
	History                 []ClosedSession                   `json:"history"`
}
