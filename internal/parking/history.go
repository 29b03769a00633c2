package parking

// HistoryLog is the append-only ledger of completed sessions. Normal
// operation only ever appends; an explicit reset is the one way to drop
// records.
type HistoryLog struct {
	records []ClosedSession
}

func NewHistoryLog() *HistoryLog {
	return &HistoryLog{}
}

func (h *HistoryLog) Append(record ClosedSession) {
	h.records = append(h.records, record)
}

// Records returns the closed sessions in append order.
func (h *HistoryLog) Records() []ClosedSession {
	return h.records
}

func (h *HistoryLog) Len() int {
	return len(h.records)
}

func (h *HistoryLog) clear() {
	h.records = nil
}

func (h *HistoryLog) replace(records []ClosedSession) {
	h.records = records
}
