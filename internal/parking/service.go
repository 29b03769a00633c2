package parking

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// SnapshotStore is the durable collaborator the service saves its state
// to. Load returns (nil, nil) when no snapshot has been written yet.
type SnapshotStore interface {
	Save(snapshot *Snapshot) error
	Load() (*Snapshot, error)
	Clear() error
}

// Config carries the fixed site configuration the service is built from.
type Config struct {
	Capacities map[Category]int
	Rates      RateTable
	Validator  PlateValidator
}

// DefaultConfig returns the standard site configuration.
func DefaultConfig() Config {
	return Config{
		Capacities: DefaultCapacities(),
		Rates:      DefaultRates(),
		Validator:  DefaultPlateValidator(),
	}
}

// Service is the façade every caller goes through: it owns the slot
// pools, the ledger and the history, delegates cost math to the billing
// engine, and persists a snapshot after each mutating call. It assumes a
// single logical actor; callers in a server context must serialize access.
type Service struct {
	pools      map[Category]*SlotPool
	ledger     *Ledger
	history    *HistoryLog
	billing    *BillingEngine
	rates      RateTable
	capacities map[Category]int
	validate   PlateValidator
	store      SnapshotStore

	now func() time.Time
}

// NewService builds a service from cfg. store may be nil, in which case
// the state is purely in-memory.
func NewService(cfg Config, store SnapshotStore) *Service {
	if cfg.Capacities == nil {
		cfg.Capacities = DefaultCapacities()
	}
	// A partial rate table would leave zero-value rates behind; categories
	// the caller omits keep their default pricing instead.
	rates := DefaultRates()
	for category, rate := range cfg.Rates {
		rates[category] = rate
	}
	cfg.Rates = rates
	if cfg.Validator == nil {
		cfg.Validator = DefaultPlateValidator()
	}

	pools := make(map[Category]*SlotPool, len(cfg.Capacities))
	for _, category := range Categories() {
		pools[category] = NewSlotPool(category, cfg.Capacities[category])
	}

	return &Service{
		pools:      pools,
		ledger:     NewLedger(),
		history:    NewHistoryLog(),
		billing:    NewBillingEngine(cfg.Rates),
		rates:      cfg.Rates,
		capacities: cfg.Capacities,
		validate:   cfg.Validator,
		store:      store,
		now:        time.Now,
	}
}

// CheckInResult is returned to the caller for receipt rendering.
type CheckInResult struct {
	Plate       string    `json:"plate"`
	Category    Category  `json:"category"`
	SlotIndex   int       `json:"slot_index"`
	CheckInTime time.Time `json:"check_in_time"`
	HourlyRate  float64   `json:"hourly_rate"`
	QuotedCost  float64   `json:"quoted_cost"`
	ReceiptID   string    `json:"receipt_id"`
}

// CheckIn validates the plate, allocates the lowest free slot in the
// category and registers an active session. The quoted cost is a planning
// estimate (rate times planned hours), not the billed amount.
func (s *Service) CheckIn(plate string, category Category, plannedHours int) (*CheckInResult, error) {
	plate = NormalizePlate(plate)
	if !s.validate(plate) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPlate, plate)
	}

	pool, ok := s.pools[category]
	if !ok {
		return nil, fmt.Errorf("unknown vehicle category %q", category)
	}

	if _, parked := s.ledger.Lookup(plate); parked {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateVehicle, plate)
	}

	index, found := pool.FindFirstAvailable()
	if !found {
		return nil, fmt.Errorf("%w: no %s slots free", ErrNoSlotAvailable, category)
	}

	checkInTime := s.now()
	session := &ActiveSession{
		Plate:        plate,
		Category:     category,
		SlotIndex:    index,
		CheckInTime:  checkInTime,
		PlannedHours: plannedHours,
		QuotedCost:   s.billing.HourlyRate(category) * float64(plannedHours),
		ReceiptID:    uuid.New().String(),
	}

	if err := pool.Occupy(index, plate); err != nil {
		return nil, err
	}
	if err := s.ledger.Register(session); err != nil {
		// Undo the allocation so slot and ledger stay in step.
		_ = pool.Release(index)
		return nil, err
	}

	s.persist()

	return &CheckInResult{
		Plate:       plate,
		Category:    category,
		SlotIndex:   index,
		CheckInTime: checkInTime,
		HourlyRate:  s.billing.HourlyRate(category),
		QuotedCost:  session.QuotedCost,
		ReceiptID:   session.ReceiptID,
	}, nil
}

// CheckOutResult summarizes a completed session.
type CheckOutResult struct {
	Plate        string    `json:"plate"`
	Category     Category  `json:"category"`
	SlotIndex    int       `json:"slot_index"`
	CheckInTime  time.Time `json:"check_in_time"`
	CheckOutTime time.Time `json:"check_out_time"`
	Charge       Charge    `json:"charge"`
}

// CheckOut bills the elapsed time, frees the slot, removes the session
// and appends a history record. Elapsed time is clamped to zero to guard
// against clock skew.
func (s *Service) CheckOut(plate string) (*CheckOutResult, error) {
	session, ok := s.ledger.Lookup(plate)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVehicleNotFound, NormalizePlate(plate))
	}

	if session.CheckInTime.IsZero() {
		return nil, fmt.Errorf("%w for %s", ErrInvalidTimestamp, session.Plate)
	}

	checkOutTime := s.now()
	elapsed := checkOutTime.Sub(session.CheckInTime)
	charge := s.billing.Bill(session.Category, elapsed)

	if err := s.pools[session.Category].Release(session.SlotIndex); err != nil {
		return nil, err
	}
	if _, err := s.ledger.Remove(session.Plate); err != nil {
		return nil, err
	}

	s.history.Append(ClosedSession{
		Plate:        session.Plate,
		Category:     session.Category,
		CheckInTime:  session.CheckInTime,
		CheckOutTime: checkOutTime,
		BilledHours:  charge.BilledHours,
		TotalCost:    charge.Cost,
	})

	s.persist()

	return &CheckOutResult{
		Plate:        session.Plate,
		Category:     session.Category,
		SlotIndex:    session.SlotIndex,
		CheckInTime:  session.CheckInTime,
		CheckOutTime: checkOutTime,
		Charge:       charge,
	}, nil
}

// SearchResult is an active session paired with its live quote.
type SearchResult struct {
	Session *ActiveSession `json:"session"`
	Elapsed time.Duration  `json:"elapsed"`
	Quote   Charge         `json:"quote"`
}

// Search returns the active session for plate with a quote computed
// against the current clock. It never mutates state.
func (s *Service) Search(plate string) (*SearchResult, bool) {
	session, ok := s.ledger.Lookup(plate)
	if !ok {
		return nil, false
	}

	elapsed := s.now().Sub(session.CheckInTime)
	if elapsed < 0 {
		elapsed = 0
	}

	return &SearchResult{
		Session: session,
		Elapsed: elapsed,
		Quote:   s.billing.Quote(session.Category, elapsed),
	}, true
}

// CurrentQuote returns the cost the session would be billed if it ended
// now.
func (s *Service) CurrentQuote(plate string) (Charge, error) {
	result, ok := s.Search(plate)
	if !ok {
		return Charge{}, fmt.Errorf("%w: %s", ErrVehicleNotFound, NormalizePlate(plate))
	}
	return result.Quote, nil
}

// CategoryStatus is the occupancy summary for one pool.
type CategoryStatus struct {
	Category  Category `json:"category"`
	Capacity  int      `json:"capacity"`
	Occupied  int      `json:"occupied"`
	Available int      `json:"available"`
	Slots     []*Slot  `json:"slots,omitempty"`
}

// Status reports occupancy of one category's pool.
func (s *Service) Status(category Category) (CategoryStatus, error) {
	pool, ok := s.pools[category]
	if !ok {
		return CategoryStatus{}, fmt.Errorf("unknown vehicle category %q", category)
	}
	occupied := pool.OccupiedCount()
	return CategoryStatus{
		Category:  category,
		Capacity:  pool.Capacity(),
		Occupied:  occupied,
		Available: pool.Capacity() - occupied,
		Slots:     pool.Slots(),
	}, nil
}

// StatusAll reports occupancy of every pool.
func (s *Service) StatusAll() []CategoryStatus {
	statuses := make([]CategoryStatus, 0, len(s.pools))
	for _, category := range Categories() {
		status, _ := s.Status(category)
		statuses = append(statuses, status)
	}
	return statuses
}

// History returns the closed sessions in append order.
func (s *Service) History() []ClosedSession {
	return s.history.Records()
}

// Reset clears every slot, the ledger, the history and the persisted
// snapshot. It is irreversible; confirmation is the caller's job. A
// storage failure is returned for reporting but the in-memory state is
// already cleared.
func (s *Service) Reset() error {
	for _, pool := range s.pools {
		pool.clear()
	}
	s.ledger.clear()
	s.history.clear()

	if s.store == nil {
		return nil
	}
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear persisted snapshot: %w", err)
	}
	return nil
}

// ExportSnapshot serializes the whole state.
func (s *Service) ExportSnapshot() *Snapshot {
	slots := make(map[Category]map[int]SnapshotSlot, len(s.pools))
	rates := make(map[Category]float64, len(s.rates))
	for category, rate := range s.rates {
		rates[category] = rate.HourlyRate
	}
	// The canonical shared increment is the first configured category's, in
	// stable category order.
	increment := 0
	for _, category := range Categories() {
		if rate, ok := s.rates[category]; ok {
			increment = rate.IncrementMinutes
			break
		}
	}
	for category, pool := range s.pools {
		entries := make(map[int]SnapshotSlot)
		for _, slot := range pool.Occupied() {
			entries[slot.Index] = SnapshotSlot{Status: slot.Status, Occupant: slot.Occupant}
		}
		slots[category] = entries
	}

	sessions := make(map[string]*ActiveSession, s.ledger.Len())
	for plate, session := range s.ledger.Sessions() {
		sessions[plate] = session
	}

	return &Snapshot{
		ExportedAt:              s.now(),
		Capacities:              s.capacities,
		Rates:                   rates,
		BillingIncrementMinutes: increment,
		Slots:                   slots,
		ActiveSessions:          sessions,
		History:                 s.history.Records(),
	}
}

// ImportSnapshot replaces the whole state with the document's. A document
// without an active-sessions section is structurally invalid; other
// missing sections default to empty. Slot occupancy is rebuilt from the
// imported ledger rather than trusted from the document's slot maps.
func (s *Service) ImportSnapshot(snapshot *Snapshot) error {
	if snapshot == nil || snapshot.ActiveSessions == nil {
		return ErrInvalidSnapshot
	}
	s.restore(snapshot)
	s.persist()
	return nil
}

// Restore hydrates state from a previously persisted snapshot, tolerating
// missing sections. Used at startup; unlike ImportSnapshot it neither
// fails on an empty document nor rewrites the store.
func (s *Service) Restore(snapshot *Snapshot) {
	if snapshot == nil {
		return
	}
	s.restore(snapshot)
}

func (s *Service) restore(snapshot *Snapshot) {
	for _, category := range Categories() {
		s.pools[category] = NewSlotPool(category, s.capacities[category])
	}
	s.ledger.clear()

	for plate, session := range snapshot.ActiveSessions {
		if session == nil {
			continue
		}
		session.Plate = NormalizePlate(plate)

		pool, ok := s.pools[session.Category]
		if !ok {
			log.Printf("dropping session %s: unknown category %q", session.Plate, session.Category)
			continue
		}
		if err := pool.Occupy(session.SlotIndex, session.Plate); err != nil {
			log.Printf("dropping session %s: %v", session.Plate, err)
			continue
		}
		if err := s.ledger.Register(session); err != nil {
			_ = pool.Release(session.SlotIndex)
			log.Printf("dropping session %s: %v", session.Plate, err)
		}
	}

	s.history.replace(append([]ClosedSession(nil), snapshot.History...))
}

// persist writes the current snapshot to the durable store. Failures are
// logged and never roll back the operation that triggered the save.
func (s *Service) persist() {
	if s.store == nil {
		return
	}
	if err := s.store.Save(s.ExportSnapshot()); err != nil {
		log.Printf("failed to persist parking snapshot: %v", err)
	}
}

// Flush writes the current snapshot, surfacing the error. Called at
// shutdown.
func (s *Service) Flush() error {
	if s.store == nil {
		return nil
	}
	return s.store.Save(s.ExportSnapshot())
}
