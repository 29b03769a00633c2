package parking

import (
	"errors"
	"testing"
	"time"
)

// memoryStore is an in-memory SnapshotStore for exercising persistence.
type memoryStore struct {
	snapshot *Snapshot
	saves    int
	failSave bool
}

func (m *memoryStore) Save(snapshot *Snapshot) error {
	if m.failSave {
		return errors.New("storage unavailable")
	}
	m.snapshot = snapshot
	m.saves++
	return nil
}

func (m *memoryStore) Load() (*Snapshot, error) {
	return m.snapshot, nil
}

func (m *memoryStore) Clear() error {
	m.snapshot = nil
	return nil
}

func testConfig(carCapacity int) Config {
	return Config{
		Capacities: map[Category]int{
			CategoryCar:   carCapacity,
			CategoryBike:  2,
			CategoryTruck: 1,
		},
		Rates: DefaultRates(),
	}
}

func newTestService(carCapacity int) (*Service, *memoryStore) {
	store := &memoryStore{}
	svc := NewService(testConfig(carCapacity), store)
	return svc, store
}

// setClock pins the service clock to a fixed instant.
func setClock(svc *Service, at time.Time) {
	svc.now = func() time.Time { return at }
}

func TestCheckInAllocatesLowestSlot(t *testing.T) {
	svc, _ := newTestService(3)

	result, err := svc.CheckIn("mh02fm1234", CategoryCar, 2)
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}

	if result.SlotIndex != 1 {
		t.Errorf("Expected slot 1, got %d", result.SlotIndex)
	}
	if result.Plate != "MH02FM1234" {
		t.Errorf("Expected normalized plate MH02FM1234, got %q", result.Plate)
	}
	if result.QuotedCost != 120 {
		t.Errorf("Expected quoted cost 120 (60 * 2h), got %.2f", result.QuotedCost)
	}
	if result.ReceiptID == "" {
		t.Error("Expected a receipt id")
	}

	second, err := svc.CheckIn("MH02FM9999", CategoryCar, 1)
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if second.SlotIndex != 2 {
		t.Errorf("Expected slot 2, got %d", second.SlotIndex)
	}
}

func TestCheckInRejectsInvalidPlate(t *testing.T) {
	svc, _ := newTestService(3)

	for _, plate := range []string{"", "ABC123", "M902FM1234", "MH02FM123"} {
		if _, err := svc.CheckIn(plate, CategoryCar, 1); !errors.Is(err, ErrInvalidPlate) {
			t.Errorf("Expected ErrInvalidPlate for %q, got %v", plate, err)
		}
	}
}

func TestCheckInRejectsDuplicate(t *testing.T) {
	svc, _ := newTestService(3)
	svc.CheckIn("MH02FM1234", CategoryCar, 1)

	_, err := svc.CheckIn(" mh02fm1234 ", CategoryBike, 1)
	if !errors.Is(err, ErrDuplicateVehicle) {
		t.Errorf("Expected ErrDuplicateVehicle, got %v", err)
	}
}

func TestCheckInFailsWhenPoolFull(t *testing.T) {
	svc, _ := newTestService(1)

	if _, err := svc.CheckIn("AA11AA1111", CategoryCar, 2); err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}

	_, err := svc.CheckIn("BB22BB2222", CategoryCar, 1)
	if !errors.Is(err, ErrNoSlotAvailable) {
		t.Errorf("Expected ErrNoSlotAvailable, got %v", err)
	}
}

// Full flow: capacity 1, 61 simulated minutes, rate 60, increment 15.
func TestCheckOutScenario(t *testing.T) {
	svc, _ := newTestService(1)

	checkIn := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	setClock(svc, checkIn)

	in, err := svc.CheckIn("AA11AA1111", CategoryCar, 2)
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if in.SlotIndex != 1 {
		t.Errorf("Expected slot 1, got %d", in.SlotIndex)
	}

	if _, err := svc.CheckIn("BB22BB2222", CategoryCar, 1); !errors.Is(err, ErrNoSlotAvailable) {
		t.Errorf("Expected ErrNoSlotAvailable, got %v", err)
	}

	setClock(svc, checkIn.Add(61*time.Minute))

	out, err := svc.CheckOut("AA11AA1111")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if out.Charge.Cost != 75.0 {
		t.Errorf("Expected total cost 75.0, got %.2f", out.Charge.Cost)
	}
	if out.Charge.BilledHours != 1.25 {
		t.Errorf("Expected 1.25 billed hours, got %.2f", out.Charge.BilledHours)
	}
	if out.SlotIndex != 1 {
		t.Errorf("Expected slot 1, got %d", out.SlotIndex)
	}
}

func TestCheckOutWithPartialRateTable(t *testing.T) {
	// A rate table covering only some categories must leave the rest on
	// default pricing, not a zero-value rate.
	svc := NewService(Config{
		Capacities: map[Category]int{
			CategoryCar:  1,
			CategoryBike: 1,
		},
		Rates: RateTable{
			CategoryCar: {HourlyRate: 60, IncrementMinutes: 15},
		},
	}, nil)

	checkIn := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	setClock(svc, checkIn)
	if _, err := svc.CheckIn("BB22BB2222", CategoryBike, 1); err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}

	setClock(svc, checkIn.Add(61*time.Minute))

	out, err := svc.CheckOut("BB22BB2222")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if out.Charge.BilledMinutes != 75 {
		t.Errorf("Expected 75 billed minutes under default bike pricing, got %d", out.Charge.BilledMinutes)
	}
	if out.Charge.Cost != 37.5 {
		t.Errorf("Expected cost 37.50 under default bike pricing, got %.2f", out.Charge.Cost)
	}
}

func TestExportSnapshotIncrementIsStable(t *testing.T) {
	// Per-category increments differ; the exported shared increment is the
	// first category's in stable order, on every export.
	svc := NewService(Config{
		Capacities: map[Category]int{CategoryCar: 1, CategoryBike: 1, CategoryTruck: 1},
		Rates: RateTable{
			CategoryCar:   {HourlyRate: 60, IncrementMinutes: 15},
			CategoryBike:  {HourlyRate: 30, IncrementMinutes: 30},
			CategoryTruck: {HourlyRate: 100, IncrementMinutes: 60},
		},
	}, nil)

	for i := 0; i < 10; i++ {
		snapshot := svc.ExportSnapshot()
		if snapshot.BillingIncrementMinutes != 15 {
			t.Fatalf("Expected exported increment 15 on export %d, got %d", i, snapshot.BillingIncrementMinutes)
		}
	}
}

func TestCheckOutRemovesSessionAndAppendsHistory(t *testing.T) {
	svc, _ := newTestService(3)
	svc.CheckIn("MH02FM1234", CategoryCar, 1)

	if _, err := svc.CheckOut("MH02FM1234"); err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}

	if len(svc.History()) != 1 {
		t.Errorf("Expected exactly one history record, got %d", len(svc.History()))
	}
	if svc.ledger.Len() != 0 {
		t.Errorf("Expected empty ledger, got %d sessions", svc.ledger.Len())
	}

	_, err := svc.CheckOut("MH02FM1234")
	if !errors.Is(err, ErrVehicleNotFound) {
		t.Errorf("Expected ErrVehicleNotFound on second check-out, got %v", err)
	}
	if len(svc.History()) != 1 {
		t.Errorf("Expected history unchanged after failed check-out, got %d records", len(svc.History()))
	}
}

func TestCheckOutClampsClockSkew(t *testing.T) {
	svc, _ := newTestService(3)

	checkIn := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	setClock(svc, checkIn)
	svc.CheckIn("MH02FM1234", CategoryCar, 1)

	// Clock moved backwards: still billed the one hour minimum.
	setClock(svc, checkIn.Add(-10*time.Minute))

	out, err := svc.CheckOut("MH02FM1234")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if out.Charge.BilledMinutes != 60 || out.Charge.Cost != 60 {
		t.Errorf("Expected one hour minimum charge, got %+v", out.Charge)
	}
}

func TestCheckOutInvalidTimestamp(t *testing.T) {
	svc, _ := newTestService(3)
	svc.CheckIn("MH02FM1234", CategoryCar, 1)

	session, _ := svc.ledger.Lookup("MH02FM1234")
	session.CheckInTime = time.Time{}

	_, err := svc.CheckOut("MH02FM1234")
	if !errors.Is(err, ErrInvalidTimestamp) {
		t.Errorf("Expected ErrInvalidTimestamp, got %v", err)
	}
}

func TestSearchIsReadOnly(t *testing.T) {
	svc, store := newTestService(3)
	svc.CheckIn("MH02FM1234", CategoryCar, 1)
	savesBefore := store.saves

	for i := 0; i < 5; i++ {
		result, found := svc.Search("mh02fm1234")
		if !found {
			t.Fatal("Expected search to find the vehicle")
		}
		if result.Session.SlotIndex != 1 {
			t.Errorf("Expected slot 1, got %d", result.Session.SlotIndex)
		}
	}

	if store.saves != savesBefore {
		t.Error("Expected search not to persist state")
	}
	if svc.ledger.Len() != 1 {
		t.Errorf("Expected ledger untouched, got %d sessions", svc.ledger.Len())
	}
	if _, found := svc.Search("XX00XX0000"); found {
		t.Error("Expected search miss for unknown plate")
	}
}

func TestCurrentQuoteMatchesCheckOut(t *testing.T) {
	svc, _ := newTestService(3)

	checkIn := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	setClock(svc, checkIn)
	svc.CheckIn("MH02FM1234", CategoryCar, 1)

	setClock(svc, checkIn.Add(61*time.Minute))

	quote, err := svc.CurrentQuote("MH02FM1234")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}

	out, err := svc.CheckOut("MH02FM1234")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}

	if quote != out.Charge {
		t.Errorf("Expected quote %+v to equal final charge %+v", quote, out.Charge)
	}

	if _, err := svc.CurrentQuote("MH02FM1234"); !errors.Is(err, ErrVehicleNotFound) {
		t.Errorf("Expected ErrVehicleNotFound after check-out, got %v", err)
	}
}

// occupancy/ledger bijection: every occupied slot has exactly one session
// pointing back at it, and vice versa.
func assertBijection(t *testing.T, svc *Service) {
	t.Helper()

	occupied := 0
	for _, category := range Categories() {
		for _, slot := range svc.pools[category].Occupied() {
			occupied++
			session, ok := svc.ledger.Lookup(slot.Occupant)
			if !ok {
				t.Errorf("Occupied %s slot %d has no ledger entry for %s", category, slot.Index, slot.Occupant)
				continue
			}
			if session.Category != category || session.SlotIndex != slot.Index {
				t.Errorf("Session %s points at %s slot %d, expected %s slot %d",
					session.Plate, session.Category, session.SlotIndex, category, slot.Index)
			}
		}
	}

	if occupied != svc.ledger.Len() {
		t.Errorf("Expected %d occupied slots to match %d active sessions", occupied, svc.ledger.Len())
	}
}

func TestInvariantsAcrossOperations(t *testing.T) {
	svc, _ := newTestService(2)

	svc.CheckIn("AA11AA1111", CategoryCar, 1)
	assertBijection(t, svc)

	svc.CheckIn("BB22BB2222", CategoryCar, 1)
	assertBijection(t, svc)

	svc.CheckIn("CC33CC3333", CategoryCar, 1) // pool full, must fail
	assertBijection(t, svc)

	svc.CheckIn("DD44DD4444", CategoryBike, 1)
	assertBijection(t, svc)

	svc.CheckOut("AA11AA1111")
	assertBijection(t, svc)

	svc.CheckIn("CC33CC3333", CategoryCar, 1)
	assertBijection(t, svc)

	for _, category := range Categories() {
		status, _ := svc.Status(category)
		if status.Occupied > status.Capacity {
			t.Errorf("Occupied %d exceeds capacity %d for %s", status.Occupied, status.Capacity, category)
		}
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	svc, _ := newTestService(3)

	checkIn := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	setClock(svc, checkIn)
	svc.CheckIn("AA11AA1111", CategoryCar, 2)
	svc.CheckIn("BB22BB2222", CategoryBike, 1)

	setClock(svc, checkIn.Add(90*time.Minute))
	svc.CheckOut("BB22BB2222")

	snapshot := svc.ExportSnapshot()

	other, _ := newTestService(3)
	if err := other.ImportSnapshot(snapshot); err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}

	assertBijection(t, other)

	session, ok := other.ledger.Lookup("AA11AA1111")
	if !ok {
		t.Fatal("Expected imported session for AA11AA1111")
	}
	if session.SlotIndex != 1 || session.Category != CategoryCar {
		t.Errorf("Expected car slot 1, got %s slot %d", session.Category, session.SlotIndex)
	}
	if !session.CheckInTime.Equal(checkIn) {
		t.Errorf("Expected check-in time preserved, got %s", session.CheckInTime)
	}

	if len(other.History()) != 1 {
		t.Fatalf("Expected 1 history record, got %d", len(other.History()))
	}
	if other.History()[0].TotalCost != 45 {
		t.Errorf("Expected bike 90 minute cost 45, got %.2f", other.History()[0].TotalCost)
	}

	status, _ := other.Status(CategoryCar)
	if status.Occupied != 1 || status.Available != 2 {
		t.Errorf("Expected car pool 1/3 occupied, got %d/%d", status.Occupied, status.Capacity)
	}
}

func TestImportRejectsMissingLedgerSection(t *testing.T) {
	svc, _ := newTestService(3)

	if err := svc.ImportSnapshot(&Snapshot{History: []ClosedSession{}}); !errors.Is(err, ErrInvalidSnapshot) {
		t.Errorf("Expected ErrInvalidSnapshot, got %v", err)
	}
	if err := svc.ImportSnapshot(nil); !errors.Is(err, ErrInvalidSnapshot) {
		t.Errorf("Expected ErrInvalidSnapshot for nil document, got %v", err)
	}
}

func TestImportRebuildsSlotsFromLedger(t *testing.T) {
	svc, _ := newTestService(3)

	// The slot maps claim slot 3 is occupied by a vehicle the ledger does
	// not know; the ledger is the authority.
	snapshot := &Snapshot{
		Slots: map[Category]map[int]SnapshotSlot{
			CategoryCar: {
				3: {Status: SlotOccupied, Occupant: "ZZ99ZZ9999"},
			},
		},
		ActiveSessions: map[string]*ActiveSession{
			"AA11AA1111": {
				Plate:       "AA11AA1111",
				Category:    CategoryCar,
				SlotIndex:   2,
				CheckInTime: time.Now(),
			},
			"XX88XX8888": {
				Plate:       "XX88XX8888",
				Category:    CategoryCar,
				SlotIndex:   99, // out of range, dropped
				CheckInTime: time.Now(),
			},
		},
	}

	if err := svc.ImportSnapshot(snapshot); err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}

	assertBijection(t, svc)

	status, _ := svc.Status(CategoryCar)
	if status.Occupied != 1 {
		t.Errorf("Expected exactly one occupied car slot, got %d", status.Occupied)
	}
	if _, ok := svc.ledger.Lookup("XX88XX8888"); ok {
		t.Error("Expected out-of-range session to be dropped")
	}
	if _, ok := svc.ledger.Lookup("AA11AA1111"); !ok {
		t.Error("Expected in-range session to survive import")
	}
}

func TestResetClearsEverything(t *testing.T) {
	svc, store := newTestService(3)
	svc.CheckIn("AA11AA1111", CategoryCar, 1)
	svc.CheckOut("AA11AA1111")
	svc.CheckIn("BB22BB2222", CategoryBike, 1)

	if err := svc.Reset(); err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}

	if svc.ledger.Len() != 0 {
		t.Errorf("Expected empty ledger, got %d sessions", svc.ledger.Len())
	}
	if len(svc.History()) != 0 {
		t.Errorf("Expected empty history, got %d records", len(svc.History()))
	}
	for _, category := range Categories() {
		status, _ := svc.Status(category)
		if status.Occupied != 0 {
			t.Errorf("Expected empty %s pool, got %d occupied", category, status.Occupied)
		}
	}
	if store.snapshot != nil {
		t.Error("Expected persisted snapshot to be cleared")
	}
}

func TestPersistenceFailureDoesNotRollBack(t *testing.T) {
	store := &memoryStore{failSave: true}
	svc := NewService(testConfig(3), store)

	result, err := svc.CheckIn("AA11AA1111", CategoryCar, 1)
	if err != nil {
		t.Fatalf("Expected check-in to succeed despite storage failure, got %s", err.Error())
	}
	if result.SlotIndex != 1 {
		t.Errorf("Expected slot 1, got %d", result.SlotIndex)
	}
	if _, found := svc.Search("AA11AA1111"); !found {
		t.Error("Expected in-memory state to remain authoritative")
	}
}

func TestMutationsPersistSnapshots(t *testing.T) {
	svc, store := newTestService(3)

	svc.CheckIn("AA11AA1111", CategoryCar, 1)
	if store.snapshot == nil {
		t.Fatal("Expected a snapshot after check-in")
	}
	if len(store.snapshot.ActiveSessions) != 1 {
		t.Errorf("Expected 1 persisted session, got %d", len(store.snapshot.ActiveSessions))
	}

	svc.CheckOut("AA11AA1111")
	if len(store.snapshot.ActiveSessions) != 0 {
		t.Errorf("Expected 0 persisted sessions after check-out, got %d", len(store.snapshot.ActiveSessions))
	}
	if len(store.snapshot.History) != 1 {
		t.Errorf("Expected 1 persisted history record, got %d", len(store.snapshot.History))
	}
}

func TestRestoreToleratesMissingSections(t *testing.T) {
	svc, _ := newTestService(3)

	svc.Restore(&Snapshot{}) // nothing to restore, nothing to crash on
	svc.Restore(nil)

	if svc.ledger.Len() != 0 || len(svc.History()) != 0 {
		t.Error("Expected empty state after restoring an empty snapshot")
	}
}
