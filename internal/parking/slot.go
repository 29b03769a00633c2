package parking

// SlotStatus is the occupancy state of a single parking slot.
type SlotStatus string

const (
	SlotEmpty    SlotStatus = "empty"
	SlotOccupied SlotStatus = "occupied"
)

// Slot is one physical parking space inside a category's pool, identified
// by a 1-based index. Occupant is set iff the slot is occupied.
type Slot struct {
	Index    int        `json:"index"`
	Status   SlotStatus `json:"status"`
	Occupant string     `json:"occupant,omitempty"`
}

func NewSlot(index int) *Slot {
	return &Slot{
		Index:  index,
		Status: SlotEmpty,
	}
}

func (s *Slot) IsOccupied() bool {
	return s.Status == SlotOccupied
}

func (s *Slot) park(plate string) {
	s.Status = SlotOccupied
	s.Occupant = plate
}

func (s *Slot) vacate() string {
	plate := s.Occupant
	s.Status = SlotEmpty
	s.Occupant = ""
	return plate
}
