package parking

import "fmt"

// SlotPool is a fixed-size array of slots for one vehicle category.
// Indices are 1-based and contiguous within [1, capacity].
type SlotPool struct {
	category Category
	capacity int
	slots    []*Slot
}

func NewSlotPool(category Category, capacity int) *SlotPool {
	slots := make([]*Slot, capacity)
	for i := 0; i < capacity; i++ {
		slots[i] = NewSlot(i + 1)
	}

	return &SlotPool{
		category: category,
		capacity: capacity,
		slots:    slots,
	}
}

func (p *SlotPool) Capacity() int {
	return p.capacity
}

func (p *SlotPool) Category() Category {
	return p.category
}

// FindFirstAvailable scans slots in ascending index order and returns the
// lowest-indexed empty slot. Allocation is deterministic first-fit.
func (p *SlotPool) FindFirstAvailable() (int, bool) {
	for _, slot := range p.slots {
		if !slot.IsOccupied() {
			return slot.Index, true
		}
	}
	return 0, false
}

// Occupy marks the slot at index as taken by plate.
func (p *SlotPool) Occupy(index int, plate string) error {
	if index < 1 || index > p.capacity {
		return fmt.Errorf("%w: %s slot %d out of range", ErrInvalidSlot, p.category, index)
	}
	slot := p.slots[index-1]
	if slot.IsOccupied() {
		return fmt.Errorf("%w: %s slot %d is already occupied", ErrInvalidSlot, p.category, index)
	}
	slot.park(plate)
	return nil
}

// Release frees the slot at index. Ownership of the slot is not checked
// here; that validation belongs to the ledger.
func (p *SlotPool) Release(index int) error {
	if index < 1 || index > p.capacity {
		return fmt.Errorf("%w: %s slot %d out of range", ErrInvalidSlot, p.category, index)
	}
	slot := p.slots[index-1]
	if !slot.IsOccupied() {
		return fmt.Errorf("%w: %s slot %d is already empty", ErrInvalidSlot, p.category, index)
	}
	slot.vacate()
	return nil
}

// Occupied returns the occupied slots in ascending index order.
func (p *SlotPool) Occupied() []*Slot {
	var occupied []*Slot
	for _, slot := range p.slots {
		if slot.IsOccupied() {
			occupied = append(occupied, slot)
		}
	}
	return occupied
}

// OccupiedCount returns the number of occupied slots.
func (p *SlotPool) OccupiedCount() int {
	return len(p.Occupied())
}

// Slots returns all slots in index order.
func (p *SlotPool) Slots() []*Slot {
	return p.slots
}

// clear empties every slot in the pool.
func (p *SlotPool) clear() {
	for _, slot := range p.slots {
		if slot.IsOccupied() {
			slot.vacate()
		}
	}
}
