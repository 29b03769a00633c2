package parking

import "errors"

// Sentinel errors returned by the service and its collaborators. Callers
// match them with errors.Is and decide how to surface each condition.
var (
	ErrInvalidPlate     = errors.New("invalid vehicle number")
	ErrDuplicateVehicle = errors.New("vehicle is already parked")
	ErrNoSlotAvailable  = errors.New("no parking slots available")
	ErrVehicleNotFound  = errors.New("vehicle not found in parking records")
	ErrInvalidSlot      = errors.New("invalid slot")
	ErrInvalidTimestamp = errors.New("invalid check-in time")
	ErrInvalidSnapshot  = errors.New("snapshot is missing the active vehicles section")
)
