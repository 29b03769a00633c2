package parking

import (
	"fmt"
	"strings"
)

// Ledger is the registry of active sessions, keyed by normalized plate.
// At most one active session exists per plate at a time.
type Ledger struct {
	sessions map[string]*ActiveSession
}

func NewLedger() *Ledger {
	return &Ledger{
		sessions: make(map[string]*ActiveSession),
	}
}

// NormalizePlate canonicalizes a vehicle identifier before any lookup.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}

// Register adds a session for its plate.
func (l *Ledger) Register(session *ActiveSession) error {
	plate := NormalizePlate(session.Plate)
	if _, ok := l.sessions[plate]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateVehicle, plate)
	}
	session.Plate = plate
	l.sessions[plate] = session
	return nil
}

// Lookup returns the active session for plate, if any.
func (l *Ledger) Lookup(plate string) (*ActiveSession, bool) {
	session, ok := l.sessions[NormalizePlate(plate)]
	return session, ok
}

// Remove deletes and returns the active session for plate.
func (l *Ledger) Remove(plate string) (*ActiveSession, error) {
	key := NormalizePlate(plate)
	session, ok := l.sessions[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVehicleNotFound, key)
	}
	delete(l.sessions, key)
	return session, nil
}

// Len returns the number of active sessions.
func (l *Ledger) Len() int {
	return len(l.sessions)
}

// Sessions returns all active sessions keyed by plate.
func (l *Ledger) Sessions() map[string]*ActiveSession {
	return l.sessions
}

// clear drops every active session.
func (l *Ledger) clear() {
	l.sessions = make(map[string]*ActiveSession)
}
