package scheduler

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Constraint names carried by typed errors so callers can tell what blocked
// an assignment.
const (
	ConstraintNoCapableRoom      = "no_capable_room"
	ConstraintRoomOccupied       = "room_occupied"
	ConstraintStaffUnavailable   = "staff_unavailable"
	ConstraintStaffOverbooked    = "staff_overbooked"
	ConstraintEquipmentSterilize = "equipment_sterilizing"
	ConstraintNoDisplacement     = "no_displacement_possible"
)

// ErrRunInFlight signals that another scheduling operation holds the
// hospital's lock. Callers should retry later, never interleave.
var ErrRunInFlight = errors.New("scheduling run already in flight for hospital")

// InfeasibleError is fatal: an emergency cannot be placed under any
// displacement. It names the unmet constraint so the caller can escalate
// out of band.
type InfeasibleError struct {
	RequestID  uuid.UUID
	Constraint string
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("request %s cannot be accommodated: %s", e.RequestID, e.Constraint)
}

// ConstraintViolationError rejects a manual reschedule, naming the violated
// hard constraint.
type ConstraintViolationError struct {
	EntryID    uuid.UUID
	Constraint string
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("reschedule of entry %s violates constraint %s", e.EntryID, e.Constraint)
}
