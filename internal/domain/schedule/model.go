package schedule

import (
	"time"

	"github.com/google/uuid"

	"github.com/orsched/orsched/internal/domain/request"
)

// EntryStatus is the lifecycle state of a schedule entry.
type EntryStatus string

const (
	EntryScheduled EntryStatus = "scheduled"
	EntryCompleted EntryStatus = "completed"
	EntryCancelled EntryStatus = "cancelled"
	// EntryBumped marks an entry displaced by an emergency override. The
	// underlying request returns to the queue; the bumped entry stays for
	// the audit trail.
	EntryBumped EntryStatus = "bumped"
)

// Entry maps to the schedule_entry table plus its staff and equipment join
// tables. EndTime is always StartTime plus the request's estimated duration.
type Entry struct {
	ID                 uuid.UUID        `db:"id" json:"id"`
	HospitalID         uuid.UUID        `db:"hospital_id" json:"hospital_id"`
	RequestID          uuid.UUID        `db:"request_id" json:"request_id"`
	RoomID             uuid.UUID        `db:"room_id" json:"room_id"`
	SurgeonID          uuid.UUID        `db:"surgeon_id" json:"surgeon_id"`
	AnesthesiologistID uuid.UUID        `db:"anesthesiologist_id" json:"anesthesiologist_id"`
	NurseIDs           []uuid.UUID      `json:"nurse_ids"`
	EquipmentIDs       []uuid.UUID      `json:"equipment_ids"`
	StartTime          time.Time        `db:"start_time" json:"start_time"`
	EndTime            time.Time        `db:"end_time" json:"end_time"`
	Priority           request.Priority `db:"priority" json:"priority"`
	Status             EntryStatus      `db:"status" json:"status"`
	// DelayMinutes records how far past its earliest feasible start the
	// entry was placed, so optimality scoring is stable across runs.
	DelayMinutes int       `db:"delay_minutes" json:"delay_minutes"`
	Notes        string    `db:"notes" json:"notes"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Active reports whether the entry still occupies its room and staff.
func (e *Entry) Active() bool {
	return e.Status == EntryScheduled
}

// Overlaps reports whether [e.StartTime, e.EndTime) intersects [start, end).
func (e *Entry) Overlaps(start, end time.Time) bool {
	return e.StartTime.Before(end) && start.Before(e.EndTime)
}

// StaffIDs returns every staff member assigned to the entry.
func (e *Entry) StaffIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(e.NurseIDs)+2)
	ids = append(ids, e.SurgeonID, e.AnesthesiologistID)
	ids = append(ids, e.NurseIDs...)
	return ids
}

// Duration returns the booked window length.
func (e *Entry) Duration() time.Duration {
	return e.EndTime.Sub(e.StartTime)
}
