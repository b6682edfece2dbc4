package inventory

import (
	"time"

	"github.com/google/uuid"
)

// RoomType classifies an operating room.
type RoomType string

const (
	RoomGeneral   RoomType = "general"
	RoomCardiac   RoomType = "cardiac"
	RoomNeuro     RoomType = "neuro"
	RoomOrtho     RoomType = "ortho"
	RoomPediatric RoomType = "pediatric"
)

const (
	// DefaultMaxHoursPerDay caps a staff member's assignable time when the
	// record does not set its own limit.
	DefaultMaxHoursPerDay = 12

	// DefaultSterilizationCycleHours is applied to equipment created without
	// an explicit cycle length.
	DefaultSterilizationCycleHours = 4
)

// ValidRoomTypes is the set of accepted room types.
var ValidRoomTypes = map[RoomType]bool{
	RoomGeneral: true, RoomCardiac: true, RoomNeuro: true,
	RoomOrtho: true, RoomPediatric: true,
}

// OperatingRoom maps to the operating_room table. Capabilities is the set of
// procedure tags the room can host; a room only hosts surgeries whose
// procedure is in that set.
type OperatingRoom struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	HospitalID       uuid.UUID  `db:"hospital_id" json:"hospital_id"`
	Name             string     `db:"name" json:"name"`
	RoomType         RoomType   `db:"room_type" json:"room_type"`
	Capabilities     []string   `db:"capabilities" json:"capabilities"`
	IsAvailable      bool       `db:"is_available" json:"is_available"`
	HasAnesthesia    bool       `db:"has_anesthesia" json:"has_anesthesia"`
	HasImaging       bool       `db:"has_imaging" json:"has_imaging"`
	MaintenanceUntil *time.Time `db:"maintenance_until" json:"maintenance_until,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Supports reports whether the room's capability set includes the procedure.
func (r *OperatingRoom) Supports(procedure string) bool {
	for _, cap := range r.Capabilities {
		if cap == procedure {
			return true
		}
	}
	return false
}

// InMaintenanceAt reports whether the room is down for maintenance at t.
func (r *OperatingRoom) InMaintenanceAt(t time.Time) bool {
	return r.MaintenanceUntil != nil && t.Before(*r.MaintenanceUntil)
}

// StaffRole classifies a staff member.
type StaffRole string

const (
	RoleSurgeon          StaffRole = "surgeon"
	RoleAnesthesiologist StaffRole = "anesthesiologist"
	RoleNurse            StaffRole = "nurse"
	RoleTechnician       StaffRole = "technician"
)

// ValidStaffRoles is the set of accepted staff roles.
var ValidStaffRoles = map[StaffRole]bool{
	RoleSurgeon: true, RoleAnesthesiologist: true,
	RoleNurse: true, RoleTechnician: true,
}

// Staff maps to the staff table.
type Staff struct {
	ID             uuid.UUID `db:"id" json:"id"`
	HospitalID     uuid.UUID `db:"hospital_id" json:"hospital_id"`
	Name           string    `db:"name" json:"name"`
	Role           StaffRole `db:"role" json:"role"`
	Specialization string    `db:"specialization" json:"specialization"`
	MaxHoursPerDay int       `db:"max_hours_per_day" json:"max_hours_per_day"`
	IsAvailable    bool      `db:"is_available" json:"is_available"`
	IsOnCall       bool      `db:"is_on_call" json:"is_on_call"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Equipment maps to the equipment table. SterileAt is the moment the item
// finishes its sterilization cycle and may be used again; it is owned by the
// scheduler's commit path.
type Equipment struct {
	ID                      uuid.UUID  `db:"id" json:"id"`
	HospitalID              uuid.UUID  `db:"hospital_id" json:"hospital_id"`
	Name                    string     `db:"name" json:"name"`
	EquipmentType           string     `db:"equipment_type" json:"equipment_type"`
	Location                string     `db:"location" json:"location"`
	SterilizationCycleHours int        `db:"sterilization_cycle_hours" json:"sterilization_cycle_hours"`
	IsAvailable             bool       `db:"is_available" json:"is_available"`
	SterileAt               *time.Time `db:"sterile_at" json:"sterile_at,omitempty"`
	CreatedAt               time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time  `db:"updated_at" json:"updated_at"`
}

// ReadyAt returns the earliest time the equipment can be used: now, or the
// end of a pending sterilization cycle, whichever is later.
func (e *Equipment) ReadyAt(now time.Time) time.Time {
	if e.SterileAt != nil && e.SterileAt.After(now) {
		return *e.SterileAt
	}
	return now
}

// SterilizationCycle returns the cycle length as a duration.
func (e *Equipment) SterilizationCycle() time.Duration {
	return time.Duration(e.SterilizationCycleHours) * time.Hour
}
