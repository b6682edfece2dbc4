package scheduler

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orsched/orsched/internal/domain/inventory"
	"github.com/orsched/orsched/internal/domain/request"
	"github.com/orsched/orsched/internal/domain/schedule"
)

// booking is an occupancy record inside a snapshot: an existing active
// schedule entry, or a placement committed earlier in the same run. An
// in-run booking holds its room, staff and equipment for the remainder of
// the pass, matching the one-occupant-per-room model; persisted entries
// block only their time windows.
type booking struct {
	EntryID      uuid.UUID // uuid.Nil for in-run placements
	RequestID    uuid.UUID
	RoomID       uuid.UUID
	StaffIDs     []uuid.UUID
	EquipmentIDs []uuid.UUID
	Start        time.Time
	End          time.Time
	Priority     request.Priority
	inRun        bool
	// delayMinutes is how far past its earliest feasible start the booking
	// was placed. Carried so scoring stays stable across idle re-runs.
	delayMinutes int
}

func (b *booking) overlaps(start, end time.Time) bool {
	return b.Start.Before(end) && start.Before(b.End)
}

// Snapshot is the engine's working copy of a hospital's inventory and
// occupancy. The engine mutates it as it commits placements; the database is
// only touched afterwards, by the service.
type Snapshot struct {
	Now       time.Time
	Rooms     map[uuid.UUID]*inventory.OperatingRoom
	Staff     map[uuid.UUID]*inventory.Staff
	Equipment map[uuid.UUID]*inventory.Equipment

	bookings []*booking
	// readyAt holds pending sterilization deadlines loaded from the
	// equipment records. Sterilization implied by bookings is derived from
	// the booking windows instead.
	readyAt map[uuid.UUID]time.Time
}

// NewSnapshot builds a snapshot from loaded inventory and the hospital's
// active schedule entries.
func NewSnapshot(now time.Time, rooms []*inventory.OperatingRoom, staff []*inventory.Staff,
	equipment []*inventory.Equipment, entries []*schedule.Entry) *Snapshot {

	s := &Snapshot{
		Now:       now,
		Rooms:     make(map[uuid.UUID]*inventory.OperatingRoom, len(rooms)),
		Staff:     make(map[uuid.UUID]*inventory.Staff, len(staff)),
		Equipment: make(map[uuid.UUID]*inventory.Equipment, len(equipment)),
		readyAt:   make(map[uuid.UUID]time.Time, len(equipment)),
	}
	for _, r := range rooms {
		s.Rooms[r.ID] = r
	}
	for _, m := range staff {
		s.Staff[m.ID] = m
	}
	for _, e := range equipment {
		s.Equipment[e.ID] = e
		s.readyAt[e.ID] = e.ReadyAt(now)
	}
	for _, e := range entries {
		if !e.Active() {
			continue
		}
		s.bookings = append(s.bookings, &booking{
			EntryID:      e.ID,
			RequestID:    e.RequestID,
			RoomID:       e.RoomID,
			StaffIDs:     e.StaffIDs(),
			EquipmentIDs: e.EquipmentIDs,
			Start:        e.StartTime,
			End:          e.EndTime,
			Priority:     e.Priority,
			delayMinutes: e.DelayMinutes,
		})
	}
	// A sterilization deadline recorded for a use that has not happened yet
	// is already implied by that booking's window and must not block the idle
	// time before it. Only deadlines from finished surgeries gate new starts.
	for _, b := range s.bookings {
		for _, id := range b.EquipmentIDs {
			if t, ok := s.readyAt[id]; ok && b.Start.Before(t) {
				delete(s.readyAt, id)
			}
		}
	}
	return s
}

func (s *Snapshot) commit(b *booking) {
	s.bookings = append(s.bookings, b)
}

// remove drops a booking, freeing its room, staff and equipment. Used by the
// emergency handler when displacing an entry.
func (s *Snapshot) remove(target *booking) {
	for i, b := range s.bookings {
		if b == target {
			s.bookings = append(s.bookings[:i], s.bookings[i+1:]...)
			return
		}
	}
}

// roomFreeFor reports whether the room can host a surgery over [start, end):
// available, out of maintenance, and with no overlapping booking.
func (s *Snapshot) roomFreeFor(roomID uuid.UUID, start, end time.Time) bool {
	room, ok := s.Rooms[roomID]
	if !ok || !room.IsAvailable {
		return false
	}
	if room.InMaintenanceAt(start) {
		return false
	}
	for _, b := range s.bookings {
		if b.RoomID == roomID && (b.inRun || b.overlaps(start, end)) {
			return false
		}
	}
	return true
}

// staffFreeFor reports whether the staff member has no overlapping booking.
func (s *Snapshot) staffFreeFor(staffID uuid.UUID, start, end time.Time) bool {
	m, ok := s.Staff[staffID]
	if !ok || !m.IsAvailable {
		return false
	}
	for _, b := range s.bookings {
		if b.inRun || b.overlaps(start, end) {
			for _, id := range b.StaffIDs {
				if id == staffID {
					return false
				}
			}
		}
	}
	return true
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// staffDayMinutes sums the staff member's booked minutes on the calendar day
// of t. Entries are attributed to the day they start on.
func (s *Snapshot) staffDayMinutes(staffID uuid.UUID, t time.Time) int {
	day := dayKey(t)
	total := 0
	for _, b := range s.bookings {
		if dayKey(b.Start) != day {
			continue
		}
		for _, id := range b.StaffIDs {
			if id == staffID {
				total += int(b.End.Sub(b.Start) / time.Minute)
				break
			}
		}
	}
	return total
}

// staffCanTake reports whether the member is free for the window and the
// assignment keeps them within their daily hour cap.
func (s *Snapshot) staffCanTake(staffID uuid.UUID, start, end time.Time) bool {
	m, ok := s.Staff[staffID]
	if !ok {
		return false
	}
	if !s.staffFreeFor(staffID, start, end) {
		return false
	}
	added := int(end.Sub(start) / time.Minute)
	return s.staffDayMinutes(staffID, start)+added <= m.MaxHoursPerDay*60
}

// roomDayMinutes sums the room's booked minutes on the calendar day of t.
func (s *Snapshot) roomDayMinutes(roomID uuid.UUID, t time.Time) int {
	day := dayKey(t)
	total := 0
	for _, b := range s.bookings {
		if b.RoomID == roomID && dayKey(b.Start) == day {
			total += int(b.End.Sub(b.Start) / time.Minute)
		}
	}
	return total
}

// equipmentFreeFor reports whether the equipment item can be used for
// [start, end): available, past any pending sterilization, and not in use or
// sterilizing from another booking. Every use holds the item for its window
// plus the item's full sterilization cycle, in both directions: a candidate
// window whose own cycle would still be running when an existing booking
// starts is rejected too.
func (s *Snapshot) equipmentFreeFor(equipmentID uuid.UUID, start, end time.Time) bool {
	e, ok := s.Equipment[equipmentID]
	if !ok || !e.IsAvailable {
		return false
	}
	if s.readyAt[equipmentID].After(start) {
		return false
	}
	cycle := e.SterilizationCycle()
	for _, b := range s.bookings {
		for _, id := range b.EquipmentIDs {
			if id != equipmentID {
				continue
			}
			if b.inRun || (b.Start.Before(end.Add(cycle)) && start.Before(b.End.Add(cycle))) {
				return false
			}
		}
	}
	return true
}

// pickEquipment chooses one free instance per required equipment type,
// lowest ID first for determinism. All-or-nothing: a single missing type
// fails the window.
func (s *Snapshot) pickEquipment(types []string, start, end time.Time) ([]uuid.UUID, bool) {
	if len(types) == 0 {
		return nil, true
	}
	picked := make([]uuid.UUID, 0, len(types))
	used := make(map[uuid.UUID]bool, len(types))
	for _, typ := range types {
		var best uuid.UUID
		found := false
		for id, e := range s.Equipment {
			if used[id] || !strings.EqualFold(e.EquipmentType, typ) {
				continue
			}
			if !s.equipmentFreeFor(id, start, end) {
				continue
			}
			if !found || id.String() < best.String() {
				best = id
				found = true
			}
		}
		if !found {
			return nil, false
		}
		picked = append(picked, best)
		used[best] = true
	}
	return picked, true
}

// pickStaffByRole chooses the free staff member with the given role (and
// specialization, when non-empty) that can take the window, lowest ID first.
func (s *Snapshot) pickStaffByRole(role inventory.StaffRole, specialization string, start, end time.Time, taken map[uuid.UUID]bool) (uuid.UUID, bool) {
	var best uuid.UUID
	found := false
	for id, m := range s.Staff {
		if taken[id] || m.Role != role {
			continue
		}
		if specialization != "" && !strings.EqualFold(m.Specialization, specialization) {
			continue
		}
		if !s.staffCanTake(id, start, end) {
			continue
		}
		if !found || id.String() < best.String() {
			best = id
			found = true
		}
	}
	return best, found
}

// candidateStarts returns the sorted, de-duplicated start times worth
// probing within the horizon: now, every booking end, every sterilization
// deadline, and every maintenance-window end. Any feasible earliest slot is
// one of these boundaries.
func (s *Snapshot) candidateStarts(horizon time.Duration) []time.Time {
	limit := s.Now.Add(horizon)
	seen := map[time.Time]bool{s.Now: true}
	out := []time.Time{s.Now}

	add := func(t time.Time) {
		if t.Before(s.Now) || t.After(limit) || seen[t] {
			return
		}
		seen[t] = true
		out = append(out, t)
	}
	for _, b := range s.bookings {
		add(b.End)
		for _, id := range b.EquipmentIDs {
			if e, ok := s.Equipment[id]; ok {
				add(b.End.Add(e.SterilizationCycle()))
			}
		}
	}
	for _, t := range s.readyAt {
		add(t)
	}
	for _, room := range s.Rooms {
		if room.MaintenanceUntil != nil {
			add(*room.MaintenanceUntil)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// sortedRoomIDs returns room IDs in ascending order for deterministic
// iteration.
func (s *Snapshot) sortedRoomIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s.Rooms))
	for id := range s.Rooms {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// hasCapableRoom reports whether any room, busy or not, supports the
// procedure type. When none does, not even displacement can help.
func (s *Snapshot) hasCapableRoom(procedureType string) bool {
	for _, room := range s.Rooms {
		if room.Supports(procedureType) {
			return true
		}
	}
	return false
}

// bookingsOverlapping returns bookings intersecting [start, end).
func (s *Snapshot) bookingsOverlapping(start, end time.Time) []*booking {
	var out []*booking
	for _, b := range s.bookings {
		if b.overlaps(start, end) {
			out = append(out, b)
		}
	}
	return out
}
