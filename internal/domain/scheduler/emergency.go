package scheduler

import (
	"time"

	"github.com/google/uuid"

	"github.com/orsched/orsched/internal/domain/request"
)

// EmergencyOutcome reports what an override did: where the emergency landed,
// which scheduled requests were bumped to make room, and how the bumped
// requests were re-planned. Displaced requests that could not be re-placed
// appear in Conflicts and return to the approved queue.
type EmergencyOutcome struct {
	Placement         *Placement
	DisplacedEntries  []uuid.UUID
	DisplacedRequests []uuid.UUID
	Replanned         []*Placement
	Conflicts         []string
}

// HandleEmergency forces an immediate assignment for an emergency request,
// displacing lower-priority bookings when the hospital is full. scheduled
// maps request IDs to the scheduled requests backing current bookings, so
// displaced work can be re-planned in the same pass.
//
// Victim selection: only bookings whose room could host the emergency are
// eligible; never an emergency; normal entries before urgent ones; among
// equals, the latest-starting entry goes first, since it is the cheapest to
// push back. Victims removed along the way that turn out not to share a
// resource with the final placement are restored untouched.
func (e *Engine) HandleEmergency(snap *Snapshot, req *request.SurgeryRequest,
	scheduled map[uuid.UUID]*request.SurgeryRequest) (*EmergencyOutcome, error) {

	if !snap.hasCapableRoom(req.ProcedureType) {
		return nil, &InfeasibleError{RequestID: req.ID, Constraint: ConstraintNoCapableRoom}
	}

	out := &EmergencyOutcome{}
	start := snap.Now
	end := start.Add(req.Duration())

	var victims []*booking
	var placed *booking
	for {
		p, blocked := e.placeAt(snap, req, start)
		if p != nil {
			placed = placementBooking(p)
			snap.commit(placed)
			out.Placement = p
			break
		}
		victim := pickVictim(snap, req.ProcedureType, snap.bookingsOverlapping(start, end))
		if victim == nil {
			return nil, &InfeasibleError{RequestID: req.ID, Constraint: blocked}
		}
		snap.remove(victim)
		victims = append(victims, victim)
	}

	for _, v := range victims {
		if !sharesResources(v, placed) {
			snap.commit(v)
			continue
		}
		out.DisplacedEntries = append(out.DisplacedEntries, v.EntryID)
		out.DisplacedRequests = append(out.DisplacedRequests, v.RequestID)
	}

	// Re-plan the bumped requests around the emergency, in priority order.
	var bumped []*request.SurgeryRequest
	for _, id := range out.DisplacedRequests {
		if r, ok := scheduled[id]; ok {
			bumped = append(bumped, r)
		}
	}
	if len(bumped) > 0 {
		replan := e.Schedule(snap, Rank(bumped, snap.Now))
		out.Replanned = replan.Placements
		out.Conflicts = replan.Conflicts
	}
	return out, nil
}

// pickVictim chooses which overlapping booking to bump. A booking sitting in
// a room that cannot host the procedure frees nothing the emergency can use,
// so it is never a candidate. Among eligible bookings: lowest priority class
// first, then the latest start time, then entry ID for determinism.
// Emergencies are never victims.
func pickVictim(snap *Snapshot, procedureType string, candidates []*booking) *booking {
	var victim *booking
	for _, b := range candidates {
		if b.Priority == request.PriorityEmergency {
			continue
		}
		room, ok := snap.Rooms[b.RoomID]
		if !ok || !room.Supports(procedureType) {
			continue
		}
		if victim == nil || victimBefore(b, victim) {
			victim = b
		}
	}
	return victim
}

// sharesResources reports whether two bookings contend for the same room,
// staff member, or equipment item. The emergency placement holds its
// resources for the whole pass, so window overlap is not consulted.
func sharesResources(a, b *booking) bool {
	if a.RoomID == b.RoomID {
		return true
	}
	staff := make(map[uuid.UUID]bool, len(a.StaffIDs))
	for _, id := range a.StaffIDs {
		staff[id] = true
	}
	for _, id := range b.StaffIDs {
		if staff[id] {
			return true
		}
	}
	equipment := make(map[uuid.UUID]bool, len(a.EquipmentIDs))
	for _, id := range a.EquipmentIDs {
		equipment[id] = true
	}
	for _, id := range b.EquipmentIDs {
		if equipment[id] {
			return true
		}
	}
	return false
}

func victimBefore(a, b *booking) bool {
	if a.Priority.Rank() != b.Priority.Rank() {
		return a.Priority.Rank() < b.Priority.Rank()
	}
	if !a.Start.Equal(b.Start) {
		return a.Start.After(b.Start)
	}
	return a.EntryID.String() < b.EntryID.String()
}

// displacementWindow is the slot freed by bumping a booking, used in audit
// detail messages.
func displacementWindow(start, end time.Time) string {
	return start.UTC().Format(time.RFC3339) + " - " + end.UTC().Format(time.RFC3339)
}
