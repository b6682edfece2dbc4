package scheduler

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/orsched/orsched/internal/domain/inventory"
	"github.com/orsched/orsched/internal/domain/request"
)

// Weights tunes the soft-cost function and the optimality scoring. Wait
// dominates by default: patients get the earliest feasible slot unless load
// balance is weighted up in configuration.
type Weights struct {
	Wait               float64
	RoomBalance        float64
	StaffBalance       float64
	LatePenalty        float64
	ImbalancePenalty   float64
	ImbalanceThreshold time.Duration
	Horizon            time.Duration
	// EscalateAfter is the queue-waiting time past which an approved
	// request is flagged escalated.
	EscalateAfter time.Duration
}

// DefaultWeights mirrors the configuration defaults.
func DefaultWeights() Weights {
	return Weights{
		Wait:               1.0,
		RoomBalance:        0.05,
		StaffBalance:       0.01,
		LatePenalty:        5,
		ImbalancePenalty:   3,
		ImbalanceThreshold: 4 * time.Hour,
		Horizon:            7 * 24 * time.Hour,
		EscalateAfter:      48 * time.Hour,
	}
}

// Placement is a planned assignment the engine has committed into its
// snapshot. The service turns placements into persisted schedule entries.
type Placement struct {
	Request            *request.SurgeryRequest
	RoomID             uuid.UUID
	SurgeonID          uuid.UUID
	AnesthesiologistID uuid.UUID
	NurseIDs           []uuid.UUID
	EquipmentIDs       []uuid.UUID
	Start              time.Time
	End                time.Time
	// DelayMinutes is how far the chosen start sits past the earliest
	// feasible one. Persisted with the entry so re-scoring a snapshot
	// reproduces the late-placement penalty.
	DelayMinutes int
}

// Result is the outcome of a full engine pass. Conflicts are soft: requests
// the pass could not place stay approved and are reported, never thrown.
type Result struct {
	Placements []*Placement
	Conflicts  []string
	Score      int
}

// Engine assigns ranked requests to rooms, staff and time windows with a
// greedy single pass: no backtracking across requests, a bounded planning
// horizon instead of a full constraint solver.
type Engine struct {
	w Weights
}

func NewEngine(w Weights) *Engine {
	if w.Horizon <= 0 {
		w.Horizon = DefaultWeights().Horizon
	}
	if w.EscalateAfter <= 0 {
		w.EscalateAfter = DefaultWeights().EscalateAfter
	}
	return &Engine{w: w}
}

// Schedule processes requests in ranked order against the snapshot. Each
// feasible request is committed into the snapshot before the next is
// considered, so later requests see earlier placements.
func (e *Engine) Schedule(snap *Snapshot, ranked []*request.SurgeryRequest) *Result {
	res := &Result{}
	for _, req := range ranked {
		p, ok := e.place(snap, req)
		if !ok {
			res.Conflicts = append(res.Conflicts,
				fmt.Sprintf("no compatible OR/staff/equipment window found for request %s", req.ID))
			continue
		}
		snap.commit(placementBooking(p))
		res.Placements = append(res.Placements, p)
	}
	res.Score = e.score(snap)
	return res
}

func placementBooking(p *Placement) *booking {
	staff := make([]uuid.UUID, 0, len(p.NurseIDs)+2)
	staff = append(staff, p.SurgeonID, p.AnesthesiologistID)
	staff = append(staff, p.NurseIDs...)
	return &booking{
		RequestID:    p.Request.ID,
		RoomID:       p.RoomID,
		StaffIDs:     staff,
		EquipmentIDs: p.EquipmentIDs,
		Start:        p.Start,
		End:          p.End,
		Priority:     p.Request.Priority,
		inRun:        true,
		delayMinutes: p.DelayMinutes,
	}
}

// place finds the cheapest feasible placement for the request and stamps it
// with the delay past the earliest feasible start it saw, which the scoring
// pass penalizes.
func (e *Engine) place(snap *Snapshot, req *request.SurgeryRequest) (*Placement, bool) {
	var (
		best     *Placement
		bestCost float64
		earliest time.Time
		found    bool
	)
	for _, start := range snap.candidateStarts(e.w.Horizon) {
		p, _ := e.placeAt(snap, req, start)
		if p == nil {
			continue
		}
		if !found {
			earliest = start
		}
		cost := e.cost(snap, p)
		if !found || cost < bestCost || (cost == bestCost && cheaperTie(p, best)) {
			best = p
			bestCost = cost
		}
		found = true
	}
	if !found {
		return nil, false
	}
	best.DelayMinutes = int(best.Start.Sub(earliest) / time.Minute)
	return best, true
}

// placeAt attempts an assignment at a fixed start time. On failure it names
// the constraint that blocked the most promising room, for error reporting.
func (e *Engine) placeAt(snap *Snapshot, req *request.SurgeryRequest, start time.Time) (*Placement, string) {
	end := start.Add(req.Duration())
	blocked := ConstraintNoCapableRoom
	for _, roomID := range snap.sortedRoomIDs() {
		room := snap.Rooms[roomID]
		if !room.Supports(req.ProcedureType) {
			continue
		}
		if !snap.roomFreeFor(roomID, start, end) {
			blocked = constraintAtLeast(blocked, ConstraintRoomOccupied)
			continue
		}
		equipmentIDs, ok := snap.pickEquipment(req.EquipmentRequired, start, end)
		if !ok {
			blocked = constraintAtLeast(blocked, ConstraintEquipmentSterilize)
			continue
		}
		taken := make(map[uuid.UUID]bool, 3)
		surgeonID, ok := snap.pickStaffByRole(inventory.RoleSurgeon, req.RequiredSpecialization, start, end, taken)
		if !ok {
			blocked = constraintAtLeast(blocked, ConstraintStaffUnavailable)
			continue
		}
		taken[surgeonID] = true
		anesthesiologistID, ok := snap.pickStaffByRole(inventory.RoleAnesthesiologist, "", start, end, taken)
		if !ok {
			blocked = constraintAtLeast(blocked, ConstraintStaffUnavailable)
			continue
		}
		taken[anesthesiologistID] = true
		nurseID, ok := snap.pickStaffByRole(inventory.RoleNurse, "", start, end, taken)
		if !ok {
			blocked = constraintAtLeast(blocked, ConstraintStaffUnavailable)
			continue
		}
		return &Placement{
			Request:            req,
			RoomID:             roomID,
			SurgeonID:          surgeonID,
			AnesthesiologistID: anesthesiologistID,
			NurseIDs:           []uuid.UUID{nurseID},
			EquipmentIDs:       equipmentIDs,
			Start:              start,
			End:                end,
		}, ""
	}
	return nil, blocked
}

// constraintAtLeast keeps the most specific failure seen across rooms.
// A staff or equipment failure means a capable, free room existed, which is
// more informative than "room occupied".
func constraintAtLeast(current, next string) string {
	rank := map[string]int{
		ConstraintNoCapableRoom:      0,
		ConstraintRoomOccupied:       1,
		ConstraintEquipmentSterilize: 2,
		ConstraintStaffUnavailable:   3,
	}
	if rank[next] > rank[current] {
		return next
	}
	return current
}

// cost is the weighted soft objective: minutes of patient wait, then room
// day-load, then summed staff day-load of the chosen team.
func (e *Engine) cost(snap *Snapshot, p *Placement) float64 {
	waitMin := float64(p.Start.Sub(snap.Now) / time.Minute)
	roomMin := float64(snap.roomDayMinutes(p.RoomID, p.Start))
	staffMin := float64(snap.staffDayMinutes(p.SurgeonID, p.Start) +
		snap.staffDayMinutes(p.AnesthesiologistID, p.Start))
	for _, id := range p.NurseIDs {
		staffMin += float64(snap.staffDayMinutes(id, p.Start))
	}
	return e.w.Wait*waitMin + e.w.RoomBalance*roomMin + e.w.StaffBalance*staffMin
}

// cheaperTie breaks equal-cost candidates by lowest room ID, then lowest
// surgeon ID.
func cheaperTie(a, b *Placement) bool {
	if a.RoomID != b.RoomID {
		return a.RoomID.String() < b.RoomID.String()
	}
	return a.SurgeonID.String() < b.SurgeonID.String()
}

// score computes the 0-100 optimality heuristic: a penalty per booking
// committed later than its earliest feasible start, and a penalty per room
// whose booked time exceeds the least-loaded room by more than the
// imbalance threshold. Both terms are functions of the snapshot alone, so a
// pass that places nothing leaves the score unchanged.
func (e *Engine) score(snap *Snapshot) int {
	late := 0
	for _, b := range snap.bookings {
		if b.delayMinutes > 0 {
			late++
		}
	}
	perRoom := make(map[uuid.UUID]time.Duration, len(snap.Rooms))
	for id := range snap.Rooms {
		perRoom[id] = 0
	}
	for _, b := range snap.bookings {
		perRoom[b.RoomID] += b.End.Sub(b.Start)
	}
	var minLoad time.Duration
	first := true
	for _, load := range perRoom {
		if first || load < minLoad {
			minLoad = load
			first = false
		}
	}
	breaches := 0
	for _, load := range perRoom {
		if load-minLoad > e.w.ImbalanceThreshold {
			breaches++
		}
	}
	score := 100 - int(e.w.LatePenalty)*late - int(e.w.ImbalancePenalty)*breaches
	if score < 0 {
		score = 0
	}
	return score
}
