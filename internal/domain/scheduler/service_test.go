package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/orsched/orsched/internal/domain/audit"
	"github.com/orsched/orsched/internal/domain/inventory"
	"github.com/orsched/orsched/internal/domain/request"
	"github.com/orsched/orsched/internal/domain/schedule"
	"github.com/orsched/orsched/internal/platform/cache"
)

type memRequests struct {
	items map[uuid.UUID]*request.SurgeryRequest
}

func (m *memRequests) Create(_ context.Context, r *request.SurgeryRequest) error {
	r.ID = uuid.New()
	m.items[r.ID] = r
	return nil
}

func (m *memRequests) GetByID(_ context.Context, id uuid.UUID) (*request.SurgeryRequest, error) {
	r, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return r, nil
}

func (m *memRequests) Update(_ context.Context, r *request.SurgeryRequest) error {
	m.items[r.ID] = r
	return nil
}

func (m *memRequests) UpdateStatus(_ context.Context, id uuid.UUID, status request.Status) error {
	r, ok := m.items[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	r.Status = status
	return nil
}

func (m *memRequests) List(_ context.Context, hospitalID uuid.UUID, status request.Status, limit, offset int) ([]*request.SurgeryRequest, int, error) {
	items, err := m.ListByStatuses(context.Background(), hospitalID, status)
	return items, len(items), err
}

func (m *memRequests) ListByStatuses(_ context.Context, hospitalID uuid.UUID, statuses ...request.Status) ([]*request.SurgeryRequest, error) {
	var out []*request.SurgeryRequest
	for _, r := range m.items {
		if r.HospitalID != hospitalID {
			continue
		}
		for _, s := range statuses {
			if r.Status == s {
				out = append(out, r)
				break
			}
		}
	}
	return out, nil
}

type memEntries struct {
	items map[uuid.UUID]*schedule.Entry
}

func (m *memEntries) Create(_ context.Context, e *schedule.Entry) error {
	e.ID = uuid.New()
	m.items[e.ID] = e
	return nil
}

func (m *memEntries) GetByID(_ context.Context, id uuid.UUID) (*schedule.Entry, error) {
	e, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return e, nil
}

func (m *memEntries) UpdateStatus(_ context.Context, id uuid.UUID, status schedule.EntryStatus) error {
	e, ok := m.items[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	e.Status = status
	return nil
}

func (m *memEntries) UpdateWindow(_ context.Context, id uuid.UUID, start, end time.Time) error {
	e, ok := m.items[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	e.StartTime = start
	e.EndTime = end
	return nil
}

func (m *memEntries) ActiveByHospital(_ context.Context, hospitalID uuid.UUID) ([]*schedule.Entry, error) {
	var out []*schedule.Entry
	for _, e := range m.items {
		if e.HospitalID == hospitalID && e.Active() {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memEntries) ListByDateRange(_ context.Context, hospitalID uuid.UUID, from, to time.Time) ([]*schedule.Entry, error) {
	var out []*schedule.Entry
	for _, e := range m.items {
		if e.HospitalID == hospitalID && e.StartTime.Before(to) && from.Before(e.EndTime) {
			out = append(out, e)
		}
	}
	return out, nil
}

type memRooms struct{ items []*inventory.OperatingRoom }

func (m *memRooms) Create(_ context.Context, r *inventory.OperatingRoom) error { return nil }
func (m *memRooms) GetByID(_ context.Context, id uuid.UUID) (*inventory.OperatingRoom, error) {
	for _, r := range m.items {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("not found")
}
func (m *memRooms) Update(_ context.Context, r *inventory.OperatingRoom) error { return nil }
func (m *memRooms) Delete(_ context.Context, id uuid.UUID) error               { return nil }
func (m *memRooms) ListByHospital(_ context.Context, hospitalID uuid.UUID, limit, offset int) ([]*inventory.OperatingRoom, int, error) {
	return m.items, len(m.items), nil
}
func (m *memRooms) AllByHospital(_ context.Context, hospitalID uuid.UUID) ([]*inventory.OperatingRoom, error) {
	return m.items, nil
}

type memStaff struct{ items []*inventory.Staff }

func (m *memStaff) Create(_ context.Context, s *inventory.Staff) error { return nil }
func (m *memStaff) GetByID(_ context.Context, id uuid.UUID) (*inventory.Staff, error) {
	for _, s := range m.items {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("not found")
}
func (m *memStaff) Update(_ context.Context, s *inventory.Staff) error { return nil }
func (m *memStaff) Delete(_ context.Context, id uuid.UUID) error       { return nil }
func (m *memStaff) ListByHospital(_ context.Context, hospitalID uuid.UUID, limit, offset int) ([]*inventory.Staff, int, error) {
	return m.items, len(m.items), nil
}
func (m *memStaff) AllByHospital(_ context.Context, hospitalID uuid.UUID) ([]*inventory.Staff, error) {
	return m.items, nil
}

type memEquipment struct{ items []*inventory.Equipment }

func (m *memEquipment) Create(_ context.Context, e *inventory.Equipment) error { return nil }
func (m *memEquipment) GetByID(_ context.Context, id uuid.UUID) (*inventory.Equipment, error) {
	for _, e := range m.items {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, fmt.Errorf("not found")
}
func (m *memEquipment) Update(_ context.Context, e *inventory.Equipment) error { return nil }
func (m *memEquipment) Delete(_ context.Context, id uuid.UUID) error           { return nil }
func (m *memEquipment) ListByHospital(_ context.Context, hospitalID uuid.UUID, limit, offset int) ([]*inventory.Equipment, int, error) {
	return m.items, len(m.items), nil
}
func (m *memEquipment) AllByHospital(_ context.Context, hospitalID uuid.UUID) ([]*inventory.Equipment, error) {
	return m.items, nil
}

type recorder struct{ events []audit.Event }

func (r *recorder) Record(_ context.Context, e audit.Event) { r.events = append(r.events, e) }

func (r *recorder) byAction(action audit.Action) []audit.Event {
	var out []audit.Event
	for _, e := range r.events {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	svc       *Service
	requests  *memRequests
	entries   *memEntries
	rooms     *memRooms
	staff     *memStaff
	equipment *memEquipment
	rec       *recorder
}

func newFixture(rooms []*inventory.OperatingRoom, staff []*inventory.Staff, equipment []*inventory.Equipment) *fixture {
	f := &fixture{
		requests:  &memRequests{items: make(map[uuid.UUID]*request.SurgeryRequest)},
		entries:   &memEntries{items: make(map[uuid.UUID]*schedule.Entry)},
		rooms:     &memRooms{items: rooms},
		staff:     &memStaff{items: staff},
		equipment: &memEquipment{items: equipment},
		rec:       &recorder{},
	}
	f.svc = NewService(f.requests, f.entries, f.rooms, f.staff, f.equipment, f.rec, cache.NewMemoryCache(), DefaultWeights())
	f.svc.now = testNow
	return f
}

func (f *fixture) addApproved(r *request.SurgeryRequest) *request.SurgeryRequest {
	r.Status = request.StatusApproved
	f.requests.items[r.ID] = r
	return r
}

func TestRun_SchedulesApprovedRequest(t *testing.T) {
	now := testNow()
	f := newFixture([]*inventory.OperatingRoom{mkRoom("OR-1", "CABG")}, cardiacTeam(),
		[]*inventory.Equipment{mkEquipment("heart_lung_machine", 4)})
	req := f.addApproved(mkCABG(request.PriorityNormal, 90, now.Add(-time.Hour)))
	req.EquipmentRequired = []string{"heart_lung_machine"}

	report, err := f.svc.Run(context.Background(), testHospitalID, "scheduler-bot")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.ScheduledCount != 1 || len(report.Conflicts) != 0 {
		t.Fatalf("expected clean single placement, got %+v", report)
	}
	if f.requests.items[req.ID].Status != request.StatusScheduled {
		t.Errorf("request not marked scheduled: %s", f.requests.items[req.ID].Status)
	}
	if len(f.entries.items) != 1 {
		t.Fatalf("expected 1 persisted entry, got %d", len(f.entries.items))
	}
	entry := report.Scheduled[0]
	if !entry.StartTime.Equal(now) {
		t.Errorf("expected immediate start, got %v", entry.StartTime)
	}

	// Committing a slot must not start a sterilization cycle; the pump sits
	// untouched until the surgery actually runs.
	pump := f.equipment.items[0]
	if pump.SterileAt != nil {
		t.Errorf("sterilization deadline set at commit time: %v", pump.SterileAt)
	}

	if len(f.rec.byAction(audit.ActionScheduleCommit)) != 1 {
		t.Error("expected a commit audit event")
	}
	if len(f.rec.byAction(audit.ActionSchedulerRun)) != 1 {
		t.Error("expected a run audit event")
	}
}

func TestComplete_StartsSterilizationCycle(t *testing.T) {
	now := testNow()
	f := newFixture([]*inventory.OperatingRoom{mkRoom("OR-1", "CABG")}, cardiacTeam(),
		[]*inventory.Equipment{mkEquipment("heart_lung_machine", 4)})
	req := f.addApproved(mkCABG(request.PriorityNormal, 90, now.Add(-time.Hour)))
	req.EquipmentRequired = []string{"heart_lung_machine"}
	if _, err := f.svc.Run(context.Background(), testHospitalID, "scheduler-bot"); err != nil {
		t.Fatalf("setup run failed: %v", err)
	}
	var entryID uuid.UUID
	for id := range f.entries.items {
		entryID = id
	}

	entry, err := f.svc.Complete(context.Background(), entryID, "charge-nurse")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Status != schedule.EntryCompleted {
		t.Errorf("expected completed entry, got %s", entry.Status)
	}
	if f.requests.items[req.ID].Status != request.StatusCompleted {
		t.Errorf("request must follow the entry to completed, got %s", f.requests.items[req.ID].Status)
	}
	// Sterilization starts when the surgery ends, not when it was booked.
	pump := f.equipment.items[0]
	if pump.SterileAt == nil || !pump.SterileAt.Equal(entry.EndTime.Add(4*time.Hour)) {
		t.Errorf("sterilization deadline not set from the surgery end: %v", pump.SterileAt)
	}
	if len(f.rec.byAction(audit.ActionScheduleComplete)) != 1 {
		t.Error("expected a completion audit event")
	}

	if _, err := f.svc.Complete(context.Background(), entryID, "charge-nurse"); err == nil {
		t.Error("expected error completing a non-active entry")
	}
}

func TestCancel_LeavesEquipmentSterile(t *testing.T) {
	now := testNow()
	f := newFixture([]*inventory.OperatingRoom{mkRoom("OR-1", "CABG")}, cardiacTeam(),
		[]*inventory.Equipment{mkEquipment("heart_lung_machine", 4)})
	req := f.addApproved(mkCABG(request.PriorityNormal, 90, now.Add(-time.Hour)))
	req.EquipmentRequired = []string{"heart_lung_machine"}
	if _, err := f.svc.Run(context.Background(), testHospitalID, "scheduler-bot"); err != nil {
		t.Fatalf("setup run failed: %v", err)
	}
	var entryID uuid.UUID
	for id := range f.entries.items {
		entryID = id
	}

	entry, err := f.svc.Cancel(context.Background(), entryID, "charge-nurse", "patient unwell")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Status != schedule.EntryCancelled {
		t.Errorf("expected cancelled entry, got %s", entry.Status)
	}
	if f.requests.items[req.ID].Status != request.StatusCancelled {
		t.Errorf("request must follow the entry to cancelled, got %s", f.requests.items[req.ID].Status)
	}
	// The pump was never used; no cycle to run.
	if f.equipment.items[0].SterileAt != nil {
		t.Errorf("cancellation must not start a sterilization cycle: %v", f.equipment.items[0].SterileAt)
	}
	events := f.rec.byAction(audit.ActionScheduleCancel)
	if len(events) != 1 || events[0].Detail != "patient unwell" {
		t.Errorf("expected a cancellation audit event with the reason, got %v", events)
	}
}

func TestRun_EscalatesLongWaitingRequests(t *testing.T) {
	now := testNow()
	f := newFixture([]*inventory.OperatingRoom{mkRoom("OR-1", "CABG")}, cardiacTeam(), nil)
	stale := f.addApproved(mkCABG(request.PriorityNormal, 60, now.Add(-72*time.Hour)))
	fresh := f.addApproved(mkCABG(request.PriorityNormal, 60, now.Add(-time.Hour)))

	if _, err := f.svc.Run(context.Background(), testHospitalID, "scheduler-bot"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.requests.items[stale.ID].Escalated {
		t.Error("request waiting past the threshold must be escalated")
	}
	if f.requests.items[fresh.ID].Escalated {
		t.Error("fresh request must not be escalated")
	}
}

func TestRun_RejectedWhileInFlight(t *testing.T) {
	f := newFixture([]*inventory.OperatingRoom{mkRoom("OR-1", "CABG")}, cardiacTeam(), nil)

	if !f.svc.locks.TryLock(testHospitalID) {
		t.Fatal("could not take lock")
	}
	defer f.svc.locks.Unlock(testHospitalID)

	_, err := f.svc.Run(context.Background(), testHospitalID, "scheduler-bot")
	if !errors.Is(err, ErrRunInFlight) {
		t.Fatalf("expected ErrRunInFlight, got %v", err)
	}
}

func TestEmergency_DisplacementFlow(t *testing.T) {
	now := testNow()
	room := mkRoom("OR-1", "CABG")
	team := cardiacTeam()
	f := newFixture([]*inventory.OperatingRoom{room}, team, nil)

	// Schedule a normal surgery occupying the only room right now.
	normal := f.addApproved(mkCABG(request.PriorityNormal, 120, now.Add(-3*time.Hour)))
	if _, err := f.svc.Run(context.Background(), testHospitalID, "scheduler-bot"); err != nil {
		t.Fatalf("setup run failed: %v", err)
	}
	if f.requests.items[normal.ID].Status != request.StatusScheduled {
		t.Fatal("setup: normal request not scheduled")
	}

	emergency := f.addApproved(mkCABG(request.PriorityEmergency, 60, now))
	report, err := f.svc.Emergency(context.Background(), testHospitalID, emergency.ID, "dr-oncall")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.requests.items[emergency.ID].Status != request.StatusScheduled {
		t.Error("emergency request must end scheduled")
	}
	if f.requests.items[normal.ID].Status != request.StatusApproved {
		t.Errorf("bumped request must return to approved, got %s", f.requests.items[normal.ID].Status)
	}
	if len(report.DisplacedRequestIDs) != 1 || report.DisplacedRequestIDs[0] != normal.ID {
		t.Fatalf("expected the normal request displaced, got %v", report.DisplacedRequestIDs)
	}
	if !report.Entry.StartTime.Equal(now) {
		t.Errorf("emergency must start immediately, got %v", report.Entry.StartTime)
	}

	bumpedCount := 0
	for _, e := range f.entries.items {
		if e.Status == schedule.EntryBumped {
			bumpedCount++
		}
	}
	if bumpedCount != 1 {
		t.Errorf("expected 1 bumped entry, got %d", bumpedCount)
	}
	if len(f.rec.byAction(audit.ActionScheduleDisplace)) != 1 {
		t.Error("expected a displacement audit event")
	}
	if len(f.rec.byAction(audit.ActionSchedulerEmergency)) != 1 {
		t.Error("expected an emergency audit event")
	}
}

func TestEmergency_RejectsNonEmergencyRequest(t *testing.T) {
	now := testNow()
	f := newFixture([]*inventory.OperatingRoom{mkRoom("OR-1", "CABG")}, cardiacTeam(), nil)
	normal := f.addApproved(mkCABG(request.PriorityNormal, 60, now))

	if _, err := f.svc.Emergency(context.Background(), testHospitalID, normal.ID, "dr-oncall"); err == nil {
		t.Fatal("expected error for non-emergency request")
	}
}

func TestEmergency_InfeasibleWithoutCapableRoom(t *testing.T) {
	now := testNow()
	f := newFixture([]*inventory.OperatingRoom{mkRoom("OR-1", "appendectomy")}, cardiacTeam(), nil)
	emergency := f.addApproved(mkCABG(request.PriorityEmergency, 60, now))

	_, err := f.svc.Emergency(context.Background(), testHospitalID, emergency.ID, "dr-oncall")
	var infeasible *InfeasibleError
	if !errors.As(err, &infeasible) {
		t.Fatalf("expected fatal infeasible error, got %v", err)
	}
}

func TestPriorityQueue_RankedView(t *testing.T) {
	now := testNow()
	f := newFixture([]*inventory.OperatingRoom{mkRoom("OR-1", "CABG")}, cardiacTeam(), nil)
	normal := f.addApproved(mkCABG(request.PriorityNormal, 60, now.Add(-5*time.Hour)))
	urgent := f.addApproved(mkCABG(request.PriorityUrgent, 60, now.Add(-time.Hour)))
	deadline := now.Add(-time.Minute)
	normal.LatestAllowedTime = &deadline

	items, err := f.svc.PriorityQueue(context.Background(), testHospitalID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 queue items, got %d", len(items))
	}
	if items[0].Request.ID != urgent.ID {
		t.Error("urgent request must rank first")
	}
	if items[1].Request.ID != normal.ID {
		t.Error("normal request must rank second")
	}
	if !items[1].Overdue || !items[1].Escalated {
		t.Error("request past its deadline must be overdue and escalated")
	}
	if items[0].Position != 1 || items[1].Position != 2 {
		t.Error("positions must be 1-based and sequential")
	}
}

func TestReschedule_MovesEntry(t *testing.T) {
	now := testNow()
	f := newFixture([]*inventory.OperatingRoom{mkRoom("OR-1", "CABG")}, cardiacTeam(), nil)
	req := f.addApproved(mkCABG(request.PriorityNormal, 60, now.Add(-time.Hour)))
	if _, err := f.svc.Run(context.Background(), testHospitalID, "scheduler-bot"); err != nil {
		t.Fatalf("setup run failed: %v", err)
	}
	var entryID uuid.UUID
	for id := range f.entries.items {
		entryID = id
	}
	_ = req

	newStart := now.Add(4 * time.Hour)
	entry, err := f.svc.Reschedule(context.Background(), entryID, newStart, "charge-nurse")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !entry.StartTime.Equal(newStart) || !entry.EndTime.Equal(newStart.Add(time.Hour)) {
		t.Errorf("window not moved: %v - %v", entry.StartTime, entry.EndTime)
	}
	if len(f.rec.byAction(audit.ActionScheduleReschedule)) != 1 {
		t.Error("expected a reschedule audit event")
	}
}

func TestReschedule_RoomOccupiedViolation(t *testing.T) {
	now := testNow()
	room := mkRoom("OR-1", "CABG")
	teamA, teamB := cardiacTeam(), cardiacTeam()
	f := newFixture([]*inventory.OperatingRoom{room}, append(teamA, teamB...), nil)

	// One surgery now, another later, same room.
	first := f.addApproved(mkCABG(request.PriorityNormal, 60, now.Add(-2*time.Hour)))
	if _, err := f.svc.Run(context.Background(), testHospitalID, "scheduler-bot"); err != nil {
		t.Fatalf("setup run failed: %v", err)
	}
	second := f.addApproved(mkCABG(request.PriorityNormal, 60, now.Add(-time.Hour)))
	if _, err := f.svc.Run(context.Background(), testHospitalID, "scheduler-bot"); err != nil {
		t.Fatalf("setup run failed: %v", err)
	}
	_, _ = first, second

	var firstEntry, secondEntry *schedule.Entry
	for _, e := range f.entries.items {
		if e.RequestID == first.ID {
			firstEntry = e
		}
		if e.RequestID == second.ID {
			secondEntry = e
		}
	}
	if firstEntry == nil || secondEntry == nil {
		t.Fatal("setup: expected both entries persisted")
	}

	// Moving the second entry onto the first one's window must fail.
	_, err := f.svc.Reschedule(context.Background(), secondEntry.ID, firstEntry.StartTime, "charge-nurse")
	var violation *ConstraintViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected constraint violation, got %v", err)
	}
	if violation.Constraint != ConstraintRoomOccupied {
		t.Errorf("expected %s, got %s", ConstraintRoomOccupied, violation.Constraint)
	}
}
