package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/orsched/orsched/internal/domain/audit"
	"github.com/orsched/orsched/internal/domain/inventory"
	"github.com/orsched/orsched/internal/domain/request"
	"github.com/orsched/orsched/internal/domain/schedule"
	"github.com/orsched/orsched/internal/platform/cache"
	"github.com/orsched/orsched/internal/platform/metrics"
)

const queueCacheTTL = 30 * time.Second
const calendarCacheTTL = time.Minute

// Service runs the scheduling passes and owns every mutation of schedule
// entries and the occupancy fields they imply. It is the only writer of
// entry rows and equipment sterilization deadlines.
type Service struct {
	requests  request.Repository
	entries   schedule.Repository
	rooms     inventory.OperatingRoomRepository
	staff     inventory.StaffRepository
	equipment inventory.EquipmentRepository
	auditor   audit.Recorder
	views     cache.Cache
	engine    *Engine
	locks     *hospitalLocks

	// now is swappable for tests.
	now func() time.Time
}

func NewService(
	requests request.Repository,
	entries schedule.Repository,
	rooms inventory.OperatingRoomRepository,
	staff inventory.StaffRepository,
	equipment inventory.EquipmentRepository,
	auditor audit.Recorder,
	views cache.Cache,
	weights Weights,
) *Service {
	return &Service{
		requests:  requests,
		entries:   entries,
		rooms:     rooms,
		staff:     staff,
		equipment: equipment,
		auditor:   auditor,
		views:     views,
		engine:    NewEngine(weights),
		locks:     newHospitalLocks(),
		now:       time.Now,
	}
}

// RunReport is the outcome of a full scheduling pass.
type RunReport struct {
	ScheduledCount  int               `json:"scheduled_count"`
	OptimalityScore int               `json:"optimality_score"`
	Conflicts       []string          `json:"conflicts"`
	Scheduled       []*schedule.Entry `json:"scheduled_surgeries"`
}

// Run executes Priority Ranker + Scheduling Engine over every approved
// request for the hospital. A run already in flight for the same hospital
// yields ErrRunInFlight.
func (s *Service) Run(ctx context.Context, hospitalID uuid.UUID, actorID string) (*RunReport, error) {
	if !s.locks.TryLock(hospitalID) {
		metrics.RunRejections.WithLabelValues(hospitalID.String()).Inc()
		return nil, ErrRunInFlight
	}
	defer s.locks.Unlock(hospitalID)

	started := s.now()
	snap, err := s.loadSnapshot(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	approved, err := s.requests.ListByStatuses(ctx, hospitalID, request.StatusApproved)
	if err != nil {
		return nil, fmt.Errorf("load approved requests: %w", err)
	}
	if err := s.escalateStale(ctx, approved, snap.Now); err != nil {
		return nil, err
	}

	res := s.engine.Schedule(snap, Rank(approved, snap.Now))

	report := &RunReport{
		OptimalityScore: res.Score,
		Conflicts:       res.Conflicts,
	}
	for _, p := range res.Placements {
		entry, err := s.commitPlacement(ctx, hospitalID, p, actorID)
		if err != nil {
			return nil, err
		}
		report.Scheduled = append(report.Scheduled, entry)
	}
	report.ScheduledCount = len(report.Scheduled)

	s.auditor.Record(ctx, audit.Event{
		HospitalID: hospitalID,
		Action:     audit.ActionSchedulerRun,
		ActorID:    actorID,
		EntityType: "hospital",
		EntityID:   hospitalID,
		Detail: fmt.Sprintf("scheduled %d request(s), %d conflict(s), score %d",
			report.ScheduledCount, len(report.Conflicts), report.OptimalityScore),
	})

	label := hospitalID.String()
	metrics.RunsTotal.WithLabelValues(label).Inc()
	metrics.ScheduledTotal.WithLabelValues(label).Add(float64(report.ScheduledCount))
	metrics.ConflictsTotal.WithLabelValues(label).Add(float64(len(report.Conflicts)))
	metrics.OptimalityScore.WithLabelValues(label).Set(float64(report.OptimalityScore))
	metrics.RunDuration.WithLabelValues(label).Observe(s.now().Sub(started).Seconds())

	s.invalidateViews(ctx, hospitalID)
	log.Info().
		Str("hospital_id", label).
		Int("scheduled", report.ScheduledCount).
		Int("conflicts", len(report.Conflicts)).
		Int("score", report.OptimalityScore).
		Msg("scheduler run complete")
	return report, nil
}

// EmergencyReport is the outcome of an emergency override.
type EmergencyReport struct {
	Entry               *schedule.Entry   `json:"entry"`
	DisplacedRequestIDs []uuid.UUID       `json:"displaced_request_ids"`
	Rescheduled         []*schedule.Entry `json:"rescheduled"`
	Conflicts           []string          `json:"conflicts"`
}

// Emergency forces an immediate slot for an emergency request, bumping
// lower-priority entries as needed. A fatal *InfeasibleError means no
// displacement can help and the caller must escalate out of band.
func (s *Service) Emergency(ctx context.Context, hospitalID, requestID uuid.UUID, actorID string) (*EmergencyReport, error) {
	if !s.locks.TryLock(hospitalID) {
		metrics.RunRejections.WithLabelValues(hospitalID.String()).Inc()
		return nil, ErrRunInFlight
	}
	defer s.locks.Unlock(hospitalID)

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("load request: %w", err)
	}
	if req.HospitalID != hospitalID {
		return nil, fmt.Errorf("request %s does not belong to hospital %s", requestID, hospitalID)
	}
	if req.Priority != request.PriorityEmergency {
		return nil, fmt.Errorf("request %s is not an emergency", requestID)
	}
	if req.Status != request.StatusApproved {
		return nil, fmt.Errorf("request %s is %s, must be approved", requestID, req.Status)
	}

	snap, err := s.loadSnapshot(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	scheduledReqs, err := s.requests.ListByStatuses(ctx, hospitalID, request.StatusScheduled)
	if err != nil {
		return nil, fmt.Errorf("load scheduled requests: %w", err)
	}
	scheduledByID := make(map[uuid.UUID]*request.SurgeryRequest, len(scheduledReqs))
	for _, r := range scheduledReqs {
		scheduledByID[r.ID] = r
	}

	outcome, err := s.engine.HandleEmergency(snap, req, scheduledByID)
	if err != nil {
		return nil, err
	}

	// Persist displacements first so bumped requests are back in the queue
	// before their replacements are written.
	for i, entryID := range outcome.DisplacedEntries {
		bumpedReqID := outcome.DisplacedRequests[i]
		before, err := s.entries.GetByID(ctx, entryID)
		if err != nil {
			return nil, fmt.Errorf("load displaced entry: %w", err)
		}
		beforeState := audit.Snapshot(before)
		freedWindow := displacementWindow(before.StartTime, before.EndTime)
		if err := s.entries.UpdateStatus(ctx, entryID, schedule.EntryBumped); err != nil {
			return nil, fmt.Errorf("bump entry: %w", err)
		}
		if err := s.requests.UpdateStatus(ctx, bumpedReqID, request.StatusApproved); err != nil {
			return nil, fmt.Errorf("revert bumped request: %w", err)
		}
		s.auditor.Record(ctx, audit.Event{
			HospitalID: hospitalID,
			Action:     audit.ActionScheduleDisplace,
			ActorID:    actorID,
			EntityType: "schedule_entry",
			EntityID:   entryID,
			Before:     beforeState,
			Detail:     fmt.Sprintf("displaced by emergency request %s, freed %s", requestID, freedWindow),
		})
		metrics.DisplacementsTotal.WithLabelValues(hospitalID.String()).Inc()
	}

	entry, err := s.commitPlacement(ctx, hospitalID, outcome.Placement, actorID)
	if err != nil {
		return nil, err
	}

	report := &EmergencyReport{
		Entry:               entry,
		DisplacedRequestIDs: outcome.DisplacedRequests,
		Conflicts:           outcome.Conflicts,
	}
	for _, p := range outcome.Replanned {
		replacement, err := s.commitPlacement(ctx, hospitalID, p, actorID)
		if err != nil {
			return nil, err
		}
		report.Rescheduled = append(report.Rescheduled, replacement)
	}

	s.auditor.Record(ctx, audit.Event{
		HospitalID: hospitalID,
		Action:     audit.ActionSchedulerEmergency,
		ActorID:    actorID,
		EntityType: "surgery_request",
		EntityID:   requestID,
		After:      audit.Snapshot(entry),
		Detail: fmt.Sprintf("emergency placed, %d entr(ies) displaced, %d rescheduled",
			len(outcome.DisplacedEntries), len(report.Rescheduled)),
	})
	s.invalidateViews(ctx, hospitalID)
	log.Info().
		Str("hospital_id", hospitalID.String()).
		Str("request_id", requestID.String()).
		Int("displaced", len(outcome.DisplacedEntries)).
		Msg("emergency override complete")
	return report, nil
}

// QueueItem is one row of the priority-queue view.
type QueueItem struct {
	Position       int                     `json:"position"`
	Request        *request.SurgeryRequest `json:"request"`
	WaitingMinutes int                     `json:"waiting_minutes"`
	Overdue        bool                    `json:"overdue"`
	Escalated      bool                    `json:"escalated"`
}

// PriorityQueue returns the ranked view of approved, not yet scheduled
// requests. The view is derived, cached briefly, and recomputed on demand.
func (s *Service) PriorityQueue(ctx context.Context, hospitalID uuid.UUID) ([]QueueItem, error) {
	key := cache.QueueKey(hospitalID.String())
	if raw, err := s.views.Get(ctx, key); err == nil {
		var cached []QueueItem
		if json.Unmarshal(raw, &cached) == nil {
			return cached, nil
		}
	}

	approved, err := s.requests.ListByStatuses(ctx, hospitalID, request.StatusApproved)
	if err != nil {
		return nil, fmt.Errorf("load approved requests: %w", err)
	}
	now := s.now()
	ranked := Rank(approved, now)
	items := make([]QueueItem, 0, len(ranked))
	for i, r := range ranked {
		overdue := r.IsOverdue(now)
		items = append(items, QueueItem{
			Position:       i + 1,
			Request:        r,
			WaitingMinutes: int(r.WaitingTime(now) / time.Minute),
			Overdue:        overdue,
			Escalated:      r.Escalated || overdue,
		})
	}
	if raw, err := json.Marshal(items); err == nil {
		_ = s.views.Set(ctx, key, raw, queueCacheTTL)
	}
	return items, nil
}

// CalendarDay is one day of the schedule calendar.
type CalendarDay struct {
	Date    string            `json:"date"`
	Entries []*schedule.Entry `json:"entries"`
}

// Day returns the entries whose window touches the given calendar day.
func (s *Service) Day(ctx context.Context, hospitalID uuid.UUID, date time.Time) (*CalendarDay, error) {
	day := date.UTC().Truncate(24 * time.Hour)
	key := cache.CalendarKey(hospitalID.String(), "day", dayKey(day))
	if raw, err := s.views.Get(ctx, key); err == nil {
		var cached CalendarDay
		if json.Unmarshal(raw, &cached) == nil {
			return &cached, nil
		}
	}
	entries, err := s.entries.ListByDateRange(ctx, hospitalID, day, day.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("load calendar day: %w", err)
	}
	view := &CalendarDay{Date: dayKey(day), Entries: entries}
	if raw, err := json.Marshal(view); err == nil {
		_ = s.views.Set(ctx, key, raw, calendarCacheTTL)
	}
	return view, nil
}

// Week returns seven consecutive calendar days starting at start.
func (s *Service) Week(ctx context.Context, hospitalID uuid.UUID, start time.Time) ([]*CalendarDay, error) {
	first := start.UTC().Truncate(24 * time.Hour)
	key := cache.CalendarKey(hospitalID.String(), "week", dayKey(first))
	if raw, err := s.views.Get(ctx, key); err == nil {
		var cached []*CalendarDay
		if json.Unmarshal(raw, &cached) == nil {
			return cached, nil
		}
	}
	entries, err := s.entries.ListByDateRange(ctx, hospitalID, first, first.Add(7*24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("load calendar week: %w", err)
	}
	days := make([]*CalendarDay, 7)
	byDay := make(map[string]*CalendarDay, 7)
	for i := range days {
		d := first.Add(time.Duration(i) * 24 * time.Hour)
		days[i] = &CalendarDay{Date: dayKey(d)}
		byDay[days[i].Date] = days[i]
	}
	for _, e := range entries {
		if d, ok := byDay[dayKey(e.StartTime)]; ok {
			d.Entries = append(d.Entries, e)
		}
	}
	if raw, err := json.Marshal(days); err == nil {
		_ = s.views.Set(ctx, key, raw, calendarCacheTTL)
	}
	return days, nil
}

// Reschedule moves one entry to a new start time after re-validating every
// hard constraint against the rest of the schedule. Violations come back as
// *ConstraintViolationError naming the specific constraint.
func (s *Service) Reschedule(ctx context.Context, entryID uuid.UUID, newStart time.Time, actorID string) (*schedule.Entry, error) {
	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("load entry: %w", err)
	}
	if !entry.Active() {
		return nil, fmt.Errorf("entry %s is %s, only scheduled entries can move", entryID, entry.Status)
	}

	hospitalID := entry.HospitalID
	if !s.locks.TryLock(hospitalID) {
		metrics.RunRejections.WithLabelValues(hospitalID.String()).Inc()
		return nil, ErrRunInFlight
	}
	defer s.locks.Unlock(hospitalID)

	snap, err := s.loadSnapshot(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	// The entry's own booking must not block its new slot.
	for _, b := range snap.bookings {
		if b.EntryID == entryID {
			snap.remove(b)
			break
		}
	}

	newEnd := newStart.Add(entry.Duration())
	if err := s.validateWindow(snap, entry, newStart, newEnd); err != nil {
		return nil, err
	}

	before := audit.Snapshot(entry)
	if err := s.entries.UpdateWindow(ctx, entryID, newStart, newEnd); err != nil {
		return nil, fmt.Errorf("update entry window: %w", err)
	}
	entry.StartTime = newStart
	entry.EndTime = newEnd

	s.auditor.Record(ctx, audit.Event{
		HospitalID: hospitalID,
		Action:     audit.ActionScheduleReschedule,
		ActorID:    actorID,
		EntityType: "schedule_entry",
		EntityID:   entryID,
		Before:     before,
		After:      audit.Snapshot(entry),
	})
	s.invalidateViews(ctx, hospitalID)
	return entry, nil
}

func (s *Service) validateWindow(snap *Snapshot, entry *schedule.Entry, start, end time.Time) error {
	if !snap.roomFreeFor(entry.RoomID, start, end) {
		return &ConstraintViolationError{EntryID: entry.ID, Constraint: ConstraintRoomOccupied}
	}
	for _, staffID := range entry.StaffIDs() {
		if !snap.staffFreeFor(staffID, start, end) {
			return &ConstraintViolationError{EntryID: entry.ID, Constraint: ConstraintStaffUnavailable}
		}
		if !snap.staffCanTake(staffID, start, end) {
			return &ConstraintViolationError{EntryID: entry.ID, Constraint: ConstraintStaffOverbooked}
		}
	}
	for _, equipmentID := range entry.EquipmentIDs {
		if !snap.equipmentFreeFor(equipmentID, start, end) {
			return &ConstraintViolationError{EntryID: entry.ID, Constraint: ConstraintEquipmentSterilize}
		}
	}
	return nil
}

// commitPlacement persists one engine placement: the entry row, the request
// status flip, and the audit record. Sterilization deadlines are not touched
// here; equipment only starts its cycle when the surgery completes.
func (s *Service) commitPlacement(ctx context.Context, hospitalID uuid.UUID, p *Placement, actorID string) (*schedule.Entry, error) {
	entry := &schedule.Entry{
		HospitalID:         hospitalID,
		RequestID:          p.Request.ID,
		RoomID:             p.RoomID,
		SurgeonID:          p.SurgeonID,
		AnesthesiologistID: p.AnesthesiologistID,
		NurseIDs:           p.NurseIDs,
		EquipmentIDs:       p.EquipmentIDs,
		StartTime:          p.Start,
		EndTime:            p.End,
		Priority:           p.Request.Priority,
		Status:             schedule.EntryScheduled,
		DelayMinutes:       p.DelayMinutes,
	}
	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("create schedule entry: %w", err)
	}
	if err := s.requests.UpdateStatus(ctx, p.Request.ID, request.StatusScheduled); err != nil {
		return nil, fmt.Errorf("mark request scheduled: %w", err)
	}
	s.auditor.Record(ctx, audit.Event{
		HospitalID: hospitalID,
		Action:     audit.ActionScheduleCommit,
		ActorID:    actorID,
		EntityType: "schedule_entry",
		EntityID:   entry.ID,
		After:      audit.Snapshot(entry),
	})
	return entry, nil
}

// Complete closes out a finished surgery: the entry and its request move to
// completed, and each piece of equipment used starts its sterilization cycle
// from the surgery's end time.
func (s *Service) Complete(ctx context.Context, entryID uuid.UUID, actorID string) (*schedule.Entry, error) {
	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("load entry: %w", err)
	}
	if !entry.Active() {
		return nil, fmt.Errorf("entry %s is %s, only scheduled entries can complete", entryID, entry.Status)
	}

	before := audit.Snapshot(entry)
	if err := s.entries.UpdateStatus(ctx, entryID, schedule.EntryCompleted); err != nil {
		return nil, fmt.Errorf("complete entry: %w", err)
	}
	if err := s.requests.UpdateStatus(ctx, entry.RequestID, request.StatusCompleted); err != nil {
		return nil, fmt.Errorf("complete request: %w", err)
	}
	if err := s.markSterilization(ctx, entry.EquipmentIDs, entry.EndTime); err != nil {
		return nil, err
	}
	entry.Status = schedule.EntryCompleted

	s.auditor.Record(ctx, audit.Event{
		HospitalID: entry.HospitalID,
		Action:     audit.ActionScheduleComplete,
		ActorID:    actorID,
		EntityType: "schedule_entry",
		EntityID:   entryID,
		Before:     before,
		After:      audit.Snapshot(entry),
	})
	s.invalidateViews(ctx, entry.HospitalID)
	return entry, nil
}

// Cancel withdraws a scheduled entry. The equipment was never used, so no
// sterilization deadline is recorded.
func (s *Service) Cancel(ctx context.Context, entryID uuid.UUID, actorID, reason string) (*schedule.Entry, error) {
	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("load entry: %w", err)
	}
	if !entry.Active() {
		return nil, fmt.Errorf("entry %s is %s, only scheduled entries can be cancelled", entryID, entry.Status)
	}

	before := audit.Snapshot(entry)
	if err := s.entries.UpdateStatus(ctx, entryID, schedule.EntryCancelled); err != nil {
		return nil, fmt.Errorf("cancel entry: %w", err)
	}
	if err := s.requests.UpdateStatus(ctx, entry.RequestID, request.StatusCancelled); err != nil {
		return nil, fmt.Errorf("cancel request: %w", err)
	}
	entry.Status = schedule.EntryCancelled

	s.auditor.Record(ctx, audit.Event{
		HospitalID: entry.HospitalID,
		Action:     audit.ActionScheduleCancel,
		ActorID:    actorID,
		EntityType: "schedule_entry",
		EntityID:   entryID,
		Before:     before,
		After:      audit.Snapshot(entry),
		Detail:     reason,
	})
	s.invalidateViews(ctx, entry.HospitalID)
	return entry, nil
}

// markSterilization pushes each used item's sterilization deadline to the
// surgery end plus its cycle length. Called only once a surgery has actually
// run; a scheduled entry implies nothing about the item's current state.
func (s *Service) markSterilization(ctx context.Context, equipmentIDs []uuid.UUID, end time.Time) error {
	for _, id := range equipmentIDs {
		item, err := s.equipment.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("load equipment: %w", err)
		}
		sterileAt := end.Add(item.SterilizationCycle())
		item.SterileAt = &sterileAt
		if err := s.equipment.Update(ctx, item); err != nil {
			return fmt.Errorf("update equipment sterilization: %w", err)
		}
	}
	return nil
}

// escalateStale flags approved requests that have waited past the configured
// threshold, or blown their latest-allowed time, so the queue view and its
// consumers can surface them. The flag is sticky once set.
func (s *Service) escalateStale(ctx context.Context, approved []*request.SurgeryRequest, now time.Time) error {
	threshold := s.engine.w.EscalateAfter
	for _, r := range approved {
		if r.Escalated {
			continue
		}
		if r.WaitingTime(now) < threshold && !r.IsOverdue(now) {
			continue
		}
		r.Escalated = true
		if err := s.requests.Update(ctx, r); err != nil {
			return fmt.Errorf("escalate request: %w", err)
		}
		log.Warn().
			Str("request_id", r.ID.String()).
			Str("priority", string(r.Priority)).
			Dur("waiting", r.WaitingTime(now)).
			Msg("surgery request escalated")
	}
	return nil
}

func (s *Service) loadSnapshot(ctx context.Context, hospitalID uuid.UUID) (*Snapshot, error) {
	rooms, err := s.rooms.AllByHospital(ctx, hospitalID)
	if err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}
	staff, err := s.staff.AllByHospital(ctx, hospitalID)
	if err != nil {
		return nil, fmt.Errorf("load staff: %w", err)
	}
	equipment, err := s.equipment.AllByHospital(ctx, hospitalID)
	if err != nil {
		return nil, fmt.Errorf("load equipment: %w", err)
	}
	entries, err := s.entries.ActiveByHospital(ctx, hospitalID)
	if err != nil {
		return nil, fmt.Errorf("load active entries: %w", err)
	}
	return NewSnapshot(s.now(), rooms, staff, equipment, entries), nil
}

func (s *Service) invalidateViews(ctx context.Context, hospitalID uuid.UUID) {
	if err := s.views.Clear(ctx, cache.HospitalPattern(hospitalID.String())); err != nil {
		log.Warn().Err(err).Str("hospital_id", hospitalID.String()).Msg("cache invalidation failed")
	}
}
