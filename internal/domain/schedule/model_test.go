package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestOverlaps(t *testing.T) {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	e := &Entry{StartTime: base, EndTime: base.Add(time.Hour)}

	cases := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"inside", base.Add(10 * time.Minute), base.Add(20 * time.Minute), true},
		{"covering", base.Add(-time.Hour), base.Add(2 * time.Hour), true},
		{"leading edge", base.Add(-30 * time.Minute), base.Add(30 * time.Minute), true},
		{"trailing edge", base.Add(30 * time.Minute), base.Add(90 * time.Minute), true},
		{"back to back before", base.Add(-time.Hour), base, false},
		{"back to back after", base.Add(time.Hour), base.Add(2 * time.Hour), false},
		{"disjoint", base.Add(3 * time.Hour), base.Add(4 * time.Hour), false},
	}
	for _, tc := range cases {
		if got := e.Overlaps(tc.start, tc.end); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestStaffIDs(t *testing.T) {
	surgeon, anesthesiologist := uuid.New(), uuid.New()
	nurse1, nurse2 := uuid.New(), uuid.New()
	e := &Entry{
		SurgeonID:          surgeon,
		AnesthesiologistID: anesthesiologist,
		NurseIDs:           []uuid.UUID{nurse1, nurse2},
	}
	ids := e.StaffIDs()
	if len(ids) != 4 {
		t.Fatalf("expected 4 staff ids, got %d", len(ids))
	}
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	for _, want := range []uuid.UUID{surgeon, anesthesiologist, nurse1, nurse2} {
		if !seen[want] {
			t.Errorf("missing staff id %s", want)
		}
	}
}

func TestActive(t *testing.T) {
	for status, want := range map[EntryStatus]bool{
		EntryScheduled: true,
		EntryCompleted: false,
		EntryCancelled: false,
		EntryBumped:    false,
	} {
		e := &Entry{Status: status}
		if got := e.Active(); got != want {
			t.Errorf("status %s: got %v, want %v", status, got, want)
		}
	}
}
