package scheduler

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/orsched/orsched/internal/domain/request"
)

func reqWith(priority request.Priority, createdAt time.Time) *request.SurgeryRequest {
	return &request.SurgeryRequest{
		ID:        uuid.New(),
		Priority:  priority,
		CreatedAt: createdAt,
	}
}

func TestRank_PriorityClassFirst(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	normal := reqWith(request.PriorityNormal, now.Add(-10*time.Hour))
	urgent := reqWith(request.PriorityUrgent, now.Add(-time.Minute))
	emergency := reqWith(request.PriorityEmergency, now)

	ranked := Rank([]*request.SurgeryRequest{normal, urgent, emergency}, now)
	if ranked[0] != emergency || ranked[1] != urgent || ranked[2] != normal {
		t.Fatalf("wrong order: %v, %v, %v", ranked[0].Priority, ranked[1].Priority, ranked[2].Priority)
	}
}

func TestRank_LongerWaitFirstWithinClass(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	older := reqWith(request.PriorityNormal, now.Add(-3*time.Hour))
	newer := reqWith(request.PriorityNormal, now.Add(-time.Hour))

	ranked := Rank([]*request.SurgeryRequest{newer, older}, now)
	if ranked[0] != older {
		t.Fatal("expected the longer-waiting request first")
	}
}

func TestRank_TieBreakByID(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	created := now.Add(-time.Hour)
	a := reqWith(request.PriorityNormal, created)
	b := reqWith(request.PriorityNormal, created)

	ranked := Rank([]*request.SurgeryRequest{a, b}, now)
	if ranked[0].ID.String() > ranked[1].ID.String() {
		t.Fatal("expected ascending ID order on full tie")
	}
}

func TestRank_StableAcrossCalls(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	var requests []*request.SurgeryRequest
	for i := 0; i < 20; i++ {
		priority := request.PriorityNormal
		if i%3 == 0 {
			priority = request.PriorityUrgent
		}
		requests = append(requests, reqWith(priority, now.Add(-time.Duration(i%5)*time.Hour)))
	}

	first := Rank(requests, now)
	second := Rank(requests, now)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("order differs at position %d across identical calls", i)
		}
	}
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	a := reqWith(request.PriorityNormal, now.Add(-time.Hour))
	b := reqWith(request.PriorityEmergency, now)
	input := []*request.SurgeryRequest{a, b}

	Rank(input, now)
	if input[0] != a || input[1] != b {
		t.Fatal("input slice was reordered")
	}
}

func TestRank_EmptyInput(t *testing.T) {
	if got := Rank(nil, time.Now()); len(got) != 0 {
		t.Fatalf("expected empty result, got %d", len(got))
	}
}
