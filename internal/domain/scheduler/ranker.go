package scheduler

import (
	"sort"
	"time"

	"github.com/orsched/orsched/internal/domain/request"
)

// Rank orders requests for the engine: priority class descending, then
// waiting time descending (longer-waiting first), then ID ascending. The
// input slice is not modified; the result is deterministic for an unchanged
// request set. Waiting time is measured against the caller's clock so a
// whole run ranks against a single instant.
func Rank(requests []*request.SurgeryRequest, now time.Time) []*request.SurgeryRequest {
	ranked := make([]*request.SurgeryRequest, len(requests))
	copy(ranked, requests)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() > b.Priority.Rank()
		}
		wa, wb := a.WaitingTime(now), b.WaitingTime(now)
		if wa != wb {
			return wa > wb
		}
		return a.ID.String() < b.ID.String()
	})
	return ranked
}
