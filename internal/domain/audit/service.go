package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Recorder is the sink the scheduling services write decisions to. Recording
// must never fail a business operation: implementations log and swallow
// persistence errors.
type Recorder interface {
	Record(ctx context.Context, e Event)
}

// Service persists and lists audit events.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record appends the event, stamping Recorded if unset. Failures are logged
// and dropped so a broken audit store cannot block scheduling.
func (s *Service) Record(ctx context.Context, e Event) {
	if e.Recorded.IsZero() {
		e.Recorded = time.Now().UTC()
	}
	if err := s.repo.Append(ctx, &e); err != nil {
		log.Error().Err(err).
			Str("action", string(e.Action)).
			Str("entity_id", e.EntityID.String()).
			Msg("failed to append audit event")
	}
}

func (s *Service) List(ctx context.Context, hospitalID uuid.UUID, f Filter, limit, offset int) ([]*Event, int, error) {
	return s.repo.List(ctx, hospitalID, f, limit, offset)
}

// Snapshot marshals an entity for a Before/After field. A marshal failure
// yields nil rather than an error; the event still records the action.
func Snapshot(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
