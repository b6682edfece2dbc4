package request

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/orsched/orsched/internal/domain/audit"
	"github.com/orsched/orsched/internal/platform/cache"
)

// Service validates surgery requests and drives their status lifecycle.
// Approval and rejection are recorded in the audit trail.
type Service struct {
	repo    Repository
	auditor audit.Recorder
	views   cache.Cache
}

func NewService(repo Repository, auditor audit.Recorder, views cache.Cache) *Service {
	return &Service{repo: repo, auditor: auditor, views: views}
}

func (s *Service) Create(ctx context.Context, r *SurgeryRequest) error {
	if r.Status == "" {
		r.Status = StatusPending
	}
	if r.Status != StatusPending {
		return fmt.Errorf("new requests must start pending")
	}
	if err := r.Validate(); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return fmt.Errorf("create surgery request: %w", err)
	}
	log.Info().
		Str("request_id", r.ID.String()).
		Str("priority", string(r.Priority)).
		Str("procedure_type", r.ProcedureType).
		Msg("surgery request created")
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*SurgeryRequest, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, r *SurgeryRequest) error {
	existing, err := s.repo.GetByID(ctx, r.ID)
	if err != nil {
		return err
	}
	if existing.Status != StatusPending {
		return fmt.Errorf("only pending requests can be edited")
	}
	r.Status = existing.Status
	if err := r.Validate(); err != nil {
		return err
	}
	return s.repo.Update(ctx, r)
}

func (s *Service) List(ctx context.Context, hospitalID uuid.UUID, status Status, limit, offset int) ([]*SurgeryRequest, int, error) {
	if status != "" {
		switch status {
		case StatusPending, StatusApproved, StatusRejected, StatusScheduled, StatusCompleted, StatusCancelled:
		default:
			return nil, 0, fmt.Errorf("invalid status filter %q", status)
		}
	}
	return s.repo.List(ctx, hospitalID, status, limit, offset)
}

// Approve moves a pending request to approved, making it eligible for the
// scheduler, and records the decision.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, actorID string) (*SurgeryRequest, error) {
	return s.decide(ctx, id, actorID, StatusApproved, audit.ActionRequestApprove, "")
}

// Reject moves a pending request to rejected with a reason.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, actorID, reason string) (*SurgeryRequest, error) {
	return s.decide(ctx, id, actorID, StatusRejected, audit.ActionRequestReject, reason)
}

func (s *Service) decide(ctx context.Context, id uuid.UUID, actorID string, next Status, action audit.Action, detail string) (*SurgeryRequest, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.Status.CanTransition(next) {
		return nil, fmt.Errorf("cannot move request from %s to %s", r.Status, next)
	}
	before := audit.Snapshot(r)
	prev := r.Status
	r.Status = next
	if err := s.repo.UpdateStatus(ctx, id, next); err != nil {
		return nil, fmt.Errorf("update request status: %w", err)
	}
	// A decision changes what the priority queue should show; the cached
	// view must not survive it.
	if err := s.views.Delete(ctx, cache.QueueKey(r.HospitalID.String())); err != nil {
		log.Warn().Err(err).Str("request_id", id.String()).Msg("queue view invalidation failed")
	}
	s.auditor.Record(ctx, audit.Event{
		HospitalID: r.HospitalID,
		Action:     action,
		ActorID:    actorID,
		EntityType: "surgery_request",
		EntityID:   r.ID,
		Before:     before,
		After:      audit.Snapshot(r),
		Detail:     detail,
	})
	log.Info().
		Str("request_id", id.String()).
		Str("from", string(prev)).
		Str("to", string(next)).
		Str("actor", actorID).
		Msg("surgery request decision")
	return r, nil
}
