package request

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence boundary for surgery requests.
type Repository interface {
	Create(ctx context.Context, r *SurgeryRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*SurgeryRequest, error)
	Update(ctx context.Context, r *SurgeryRequest) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	List(ctx context.Context, hospitalID uuid.UUID, status Status, limit, offset int) ([]*SurgeryRequest, int, error)
	// ListByStatuses returns every request in the given statuses without
	// pagination. The scheduler snapshot and the priority queue view use it.
	ListByStatuses(ctx context.Context, hospitalID uuid.UUID, statuses ...Status) ([]*SurgeryRequest, error)
}
