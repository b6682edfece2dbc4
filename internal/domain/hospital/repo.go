package hospital

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, h *Hospital) error
	GetByID(ctx context.Context, id uuid.UUID) (*Hospital, error)
	GetByCode(ctx context.Context, code string) (*Hospital, error)
	Update(ctx context.Context, h *Hospital) error
	List(ctx context.Context, limit, offset int) ([]*Hospital, int, error)
}
