package inventory

import (
	"context"

	"github.com/google/uuid"
)

type OperatingRoomRepository interface {
	Create(ctx context.Context, r *OperatingRoom) error
	GetByID(ctx context.Context, id uuid.UUID) (*OperatingRoom, error)
	Update(ctx context.Context, r *OperatingRoom) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByHospital(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*OperatingRoom, int, error)
	// AllByHospital returns every room without pagination, for snapshot loads.
	AllByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*OperatingRoom, error)
}

type StaffRepository interface {
	Create(ctx context.Context, s *Staff) error
	GetByID(ctx context.Context, id uuid.UUID) (*Staff, error)
	Update(ctx context.Context, s *Staff) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByHospital(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*Staff, int, error)
	AllByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*Staff, error)
}

type EquipmentRepository interface {
	Create(ctx context.Context, e *Equipment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Equipment, error)
	Update(ctx context.Context, e *Equipment) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByHospital(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*Equipment, int, error)
	AllByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*Equipment, error)
}
