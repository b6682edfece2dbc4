package hospital

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	hospitals Repository
}

func NewService(repo Repository) *Service {
	return &Service{hospitals: repo}
}

func (s *Service) Create(ctx context.Context, h *Hospital) error {
	if h.Name == "" {
		return fmt.Errorf("name is required")
	}
	if h.Code == "" {
		return fmt.Errorf("code is required")
	}
	if h.Timezone == "" {
		h.Timezone = "UTC"
	}
	h.IsActive = true
	return s.hospitals.Create(ctx, h)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Hospital, error) {
	return s.hospitals.GetByID(ctx, id)
}

func (s *Service) GetByCode(ctx context.Context, code string) (*Hospital, error) {
	return s.hospitals.GetByCode(ctx, code)
}

func (s *Service) Update(ctx context.Context, h *Hospital) error {
	if h.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.hospitals.Update(ctx, h)
}

// Deactivate marks a hospital inactive rather than deleting it; schedules
// and audit history must remain reachable.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	h, err := s.hospitals.GetByID(ctx, id)
	if err != nil {
		return err
	}
	h.IsActive = false
	return s.hospitals.Update(ctx, h)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Hospital, int, error) {
	return s.hospitals.List(ctx, limit, offset)
}
