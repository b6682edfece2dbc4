package hospital

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	hospitals map[uuid.UUID]*Hospital
}

func newMockRepo() *mockRepo {
	return &mockRepo{hospitals: make(map[uuid.UUID]*Hospital)}
}

func (m *mockRepo) Create(_ context.Context, h *Hospital) error {
	h.ID = uuid.New()
	h.CreatedAt = time.Now()
	h.UpdatedAt = time.Now()
	m.hospitals[h.ID] = h
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Hospital, error) {
	h, ok := m.hospitals[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return h, nil
}

func (m *mockRepo) GetByCode(_ context.Context, code string) (*Hospital, error) {
	for _, h := range m.hospitals {
		if h.Code == code {
			return h, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (m *mockRepo) Update(_ context.Context, h *Hospital) error {
	m.hospitals[h.ID] = h
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Hospital, int, error) {
	var result []*Hospital
	for _, h := range m.hospitals {
		result = append(result, h)
	}
	return result, len(result), nil
}

func newTestService() *Service {
	return NewService(newMockRepo())
}

func TestCreate(t *testing.T) {
	svc := newTestService()
	h := &Hospital{Name: "General", Code: "GEN"}
	if err := svc.Create(context.Background(), h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.ID == uuid.Nil {
		t.Error("expected ID to be assigned")
	}
	if !h.IsActive {
		t.Error("expected new hospital to be active")
	}
	if h.Timezone != "UTC" {
		t.Errorf("expected default timezone UTC, got %s", h.Timezone)
	}
}

func TestCreate_RequiresName(t *testing.T) {
	svc := newTestService()
	err := svc.Create(context.Background(), &Hospital{Code: "GEN"})
	if err == nil {
		t.Error("expected error for missing name")
	}
}

func TestCreate_RequiresCode(t *testing.T) {
	svc := newTestService()
	err := svc.Create(context.Background(), &Hospital{Name: "General"})
	if err == nil {
		t.Error("expected error for missing code")
	}
}

func TestGetByCode(t *testing.T) {
	svc := newTestService()
	h := &Hospital{Name: "General", Code: "GEN"}
	svc.Create(context.Background(), h)
	fetched, err := svc.GetByCode(context.Background(), "GEN")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetched.ID != h.ID {
		t.Error("unexpected ID mismatch")
	}
}

func TestDeactivate(t *testing.T) {
	svc := newTestService()
	h := &Hospital{Name: "General", Code: "GEN"}
	svc.Create(context.Background(), h)
	if err := svc.Deactivate(context.Background(), h.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fetched, _ := svc.Get(context.Background(), h.ID)
	if fetched.IsActive {
		t.Error("expected hospital to be inactive")
	}
}

func TestDeactivate_NotFound(t *testing.T) {
	svc := newTestService()
	if err := svc.Deactivate(context.Background(), uuid.New()); err == nil {
		t.Error("expected error for unknown hospital")
	}
}
