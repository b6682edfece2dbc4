package inventory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRoomRepo struct {
	rooms map[uuid.UUID]*OperatingRoom
}

func newMockRoomRepo() *mockRoomRepo {
	return &mockRoomRepo{rooms: make(map[uuid.UUID]*OperatingRoom)}
}

func (m *mockRoomRepo) Create(_ context.Context, r *OperatingRoom) error {
	r.ID = uuid.New()
	m.rooms[r.ID] = r
	return nil
}

func (m *mockRoomRepo) GetByID(_ context.Context, id uuid.UUID) (*OperatingRoom, error) {
	r, ok := m.rooms[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return r, nil
}

func (m *mockRoomRepo) Update(_ context.Context, r *OperatingRoom) error {
	m.rooms[r.ID] = r
	return nil
}

func (m *mockRoomRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.rooms, id)
	return nil
}

func (m *mockRoomRepo) ListByHospital(_ context.Context, hospitalID uuid.UUID, limit, offset int) ([]*OperatingRoom, int, error) {
	var result []*OperatingRoom
	for _, r := range m.rooms {
		if r.HospitalID == hospitalID {
			result = append(result, r)
		}
	}
	return result, len(result), nil
}

func (m *mockRoomRepo) AllByHospital(_ context.Context, hospitalID uuid.UUID) ([]*OperatingRoom, error) {
	items, _, err := m.ListByHospital(context.Background(), hospitalID, 0, 0)
	return items, err
}

type mockStaffRepo struct {
	members map[uuid.UUID]*Staff
}

func newMockStaffRepo() *mockStaffRepo {
	return &mockStaffRepo{members: make(map[uuid.UUID]*Staff)}
}

func (m *mockStaffRepo) Create(_ context.Context, s *Staff) error {
	s.ID = uuid.New()
	m.members[s.ID] = s
	return nil
}

func (m *mockStaffRepo) GetByID(_ context.Context, id uuid.UUID) (*Staff, error) {
	s, ok := m.members[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return s, nil
}

func (m *mockStaffRepo) Update(_ context.Context, s *Staff) error {
	m.members[s.ID] = s
	return nil
}

func (m *mockStaffRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.members, id)
	return nil
}

func (m *mockStaffRepo) ListByHospital(_ context.Context, hospitalID uuid.UUID, limit, offset int) ([]*Staff, int, error) {
	var result []*Staff
	for _, s := range m.members {
		if s.HospitalID == hospitalID {
			result = append(result, s)
		}
	}
	return result, len(result), nil
}

func (m *mockStaffRepo) AllByHospital(_ context.Context, hospitalID uuid.UUID) ([]*Staff, error) {
	items, _, err := m.ListByHospital(context.Background(), hospitalID, 0, 0)
	return items, err
}

type mockEquipmentRepo struct {
	items map[uuid.UUID]*Equipment
}

func newMockEquipmentRepo() *mockEquipmentRepo {
	return &mockEquipmentRepo{items: make(map[uuid.UUID]*Equipment)}
}

func (m *mockEquipmentRepo) Create(_ context.Context, e *Equipment) error {
	e.ID = uuid.New()
	m.items[e.ID] = e
	return nil
}

func (m *mockEquipmentRepo) GetByID(_ context.Context, id uuid.UUID) (*Equipment, error) {
	e, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return e, nil
}

func (m *mockEquipmentRepo) Update(_ context.Context, e *Equipment) error {
	m.items[e.ID] = e
	return nil
}

func (m *mockEquipmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.items, id)
	return nil
}

func (m *mockEquipmentRepo) ListByHospital(_ context.Context, hospitalID uuid.UUID, limit, offset int) ([]*Equipment, int, error) {
	var result []*Equipment
	for _, e := range m.items {
		if e.HospitalID == hospitalID {
			result = append(result, e)
		}
	}
	return result, len(result), nil
}

func (m *mockEquipmentRepo) AllByHospital(_ context.Context, hospitalID uuid.UUID) ([]*Equipment, error) {
	items, _, err := m.ListByHospital(context.Background(), hospitalID, 0, 0)
	return items, err
}

func newTestService() *Service {
	return NewService(newMockRoomRepo(), newMockStaffRepo(), newMockEquipmentRepo())
}

func TestCreateRoom(t *testing.T) {
	svc := newTestService()
	room := &OperatingRoom{HospitalID: uuid.New(), Name: "OR-1", Capabilities: []string{"appendectomy"}}
	if err := svc.CreateRoom(context.Background(), room); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if room.ID == uuid.Nil {
		t.Error("expected ID to be assigned")
	}
	if room.RoomType != RoomGeneral {
		t.Errorf("expected default room type general, got %s", room.RoomType)
	}
}

func TestCreateRoom_InvalidType(t *testing.T) {
	svc := newTestService()
	room := &OperatingRoom{HospitalID: uuid.New(), Name: "OR-1", RoomType: "spa"}
	if err := svc.CreateRoom(context.Background(), room); err == nil {
		t.Fatal("expected error for invalid room type")
	}
}

func TestCreateRoom_RequiresName(t *testing.T) {
	svc := newTestService()
	room := &OperatingRoom{HospitalID: uuid.New()}
	if err := svc.CreateRoom(context.Background(), room); err == nil {
		t.Fatal("expected error for missing name")
	}
}

func TestCreateStaff(t *testing.T) {
	svc := newTestService()
	m := &Staff{HospitalID: uuid.New(), Name: "Dr. Osei", Role: RoleSurgeon}
	if err := svc.CreateStaff(context.Background(), m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.MaxHoursPerDay != DefaultMaxHoursPerDay {
		t.Errorf("expected default max hours %d, got %d", DefaultMaxHoursPerDay, m.MaxHoursPerDay)
	}
}

func TestCreateStaff_InvalidRole(t *testing.T) {
	svc := newTestService()
	m := &Staff{HospitalID: uuid.New(), Name: "Dr. Osei", Role: "janitor"}
	if err := svc.CreateStaff(context.Background(), m); err == nil {
		t.Fatal("expected error for invalid role")
	}
}

func TestCreateEquipment(t *testing.T) {
	svc := newTestService()
	e := &Equipment{HospitalID: uuid.New(), Name: "C-Arm 1", EquipmentType: "c_arm"}
	if err := svc.CreateEquipment(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.SterilizationCycleHours != DefaultSterilizationCycleHours {
		t.Errorf("expected default cycle %d, got %d", DefaultSterilizationCycleHours, e.SterilizationCycleHours)
	}
}

func TestRoomSupports(t *testing.T) {
	room := &OperatingRoom{Capabilities: []string{"appendectomy", "cholecystectomy"}}
	if !room.Supports("appendectomy") {
		t.Error("expected room to support appendectomy")
	}
	if room.Supports("craniotomy") {
		t.Error("did not expect room to support craniotomy")
	}
}

func TestEquipmentReadyAt(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	e := &Equipment{SterilizationCycleHours: 4}
	if got := e.ReadyAt(now); !got.Equal(now) {
		t.Errorf("expected ready now, got %v", got)
	}
	sterile := now.Add(2 * time.Hour)
	e.SterileAt = &sterile
	if got := e.ReadyAt(now); !got.Equal(sterile) {
		t.Errorf("expected ready at %v, got %v", sterile, got)
	}
	past := now.Add(-time.Hour)
	e.SterileAt = &past
	if got := e.ReadyAt(now); !got.Equal(now) {
		t.Errorf("expected ready now for past cycle, got %v", got)
	}
}

func TestRoomInMaintenanceAt(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	room := &OperatingRoom{}
	if room.InMaintenanceAt(now) {
		t.Error("room without maintenance window should not be in maintenance")
	}
	until := now.Add(time.Hour)
	room.MaintenanceUntil = &until
	if !room.InMaintenanceAt(now) {
		t.Error("expected room to be in maintenance")
	}
	if room.InMaintenanceAt(until) {
		t.Error("maintenance window is exclusive of its end")
	}
}
