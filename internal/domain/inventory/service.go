package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Service validates and persists operating rooms, staff and equipment.
type Service struct {
	rooms     OperatingRoomRepository
	staff     StaffRepository
	equipment EquipmentRepository
}

func NewService(rooms OperatingRoomRepository, staff StaffRepository, equipment EquipmentRepository) *Service {
	return &Service{rooms: rooms, staff: staff, equipment: equipment}
}

func (s *Service) CreateRoom(ctx context.Context, room *OperatingRoom) error {
	if room.Name == "" {
		return fmt.Errorf("room name is required")
	}
	if room.HospitalID == uuid.Nil {
		return fmt.Errorf("hospital_id is required")
	}
	if room.RoomType == "" {
		room.RoomType = RoomGeneral
	}
	if !ValidRoomTypes[room.RoomType] {
		return fmt.Errorf("invalid room type %q", room.RoomType)
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	log.Info().Str("room_id", room.ID.String()).Str("hospital_id", room.HospitalID.String()).Msg("operating room created")
	return nil
}

func (s *Service) GetRoom(ctx context.Context, id uuid.UUID) (*OperatingRoom, error) {
	return s.rooms.GetByID(ctx, id)
}

func (s *Service) UpdateRoom(ctx context.Context, room *OperatingRoom) error {
	if room.RoomType != "" && !ValidRoomTypes[room.RoomType] {
		return fmt.Errorf("invalid room type %q", room.RoomType)
	}
	return s.rooms.Update(ctx, room)
}

func (s *Service) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	return s.rooms.Delete(ctx, id)
}

func (s *Service) ListRooms(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*OperatingRoom, int, error) {
	return s.rooms.ListByHospital(ctx, hospitalID, limit, offset)
}

func (s *Service) CreateStaff(ctx context.Context, m *Staff) error {
	if m.Name == "" {
		return fmt.Errorf("staff name is required")
	}
	if m.HospitalID == uuid.Nil {
		return fmt.Errorf("hospital_id is required")
	}
	if !ValidStaffRoles[m.Role] {
		return fmt.Errorf("invalid staff role %q", m.Role)
	}
	if m.MaxHoursPerDay <= 0 {
		m.MaxHoursPerDay = DefaultMaxHoursPerDay
	}
	if err := s.staff.Create(ctx, m); err != nil {
		return fmt.Errorf("create staff: %w", err)
	}
	log.Info().Str("staff_id", m.ID.String()).Str("role", string(m.Role)).Msg("staff member created")
	return nil
}

func (s *Service) GetStaff(ctx context.Context, id uuid.UUID) (*Staff, error) {
	return s.staff.GetByID(ctx, id)
}

func (s *Service) UpdateStaff(ctx context.Context, m *Staff) error {
	if !ValidStaffRoles[m.Role] {
		return fmt.Errorf("invalid staff role %q", m.Role)
	}
	if m.MaxHoursPerDay <= 0 {
		return fmt.Errorf("max_hours_per_day must be positive")
	}
	return s.staff.Update(ctx, m)
}

func (s *Service) DeleteStaff(ctx context.Context, id uuid.UUID) error {
	return s.staff.Delete(ctx, id)
}

func (s *Service) ListStaff(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*Staff, int, error) {
	return s.staff.ListByHospital(ctx, hospitalID, limit, offset)
}

func (s *Service) CreateEquipment(ctx context.Context, e *Equipment) error {
	if e.Name == "" {
		return fmt.Errorf("equipment name is required")
	}
	if e.HospitalID == uuid.Nil {
		return fmt.Errorf("hospital_id is required")
	}
	if e.EquipmentType == "" {
		return fmt.Errorf("equipment_type is required")
	}
	if e.SterilizationCycleHours < 0 {
		return fmt.Errorf("sterilization_cycle_hours must not be negative")
	}
	if e.SterilizationCycleHours == 0 {
		e.SterilizationCycleHours = DefaultSterilizationCycleHours
	}
	if err := s.equipment.Create(ctx, e); err != nil {
		return fmt.Errorf("create equipment: %w", err)
	}
	log.Info().Str("equipment_id", e.ID.String()).Str("type", e.EquipmentType).Msg("equipment created")
	return nil
}

func (s *Service) GetEquipment(ctx context.Context, id uuid.UUID) (*Equipment, error) {
	return s.equipment.GetByID(ctx, id)
}

func (s *Service) UpdateEquipment(ctx context.Context, e *Equipment) error {
	if e.SterilizationCycleHours <= 0 {
		return fmt.Errorf("sterilization_cycle_hours must be positive")
	}
	return s.equipment.Update(ctx, e)
}

func (s *Service) DeleteEquipment(ctx context.Context, id uuid.UUID) error {
	return s.equipment.Delete(ctx, id)
}

func (s *Service) ListEquipment(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*Equipment, int, error) {
	return s.equipment.ListByHospital(ctx, hospitalID, limit, offset)
}
