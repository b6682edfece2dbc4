package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// =========== OperatingRoom Repository ===========

type roomRepoPG struct{ pool *pgxpool.Pool }

func NewOperatingRoomRepoPG(pool *pgxpool.Pool) OperatingRoomRepository {
	return &roomRepoPG{pool: pool}
}

const roomCols = `id, hospital_id, name, room_type, capabilities, is_available,
	has_anesthesia, has_imaging, maintenance_until, created_at, updated_at`

func scanRoom(row pgx.Row) (*OperatingRoom, error) {
	var r OperatingRoom
	err := row.Scan(&r.ID, &r.HospitalID, &r.Name, &r.RoomType, &r.Capabilities, &r.IsAvailable,
		&r.HasAnesthesia, &r.HasImaging, &r.MaintenanceUntil, &r.CreatedAt, &r.UpdatedAt)
	return &r, err
}

func (r *roomRepoPG) Create(ctx context.Context, room *OperatingRoom) error {
	room.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO operating_room (id, hospital_id, name, room_type, capabilities,
			is_available, has_anesthesia, has_imaging, maintenance_until)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		room.ID, room.HospitalID, room.Name, room.RoomType, room.Capabilities,
		room.IsAvailable, room.HasAnesthesia, room.HasImaging, room.MaintenanceUntil)
	return err
}

func (r *roomRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*OperatingRoom, error) {
	return scanRoom(r.pool.QueryRow(ctx, `SELECT `+roomCols+` FROM operating_room WHERE id = $1`, id))
}

func (r *roomRepoPG) Update(ctx context.Context, room *OperatingRoom) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE operating_room SET name=$2, room_type=$3, capabilities=$4, is_available=$5,
			has_anesthesia=$6, has_imaging=$7, maintenance_until=$8, updated_at=NOW()
		WHERE id = $1`,
		room.ID, room.Name, room.RoomType, room.Capabilities, room.IsAvailable,
		room.HasAnesthesia, room.HasImaging, room.MaintenanceUntil)
	return err
}

func (r *roomRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM operating_room WHERE id = $1`, id)
	return err
}

func (r *roomRepoPG) ListByHospital(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*OperatingRoom, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM operating_room WHERE hospital_id = $1`, hospitalID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+roomCols+` FROM operating_room WHERE hospital_id = $1 ORDER BY name LIMIT $2 OFFSET $3`, hospitalID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*OperatingRoom
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, room)
	}
	return items, total, nil
}

func (r *roomRepoPG) AllByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*OperatingRoom, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roomCols+` FROM operating_room WHERE hospital_id = $1 ORDER BY id`, hospitalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*OperatingRoom
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, room)
	}
	return items, rows.Err()
}

// =========== Staff Repository ===========

type staffRepoPG struct{ pool *pgxpool.Pool }

func NewStaffRepoPG(pool *pgxpool.Pool) StaffRepository { return &staffRepoPG{pool: pool} }

const staffCols = `id, hospital_id, name, role, specialization, max_hours_per_day,
	is_available, is_on_call, created_at, updated_at`

func scanStaff(row pgx.Row) (*Staff, error) {
	var s Staff
	err := row.Scan(&s.ID, &s.HospitalID, &s.Name, &s.Role, &s.Specialization, &s.MaxHoursPerDay,
		&s.IsAvailable, &s.IsOnCall, &s.CreatedAt, &s.UpdatedAt)
	return &s, err
}

func (r *staffRepoPG) Create(ctx context.Context, s *Staff) error {
	s.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO staff (id, hospital_id, name, role, specialization,
			max_hours_per_day, is_available, is_on_call)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		s.ID, s.HospitalID, s.Name, s.Role, s.Specialization,
		s.MaxHoursPerDay, s.IsAvailable, s.IsOnCall)
	return err
}

func (r *staffRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Staff, error) {
	return scanStaff(r.pool.QueryRow(ctx, `SELECT `+staffCols+` FROM staff WHERE id = $1`, id))
}

func (r *staffRepoPG) Update(ctx context.Context, s *Staff) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE staff SET name=$2, role=$3, specialization=$4, max_hours_per_day=$5,
			is_available=$6, is_on_call=$7, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.Name, s.Role, s.Specialization, s.MaxHoursPerDay, s.IsAvailable, s.IsOnCall)
	return err
}

func (r *staffRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM staff WHERE id = $1`, id)
	return err
}

func (r *staffRepoPG) ListByHospital(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*Staff, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM staff WHERE hospital_id = $1`, hospitalID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+staffCols+` FROM staff WHERE hospital_id = $1 ORDER BY name LIMIT $2 OFFSET $3`, hospitalID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Staff
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, nil
}

func (r *staffRepoPG) AllByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*Staff, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+staffCols+` FROM staff WHERE hospital_id = $1 ORDER BY id`, hospitalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Staff
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// =========== Equipment Repository ===========

type equipmentRepoPG struct{ pool *pgxpool.Pool }

func NewEquipmentRepoPG(pool *pgxpool.Pool) EquipmentRepository {
	return &equipmentRepoPG{pool: pool}
}

const equipmentCols = `id, hospital_id, name, equipment_type, location,
	sterilization_cycle_hours, is_available, sterile_at, created_at, updated_at`

func scanEquipment(row pgx.Row) (*Equipment, error) {
	var e Equipment
	err := row.Scan(&e.ID, &e.HospitalID, &e.Name, &e.EquipmentType, &e.Location,
		&e.SterilizationCycleHours, &e.IsAvailable, &e.SterileAt, &e.CreatedAt, &e.UpdatedAt)
	return &e, err
}

func (r *equipmentRepoPG) Create(ctx context.Context, e *Equipment) error {
	e.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO equipment (id, hospital_id, name, equipment_type, location,
			sterilization_cycle_hours, is_available, sterile_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		e.ID, e.HospitalID, e.Name, e.EquipmentType, e.Location,
		e.SterilizationCycleHours, e.IsAvailable, e.SterileAt)
	return err
}

func (r *equipmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Equipment, error) {
	return scanEquipment(r.pool.QueryRow(ctx, `SELECT `+equipmentCols+` FROM equipment WHERE id = $1`, id))
}

func (r *equipmentRepoPG) Update(ctx context.Context, e *Equipment) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE equipment SET name=$2, equipment_type=$3, location=$4,
			sterilization_cycle_hours=$5, is_available=$6, sterile_at=$7, updated_at=NOW()
		WHERE id = $1`,
		e.ID, e.Name, e.EquipmentType, e.Location,
		e.SterilizationCycleHours, e.IsAvailable, e.SterileAt)
	return err
}

func (r *equipmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM equipment WHERE id = $1`, id)
	return err
}

func (r *equipmentRepoPG) ListByHospital(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*Equipment, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM equipment WHERE hospital_id = $1`, hospitalID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+equipmentCols+` FROM equipment WHERE hospital_id = $1 ORDER BY name LIMIT $2 OFFSET $3`, hospitalID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Equipment
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, nil
}

func (r *equipmentRepoPG) AllByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*Equipment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+equipmentCols+` FROM equipment WHERE hospital_id = $1 ORDER BY id`, hospitalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Equipment
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
