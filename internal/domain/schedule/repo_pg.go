package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const entryCols = `id, hospital_id, request_id, room_id, surgeon_id, anesthesiologist_id,
	start_time, end_time, priority, status, delay_minutes, notes, created_at, updated_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.HospitalID, &e.RequestID, &e.RoomID, &e.SurgeonID, &e.AnesthesiologistID,
		&e.StartTime, &e.EndTime, &e.Priority, &e.Status, &e.DelayMinutes, &e.Notes, &e.CreatedAt, &e.UpdatedAt)
	return &e, err
}

// Create inserts the entry and its nurse and equipment assignments in one
// transaction.
func (p *repoPG) Create(ctx context.Context, e *Entry) error {
	e.ID = uuid.New()
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO schedule_entry (id, hospital_id, request_id, room_id, surgeon_id,
			anesthesiologist_id, start_time, end_time, priority, status, delay_minutes, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		e.ID, e.HospitalID, e.RequestID, e.RoomID, e.SurgeonID,
		e.AnesthesiologistID, e.StartTime, e.EndTime, e.Priority, e.Status, e.DelayMinutes, e.Notes)
	if err != nil {
		return err
	}
	for _, nurseID := range e.NurseIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO entry_nurse (entry_id, staff_id) VALUES ($1,$2)`, e.ID, nurseID); err != nil {
			return err
		}
	}
	for _, equipmentID := range e.EquipmentIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO entry_equipment (entry_id, equipment_id) VALUES ($1,$2)`, e.ID, equipmentID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (p *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	e, err := scanEntry(p.pool.QueryRow(ctx, `SELECT `+entryCols+` FROM schedule_entry WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := p.loadAssignments(ctx, []*Entry{e}); err != nil {
		return nil, err
	}
	return e, nil
}

func (p *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status EntryStatus) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE schedule_entry SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("schedule entry %s not found", id)
	}
	return nil
}

func (p *repoPG) UpdateWindow(ctx context.Context, id uuid.UUID, start, end time.Time) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE schedule_entry SET start_time=$2, end_time=$3, updated_at=NOW() WHERE id = $1`,
		id, start, end)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("schedule entry %s not found", id)
	}
	return nil
}

func (p *repoPG) ActiveByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*Entry, error) {
	return p.query(ctx, `SELECT `+entryCols+` FROM schedule_entry
		WHERE hospital_id = $1 AND status = 'scheduled' ORDER BY start_time`, hospitalID)
}

func (p *repoPG) ListByDateRange(ctx context.Context, hospitalID uuid.UUID, from, to time.Time) ([]*Entry, error) {
	return p.query(ctx, `SELECT `+entryCols+` FROM schedule_entry
		WHERE hospital_id = $1 AND start_time < $3 AND end_time > $2 ORDER BY start_time`,
		hospitalID, from, to)
}

func (p *repoPG) query(ctx context.Context, q string, args ...any) ([]*Entry, error) {
	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := p.loadAssignments(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// loadAssignments fills NurseIDs and EquipmentIDs for the given entries.
func (p *repoPG) loadAssignments(ctx context.Context, entries []*Entry) error {
	if len(entries) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*Entry, len(entries))
	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
		ids = append(ids, e.ID)
	}

	rows, err := p.pool.Query(ctx,
		`SELECT entry_id, staff_id FROM entry_nurse WHERE entry_id = ANY($1)`, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var entryID, staffID uuid.UUID
		if err := rows.Scan(&entryID, &staffID); err != nil {
			rows.Close()
			return err
		}
		byID[entryID].NurseIDs = append(byID[entryID].NurseIDs, staffID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = p.pool.Query(ctx,
		`SELECT entry_id, equipment_id FROM entry_equipment WHERE entry_id = ANY($1)`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var entryID, equipmentID uuid.UUID
		if err := rows.Scan(&entryID, &equipmentID); err != nil {
			return err
		}
		byID[entryID].EquipmentIDs = append(byID[entryID].EquipmentIDs, equipmentID)
	}
	return rows.Err()
}
