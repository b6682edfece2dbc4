package request

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const requestCols = `id, hospital_id, patient_name, patient_age, procedure, procedure_type,
	priority, status, complexity, estimated_duration_minutes, required_specialization,
	equipment_required, anesthesia_type, latest_allowed_time, escalated, notes,
	created_at, updated_at`

func scanRequest(row pgx.Row) (*SurgeryRequest, error) {
	var r SurgeryRequest
	err := row.Scan(&r.ID, &r.HospitalID, &r.PatientName, &r.PatientAge, &r.Procedure, &r.ProcedureType,
		&r.Priority, &r.Status, &r.Complexity, &r.EstimatedDurationMinutes, &r.RequiredSpecialization,
		&r.EquipmentRequired, &r.AnesthesiaType, &r.LatestAllowedTime, &r.Escalated, &r.Notes,
		&r.CreatedAt, &r.UpdatedAt)
	return &r, err
}

func (p *repoPG) Create(ctx context.Context, r *SurgeryRequest) error {
	r.ID = uuid.New()
	_, err := p.pool.Exec(ctx, `
		INSERT INTO surgery_request (id, hospital_id, patient_name, patient_age, procedure,
			procedure_type, priority, status, complexity, estimated_duration_minutes,
			required_specialization, equipment_required, anesthesia_type,
			latest_allowed_time, escalated, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		r.ID, r.HospitalID, r.PatientName, r.PatientAge, r.Procedure,
		r.ProcedureType, r.Priority, r.Status, r.Complexity, r.EstimatedDurationMinutes,
		r.RequiredSpecialization, r.EquipmentRequired, r.AnesthesiaType,
		r.LatestAllowedTime, r.Escalated, r.Notes)
	return err
}

func (p *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*SurgeryRequest, error) {
	return scanRequest(p.pool.QueryRow(ctx, `SELECT `+requestCols+` FROM surgery_request WHERE id = $1`, id))
}

func (p *repoPG) Update(ctx context.Context, r *SurgeryRequest) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE surgery_request SET patient_name=$2, patient_age=$3, procedure=$4,
			procedure_type=$5, priority=$6, status=$7, complexity=$8,
			estimated_duration_minutes=$9, required_specialization=$10,
			equipment_required=$11, anesthesia_type=$12, latest_allowed_time=$13,
			escalated=$14, notes=$15, updated_at=NOW()
		WHERE id = $1`,
		r.ID, r.PatientName, r.PatientAge, r.Procedure,
		r.ProcedureType, r.Priority, r.Status, r.Complexity,
		r.EstimatedDurationMinutes, r.RequiredSpecialization,
		r.EquipmentRequired, r.AnesthesiaType, r.LatestAllowedTime,
		r.Escalated, r.Notes)
	return err
}

func (p *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE surgery_request SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("surgery request %s not found", id)
	}
	return nil
}

func (p *repoPG) List(ctx context.Context, hospitalID uuid.UUID, status Status, limit, offset int) ([]*SurgeryRequest, int, error) {
	where := `WHERE hospital_id = $1`
	args := []any{hospitalID}
	if status != "" {
		args = append(args, status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM surgery_request `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	q := fmt.Sprintf(`SELECT %s FROM surgery_request %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		requestCols, where, len(args)-1, len(args))
	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*SurgeryRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, r)
	}
	return items, total, nil
}

func (p *repoPG) ListByStatuses(ctx context.Context, hospitalID uuid.UUID, statuses ...Status) ([]*SurgeryRequest, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	args := []any{hospitalID}
	holders := make([]string, 0, len(statuses))
	for _, s := range statuses {
		args = append(args, s)
		holders = append(holders, fmt.Sprintf("$%d", len(args)))
	}
	q := fmt.Sprintf(`SELECT %s FROM surgery_request WHERE hospital_id = $1 AND status IN (%s) ORDER BY created_at`,
		requestCols, strings.Join(holders, ","))
	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*SurgeryRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
