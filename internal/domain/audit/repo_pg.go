package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const eventCols = `id, hospital_id, action, actor_id, entity_type, entity_id,
	before_state, after_state, detail, recorded`

func scanEvent(row pgx.Row) (*Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.HospitalID, &e.Action, &e.ActorID, &e.EntityType, &e.EntityID,
		&e.Before, &e.After, &e.Detail, &e.Recorded)
	return &e, err
}

func (p *repoPG) Append(ctx context.Context, e *Event) error {
	e.ID = uuid.New()
	_, err := p.pool.Exec(ctx, `
		INSERT INTO audit_event (id, hospital_id, action, actor_id, entity_type,
			entity_id, before_state, after_state, detail, recorded)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		e.ID, e.HospitalID, e.Action, e.ActorID, e.EntityType,
		e.EntityID, e.Before, e.After, e.Detail, e.Recorded)
	return err
}

func (p *repoPG) List(ctx context.Context, hospitalID uuid.UUID, f Filter, limit, offset int) ([]*Event, int, error) {
	where := `WHERE hospital_id = $1`
	args := []any{hospitalID}
	if f.Action != "" {
		args = append(args, f.Action)
		where += fmt.Sprintf(" AND action = $%d", len(args))
	}
	if f.EntityType != "" {
		args = append(args, f.EntityType)
		where += fmt.Sprintf(" AND entity_type = $%d", len(args))
	}
	if f.EntityID != uuid.Nil {
		args = append(args, f.EntityID)
		where += fmt.Sprintf(" AND entity_id = $%d", len(args))
	}
	if f.ActorID != "" {
		args = append(args, f.ActorID)
		where += fmt.Sprintf(" AND actor_id = $%d", len(args))
	}

	var total int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_event `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	q := fmt.Sprintf(`SELECT %s FROM audit_event %s ORDER BY recorded DESC LIMIT $%d OFFSET $%d`,
		eventCols, where, len(args)-1, len(args))
	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, nil
}
