package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence boundary for schedule entries. The scheduler
// core is the only writer.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status EntryStatus) error
	UpdateWindow(ctx context.Context, id uuid.UUID, start, end time.Time) error
	// ActiveByHospital returns every entry still in scheduled status,
	// ordered by start time. Snapshot loads and conflict checks use it.
	ActiveByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*Entry, error)
	// ListByDateRange returns entries of any status whose window intersects
	// [from, to), ordered by start time. Calendar views use it.
	ListByDateRange(ctx context.Context, hospitalID uuid.UUID, from, to time.Time) ([]*Entry, error)
}
