package audit

import (
	"context"

	"github.com/google/uuid"
)

// Filter narrows an event listing.
type Filter struct {
	Action     Action
	EntityType string
	EntityID   uuid.UUID
	ActorID    string
}

// Repository is the persistence boundary for audit events. Events are
// append-only: there is no update or delete.
type Repository interface {
	Append(ctx context.Context, e *Event) error
	List(ctx context.Context, hospitalID uuid.UUID, f Filter, limit, offset int) ([]*Event, int, error)
}
