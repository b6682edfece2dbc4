package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Action identifies what a recorded event did.
type Action string

const (
	ActionRequestApprove     Action = "request.approve"
	ActionRequestReject      Action = "request.reject"
	ActionSchedulerRun       Action = "scheduler.run"
	ActionSchedulerEmergency Action = "scheduler.emergency"
	ActionScheduleCommit     Action = "schedule.commit"
	ActionScheduleDisplace   Action = "schedule.displace"
	ActionScheduleComplete   Action = "schedule.complete"
	ActionScheduleCancel     Action = "schedule.cancel"
	ActionScheduleReschedule Action = "schedule.reschedule"
)

// Event is an append-only record of a scheduling decision. Before and After
// carry JSON snapshots of the touched entity; they are never rewritten.
type Event struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	HospitalID uuid.UUID       `db:"hospital_id" json:"hospital_id"`
	Action     Action          `db:"action" json:"action"`
	ActorID    string          `db:"actor_id" json:"actor_id"`
	EntityType string          `db:"entity_type" json:"entity_type"`
	EntityID   uuid.UUID       `db:"entity_id" json:"entity_id"`
	Before     json.RawMessage `db:"before_state" json:"before_state,omitempty"`
	After      json.RawMessage `db:"after_state" json:"after_state,omitempty"`
	Detail     string          `db:"detail" json:"detail"`
	Recorded   time.Time       `db:"recorded" json:"recorded"`
}
