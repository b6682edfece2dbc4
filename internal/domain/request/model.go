package request

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Priority classifies how soon a surgery must happen.
type Priority string

const (
	PriorityNormal    Priority = "normal"
	PriorityUrgent    Priority = "urgent"
	PriorityEmergency Priority = "emergency"
)

// ValidPriorities is the set of accepted priorities.
var ValidPriorities = map[Priority]bool{
	PriorityNormal: true, PriorityUrgent: true, PriorityEmergency: true,
}

// Rank orders priorities for the queue: higher rank schedules first.
func (p Priority) Rank() int {
	switch p {
	case PriorityEmergency:
		return 2
	case PriorityUrgent:
		return 1
	default:
		return 0
	}
}

// Status is the lifecycle state of a surgery request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// validTransitions holds the allowed status moves. A scheduled request drops
// back to approved when its entry is bumped by an emergency.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved:  {StatusScheduled, StatusCancelled},
	StatusScheduled: {StatusApproved, StatusCompleted, StatusCancelled},
}

// CanTransition reports whether moving from s to next is allowed.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

const (
	MinComplexity = 1
	MaxComplexity = 5

	// MinDurationMinutes is the shortest bookable surgery.
	MinDurationMinutes = 15
)

// SurgeryRequest maps to the surgery_request table. ProcedureType is the
// capability tag matched against operating room capability sets;
// RequiredSpecialization is matched against surgeon specializations.
type SurgeryRequest struct {
	ID                       uuid.UUID  `db:"id" json:"id"`
	HospitalID               uuid.UUID  `db:"hospital_id" json:"hospital_id"`
	PatientName              string     `db:"patient_name" json:"patient_name"`
	PatientAge               int        `db:"patient_age" json:"patient_age"`
	Procedure                string     `db:"procedure" json:"procedure"`
	ProcedureType            string     `db:"procedure_type" json:"procedure_type"`
	Priority                 Priority   `db:"priority" json:"priority"`
	Status                   Status     `db:"status" json:"status"`
	Complexity               int        `db:"complexity" json:"complexity"`
	EstimatedDurationMinutes int        `db:"estimated_duration_minutes" json:"estimated_duration_minutes"`
	RequiredSpecialization   string     `db:"required_specialization" json:"required_specialization"`
	EquipmentRequired        []string   `db:"equipment_required" json:"equipment_required"`
	AnesthesiaType           string     `db:"anesthesia_type" json:"anesthesia_type"`
	LatestAllowedTime        *time.Time `db:"latest_allowed_time" json:"latest_allowed_time,omitempty"`
	Escalated                bool       `db:"escalated" json:"escalated"`
	Notes                    string     `db:"notes" json:"notes"`
	CreatedAt                time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time  `db:"updated_at" json:"updated_at"`
}

// Duration returns the estimated duration.
func (r *SurgeryRequest) Duration() time.Duration {
	return time.Duration(r.EstimatedDurationMinutes) * time.Minute
}

// WaitingTime is how long the request has sat in the queue.
func (r *SurgeryRequest) WaitingTime(now time.Time) time.Duration {
	return now.Sub(r.CreatedAt)
}

// IsOverdue reports whether the request's deadline has passed without a slot.
func (r *SurgeryRequest) IsOverdue(now time.Time) bool {
	if r.LatestAllowedTime == nil {
		return false
	}
	switch r.Status {
	case StatusCompleted, StatusCancelled, StatusRejected:
		return false
	}
	return now.After(*r.LatestAllowedTime)
}

// Validate checks the request's field-level invariants.
func (r *SurgeryRequest) Validate() error {
	if r.HospitalID == uuid.Nil {
		return fmt.Errorf("hospital_id is required")
	}
	if r.PatientName == "" {
		return fmt.Errorf("patient_name is required")
	}
	if r.PatientAge < 0 || r.PatientAge > 150 {
		return fmt.Errorf("patient_age out of range")
	}
	if r.Procedure == "" {
		return fmt.Errorf("procedure is required")
	}
	if r.ProcedureType == "" {
		return fmt.Errorf("procedure_type is required")
	}
	if !ValidPriorities[r.Priority] {
		return fmt.Errorf("invalid priority %q", r.Priority)
	}
	if r.Complexity < MinComplexity || r.Complexity > MaxComplexity {
		return fmt.Errorf("complexity must be between %d and %d", MinComplexity, MaxComplexity)
	}
	if r.EstimatedDurationMinutes < MinDurationMinutes {
		return fmt.Errorf("estimated duration must be at least %d minutes", MinDurationMinutes)
	}
	if r.RequiredSpecialization == "" {
		return fmt.Errorf("required_specialization is required")
	}
	return nil
}
