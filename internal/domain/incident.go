package domain

import (
	"time"

	"github.com/google/uuid"
)

// IncidentPriority represents the severity of an incident
type IncidentPriority string

const (
	PriorityCritical IncidentPriority = "CRITICAL"
	PriorityHigh     IncidentPriority = "HIGH"
	PriorityMedium   IncidentPriority = "MEDIUM"
	PriorityLow      IncidentPriority = "LOW"
)

// IncidentStatus represents the lifecycle state of an incident
type IncidentStatus string

const (
	StatusOpen       IncidentStatus = "OPEN"
	StatusInProgress IncidentStatus = "IN_PROGRESS"
	StatusResolved   IncidentStatus = "RESOLVED"
	StatusClosed     IncidentStatus = "CLOSED"
)

// ChangeRequestStatus represents the approval state of a change request
type ChangeRequestStatus string

const (
	ChangeStatusPending     ChangeRequestStatus = "PENDING"
	ChangeStatusApproved    ChangeRequestStatus = "APPROVED"
	ChangeStatusImplemented ChangeRequestStatus = "IMPLEMENTED"
	ChangeStatusRejected    ChangeRequestStatus = "REJECTED"
)

// Incident is a single service-desk incident record
type Incident struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Priority     IncidentPriority `json:"priority"`
	Status       IncidentStatus   `json:"status"`
	OpenedAt     time.Time        `json:"opened_at"`
	ResolvedAt   *time.Time       `json:"resolved_at,omitempty"`
	Satisfaction *float64         `json:"satisfaction,omitempty"`
}

// ChangeRequest is a single change-management record
type ChangeRequest struct {
	ID        string              `json:"id"`
	Title     string              `json:"title"`
	Status    ChangeRequestStatus `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
}

// NewIncident creates a new open incident
func NewIncident(title string, priority IncidentPriority, openedAt time.Time) *Incident {
	return &Incident{
		ID:       uuid.New().String(),
		Title:    title,
		Priority: priority,
		Status:   StatusOpen,
		OpenedAt: openedAt,
	}
}

// NewChangeRequest creates a new pending change request
func NewChangeRequest(title string, createdAt time.Time) *ChangeRequest {
	return &ChangeRequest{
		ID:        uuid.New().String(),
		Title:     title,
		Status:    ChangeStatusPending,
		CreatedAt: createdAt,
	}
}

// Resolve marks the incident as resolved at the given time
func (i *Incident) Resolve(at time.Time) error {
	if i.Status == StatusClosed {
		return ErrIncidentClosed
	}
	if at.Before(i.OpenedAt) {
		return InvariantViolation("incident %s resolved before it was opened", i.ID)
	}
	i.Status = StatusResolved
	i.ResolvedAt = &at
	return nil
}

// Close closes a resolved incident
func (i *Incident) Close() error {
	if i.Status != StatusResolved {
		return ErrIncidentNotResolved
	}
	i.Status = StatusClosed
	return nil
}

// Rate records the requester's satisfaction score (0-5)
func (i *Incident) Rate(score float64) error {
	if score < 0 || score > MaxSatisfaction {
		return InvariantViolation("satisfaction score %.2f outside [0, %.0f]", score, MaxSatisfaction)
	}
	i.Satisfaction = &score
	return nil
}

// IsOpen reports whether the incident still counts as open work
func (i *Incident) IsOpen() bool {
	return i.Status == StatusOpen || i.Status == StatusInProgress
}

// ResolutionHours returns the time to resolve in hours
func (i *Incident) ResolutionHours() (float64, bool) {
	if i.ResolvedAt == nil {
		return 0, false
	}
	return i.ResolvedAt.Sub(i.OpenedAt).Hours(), true
}

// WithinTarget reports whether a resolved incident met its priority's
// resolution target. Unresolved incidents are never within target.
func (i *Incident) WithinTarget() bool {
	hours, ok := i.ResolutionHours()
	if !ok {
		return false
	}
	def, ok := PriorityDefinition(i.Priority)
	if !ok {
		return false
	}
	return hours <= def.TargetHours
}

// IsPending reports whether the change request is awaiting approval
func (c *ChangeRequest) IsPending() bool {
	return c.Status == ChangeStatusPending
}

var (
	ErrIncidentClosed      = NewDomainError(KindInvariantViolation, "cannot modify closed incident")
	ErrIncidentNotResolved = NewDomainError(KindInvariantViolation, "incident must be resolved before closing")
)
