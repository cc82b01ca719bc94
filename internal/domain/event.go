package domain

import (
	"encoding/json"
	"time"
)

// EventType defines the type of domain event.
type EventType string

const (
	EventRequestCreated       EventType = "request.created"
	EventRequestStatusChanged EventType = "request.status_changed"
	EventRequestAssigned      EventType = "request.assigned"
)

// AggregateRequest is the aggregate type recorded on lifecycle events.
const AggregateRequest = "maintenance_request"

// Event is an immutable record of something that happened to a request.
// Events are written append-only alongside the transition and dispatched to
// subscribers after commit; consumption never blocks or rolls back the
// originating transaction.
type Event struct {
	EventID       string    `json:"event_id"`
	EventType     EventType `json:"event_type"`
	AggregateType string    `json:"aggregate_type"`
	AggregateID   string    `json:"aggregate_id"`
	Payload       []byte    `json:"payload"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

// RequestCreatedPayload is the payload for request.created events.
type RequestCreatedPayload struct {
	RequestID   string `json:"request_id"`
	Identifier  string `json:"identifier"`
	Title       string `json:"title"`
	Building    string `json:"building"`
	Priority    string `json:"priority"`
	RequestedBy string `json:"requested_by"`
}

// ToJSON converts the payload to JSON bytes.
func (p RequestCreatedPayload) ToJSON() ([]byte, error) {
	return json.Marshal(p)
}

// StatusChangedPayload is the payload for request.status_changed events.
// It carries the before/after pair so subscribers never have to re-read the
// request row to learn what happened.
type StatusChangedPayload struct {
	RequestID  string `json:"request_id"`
	Identifier string `json:"identifier"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
	Reason     string `json:"reason"`
	ChangedBy  string `json:"changed_by"`
}

// ToJSON converts the payload to JSON bytes.
func (p StatusChangedPayload) ToJSON() ([]byte, error) {
	return json.Marshal(p)
}

// AssignmentPayload is the payload for request.assigned events. ToTechnician
// is empty for unassignment.
type AssignmentPayload struct {
	RequestID      string `json:"request_id"`
	Identifier     string `json:"identifier"`
	FromTechnician string `json:"from_technician,omitempty"`
	ToTechnician   string `json:"to_technician,omitempty"`
	AssignmentType string `json:"assignment_type"`
	AssignedBy     string `json:"assigned_by"`
}

// ToJSON converts the payload to JSON bytes.
func (p AssignmentPayload) ToJSON() ([]byte, error) {
	return json.Marshal(p)
}
