// Package domain holds the core types of the maintenance-request lifecycle:
// requests, statuses, the transition table, history records, and domain events.
package domain

import "time"

// Priority is the urgency classification of a maintenance request.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Role is the platform role of an authenticated user.
type Role string

const (
	RoleCustomer   Role = "CUSTOMER"
	RoleTechnician Role = "TECHNICIAN"
	RoleAdmin      Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleTechnician, RoleAdmin:
		return true
	}
	return false
}

// SystemActorID is the synthetic actor id used by scheduled jobs. It is the
// only actor allowed through system-gated transition edges.
const SystemActorID = "system"

// Actor is the authenticated principal performing an operation.
type Actor struct {
	ID   string
	Role Role
}

// System returns the synthetic actor used by background sweeps.
func System() Actor {
	return Actor{ID: SystemActorID}
}

// IsSystem reports whether the actor is the background-job principal.
func (a Actor) IsSystem() bool {
	return a.ID == SystemActorID
}

// MaintenanceRequest is the aggregate root of the lifecycle subsystem.
// History rows belong to it; building configs and minted identifiers are
// independent aggregates referenced by value.
type MaintenanceRequest struct {
	ID               string     `json:"id"`
	Identifier       string     `json:"identifier"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Priority         Priority   `json:"priority"`
	Status           Status     `json:"status"`
	CategoryID       string     `json:"category_id"`
	Location         string     `json:"location"`
	Building         string     `json:"building"`
	SpecificLocation string     `json:"specific_location,omitempty"`
	RequestedByID    string     `json:"requested_by_id"`
	AssignedToID     *string    `json:"assigned_to_id,omitempty"`
	AssignedByID     *string    `json:"assigned_by_id,omitempty"`
	CustomIdentifier *string    `json:"custom_identifier,omitempty"`
	EstimatedCost    *float64   `json:"estimated_cost,omitempty"`
	ActualCost       *float64   `json:"actual_cost,omitempty"`
	ScheduledDate    *time.Time `json:"scheduled_date,omitempty"`
	CompletedDate    *time.Time `json:"completed_date,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Assigned reports whether the request currently has a technician.
func (r *MaintenanceRequest) Assigned() bool {
	return r.AssignedToID != nil && *r.AssignedToID != ""
}

// StatusHistory is one append-only audit row per successful transition.
// FromStatus is nil for the creation row.
type StatusHistory struct {
	ID          string    `json:"id"`
	RequestID   string    `json:"request_id"`
	FromStatus  *Status   `json:"from_status,omitempty"`
	ToStatus    Status    `json:"to_status"`
	Reason      string    `json:"reason"`
	ChangedByID string    `json:"changed_by_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// AssignmentType classifies an assignment-history row.
type AssignmentType string

const (
	AssignmentInitial  AssignmentType = "INITIAL_ASSIGNMENT"
	AssignmentReassign AssignmentType = "REASSIGNMENT"
	AssignmentSelf     AssignmentType = "SELF_ASSIGNMENT"
	AssignmentUnassign AssignmentType = "UNASSIGNMENT"
)

// AssignmentHistory is one append-only audit row per assignment operation.
// ToTechnicianID is nil for unassignment.
type AssignmentHistory struct {
	ID               string         `json:"id"`
	RequestID        string         `json:"request_id"`
	FromTechnicianID *string        `json:"from_technician_id,omitempty"`
	ToTechnicianID   *string        `json:"to_technician_id,omitempty"`
	Type             AssignmentType `json:"assignment_type"`
	Reason           string         `json:"reason"`
	AssignedByID     string         `json:"assigned_by_id"`
	CreatedAt        time.Time      `json:"created_at"`
}

// BuildingConfig holds per-building identifier settings. CurrentSequence is
// the only field mutated under contention and must only ever be changed
// through the allocator's transactional path.
type BuildingConfig struct {
	ID              string    `json:"id"`
	BuildingName    string    `json:"building_name"`
	BuildingCode    string    `json:"building_code"`
	DisplayName     string    `json:"display_name"`
	CurrentSequence int       `json:"current_sequence"`
	LastResetYear   int       `json:"last_reset_year"`
	AllowCustomID   bool      `json:"allow_custom_id"`
	IsActive        bool      `json:"is_active"`
	CreatedBy       string    `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// RequestIdentifier is one minted identifier. Immutable after insert except
// IsActive. Sequence is 0 for custom identifiers unless an explicit custom
// sequence was recorded.
type RequestIdentifier struct {
	ID             string    `json:"id"`
	Identifier     string    `json:"identifier"`
	Building       string    `json:"building"`
	Year           int       `json:"year"`
	Sequence       int       `json:"sequence"`
	IsActive       bool      `json:"is_active"`
	CustomPattern  *string   `json:"custom_pattern,omitempty"`
	CustomSequence *int      `json:"custom_sequence,omitempty"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
}

// User is the minimal account record backing auth and technician validation.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Notification is one inbox row for a recipient.
type Notification struct {
	ID           string     `json:"id"`
	RecipientID  string     `json:"recipient_id"`
	Type         string     `json:"type"`
	Title        string     `json:"title"`
	Message      string     `json:"message"`
	ResourceType string     `json:"resource_type"`
	ResourceID   string     `json:"resource_id"`
	ReadAt       *time.Time `json:"read_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
