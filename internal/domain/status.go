package domain

import (
	"net/http"

	apperrors "fixflow.io/fixflow/internal/pkg/errors"
)

// Status is the lifecycle state of a maintenance request.
type Status string

const (
	// StatusDraft is reserved for a future save-as-draft flow. It is
	// representable but not reachable through the public creation path.
	StatusDraft            Status = "DRAFT"
	StatusSubmitted        Status = "SUBMITTED"
	StatusAssigned         Status = "ASSIGNED"
	StatusInProgress       Status = "IN_PROGRESS"
	StatusCompleted        Status = "COMPLETED"
	StatusCustomerRejected Status = "CUSTOMER_REJECTED"
	StatusClosed           Status = "CLOSED"
	StatusRejected         Status = "REJECTED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusAssigned, StatusInProgress,
		StatusCompleted, StatusCustomerRejected, StatusClosed, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is defined from s.
func (s Status) Terminal() bool {
	return s == StatusClosed || s == StatusRejected
}

// transitionRule describes which actors may drive one edge of the table.
// Edges gate on the actor's relationship to the request, not just the role:
// assignee means the currently assigned technician, requester the customer
// who filed the request, system the background sweep principal.
type transitionRule struct {
	admin     bool
	assignee  bool
	requester bool
	system    bool
}

// transitions is the single source of truth for edge legality. Admin
// cancellation of any non-terminal request into REJECTED is handled
// separately in CanTransition rather than repeated per row.
var transitions = map[Status]map[Status]transitionRule{
	StatusSubmitted: {
		StatusAssigned: {admin: true, assignee: true}, // driven by assignment, never directly
		StatusRejected: {admin: true},
	},
	StatusAssigned: {
		StatusInProgress: {admin: true, assignee: true},
		StatusSubmitted:  {admin: true}, // unassignment
	},
	StatusInProgress: {
		StatusCompleted: {admin: true, assignee: true},
	},
	StatusCompleted: {
		StatusCustomerRejected: {requester: true},
		StatusClosed:           {requester: true, system: true},
	},
	StatusCustomerRejected: {
		StatusInProgress: {admin: true}, // reopen
	},
}

// CanTransition validates the edge from→to for the given actor against the
// request's ownership fields. The request itself is not modified.
//
// Error mapping: a terminal current status yields REQUEST_CLOSED; an edge
// missing from the table (including from == to) yields
// INVALID_STATUS_TRANSITION; a known edge that this actor may not drive
// yields FORBIDDEN.
func CanTransition(req *MaintenanceRequest, to Status, actor Actor) *apperrors.AppError {
	from := req.Status
	if from.Terminal() {
		return apperrors.New(apperrors.CodeRequestClosed,
			"request is in a terminal state", http.StatusConflict)
	}
	if from == to {
		// A no-op transition would append a meaningless history row.
		return apperrors.New(apperrors.CodeInvalidTransition,
			"request is already in the requested status", http.StatusUnprocessableEntity)
	}

	// Blanket rule: admins may cancel any non-terminal request.
	if to == StatusRejected && actor.Role == RoleAdmin {
		return nil
	}

	rule, ok := transitions[from][to]
	if !ok {
		return apperrors.New(apperrors.CodeInvalidTransition,
			"status transition is not allowed", http.StatusUnprocessableEntity)
	}

	switch {
	case rule.admin && actor.Role == RoleAdmin:
		return nil
	case rule.assignee && req.Assigned() && actor.ID == *req.AssignedToID:
		return nil
	case rule.requester && actor.ID == req.RequestedByID:
		return nil
	case rule.system && actor.IsSystem():
		return nil
	}
	return apperrors.New(apperrors.CodeForbidden,
		"actor may not perform this transition", http.StatusForbidden)
}
