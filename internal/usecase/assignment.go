package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"fixflow.io/fixflow/internal/domain"
	apperrors "fixflow.io/fixflow/internal/pkg/errors"
)

// Assign routes a request to a technician. From SUBMITTED the status moves
// to ASSIGNED in the same transaction; reassignment from ASSIGNED or
// IN_PROGRESS swaps the technician and leaves the status alone. The
// assignment history row and any status history row commit together, so the
// two trails can never disagree about who held the request when.
func (l *Lifecycle) Assign(ctx context.Context, requestID, technicianID, reason string, actor domain.Actor) (*domain.MaintenanceRequest, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.Forbidden(apperrors.CodeForbidden, "only admins may assign requests")
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin assign tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	req, err := l.loadForUpdate(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status.Terminal() {
		return nil, apperrors.Conflict(apperrors.CodeRequestClosed,
			fmt.Sprintf("request is %s and can no longer be assigned", req.Status))
	}

	tech, err := l.validTechnician(ctx, tx, technicianID)
	if err != nil {
		return nil, err
	}
	if req.AssignedToID != nil && *req.AssignedToID == tech.ID {
		return nil, apperrors.Conflict(apperrors.CodeAlreadyAssigned,
			"request is already assigned to this technician")
	}

	assignmentType := domain.AssignmentInitial
	if req.AssignedToID != nil {
		assignmentType = domain.AssignmentReassign
	}

	switch req.Status {
	case domain.StatusSubmitted:
		// Assignment drives the SUBMITTED -> ASSIGNED edge.
	case domain.StatusAssigned, domain.StatusInProgress:
		// Technician swap, status untouched.
	default:
		return nil, apperrors.Unprocessable(apperrors.CodeInvalidTransition,
			fmt.Sprintf("cannot assign a request in status %s", req.Status))
	}

	return l.applyAssignment(ctx, tx, req, assignmentParams{
		assignedTo:     &tech.ID,
		assignedBy:     &actor.ID,
		assignmentType: assignmentType,
		reason:         reason,
		actor:          actor,
		targetStatus:   assignTargetStatus(req.Status),
	})
}

// SelfAssign lets a technician claim an unassigned SUBMITTED request. The
// technician becomes both assignee and assigner.
func (l *Lifecycle) SelfAssign(ctx context.Context, requestID, reason string, actor domain.Actor) (*domain.MaintenanceRequest, error) {
	if actor.Role != domain.RoleTechnician {
		return nil, apperrors.Forbidden(apperrors.CodeForbidden, "only technicians may self-assign")
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin self-assign tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	req, err := l.loadForUpdate(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status.Terminal() {
		return nil, apperrors.Conflict(apperrors.CodeRequestClosed,
			fmt.Sprintf("request is %s and can no longer be assigned", req.Status))
	}
	if req.AssignedToID != nil {
		return nil, apperrors.Conflict(apperrors.CodeAlreadyAssigned,
			"request is already assigned")
	}
	if req.Status != domain.StatusSubmitted {
		return nil, apperrors.Unprocessable(apperrors.CodeInvalidTransition,
			fmt.Sprintf("cannot self-assign a request in status %s", req.Status))
	}

	tech, err := l.validTechnician(ctx, tx, actor.ID)
	if err != nil {
		return nil, err
	}

	return l.applyAssignment(ctx, tx, req, assignmentParams{
		assignedTo:     &tech.ID,
		assignedBy:     &tech.ID,
		assignmentType: domain.AssignmentSelf,
		reason:         reason,
		actor:          actor,
		targetStatus:   ptrStatus(domain.StatusAssigned),
	})
}

// Unassign releases the current technician and returns the request to
// SUBMITTED. Only admins may unassign, and only from ASSIGNED; work already
// in progress has to be reassigned instead of orphaned.
func (l *Lifecycle) Unassign(ctx context.Context, requestID, reason string, actor domain.Actor) (*domain.MaintenanceRequest, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.Forbidden(apperrors.CodeForbidden, "only admins may unassign requests")
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin unassign tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	req, err := l.loadForUpdate(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status.Terminal() {
		return nil, apperrors.Conflict(apperrors.CodeRequestClosed,
			fmt.Sprintf("request is %s and can no longer be unassigned", req.Status))
	}
	if req.AssignedToID == nil {
		return nil, apperrors.Conflict(apperrors.CodeNotAssigned, "request has no assignee")
	}
	if appErr := domain.CanTransition(req, domain.StatusSubmitted, actor); appErr != nil {
		return nil, appErr
	}

	return l.applyAssignment(ctx, tx, req, assignmentParams{
		assignedTo:     nil,
		assignedBy:     &actor.ID,
		assignmentType: domain.AssignmentUnassign,
		reason:         reason,
		actor:          actor,
		targetStatus:   ptrStatus(domain.StatusSubmitted),
	})
}

type assignmentParams struct {
	assignedTo     *string
	assignedBy     *string
	assignmentType domain.AssignmentType
	reason         string
	actor          domain.Actor
	// targetStatus is nil when the assignment leaves the status untouched.
	targetStatus *domain.Status
}

// applyAssignment performs the shared write sequence and commits the
// transaction passed in by the caller.
func (l *Lifecycle) applyAssignment(ctx context.Context, tx pgx.Tx, req *domain.MaintenanceRequest, p assignmentParams) (*domain.MaintenanceRequest, error) {
	now := time.Now().UTC()
	from := req.Status
	status := from
	if p.targetStatus != nil {
		// The transition table reads "assignee" as the technician holding the
		// request after this operation, so validate against the incoming one.
		eval := *req
		eval.AssignedToID = p.assignedTo
		if appErr := domain.CanTransition(&eval, *p.targetStatus, p.actor); appErr != nil {
			return nil, appErr
		}
		status = *p.targetStatus
	}

	if err := l.requests.WithTx(tx).UpdateAssignment(ctx, req.ID, p.assignedTo, p.assignedBy, status); err != nil {
		return nil, fmt.Errorf("update assignment: %w", err)
	}

	if err := l.history.WithTx(tx).InsertAssignment(ctx, &domain.AssignmentHistory{
		ID:               newID(),
		RequestID:        req.ID,
		FromTechnicianID: req.AssignedToID,
		ToTechnicianID:   p.assignedTo,
		Type:             p.assignmentType,
		Reason:           p.reason,
		AssignedByID:     p.actor.ID,
		CreatedAt:        now,
	}); err != nil {
		return nil, fmt.Errorf("insert assignment history: %w", err)
	}

	if status != from {
		if err := l.history.WithTx(tx).InsertStatus(ctx, &domain.StatusHistory{
			ID:          newID(),
			RequestID:   req.ID,
			FromStatus:  &from,
			ToStatus:    status,
			Reason:      p.reason,
			ChangedByID: p.actor.ID,
			CreatedAt:   now,
		}); err != nil {
			return nil, fmt.Errorf("insert status history: %w", err)
		}
	}

	payload := domain.AssignmentPayload{
		RequestID:      req.ID,
		Identifier:     req.Identifier,
		AssignmentType: string(p.assignmentType),
		AssignedBy:     p.actor.ID,
	}
	if req.AssignedToID != nil {
		payload.FromTechnician = *req.AssignedToID
	}
	if p.assignedTo != nil {
		payload.ToTechnician = *p.assignedTo
	}
	if err := l.logEvent(ctx, tx, domain.EventRequestAssigned, req.ID, p.actor.ID, payload); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit assignment tx: %w", err)
	}

	req.AssignedToID = p.assignedTo
	req.AssignedByID = p.assignedBy
	req.Status = status
	req.UpdatedAt = now

	l.emit(domain.EventRequestAssigned, req.ID, p.actor.ID, payload)
	return req, nil
}

func assignTargetStatus(from domain.Status) *domain.Status {
	if from == domain.StatusSubmitted {
		return ptrStatus(domain.StatusAssigned)
	}
	return nil
}

func ptrStatus(s domain.Status) *domain.Status { return &s }
