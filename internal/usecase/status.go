package usecase

import (
	"context"
	"fmt"
	"time"

	"fixflow.io/fixflow/internal/domain"
	apperrors "fixflow.io/fixflow/internal/pkg/errors"
)

// UpdateStatus moves a request to the target status after validating the
// transition against the role-gated table. ASSIGNED and SUBMITTED cannot be
// reached here; those edges belong to the assignment operations, which keep
// the assignee columns consistent with the status.
func (l *Lifecycle) UpdateStatus(ctx context.Context, requestID string, target domain.Status, reason string, actor domain.Actor) (*domain.MaintenanceRequest, error) {
	if !target.Valid() {
		return nil, apperrors.ErrInvalidField("status", "unknown status")
	}
	if target == domain.StatusAssigned || target == domain.StatusSubmitted {
		return nil, apperrors.Unprocessable(apperrors.CodeInvalidTransition,
			"use the assignment operations to change assignment state")
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin status tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	req, err := l.loadForUpdate(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}

	if appErr := domain.CanTransition(req, target, actor); appErr != nil {
		return nil, appErr
	}

	now := time.Now().UTC()
	from := req.Status

	var completed *time.Time
	if target == domain.StatusCompleted {
		completed = &now
	}
	if err := l.requests.WithTx(tx).UpdateStatus(ctx, req.ID, target, completed); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	if err := l.history.WithTx(tx).InsertStatus(ctx, &domain.StatusHistory{
		ID:          newID(),
		RequestID:   req.ID,
		FromStatus:  &from,
		ToStatus:    target,
		Reason:      reason,
		ChangedByID: actor.ID,
		CreatedAt:   now,
	}); err != nil {
		return nil, fmt.Errorf("insert status history: %w", err)
	}

	payload := domain.StatusChangedPayload{
		RequestID:  req.ID,
		Identifier: req.Identifier,
		FromStatus: string(from),
		ToStatus:   string(target),
		Reason:     reason,
		ChangedBy:  actor.ID,
	}
	if err := l.logEvent(ctx, tx, domain.EventRequestStatusChanged, req.ID, actor.ID, payload); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit status tx: %w", err)
	}

	req.Status = target
	req.UpdatedAt = now
	if completed != nil {
		req.CompletedDate = completed
	}

	l.emit(domain.EventRequestStatusChanged, req.ID, actor.ID, payload)
	return req, nil
}
