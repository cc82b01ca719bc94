package usecase

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"fixflow.io/fixflow/internal/domain"
	apperrors "fixflow.io/fixflow/internal/pkg/errors"
	"fixflow.io/fixflow/internal/repository"
)

// loadForUpdate locks the request row, mapping a missing row to the
// domain-level not-found error.
func (l *Lifecycle) loadForUpdate(ctx context.Context, tx pgx.Tx, requestID string) (*domain.MaintenanceRequest, error) {
	req, err := l.requests.WithTx(tx).GetByIDForUpdate(ctx, requestID)
	if err != nil {
		if repository.IsNoRows(err) {
			return nil, apperrors.ErrRequestNotFound(requestID)
		}
		return nil, fmt.Errorf("load request %s: %w", requestID, err)
	}
	return req, nil
}

// validTechnician resolves the assignment target and rejects anything that is
// not an active technician account.
func (l *Lifecycle) validTechnician(ctx context.Context, tx pgx.Tx, userID string) (*domain.User, error) {
	u, err := l.users.WithTx(tx).GetByID(ctx, userID)
	if err != nil {
		if repository.IsNoRows(err) {
			return nil, apperrors.ErrInvalidTechnician(userID)
		}
		return nil, err
	}
	if u.Role != domain.RoleTechnician || !u.IsActive {
		return nil, apperrors.ErrInvalidTechnician(userID)
	}
	return u, nil
}

// GetRequest returns a single request. Customers can only read their own.
func (l *Lifecycle) GetRequest(ctx context.Context, requestID string, actor domain.Actor) (*domain.MaintenanceRequest, error) {
	req, err := l.requests.GetByID(ctx, requestID)
	if err != nil {
		if repository.IsNoRows(err) {
			return nil, apperrors.ErrRequestNotFound(requestID)
		}
		return nil, fmt.Errorf("load request %s: %w", requestID, err)
	}
	if actor.Role == domain.RoleCustomer && req.RequestedByID != actor.ID {
		return nil, apperrors.Forbidden(apperrors.CodeForbidden, "not your request")
	}
	return req, nil
}

// ListRequests returns a filtered page. For customers the filter is forced to
// their own requests regardless of what the caller asked for.
func (l *Lifecycle) ListRequests(ctx context.Context, f repository.Filter, actor domain.Actor) (*repository.Page, error) {
	if actor.Role == domain.RoleCustomer {
		f.RequestedByID = actor.ID
	}
	return l.requests.List(ctx, f)
}

// StatusHistory returns the full transition trail, oldest first.
func (l *Lifecycle) StatusHistory(ctx context.Context, requestID string, actor domain.Actor) ([]*domain.StatusHistory, error) {
	if _, err := l.GetRequest(ctx, requestID, actor); err != nil {
		return nil, err
	}
	return l.history.ListStatusByRequest(ctx, requestID)
}

// AssignmentHistory returns the assignment trail, oldest first.
func (l *Lifecycle) AssignmentHistory(ctx context.Context, requestID string, actor domain.Actor) ([]*domain.AssignmentHistory, error) {
	if _, err := l.GetRequest(ctx, requestID, actor); err != nil {
		return nil, err
	}
	return l.history.ListAssignmentByRequest(ctx, requestID)
}

// DeleteRequest removes a request and its cascaded history. Requests are
// otherwise never physically deleted; this is a deliberate admin action.
func (l *Lifecycle) DeleteRequest(ctx context.Context, requestID string, actor domain.Actor) error {
	if actor.Role != domain.RoleAdmin {
		return apperrors.Forbidden(apperrors.CodeForbidden, "only admins may delete requests")
	}
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	req, err := l.loadForUpdate(ctx, tx, requestID)
	if err != nil {
		return err
	}
	if err := l.identifiersDeactivate(ctx, tx, req.Identifier); err != nil {
		return err
	}
	if err := l.requests.WithTx(tx).Delete(ctx, req.ID); err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	return tx.Commit(ctx)
}

func (l *Lifecycle) identifiersDeactivate(ctx context.Context, tx pgx.Tx, identifier string) error {
	if err := l.allocator.WithTx(tx).Deactivate(ctx, identifier); err != nil {
		return fmt.Errorf("deactivate identifier: %w", err)
	}
	return nil
}
