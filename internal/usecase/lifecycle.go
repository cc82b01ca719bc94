// Package usecase composes the request lifecycle operations: creation,
// status transitions and assignment.
//
// Every operation runs its writes (request row, history rows, event log) in a
// single pgx transaction. Domain events are dispatched only after commit, on
// the notification worker pool, so a slow or failing subscriber can never
// roll back or block a transition.
package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"fixflow.io/fixflow/internal/domain"
	apperrors "fixflow.io/fixflow/internal/pkg/errors"
	"fixflow.io/fixflow/internal/pkg/logger"
	"fixflow.io/fixflow/internal/pkg/worker"
	"fixflow.io/fixflow/internal/repository"
	"fixflow.io/fixflow/internal/service"
)

// Lifecycle executes maintenance-request operations atomically over the
// shared pool.
type Lifecycle struct {
	pool       *pgxpool.Pool
	allocator  *service.IdentifierAllocator
	requests   *repository.RequestRepo
	history    *repository.HistoryRepo
	users      *repository.UserRepo
	events     *repository.EventRepo
	dispatcher *domain.EventDispatcher
	pools      *worker.Pools
}

// NewLifecycle creates the lifecycle use case. dispatcher and pools may be
// nil in tests; events are then neither dispatched nor queued.
func NewLifecycle(
	pool *pgxpool.Pool,
	allocator *service.IdentifierAllocator,
	requests *repository.RequestRepo,
	history *repository.HistoryRepo,
	users *repository.UserRepo,
	events *repository.EventRepo,
	dispatcher *domain.EventDispatcher,
	pools *worker.Pools,
) *Lifecycle {
	return &Lifecycle{
		pool:       pool,
		allocator:  allocator,
		requests:   requests,
		history:    history,
		users:      users,
		events:     events,
		dispatcher: dispatcher,
		pools:      pools,
	}
}

// CreateRequestInput carries the fields for filing a new request.
type CreateRequestInput struct {
	Title            string           `json:"title" binding:"required"`
	Description      string           `json:"description"`
	Priority         domain.Priority  `json:"priority"`
	CategoryID       string           `json:"category_id"`
	Location         string           `json:"location"`
	Building         string           `json:"building" binding:"required"`
	SpecificLocation string           `json:"specific_location"`
	CustomIdentifier string           `json:"custom_identifier"`
	EstimatedCost    *float64         `json:"estimated_cost"`
	ScheduledDate    *time.Time       `json:"scheduled_date"`
}

func (in *CreateRequestInput) validate(actor domain.Actor) *apperrors.AppError {
	if strings.TrimSpace(in.Title) == "" {
		return apperrors.ErrInvalidField("title", "title is required")
	}
	if strings.TrimSpace(in.Building) == "" {
		return apperrors.ErrInvalidField("building", "building is required")
	}
	if in.Priority == "" {
		in.Priority = domain.PriorityMedium
	}
	if !in.Priority.Valid() {
		return apperrors.ErrInvalidField("priority", "unknown priority")
	}
	if in.CustomIdentifier != "" {
		if actor.Role != domain.RoleAdmin {
			return apperrors.Forbidden(apperrors.CodeForbidden,
				"only admins may supply a custom identifier")
		}
		if appErr := service.ValidateCustomIdentifier(in.CustomIdentifier); appErr != nil {
			return appErr
		}
	}
	return nil
}

// CreateRequest files a new request in SUBMITTED. Unless a custom identifier
// is supplied (admin-only, building must opt in), the next sequence number
// for the building is allocated inside the same transaction.
//
// An identifier conflict on the generated path is retried once with a fresh
// transaction; a second conflict surfaces to the caller.
func (l *Lifecycle) CreateRequest(ctx context.Context, in CreateRequestInput, actor domain.Actor) (*domain.MaintenanceRequest, error) {
	if appErr := in.validate(actor); appErr != nil {
		return nil, appErr
	}

	req, err := l.createOnce(ctx, in, actor)
	if err != nil && in.CustomIdentifier == "" {
		if appErr, ok := apperrors.IsAppError(err); ok && appErr.Code == apperrors.CodeIdentifierConflict {
			logger.Warn("identifier collision on create, retrying once",
				zap.String("building", in.Building),
			)
			req, err = l.createOnce(ctx, in, actor)
		}
	}
	if err != nil {
		return nil, err
	}

	l.emit(domain.EventRequestCreated, req.ID, actor.ID, domain.RequestCreatedPayload{
		RequestID:   req.ID,
		Identifier:  req.Identifier,
		Title:       req.Title,
		Building:    req.Building,
		Priority:    string(req.Priority),
		RequestedBy: req.RequestedByID,
	})
	return req, nil
}

func (l *Lifecycle) createOnce(ctx context.Context, in CreateRequestInput, actor domain.Actor) (*domain.MaintenanceRequest, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	var (
		identifier *domain.RequestIdentifier
		custom     *string
	)
	if in.CustomIdentifier != "" {
		identifier, err = l.allocator.WithTx(tx).AllocateCustom(ctx, in.Building, in.CustomIdentifier, actor.ID)
		if err == nil {
			custom = &identifier.Identifier
		}
	} else {
		identifier, err = l.allocator.WithTx(tx).Allocate(ctx, in.Building, now.Year(), actor.ID)
	}
	if err != nil {
		return nil, err
	}

	req := &domain.MaintenanceRequest{
		ID:               newID(),
		Identifier:       identifier.Identifier,
		Title:            strings.TrimSpace(in.Title),
		Description:      in.Description,
		Priority:         in.Priority,
		Status:           domain.StatusSubmitted,
		CategoryID:       in.CategoryID,
		Location:         in.Location,
		Building:         in.Building,
		SpecificLocation: in.SpecificLocation,
		RequestedByID:    actor.ID,
		CustomIdentifier: custom,
		EstimatedCost:    in.EstimatedCost,
		ScheduledDate:    in.ScheduledDate,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := l.requests.WithTx(tx).Insert(ctx, req); err != nil {
		return nil, fmt.Errorf("insert request: %w", err)
	}

	// Creation row: fromStatus is nil by definition.
	if err := l.history.WithTx(tx).InsertStatus(ctx, &domain.StatusHistory{
		ID:          newID(),
		RequestID:   req.ID,
		FromStatus:  nil,
		ToStatus:    domain.StatusSubmitted,
		Reason:      "request created",
		ChangedByID: actor.ID,
		CreatedAt:   now,
	}); err != nil {
		return nil, fmt.Errorf("insert creation history: %w", err)
	}

	if err := l.logEvent(ctx, tx, domain.EventRequestCreated, req.ID, actor.ID, domain.RequestCreatedPayload{
		RequestID:   req.ID,
		Identifier:  req.Identifier,
		Title:       req.Title,
		Building:    req.Building,
		Priority:    string(req.Priority),
		RequestedBy: req.RequestedByID,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create tx: %w", err)
	}
	return req, nil
}

type jsonPayload interface {
	ToJSON() ([]byte, error)
}

// logEvent appends the event to the durable log inside the transaction.
func (l *Lifecycle) logEvent(ctx context.Context, tx pgx.Tx, typ domain.EventType, aggregateID, createdBy string, payload jsonPayload) error {
	raw, err := payload.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	if err := l.events.WithTx(tx).Insert(ctx, &domain.Event{
		EventID:       newID(),
		EventType:     typ,
		AggregateType: domain.AggregateRequest,
		AggregateID:   aggregateID,
		Payload:       raw,
		CreatedBy:     createdBy,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("insert %s event: %w", typ, err)
	}
	return nil
}

// emit dispatches the event to subscribers after commit, detached from the
// caller's request context. Delivery is best-effort.
func (l *Lifecycle) emit(typ domain.EventType, aggregateID, createdBy string, payload jsonPayload) {
	if l.dispatcher == nil || l.pools == nil {
		return
	}
	raw, err := payload.ToJSON()
	if err != nil {
		logger.Error("marshal event payload", zap.String("event_type", string(typ)), zap.Error(err))
		return
	}
	ev := &domain.Event{
		EventID:       newID(),
		EventType:     typ,
		AggregateType: domain.AggregateRequest,
		AggregateID:   aggregateID,
		Payload:       raw,
		CreatedBy:     createdBy,
		CreatedAt:     time.Now().UTC(),
	}
	if err := l.pools.SubmitDetached(l.pools.Notify, func(ctx context.Context) {
		_ = l.dispatcher.Dispatch(ctx, ev)
	}); err != nil {
		logger.Warn("event dispatch submission failed",
			zap.String("event_type", string(typ)),
			zap.String("aggregate_id", aggregateID),
			zap.Error(err),
		)
	}
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
