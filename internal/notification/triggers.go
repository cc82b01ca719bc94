package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"fixflow.io/fixflow/internal/domain"
	"fixflow.io/fixflow/internal/pkg/logger"
	"fixflow.io/fixflow/internal/repository"
)

const resourceRequest = "maintenance_request"

// Triggers turns request lifecycle events into inbox notifications:
//  1. request.created notifies every active admin.
//  2. request.status_changed notifies the requester, and the assignee when
//     someone else drove the change.
//  3. request.assigned notifies the technician gaining or losing the request.
type Triggers struct {
	sender   Sender
	users    *repository.UserRepo
	requests *repository.RequestRepo
}

// NewTriggers creates the notification trigger service.
func NewTriggers(sender Sender, users *repository.UserRepo, requests *repository.RequestRepo) *Triggers {
	return &Triggers{sender: sender, users: users, requests: requests}
}

// Subscribe registers the triggers on the dispatcher.
func (t *Triggers) Subscribe(d *domain.EventDispatcher) {
	d.Register(domain.EventRequestCreated, t.onRequestCreated)
	d.Register(domain.EventRequestStatusChanged, t.onStatusChanged)
	d.Register(domain.EventRequestAssigned, t.onAssigned)
}

func (t *Triggers) onRequestCreated(ctx context.Context, ev *domain.Event) error {
	var p domain.RequestCreatedPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return fmt.Errorf("decode %s payload: %w", ev.EventType, err)
	}

	admins, err := t.users.ListByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return fmt.Errorf("list admins for notification: %w", err)
	}
	if len(admins) == 0 {
		logger.Warn("no admins to notify about new request",
			zap.String("request_id", p.RequestID))
		return nil
	}

	ids := make([]string, 0, len(admins))
	for _, a := range admins {
		ids = append(ids, a.ID)
	}

	return t.sender.SendToMany(ctx, ids, Params{
		Type:         TypeRequestCreated,
		Title:        fmt.Sprintf("New maintenance request %s", p.Identifier),
		Message:      fmt.Sprintf("%q was filed for building %s with priority %s", p.Title, p.Building, p.Priority),
		ResourceType: resourceRequest,
		ResourceID:   p.RequestID,
	})
}

func (t *Triggers) onStatusChanged(ctx context.Context, ev *domain.Event) error {
	var p domain.StatusChangedPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return fmt.Errorf("decode %s payload: %w", ev.EventType, err)
	}

	req, err := t.requests.GetByID(ctx, ev.AggregateID)
	if err != nil {
		return fmt.Errorf("load request for notification: %w", err)
	}

	recipients := make([]string, 0, 2)
	if req.RequestedByID != p.ChangedBy {
		recipients = append(recipients, req.RequestedByID)
	}
	if req.AssignedToID != nil && *req.AssignedToID != p.ChangedBy {
		recipients = append(recipients, *req.AssignedToID)
	}

	msg := fmt.Sprintf("Request %s moved from %s to %s", p.Identifier, p.FromStatus, p.ToStatus)
	if p.Reason != "" {
		msg += fmt.Sprintf(": %s", p.Reason)
	}

	return t.sender.SendToMany(ctx, recipients, Params{
		Type:         TypeStatusChanged,
		Title:        fmt.Sprintf("Request %s is now %s", p.Identifier, p.ToStatus),
		Message:      msg,
		ResourceType: resourceRequest,
		ResourceID:   ev.AggregateID,
	})
}

func (t *Triggers) onAssigned(ctx context.Context, ev *domain.Event) error {
	var p domain.AssignmentPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return fmt.Errorf("decode %s payload: %w", ev.EventType, err)
	}

	recipients := make([]string, 0, 2)
	if p.ToTechnician != "" && p.ToTechnician != p.AssignedBy {
		recipients = append(recipients, p.ToTechnician)
	}
	if p.FromTechnician != "" && p.FromTechnician != p.ToTechnician {
		recipients = append(recipients, p.FromTechnician)
	}

	var title string
	switch domain.AssignmentType(p.AssignmentType) {
	case domain.AssignmentUnassign:
		title = fmt.Sprintf("Request %s was unassigned", p.Identifier)
	default:
		title = fmt.Sprintf("Request %s was assigned to you", p.Identifier)
	}

	return t.sender.SendToMany(ctx, recipients, Params{
		Type:         TypeRequestAssigned,
		Title:        title,
		Message:      fmt.Sprintf("Assignment change (%s) on request %s", p.AssignmentType, p.Identifier),
		ResourceType: resourceRequest,
		ResourceID:   ev.AggregateID,
	})
}
