// Package notification implements the in-app notification inbox. Deliveries
// run after the originating transaction commits, on the notification worker
// pool, so they can never roll back or slow down a lifecycle operation.
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fixflow.io/fixflow/internal/domain"
	"fixflow.io/fixflow/internal/pkg/logger"
	"fixflow.io/fixflow/internal/repository"
)

// Type constants matching the notifications.type column.
const (
	TypeRequestCreated  = "REQUEST_CREATED"
	TypeStatusChanged   = "STATUS_CHANGED"
	TypeRequestAssigned = "REQUEST_ASSIGNED"
)

// Params holds the required fields for creating a notification.
type Params struct {
	RecipientID  string
	Type         string
	Title        string
	Message      string
	ResourceType string
	ResourceID   string
}

// Sender defines the interface for sending notifications. The inbox write is
// the only implementation; external channels (email, webhook) would be added
// behind the same interface.
type Sender interface {
	// Send creates a notification for a single recipient.
	Send(ctx context.Context, params Params) error

	// SendToMany creates notifications for multiple recipients.
	// Best-effort: logs errors but does not abort on individual failures.
	SendToMany(ctx context.Context, recipientIDs []string, params Params) error
}

// InboxSender writes notifications to the notifications table.
type InboxSender struct {
	notifications *repository.NotificationRepo
}

// NewInboxSender creates a new inbox sender.
func NewInboxSender(notifications *repository.NotificationRepo) *InboxSender {
	return &InboxSender{notifications: notifications}
}

// Send stores a single notification.
func (s *InboxSender) Send(ctx context.Context, params Params) error {
	if err := validateParams(params); err != nil {
		return fmt.Errorf("notification params invalid: %w", err)
	}

	if err := s.notifications.Insert(ctx, &domain.Notification{
		ID:           uuid.NewString(),
		RecipientID:  params.RecipientID,
		Type:         params.Type,
		Title:        params.Title,
		Message:      params.Message,
		ResourceType: params.ResourceType,
		ResourceID:   params.ResourceID,
		CreatedAt:    time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("create notification for user %s: %w", params.RecipientID, err)
	}

	logger.Debug("notification sent",
		zap.String("recipient", params.RecipientID),
		zap.String("type", params.Type),
		zap.String("title", params.Title),
	)
	return nil
}

// SendToMany creates notifications for multiple recipients (best-effort).
// Failures are logged but do not prevent delivery to other recipients.
func (s *InboxSender) SendToMany(ctx context.Context, recipientIDs []string, params Params) error {
	if len(recipientIDs) == 0 {
		return nil
	}

	var failCount int
	for _, recipientID := range recipientIDs {
		p := params
		p.RecipientID = recipientID
		if err := s.Send(ctx, p); err != nil {
			failCount++
			logger.Error("notification delivery failed",
				zap.String("recipient", recipientID),
				zap.String("type", params.Type),
				zap.Error(err),
			)
		}
	}

	if failCount > 0 {
		return fmt.Errorf("notification delivery failed for %d/%d recipients", failCount, len(recipientIDs))
	}
	return nil
}

var _ Sender = (*InboxSender)(nil)

func validateParams(p Params) error {
	if p.RecipientID == "" {
		return fmt.Errorf("recipient_id is required")
	}
	if p.Title == "" {
		return fmt.Errorf("title is required")
	}
	if p.Message == "" {
		return fmt.Errorf("message is required")
	}
	return nil
}
