package service

import (
	"context"
	"fmt"

	"github.com/worktally/attendance-backend/internal/application/dispatcher"
	"github.com/worktally/attendance-backend/internal/application/port"
	"github.com/worktally/attendance-backend/internal/domain/event"
)

// NotificationService forwards selected domain events to the ops channel.
// Failures are logged, never propagated; a down messenger must not affect
// reconciliation.
type NotificationService interface {
	Register(disp dispatcher.Dispatcher)
	NotifyReconciliationFailed(ctx context.Context, evt *event.Event) error
	NotifySnapshotSubmitted(ctx context.Context, evt *event.Event) error
}

type notificationServiceImpl struct {
	sender    port.MessageSender
	receiveID string
	logger    Logger
}

// NewNotificationService creates a new NotificationService targeting one
// ops-channel receive ID
func NewNotificationService(sender port.MessageSender, receiveID string, logger Logger) NotificationService {
	return &notificationServiceImpl{
		sender:    sender,
		receiveID: receiveID,
		logger:    logger,
	}
}

// Register subscribes the notification handlers on the dispatcher
func (s *notificationServiceImpl) Register(disp dispatcher.Dispatcher) {
	disp.SubscribeNamed(event.TypeReconciliationFailed, "ops-notify", s.NotifyReconciliationFailed)
	disp.SubscribeNamed(event.TypeSnapshotSubmitted, "ops-notify", s.NotifySnapshotSubmitted)
}

// NotifyReconciliationFailed reports a failed reconciliation to the ops channel
func (s *notificationServiceImpl) NotifyReconciliationFailed(ctx context.Context, evt *event.Event) error {
	message := fmt.Sprintf(
		"Reconciliation failed for upload %d (%04d-%02d): %s",
		evt.GetPayloadInt("upload_id"),
		evt.GetPayloadInt("year"),
		evt.GetPayloadInt("month"),
		evt.GetPayloadString("error"),
	)
	return s.send(ctx, evt, message)
}

// NotifySnapshotSubmitted reports a snapshot awaiting approval
func (s *notificationServiceImpl) NotifySnapshotSubmitted(ctx context.Context, evt *event.Event) error {
	message := fmt.Sprintf(
		"Snapshot %d (%04d-%02d) submitted by %s and awaiting approval",
		evt.ReferenceID,
		evt.GetPayloadInt("year"),
		evt.GetPayloadInt("month"),
		evt.GetPayloadString("performed_by"),
	)
	return s.send(ctx, evt, message)
}

func (s *notificationServiceImpl) send(ctx context.Context, evt *event.Event, message string) error {
	if err := s.sender.SendText(ctx, s.receiveID, message); err != nil {
		s.logger.Error("Failed to send ops notification",
			"event_type", evt.Type.String(), "reference_id", evt.ReferenceID, "error", err)
		return nil
	}
	s.logger.Info("Ops notification sent", "event_type", evt.Type.String(), "reference_id", evt.ReferenceID)
	return nil
}
