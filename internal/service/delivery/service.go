package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pushline/push-api/internal/model"
	"github.com/pushline/push-api/internal/repository"
)

// Outcome is one subscriber-level dispatch result.
type Outcome struct {
	Delivered    bool
	ErrorMessage string
}

// Tracker persists per-subscriber outcomes and keeps the notification's
// aggregate counters in step with them.
type Tracker interface {
	RecordDelivery(ctx context.Context, notificationID, subscriberID uuid.UUID, outcome Outcome) error
	FinalizeNotification(ctx context.Context, notificationID uuid.UUID) error
}

type tracker struct {
	deliveries    repository.DeliveryRepository
	notifications repository.NotificationRepository
}

func NewTracker(deliveries repository.DeliveryRepository, notifications repository.NotificationRepository) Tracker {
	return &tracker{
		deliveries:    deliveries,
		notifications: notifications,
	}
}

func (t *tracker) RecordDelivery(ctx context.Context, notificationID, subscriberID uuid.UUID, outcome Outcome) error {
	status := model.DeliveryStatusFailed
	if outcome.Delivered {
		status = model.DeliveryStatusDelivered
	}

	err := t.deliveries.Create(ctx, &model.Delivery{
		NotificationID: notificationID,
		SubscriberID:   subscriberID,
		Status:         status,
		ErrorMessage:   outcome.ErrorMessage,
	})
	if err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}

	// The increment is atomic at the store; parallel workers never lose
	// updates.
	if err := t.notifications.IncrementSendCounters(ctx, notificationID, outcome.Delivered); err != nil {
		return fmt.Errorf("failed to update send counters: %w", err)
	}
	return nil
}

func (t *tracker) FinalizeNotification(ctx context.Context, notificationID uuid.UUID) error {
	if err := t.notifications.MarkSent(ctx, notificationID, time.Now()); err != nil {
		return fmt.Errorf("failed to finalize notification: %w", err)
	}
	return nil
}
