package click

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pushline/push-api/internal/model"
	"github.com/pushline/push-api/internal/repository"
	apperrors "github.com/pushline/push-api/pkg/errors"
	"github.com/pushline/push-api/pkg/logger"
	"github.com/pushline/push-api/pkg/messaging"
	"github.com/pushline/push-api/pkg/metrics"
)

// Metadata is the request context recorded with a click.
type Metadata struct {
	IPAddress string
	UserAgent string
}

// Service records click attributions. Browsers may fire the tracking beacon
// more than once per physical click; the contract is at-least-once with a
// monotonically increasing counter, not exact dedup.
type Service interface {
	TrackClick(ctx context.Context, notificationID uuid.UUID, meta Metadata) error
}

type service struct {
	notifications repository.NotificationRepository
	clicks        repository.ClickRepository
	broker        messaging.Broker
	logger        *logger.Logger
	metrics       *metrics.Metrics
}

func NewService(notifications repository.NotificationRepository, clicks repository.ClickRepository, broker messaging.Broker, logger *logger.Logger, metrics *metrics.Metrics) Service {
	return &service{
		notifications: notifications,
		clicks:        clicks,
		broker:        broker,
		logger:        logger,
		metrics:       metrics,
	}
}

func (s *service) TrackClick(ctx context.Context, notificationID uuid.UUID, meta Metadata) error {
	// The increment doubles as the existence check; no row, no event.
	err := s.notifications.IncrementClickCount(ctx, notificationID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("notification", err)
	}
	if err != nil {
		return fmt.Errorf("failed to increment click count: %w", err)
	}

	if err := s.clicks.Create(ctx, &model.ClickEvent{
		NotificationID: notificationID,
		IPAddress:      meta.IPAddress,
		UserAgent:      meta.UserAgent,
	}); err != nil {
		return fmt.Errorf("failed to record click event: %w", err)
	}

	if s.metrics != nil {
		s.metrics.ClicksTracked.Inc()
	}
	if s.broker != nil {
		if err := s.broker.Publish(ctx, messaging.TopicClickTracked, map[string]interface{}{
			"notification_id": notificationID,
		}); err != nil {
			s.logger.Error(err, "failed to publish click event",
				"notification_id", notificationID.String())
		}
	}
	return nil
}
