package subscription

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
)

// SubscribeRequest carries the standard Web Push subscription object plus
// tenant context.
type SubscribeRequest struct {
	ClientID  uuid.UUID
	DomainID  uuid.UUID
	Endpoint  string
	P256dhKey string
	AuthKey   string
	UserAgent string
	PageURL   string
}

type Service interface {
	Subscribe(ctx context.Context, req *SubscribeRequest) (*model.Subscriber, error)
	Unsubscribe(ctx context.Context, clientID uuid.UUID, endpoint string) error
	// Deactivate is invoked by the dispatch engine on permanent delivery
	// failure; idempotent.
	Deactivate(ctx context.Context, subscriberID uuid.UUID) error
	// ActiveSubscribersFor resolves the fan-out target set as a one-shot
	// cursor.
	ActiveSubscribersFor(ctx context.Context, clientID uuid.UUID, domainIDs []uuid.UUID) (repository.SubscriberCursor, error)
}

type service struct {
	subscribers repository.SubscriberRepository
	domains     repository.DomainRepository
	broker      messaging.Broker
	logger      *logger.Logger
}

func NewService(subscribers repository.SubscriberRepository, domains repository.DomainRepository, broker messaging.Broker, logger *logger.Logger) Service {
	return &service{
		subscribers: subscribers,
		domains:     domains,
		broker:      broker,
		logger:      logger,
	}
}

func (s *service) Subscribe(ctx context.Context, req *SubscribeRequest) (*model.Subscriber, error) {
	if req.Endpoint == "" || req.P256dhKey == "" || req.AuthKey == "" {
		return nil, apperrors.NewValidation("endpoint and keys are required", nil)
	}

	domain, err := s.domains.Get(ctx, req.DomainID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("domain", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve domain: %w", err)
	}
	if domain.ClientID != req.ClientID {
		return nil, apperrors.NewNotFound("domain", nil)
	}
	if !domain.Verified || !domain.Active {
		return nil, apperrors.NewAuthorization("domain is not verified and active", nil)
	}

	sub, err := s.subscribers.Upsert(ctx, &model.Subscriber{
		ClientID:  req.ClientID,
		DomainID:  req.DomainID,
		Endpoint:  req.Endpoint,
		P256dhKey: req.P256dhKey,
		AuthKey:   req.AuthKey,
		UserAgent: req.UserAgent,
		PageURL:   req.PageURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert subscriber: %w", err)
	}

	s.publish(ctx, messaging.TopicSubscriberRegistered, sub)
	return sub, nil
}

func (s *service) Unsubscribe(ctx context.Context, clientID uuid.UUID, endpoint string) error {
	matched, err := s.subscribers.DeactivateActiveByEndpoint(ctx, clientID, endpoint)
	if err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}
	if !matched {
		return apperrors.NewNotFound("subscriber", nil)
	}

	s.publish(ctx, messaging.TopicSubscriberRemoved, map[string]interface{}{
		"client_id": clientID,
		"endpoint":  endpoint,
		"reason":    "unsubscribed",
	})
	return nil
}

func (s *service) Deactivate(ctx context.Context, subscriberID uuid.UUID) error {
	if err := s.subscribers.Deactivate(ctx, subscriberID); err != nil {
		return fmt.Errorf("failed to deactivate subscriber: %w", err)
	}
	return nil
}

func (s *service) ActiveSubscribersFor(ctx context.Context, clientID uuid.UUID, domainIDs []uuid.UUID) (repository.SubscriberCursor, error) {
	cursor, err := s.subscribers.ActiveForClient(ctx, clientID, domainIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve active subscribers: %w", err)
	}
	return cursor, nil
}

func (s *service) publish(ctx context.Context, topic string, payload interface{}) {
	if s.broker == nil {
		return
	}
	if err := s.broker.Publish(ctx, topic, payload); err != nil {
		s.logger.Error(err, "failed to publish subscriber event", "topic", topic)
	}
}
