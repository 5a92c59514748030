package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pushline/push-api/internal/model"
)

// ErrNotFound is returned by all repositories when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// SubscriberCursor is a lazy, one-shot iteration over a subscriber set. It is
// not restartable; Close releases the underlying rows.
type SubscriberCursor interface {
	Next() bool
	Subscriber() *model.Subscriber
	Err() error
	Close() error
}

type ClientRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Client, error)
}

type DomainRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Domain, error)
}

type VAPIDKeyRepository interface {
	ActiveForClient(ctx context.Context, clientID uuid.UUID) (*model.VAPIDKey, error)
}

type TemplateRepository interface {
	GetForClient(ctx context.Context, clientID, id uuid.UUID) (*model.Template, error)
}

type SubscriberRepository interface {
	// Upsert inserts the subscriber or, when (client_id, endpoint) already
	// exists, updates its keys/domain/metadata and reactivates it.
	Upsert(ctx context.Context, sub *model.Subscriber) (*model.Subscriber, error)
	GetByEndpoint(ctx context.Context, clientID uuid.UUID, endpoint string) (*model.Subscriber, error)
	// Deactivate is idempotent; deactivating an inactive subscriber is a no-op.
	Deactivate(ctx context.Context, id uuid.UUID) error
	// DeactivateActiveByEndpoint reports whether an active match existed.
	DeactivateActiveByEndpoint(ctx context.Context, clientID uuid.UUID, endpoint string) (bool, error)
	// ActiveForClient streams active subscribers, optionally restricted to a
	// domain subset.
	ActiveForClient(ctx context.Context, clientID uuid.UUID, domainIDs []uuid.UUID) (SubscriberCursor, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	Get(ctx context.Context, id uuid.UUID) (*model.Notification, error)
	// MarkSending transitions pending|scheduled -> sending and reports
	// whether this call won the transition.
	MarkSending(ctx context.Context, id uuid.UUID) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error
	// IncrementSendCounters bumps successful_sends or failed_sends as a
	// single atomic update; safe under concurrent dispatch workers.
	IncrementSendCounters(ctx context.Context, id uuid.UUID, delivered bool) error
	IncrementClickCount(ctx context.Context, id uuid.UUID) error
	// ClaimDue atomically selects due scheduled notifications and marks them
	// sending so concurrent schedulers cannot claim the same row twice.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*model.Notification, error)
	CountCreatedSince(ctx context.Context, clientID uuid.UUID, since time.Time) (int, error)
}

type DeliveryRepository interface {
	Create(ctx context.Context, d *model.Delivery) error
	CountByNotification(ctx context.Context, notificationID uuid.UUID) (int, error)
}

type ClickRepository interface {
	Create(ctx context.Context, e *model.ClickEvent) error
}
