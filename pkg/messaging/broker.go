package messaging

import (
	"context"
)

// Lifecycle event channels published by the engine and consumed by the
// dashboard/analytics layer.
const (
	TopicNotificationSent     = "notification.sent"
	TopicNotificationFailed   = "notification.failed"
	TopicSubscriberRegistered = "subscriber.registered"
	TopicSubscriberRemoved    = "subscriber.deactivated"
	TopicClickTracked         = "click.tracked"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
