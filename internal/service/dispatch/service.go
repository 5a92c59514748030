package dispatch

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pushline/push-api/internal/model"
	"github.com/pushline/push-api/internal/service/delivery"
	"github.com/pushline/push-api/internal/service/keyring"
	"github.com/pushline/push-api/internal/service/subscription"
	apperrors "github.com/pushline/push-api/pkg/errors"
	"github.com/pushline/push-api/pkg/logger"
	"github.com/pushline/push-api/pkg/messaging"
	"github.com/pushline/push-api/pkg/metrics"
	"github.com/pushline/push-api/pkg/push"
)

// NotificationStore is the slice of the notification repository the engine
// mutates directly (status transitions around the fan-out).
type NotificationStore interface {
	MarkSending(ctx context.Context, id uuid.UUID) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// Result aggregates one dispatch call.
type Result struct {
	SuccessCount int `json:"success_count"`
	FailureCount int `json:"failure_count"`
}

// Config bounds the fan-out.
type Config struct {
	// Workers caps concurrent sends regardless of subscriber-set size.
	Workers int
	// SendTimeout bounds each individual push attempt.
	SendTimeout time.Duration
	// DefaultTTL is applied when the notification has none, in seconds.
	DefaultTTL int
	// SubscriberContact is the VAPID contact address.
	SubscriberContact string
}

type Engine struct {
	notifications NotificationStore
	registry      subscription.Service
	tracker       delivery.Tracker
	keyring       keyring.Service
	sender        push.Sender
	broker        messaging.Broker
	config        Config
	logger        *logger.Logger
	metrics       *metrics.Metrics
}

func NewEngine(
	notifications NotificationStore,
	registry subscription.Service,
	tracker delivery.Tracker,
	keyring keyring.Service,
	sender push.Sender,
	broker messaging.Broker,
	config Config,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Engine {
	if config.Workers <= 0 {
		panic("Workers must be greater than 0")
	}
	if config.SendTimeout <= 0 {
		panic("SendTimeout must be greater than 0")
	}

	return &Engine{
		notifications: notifications,
		registry:      registry,
		tracker:       tracker,
		keyring:       keyring,
		sender:        sender,
		broker:        broker,
		config:        config,
		logger:        logger,
		metrics:       metrics,
	}
}

// Dispatch fans the notification out to its active subscriber set. Delivery
// failures are absorbed into counters; only setup-level failures (claim
// conflict, missing signing keys) return an error. domainIDs restricts
// targeting; nil falls back to the notification's stored target set.
func (e *Engine) Dispatch(ctx context.Context, n *model.Notification, domainIDs []uuid.UUID) (*Result, error) {
	start := time.Now()
	log := e.logger.WithFields(map[string]interface{}{
		"client_id":       n.ClientID.String(),
		"notification_id": n.ID.String(),
	})

	// The scheduler claims rows into sending before handing them over; an
	// immediate dispatch claims here.
	if n.Status != model.NotificationStatusSending {
		claimed, err := e.notifications.MarkSending(ctx, n.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to claim notification: %w", err)
		}
		if !claimed {
			return nil, fmt.Errorf("notification %s is not in a dispatchable state", n.ID)
		}
	}

	keys, err := e.keyring.ActiveKeys(ctx, n.ClientID)
	if err != nil {
		// Fatal: the transport cannot be initialized for this client.
		e.fail(ctx, n, "no active signing keys")
		return nil, apperrors.NewInternal(fmt.Errorf("no active signing keys for client %s: %w", n.ClientID, err))
	}

	ttl := n.TTL
	if ttl <= 0 {
		ttl = e.config.DefaultTTL
	}
	payload, err := buildPayload(n, ttl)
	if err != nil {
		e.fail(ctx, n, "payload encoding failed")
		return nil, err
	}

	if len(domainIDs) == 0 {
		domainIDs = n.TargetDomainIDs
	}
	cursor, err := e.registry.ActiveSubscribersFor(ctx, n.ClientID, domainIDs)
	if err != nil {
		e.fail(ctx, n, "subscriber resolution failed")
		return nil, err
	}
	defer cursor.Close()

	opts := push.Options{
		Subscriber:      e.config.SubscriberContact,
		VAPIDPublicKey:  keys.PublicKey,
		VAPIDPrivateKey: keys.PrivateKey,
		TTL:             ttl,
		Topic:           n.Tag,
	}

	var (
		wg       sync.WaitGroup
		success  atomic.Int64
		failure  atomic.Int64
		resolved int
	)
	jobs := make(chan *model.Subscriber)

	for i := 0; i < e.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sub := range jobs {
				if e.sendOne(ctx, log, n, sub, payload, opts) {
					success.Add(1)
				} else {
					failure.Add(1)
				}
			}
		}()
	}

	for cursor.Next() {
		resolved++
		jobs <- cursor.Subscriber()
	}
	close(jobs)
	wg.Wait()

	if err := cursor.Err(); err != nil {
		log.Error(err, "subscriber cursor ended early")
	}

	if resolved == 0 {
		e.fail(ctx, n, "no active subscribers")
		if e.metrics != nil {
			e.metrics.DispatchesTotal.WithLabelValues("failed").Inc()
		}
		return &Result{}, nil
	}

	if err := e.tracker.FinalizeNotification(ctx, n.ID); err != nil {
		log.Error(err, "failed to finalize notification")
	}

	result := &Result{
		SuccessCount: int(success.Load()),
		FailureCount: int(failure.Load()),
	}

	if e.metrics != nil {
		e.metrics.DispatchesTotal.WithLabelValues("sent").Inc()
		e.metrics.DispatchDuration.Observe(time.Since(start).Seconds())
	}
	e.publish(ctx, messaging.TopicNotificationSent, map[string]interface{}{
		"notification_id": n.ID,
		"client_id":       n.ClientID,
		"successful":      result.SuccessCount,
		"failed":          result.FailureCount,
	})
	log.Info("dispatch complete",
		"subscribers", resolved,
		"successful", result.SuccessCount,
		"failed", result.FailureCount,
		"duration", time.Since(start).String())

	return result, nil
}

// sendOne pushes to a single subscriber and reports the classified outcome.
// Returns true when the push service accepted the message.
func (e *Engine) sendOne(ctx context.Context, log *logger.Logger, n *model.Notification, sub *model.Subscriber, payload []byte, opts push.Options) bool {
	attemptCtx, cancel := context.WithTimeout(ctx, e.config.SendTimeout)
	defer cancel()

	status, err := e.sender.Send(attemptCtx, push.Subscription{
		Endpoint: sub.Endpoint,
		P256dh:   sub.P256dhKey,
		Auth:     sub.AuthKey,
	}, payload, opts)

	outcome := classify(status, err)
	switch outcome {
	case outcomeDelivered:
		e.record(ctx, log, n.ID, sub.ID, delivery.Outcome{Delivered: true})
		e.observeDelivery("delivered")
		return true

	case outcomePermanent:
		// 404/410: the subscription no longer exists at the push service.
		e.record(ctx, log, n.ID, sub.ID, delivery.Outcome{
			ErrorMessage: fmt.Sprintf("subscription gone (status %d)", status),
		})
		if err := e.registry.Deactivate(ctx, sub.ID); err != nil {
			log.Error(err, "failed to deactivate subscriber", "subscriber_id", sub.ID.String())
		} else if e.metrics != nil {
			e.metrics.SubscribersDeactivated.Inc()
		}
		e.publish(ctx, messaging.TopicSubscriberRemoved, map[string]interface{}{
			"client_id":     sub.ClientID,
			"subscriber_id": sub.ID,
			"reason":        "permanent delivery failure",
		})
		e.observeDelivery("failed_permanent")

	default:
		msg := fmt.Sprintf("push failed with status %d", status)
		if err != nil {
			msg = err.Error()
		}
		e.record(ctx, log, n.ID, sub.ID, delivery.Outcome{ErrorMessage: msg})
		e.observeDelivery("failed_transient")
	}

	log.Debug("push attempt failed",
		"subscriber_id", sub.ID.String(),
		"status", status,
		"permanent", outcome == outcomePermanent)
	return false
}

type outcomeClass int

const (
	outcomeDelivered outcomeClass = iota
	outcomeTransient
	outcomePermanent
)

func classify(status int, err error) outcomeClass {
	if err != nil {
		return outcomeTransient
	}
	switch {
	case status >= 200 && status < 300:
		return outcomeDelivered
	case status == http.StatusNotFound || status == http.StatusGone:
		return outcomePermanent
	default:
		return outcomeTransient
	}
}

func (e *Engine) record(ctx context.Context, log *logger.Logger, notificationID, subscriberID uuid.UUID, outcome delivery.Outcome) {
	if err := e.tracker.RecordDelivery(ctx, notificationID, subscriberID, outcome); err != nil {
		log.Error(err, "failed to record delivery", "subscriber_id", subscriberID.String())
	}
}

func (e *Engine) fail(ctx context.Context, n *model.Notification, reason string) {
	if err := e.notifications.MarkFailed(ctx, n.ID, reason); err != nil {
		e.logger.Error(err, "failed to mark notification failed",
			"notification_id", n.ID.String(), "reason", reason)
	}
	e.publish(ctx, messaging.TopicNotificationFailed, map[string]interface{}{
		"notification_id": n.ID,
		"client_id":       n.ClientID,
		"reason":          reason,
	})
}

func (e *Engine) observeDelivery(outcome string) {
	if e.metrics != nil {
		e.metrics.DeliveriesTotal.With(prometheus.Labels{"outcome": outcome}).Inc()
	}
}

func (e *Engine) publish(ctx context.Context, topic string, payload interface{}) {
	if e.broker == nil {
		return
	}
	if err := e.broker.Publish(ctx, topic, payload); err != nil {
		e.logger.Error(err, "failed to publish dispatch event", "topic", topic)
	}
}
