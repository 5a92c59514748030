package dispatch_test

import (
	"context"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushline/push-api/internal/model"
	"github.com/pushline/push-api/internal/repository/memory"
	"github.com/pushline/push-api/internal/service/delivery"
	"github.com/pushline/push-api/internal/service/dispatch"
	"github.com/pushline/push-api/internal/service/keyring"
	"github.com/pushline/push-api/internal/service/subscription"
	"github.com/pushline/push-api/pkg/logger"
	"github.com/pushline/push-api/pkg/push"
)

// fakeSender resolves each endpoint to a canned HTTP status.
type fakeSender struct {
	mu       sync.Mutex
	statuses map[string]int
	errs     map[string]error
	sent     []string
}

func newFakeSender() *fakeSender {
	return &fakeSender{statuses: make(map[string]int), errs: make(map[string]error)}
}

func (f *fakeSender) Send(ctx context.Context, sub push.Subscription, payload []byte, opts push.Options) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sub.Endpoint)
	if err, ok := f.errs[sub.Endpoint]; ok {
		return 0, err
	}
	if status, ok := f.statuses[sub.Endpoint]; ok {
		return status, nil
	}
	return http.StatusCreated, nil
}

func (f *fakeSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type testEnv struct {
	store    *memory.Store
	sender   *fakeSender
	engine   *dispatch.Engine
	registry subscription.Service
	clientID uuid.UUID
	domainID uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	quiet := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})

	clientID := uuid.New()
	domainID := uuid.New()
	store.AddClient(&model.Client{ID: clientID, Name: "acme", Active: true})
	store.AddDomain(&model.Domain{ID: domainID, ClientID: clientID, Name: "acme.example", Verified: true, Active: true})
	store.AddVAPIDKey(&model.VAPIDKey{ID: uuid.New(), ClientID: clientID, PublicKey: "pub", PrivateKey: "priv", Active: true})

	sender := newFakeSender()
	registry := subscription.NewService(store.Subscribers(), store.Domains(), nil, quiet)
	engine := dispatch.NewEngine(
		store.Notifications(),
		registry,
		delivery.NewTracker(store.Deliveries(), store.Notifications()),
		keyring.NewService(store, time.Minute),
		sender,
		nil,
		dispatch.Config{Workers: 4, SendTimeout: time.Second, DefaultTTL: 3600, SubscriberContact: "ops@acme.example"},
		quiet,
		nil,
	)

	return &testEnv{
		store:    store,
		sender:   sender,
		engine:   engine,
		registry: registry,
		clientID: clientID,
		domainID: domainID,
	}
}

func (env *testEnv) addSubscriber(t *testing.T, endpoint string) *model.Subscriber {
	t.Helper()
	sub, err := env.registry.Subscribe(context.Background(), &subscription.SubscribeRequest{
		ClientID:  env.clientID,
		DomainID:  env.domainID,
		Endpoint:  endpoint,
		P256dhKey: "p256dh",
		AuthKey:   "auth",
	})
	require.NoError(t, err)
	return sub
}

func (env *testEnv) addNotification(t *testing.T, status model.NotificationStatus) *model.Notification {
	t.Helper()
	n := &model.Notification{
		ClientID:  env.clientID,
		Title:     "Flash Sale",
		Body:      "Everything half off today",
		TargetURL: "https://acme.example/sale",
		Status:    status,
	}
	require.NoError(t, env.store.Notifications().Create(context.Background(), n))
	return n
}

func TestDispatchMixedOutcomes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addSubscriber(t, "https://push.example/ok-1")
	env.addSubscriber(t, "https://push.example/ok-2")
	gone := env.addSubscriber(t, "https://push.example/gone")
	env.sender.statuses["https://push.example/gone"] = http.StatusGone

	n := env.addNotification(t, model.NotificationStatusPending)

	result, err := env.engine.Dispatch(ctx, n, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 1, result.FailureCount)
	assert.Equal(t, 3, env.sender.sentCount())

	// Aggregate counters sum to one delivery row per attempt.
	stored, err := env.store.Notifications().Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, model.NotificationStatusSent, stored.Status)
	require.NotNil(t, stored.SentAt)
	assert.Equal(t, 2, stored.SuccessfulSends)
	assert.Equal(t, 1, stored.FailedSends)

	rows, err := env.store.Deliveries().CountByNotification(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.SuccessfulSends+stored.FailedSends, rows)

	// The 410 endpoint is deactivated and leaves the fan-out set.
	byEndpoint, err := env.store.Subscribers().GetByEndpoint(ctx, env.clientID, gone.Endpoint)
	require.NoError(t, err)
	assert.False(t, byEndpoint.Active)

	n2 := env.addNotification(t, model.NotificationStatusPending)
	result, err = env.engine.Dispatch(ctx, n2, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 0, result.FailureCount)
}

func TestDispatchTransientFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	flaky := env.addSubscriber(t, "https://push.example/flaky")
	env.sender.errs[flaky.Endpoint] = context.DeadlineExceeded

	n := env.addNotification(t, model.NotificationStatusPending)
	result, err := env.engine.Dispatch(ctx, n, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FailureCount)

	// Transport errors never deactivate the subscriber.
	stored, err := env.store.Subscribers().GetByEndpoint(ctx, env.clientID, flaky.Endpoint)
	require.NoError(t, err)
	assert.True(t, stored.Active)
}

func TestDispatchNoActiveSubscribers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	n := env.addNotification(t, model.NotificationStatusPending)
	result, err := env.engine.Dispatch(ctx, n, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.SuccessCount)
	assert.Equal(t, 0, result.FailureCount)

	stored, err := env.store.Notifications().Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, model.NotificationStatusFailed, stored.Status)
	assert.Equal(t, "no active subscribers", stored.FailureReason)
}

func TestDispatchRejectsAlreadySent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addSubscriber(t, "https://push.example/ok")
	n := env.addNotification(t, model.NotificationStatusSent)

	_, err := env.engine.Dispatch(ctx, n, nil)
	require.Error(t, err)
	assert.Equal(t, 0, env.sender.sentCount())
}

func TestDispatchWithoutSigningKeys(t *testing.T) {
	store := memory.NewStore()
	quiet := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})

	clientID := uuid.New()
	domainID := uuid.New()
	store.AddClient(&model.Client{ID: clientID, Name: "keyless", Active: true})
	store.AddDomain(&model.Domain{ID: domainID, ClientID: clientID, Name: "keyless.example", Verified: true, Active: true})

	registry := subscription.NewService(store.Subscribers(), store.Domains(), nil, quiet)
	engine := dispatch.NewEngine(
		store.Notifications(),
		registry,
		delivery.NewTracker(store.Deliveries(), store.Notifications()),
		keyring.NewService(store, time.Minute),
		newFakeSender(),
		nil,
		dispatch.Config{Workers: 2, SendTimeout: time.Second, DefaultTTL: 3600},
		quiet,
		nil,
	)

	ctx := context.Background()
	n := &model.Notification{ClientID: clientID, Title: "t", Body: "b", Status: model.NotificationStatusPending}
	require.NoError(t, store.Notifications().Create(ctx, n))

	_, err := engine.Dispatch(ctx, n, nil)
	require.Error(t, err)

	stored, err := store.Notifications().Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, model.NotificationStatusFailed, stored.Status)
	assert.Equal(t, "no active signing keys", stored.FailureReason)
}

func TestDispatchDomainTargeting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	otherDomain := uuid.New()
	env.store.AddDomain(&model.Domain{ID: otherDomain, ClientID: env.clientID, Name: "other.example", Verified: true, Active: true})

	env.addSubscriber(t, "https://push.example/main")
	_, err := env.registry.Subscribe(ctx, &subscription.SubscribeRequest{
		ClientID:  env.clientID,
		DomainID:  otherDomain,
		Endpoint:  "https://push.example/other",
		P256dhKey: "p256dh",
		AuthKey:   "auth",
	})
	require.NoError(t, err)

	n := env.addNotification(t, model.NotificationStatusPending)
	result, err := env.engine.Dispatch(ctx, n, []uuid.UUID{otherDomain})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, []string{"https://push.example/other"}, env.sender.sent)
}

func TestDispatchFallsBackToStoredTargets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	otherDomain := uuid.New()
	env.store.AddDomain(&model.Domain{ID: otherDomain, ClientID: env.clientID, Name: "other.example", Verified: true, Active: true})
	env.addSubscriber(t, "https://push.example/main")

	n := &model.Notification{
		ClientID:        env.clientID,
		Title:           "Targeted",
		Body:            "stored domain filter applies",
		Status:          model.NotificationStatusPending,
		TargetDomainIDs: model.UUIDList{otherDomain},
	}
	require.NoError(t, env.store.Notifications().Create(ctx, n))

	// No subscriber on the stored target domain, so the dispatch fails
	// with an empty set even though the client has other subscribers.
	result, err := env.engine.Dispatch(ctx, n, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.SuccessCount+result.FailureCount)

	stored, err := env.store.Notifications().Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, model.NotificationStatusFailed, stored.Status)
}
