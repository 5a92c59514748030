package delivery_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushline/push-api/internal/model"
	"github.com/pushline/push-api/internal/repository/memory"
	"github.com/pushline/push-api/internal/service/delivery"
)

func TestRecordDeliveryKeepsCountersInStep(t *testing.T) {
	store := memory.NewStore()
	tracker := delivery.NewTracker(store.Deliveries(), store.Notifications())
	ctx := context.Background()

	n := &model.Notification{ClientID: uuid.New(), Title: "t", Body: "b", Status: model.NotificationStatusSending}
	require.NoError(t, store.Notifications().Create(ctx, n))

	require.NoError(t, tracker.RecordDelivery(ctx, n.ID, uuid.New(), delivery.Outcome{Delivered: true}))
	require.NoError(t, tracker.RecordDelivery(ctx, n.ID, uuid.New(), delivery.Outcome{Delivered: true}))
	require.NoError(t, tracker.RecordDelivery(ctx, n.ID, uuid.New(), delivery.Outcome{ErrorMessage: "push failed with status 429"}))

	stored, err := store.Notifications().Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.SuccessfulSends)
	assert.Equal(t, 1, stored.FailedSends)

	rows, err := store.Deliveries().CountByNotification(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.SuccessfulSends+stored.FailedSends, rows)
}

func TestFinalizeNotification(t *testing.T) {
	store := memory.NewStore()
	tracker := delivery.NewTracker(store.Deliveries(), store.Notifications())
	ctx := context.Background()

	n := &model.Notification{ClientID: uuid.New(), Title: "t", Body: "b", Status: model.NotificationStatusSending}
	require.NoError(t, store.Notifications().Create(ctx, n))

	require.NoError(t, tracker.FinalizeNotification(ctx, n.ID))

	stored, err := store.Notifications().Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, model.NotificationStatusSent, stored.Status)
	require.NotNil(t, stored.SentAt)
}
