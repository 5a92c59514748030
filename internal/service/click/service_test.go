package click_test

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushline/push-api/internal/model"
	"github.com/pushline/push-api/internal/repository/memory"
	"github.com/pushline/push-api/internal/service/click"
	apperrors "github.com/pushline/push-api/pkg/errors"
	"github.com/pushline/push-api/pkg/logger"
)

func newTracker(t *testing.T) (click.Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	quiet := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	return click.NewService(store.Notifications(), store.Clicks(), nil, quiet, nil), store
}

func TestTrackClick(t *testing.T) {
	svc, store := newTracker(t)
	ctx := context.Background()

	n := &model.Notification{ClientID: uuid.New(), Title: "t", Body: "b", Status: model.NotificationStatusSent}
	require.NoError(t, store.Notifications().Create(ctx, n))

	meta := click.Metadata{IPAddress: "203.0.113.7", UserAgent: "Mozilla/5.0"}
	require.NoError(t, svc.TrackClick(ctx, n.ID, meta))
	require.NoError(t, svc.TrackClick(ctx, n.ID, meta))

	stored, err := store.Notifications().Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.ClickCount)
	assert.Equal(t, 2, store.ClickCount(n.ID))
}

func TestTrackClickUnknownNotification(t *testing.T) {
	svc, store := newTracker(t)
	ctx := context.Background()

	unknown := uuid.New()
	err := svc.TrackClick(ctx, unknown, click.Metadata{})
	assert.True(t, apperrors.IsNotFound(err))

	// No orphan event is written when the increment finds no row.
	assert.Equal(t, 0, store.ClickCount(unknown))
}
