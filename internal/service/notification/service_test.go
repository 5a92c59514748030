package notification_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushline/push-api/internal/model"
	"github.com/pushline/push-api/internal/repository/memory"
	"github.com/pushline/push-api/internal/service/notification"
	apperrors "github.com/pushline/push-api/pkg/errors"
)

func newComposer(t *testing.T) (notification.Service, *memory.Store, uuid.UUID) {
	t.Helper()
	store := memory.NewStore()
	clientID := uuid.New()
	store.AddClient(&model.Client{ID: clientID, Name: "acme", Active: true})
	svc := notification.NewService(store.Notifications(), store, store)
	return svc, store, clientID
}

func composeRequest(clientID uuid.UUID) *notification.ComposeRequest {
	return &notification.ComposeRequest{
		ClientID:  clientID,
		Title:     "Flash Sale",
		Body:      "Everything half off today",
		TargetURL: "https://acme.example/sale",
	}
}

func TestComposeImmediate(t *testing.T) {
	svc, store, clientID := newComposer(t)
	ctx := context.Background()

	n, err := svc.Compose(ctx, composeRequest(clientID))
	require.NoError(t, err)
	assert.Equal(t, model.NotificationStatusPending, n.Status)
	assert.NotEqual(t, uuid.Nil, n.ID)

	stored, err := store.Notifications().Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "Flash Sale", stored.Title)
}

func TestComposeScheduled(t *testing.T) {
	svc, _, clientID := newComposer(t)
	ctx := context.Background()

	future := time.Now().Add(time.Hour)
	req := composeRequest(clientID)
	req.ScheduledAt = &future
	n, err := svc.Compose(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, model.NotificationStatusScheduled, n.Status)

	// A scheduled time already in the past sends immediately.
	past := time.Now().Add(-time.Minute)
	req = composeRequest(clientID)
	req.ScheduledAt = &past
	n, err = svc.Compose(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, model.NotificationStatusPending, n.Status)
}

func TestComposeValidation(t *testing.T) {
	svc, _, clientID := newComposer(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*notification.ComposeRequest)
	}{
		{"empty title", func(r *notification.ComposeRequest) { r.Title = "" }},
		{"title too long", func(r *notification.ComposeRequest) { r.Title = strings.Repeat("x", 101) }},
		{"empty body", func(r *notification.ComposeRequest) { r.Body = "" }},
		{"body too long", func(r *notification.ComposeRequest) { r.Body = strings.Repeat("x", 301) }},
		{"bad icon url", func(r *notification.ComposeRequest) { r.Icon = "not-a-url" }},
		{"negative ttl", func(r *notification.ComposeRequest) { r.TTL = -1 }},
		{"action without title", func(r *notification.ComposeRequest) {
			r.Actions = []model.NotificationAction{{Action: "open"}}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := composeRequest(clientID)
			tc.mutate(req)
			_, err := svc.Compose(ctx, req)
			assert.True(t, apperrors.IsValidation(err), "expected validation error, got %v", err)
		})
	}

	// Rune count, not byte count: 100 multibyte characters still fit.
	req := composeRequest(clientID)
	req.Title = strings.Repeat("ü", 100)
	_, err := svc.Compose(ctx, req)
	assert.NoError(t, err)
}

func TestComposeTemplateLayering(t *testing.T) {
	svc, store, clientID := newComposer(t)
	ctx := context.Background()

	tplID := uuid.New()
	store.AddTemplate(&model.Template{
		ID:        tplID,
		ClientID:  clientID,
		Title:     "Template Title",
		Body:      "Template body text",
		Icon:      "https://acme.example/tpl-icon.png",
		TargetURL: "https://acme.example/tpl",
	})

	// Explicit fields win; empty fields fill from the template.
	req := &notification.ComposeRequest{
		ClientID:   clientID,
		TemplateID: &tplID,
		Title:      "Override Title",
	}
	n, err := svc.Compose(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "Override Title", n.Title)
	assert.Equal(t, "Template body text", n.Body)
	assert.Equal(t, "https://acme.example/tpl-icon.png", n.Icon)

	// Unknown template.
	badID := uuid.New()
	req = composeRequest(clientID)
	req.TemplateID = &badID
	_, err = svc.Compose(ctx, req)
	assert.True(t, apperrors.IsNotFound(err))

	// Another client's template is invisible.
	store.AddClient(&model.Client{ID: uuid.New(), Name: "rival", Active: true})
	foreignTpl := uuid.New()
	store.AddTemplate(&model.Template{ID: foreignTpl, ClientID: uuid.New(), Title: "x", Body: "y"})
	req = composeRequest(clientID)
	req.TemplateID = &foreignTpl
	_, err = svc.Compose(ctx, req)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestComposeQuota(t *testing.T) {
	store := memory.NewStore()
	clientID := uuid.New()
	store.AddClient(&model.Client{ID: clientID, Name: "capped", Active: true, SendLimitDay: 1})
	svc := notification.NewService(store.Notifications(), store, store)
	ctx := context.Background()

	_, err := svc.Compose(ctx, composeRequest(clientID))
	require.NoError(t, err)

	_, err = svc.Compose(ctx, composeRequest(clientID))
	assert.True(t, apperrors.IsAuthorization(err))
}

func TestComposeInactiveClient(t *testing.T) {
	store := memory.NewStore()
	clientID := uuid.New()
	store.AddClient(&model.Client{ID: clientID, Name: "suspended", Active: false})
	svc := notification.NewService(store.Notifications(), store, store)

	_, err := svc.Compose(context.Background(), composeRequest(clientID))
	assert.True(t, apperrors.IsAuthorization(err))

	_, err = svc.Compose(context.Background(), composeRequest(uuid.New()))
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGetTenantScoped(t *testing.T) {
	svc, _, clientID := newComposer(t)
	ctx := context.Background()

	n, err := svc.Compose(ctx, composeRequest(clientID))
	require.NoError(t, err)

	got, err := svc.Get(ctx, clientID, n.ID)
	require.NoError(t, err)
	assert.Equal(t, n.ID, got.ID)

	// Another tenant cannot see it.
	_, err = svc.Get(ctx, uuid.New(), n.ID)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = svc.Get(ctx, clientID, uuid.New())
	assert.True(t, apperrors.IsNotFound(err))
}
