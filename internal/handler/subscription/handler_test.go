package subscription_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushline/push-api/internal/handler/subscription"
	"github.com/pushline/push-api/internal/model"
	"github.com/pushline/push-api/internal/repository/memory"
	"github.com/pushline/push-api/internal/service/keyring"
	subscriptionService "github.com/pushline/push-api/internal/service/subscription"
	"github.com/pushline/push-api/pkg/logger"
)

func setupRouter(t *testing.T) (*gin.Engine, uuid.UUID, uuid.UUID) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	clientID := uuid.New()
	domainID := uuid.New()
	store.AddClient(&model.Client{ID: clientID, Name: "acme", Active: true})
	store.AddDomain(&model.Domain{ID: domainID, ClientID: clientID, Name: "acme.example", Verified: true, Active: true})
	store.AddVAPIDKey(&model.VAPIDKey{ID: uuid.New(), ClientID: clientID, PublicKey: "test-public-key", PrivateKey: "secret", Active: true})

	quiet := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	svc := subscriptionService.NewService(store.Subscribers(), store.Domains(), nil, quiet)
	h := subscription.NewHandler(svc, keyring.NewService(store, time.Minute))

	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))
	return r, clientID, domainID
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSubscribeEndpoint(t *testing.T) {
	r, clientID, domainID := setupRouter(t)

	body := map[string]interface{}{
		"endpoint": "https://push.example/ep-1",
		"keys":     map[string]string{"p256dh": "p", "auth": "a"},
		"clientId": clientID.String(),
		"domainId": domainID.String(),
		"url":      "https://acme.example/landing",
	}
	w := doJSON(r, http.MethodPost, "/api/v1/subscriptions", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Success bool             `json:"success"`
		Data    model.Subscriber `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.True(t, resp.Data.Active)
	assert.Equal(t, clientID, resp.Data.ClientID)

	// Missing keys fail binding before the service is reached.
	w = doJSON(r, http.MethodPost, "/api/v1/subscriptions", map[string]interface{}{
		"endpoint": "https://push.example/ep-2",
		"clientId": clientID.String(),
		"domainId": domainID.String(),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Unknown domain maps to 404.
	w = doJSON(r, http.MethodPost, "/api/v1/subscriptions", map[string]interface{}{
		"endpoint": "https://push.example/ep-3",
		"keys":     map[string]string{"p256dh": "p", "auth": "a"},
		"clientId": clientID.String(),
		"domainId": uuid.NewString(),
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnsubscribeEndpoint(t *testing.T) {
	r, clientID, domainID := setupRouter(t)

	doJSON(r, http.MethodPost, "/api/v1/subscriptions", map[string]interface{}{
		"endpoint": "https://push.example/ep-1",
		"keys":     map[string]string{"p256dh": "p", "auth": "a"},
		"clientId": clientID.String(),
		"domainId": domainID.String(),
	})

	w := doJSON(r, http.MethodDelete, "/api/v1/subscriptions", map[string]interface{}{
		"endpoint": "https://push.example/ep-1",
		"clientId": clientID.String(),
	})
	assert.Equal(t, http.StatusOK, w.Code)

	// Second delete finds nothing active.
	w = doJSON(r, http.MethodDelete, "/api/v1/subscriptions", map[string]interface{}{
		"endpoint": "https://push.example/ep-1",
		"clientId": clientID.String(),
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVAPIDPublicKeyEndpoint(t *testing.T) {
	r, clientID, _ := setupRouter(t)

	w := doJSON(r, http.MethodGet, fmt.Sprintf("/api/v1/clients/%s/vapid-public-key", clientID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			PublicKey string `json:"publicKey"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "test-public-key", resp.Data.PublicKey)

	// A client with no active keys gets 404, never the private material.
	w = doJSON(r, http.MethodGet, fmt.Sprintf("/api/v1/clients/%s/vapid-public-key", uuid.New()), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
