package dispatch

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushline/push-api/internal/model"
)

func TestBuildPayloadWireFormat(t *testing.T) {
	id := uuid.New()
	n := &model.Notification{
		ID:                 id,
		Title:              "Flash Sale",
		Body:               "Half off",
		Icon:               "https://acme.example/icon.png",
		TargetURL:          "https://acme.example/sale",
		Tag:                "sale",
		RequireInteraction: true,
		Actions: model.Actions{
			{Action: "open", Title: "Open", URL: "https://acme.example/sale"},
		},
	}

	raw, err := buildPayload(n, 7200)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, "Flash Sale", decoded["title"])
	assert.Equal(t, "Half off", decoded["body"])
	assert.Equal(t, "https://acme.example/icon.png", decoded["icon"])
	assert.Equal(t, true, decoded["requireInteraction"])
	assert.Equal(t, "sale", decoded["tag"])
	assert.Equal(t, float64(7200), decoded["ttl"])

	data := decoded["data"].(map[string]interface{})
	assert.Equal(t, "https://acme.example/sale", data["url"])
	assert.Equal(t, id.String(), data["notificationId"])

	actions := decoded["actions"].([]interface{})
	require.Len(t, actions, 1)
	action := actions[0].(map[string]interface{})
	assert.Equal(t, "open", action["action"])
	assert.Equal(t, "Open", action["title"])
}

func TestBuildPayloadOmitsEmptyFields(t *testing.T) {
	n := &model.Notification{ID: uuid.New(), Title: "t", Body: "b"}

	raw, err := buildPayload(n, 60)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	_, hasIcon := decoded["icon"]
	_, hasActions := decoded["actions"]
	_, hasTag := decoded["tag"]
	assert.False(t, hasIcon)
	assert.False(t, hasActions)
	assert.False(t, hasTag)

	// notificationId is always present so the click beacon can attribute.
	data := decoded["data"].(map[string]interface{})
	assert.Equal(t, n.ID.String(), data["notificationId"])
}

func TestClassifyOutcomes(t *testing.T) {
	assert.Equal(t, outcomeDelivered, classify(http.StatusCreated, nil))
	assert.Equal(t, outcomeDelivered, classify(http.StatusOK, nil))
	assert.Equal(t, outcomePermanent, classify(http.StatusNotFound, nil))
	assert.Equal(t, outcomePermanent, classify(http.StatusGone, nil))
	assert.Equal(t, outcomeTransient, classify(http.StatusTooManyRequests, nil))
	assert.Equal(t, outcomeTransient, classify(http.StatusInternalServerError, nil))
	assert.Equal(t, outcomeTransient, classify(0, assert.AnError))
}
