package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/pushline/push-api/internal/model"
)

// The wire payload is a contract with the service-worker code running in
// subscribers' browsers; field names must not change.
type wireData struct {
	URL            string `json:"url,omitempty"`
	NotificationID string `json:"notificationId"`
}

type wireAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
	URL    string `json:"url,omitempty"`
}

type wirePayload struct {
	Title              string       `json:"title"`
	Body               string       `json:"body"`
	Icon               string       `json:"icon,omitempty"`
	Badge              string       `json:"badge,omitempty"`
	Data               wireData     `json:"data"`
	Actions            []wireAction `json:"actions,omitempty"`
	RequireInteraction bool         `json:"requireInteraction,omitempty"`
	Tag                string       `json:"tag,omitempty"`
	TTL                int          `json:"ttl,omitempty"`
}

func buildPayload(n *model.Notification, ttl int) ([]byte, error) {
	p := wirePayload{
		Title: n.Title,
		Body:  n.Body,
		Icon:  n.Icon,
		Badge: n.Badge,
		Data: wireData{
			URL:            n.TargetURL,
			NotificationID: n.ID.String(),
		},
		RequireInteraction: n.RequireInteraction,
		Tag:                n.Tag,
		TTL:                ttl,
	}
	for _, a := range n.Actions {
		p.Actions = append(p.Actions, wireAction{
			Action: a.Action,
			Title:  a.Title,
			Icon:   a.Icon,
			URL:    a.URL,
		})
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal push payload: %w", err)
	}
	return payload, nil
}
