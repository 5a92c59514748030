package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type NotificationStatus string

const (
	NotificationStatusDraft     NotificationStatus = "draft"
	NotificationStatusPending   NotificationStatus = "pending"
	NotificationStatusScheduled NotificationStatus = "scheduled"
	NotificationStatusSending   NotificationStatus = "sending"
	NotificationStatusSent      NotificationStatus = "sent"
	NotificationStatusFailed    NotificationStatus = "failed"
)

// NotificationAction is one action button on the rendered notification.
type NotificationAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
	URL    string `json:"url,omitempty"`
}

// Actions stores action buttons as a JSON column.
type Actions []NotificationAction

func (a Actions) Value() (driver.Value, error) {
	if len(a) == 0 {
		return nil, nil
	}
	return json.Marshal(a)
}

func (a *Actions) Scan(src interface{}) error {
	if src == nil {
		*a = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported actions column type %T", src)
	}
	return json.Unmarshal(b, a)
}

// UUIDList stores a set of uuids as a JSON column.
type UUIDList []uuid.UUID

func (l UUIDList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *UUIDList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported uuid list column type %T", src)
	}
	return json.Unmarshal(b, l)
}

// Notification is one send intent. Counters are mutated only through atomic
// increments; status follows
// draft -> pending|scheduled -> sending -> sent|failed.
type Notification struct {
	ID                 uuid.UUID          `db:"id" json:"id"`
	ClientID           uuid.UUID          `db:"client_id" json:"client_id"`
	Title              string             `db:"title" json:"title"`
	Body               string             `db:"body" json:"body"`
	Icon               string             `db:"icon" json:"icon,omitempty"`
	Badge              string             `db:"badge" json:"badge,omitempty"`
	TargetURL          string             `db:"target_url" json:"target_url,omitempty"`
	Tag                string             `db:"tag" json:"tag,omitempty"`
	TTL                int                `db:"ttl" json:"ttl"`
	RequireInteraction bool               `db:"require_interaction" json:"require_interaction"`
	Actions            Actions            `db:"actions" json:"actions,omitempty"`
	TargetDomainIDs    UUIDList           `db:"target_domain_ids" json:"target_domain_ids,omitempty"`
	Status             NotificationStatus `db:"status" json:"status"`
	FailureReason      string             `db:"failure_reason" json:"failure_reason,omitempty"`
	ScheduledAt        *time.Time         `db:"scheduled_at" json:"scheduled_at,omitempty"`
	SuccessfulSends    int                `db:"successful_sends" json:"successful_sends"`
	FailedSends        int                `db:"failed_sends" json:"failed_sends"`
	ClickCount         int                `db:"click_count" json:"click_count"`
	SentAt             *time.Time         `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updated_at"`
}

// Template is a reusable per-client content preset; explicit compose fields
// win over template values.
type Template struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	ClientID           uuid.UUID `db:"client_id" json:"client_id"`
	Name               string    `db:"name" json:"name"`
	Title              string    `db:"title" json:"title"`
	Body               string    `db:"body" json:"body"`
	Icon               string    `db:"icon" json:"icon,omitempty"`
	Badge              string    `db:"badge" json:"badge,omitempty"`
	TargetURL          string    `db:"target_url" json:"target_url,omitempty"`
	Tag                string    `db:"tag" json:"tag,omitempty"`
	TTL                int       `db:"ttl" json:"ttl"`
	RequireInteraction bool      `db:"require_interaction" json:"require_interaction"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}
