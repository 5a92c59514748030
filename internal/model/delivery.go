package model

import (
	"time"

	"github.com/google/uuid"
)

type DeliveryStatus string

const (
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

// Delivery is one subscriber-level outcome for one notification. Exactly one
// row per dispatch attempt per subscriber; immutable after creation.
type Delivery struct {
	ID             uuid.UUID      `db:"id" json:"id"`
	NotificationID uuid.UUID      `db:"notification_id" json:"notification_id"`
	SubscriberID   uuid.UUID      `db:"subscriber_id" json:"subscriber_id"`
	Status         DeliveryStatus `db:"status" json:"status"`
	ErrorMessage   string         `db:"error_message" json:"error_message,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// ClickEvent is one recorded click attribution, append-only. Browsers may
// fire the tracking beacon more than once per physical click; each firing
// gets its own row.
type ClickEvent struct {
	ID             uuid.UUID `db:"id" json:"id"`
	NotificationID uuid.UUID `db:"notification_id" json:"notification_id"`
	IPAddress      string    `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent      string    `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
