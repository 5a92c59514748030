package model

import (
	"time"

	"github.com/google/uuid"
)

// Subscriber is one browser push endpoint. (client_id, endpoint) is unique;
// re-subscription updates the row instead of duplicating it. Subscribers are
// deactivated, never hard-deleted, so analytics keep their history.
type Subscriber struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ClientID   uuid.UUID `db:"client_id" json:"client_id"`
	DomainID   uuid.UUID `db:"domain_id" json:"domain_id"`
	Endpoint   string    `db:"endpoint" json:"endpoint"`
	P256dhKey  string    `db:"p256dh_key" json:"p256dh_key"`
	AuthKey    string    `db:"auth_key" json:"auth_key"`
	Active     bool      `db:"active" json:"active"`
	UserAgent  string    `db:"user_agent" json:"user_agent,omitempty"`
	PageURL    string    `db:"page_url" json:"page_url,omitempty"`
	LastSeenAt time.Time `db:"last_seen_at" json:"last_seen_at"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
