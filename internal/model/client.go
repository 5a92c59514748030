package model

import (
	"time"

	"github.com/google/uuid"
)

// Client is a tenant. Created by external provisioning; the engine only
// reads it.
type Client struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Active         bool      `db:"active" json:"active"`
	SendLimitDay   int       `db:"send_limit_day" json:"send_limit_day"`
	SendLimitMonth int       `db:"send_limit_month" json:"send_limit_month"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Domain is a verified origin owned by a client. Only verified and active
// domains may receive subscriptions or be dispatch targets.
type Domain struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ClientID  uuid.UUID `db:"client_id" json:"client_id"`
	Name      string    `db:"name" json:"name"`
	Verified  bool      `db:"verified" json:"verified"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// VAPIDKey is a client's signing key pair. A client may keep rotated-out
// pairs around; at most one is active.
type VAPIDKey struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ClientID   uuid.UUID `db:"client_id" json:"client_id"`
	PublicKey  string    `db:"public_key" json:"public_key"`
	PrivateKey string    `db:"private_key" json:"-"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
