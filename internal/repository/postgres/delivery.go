package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pushline/push-api/internal/model"
	"github.com/pushline/push-api/internal/repository"
)

type deliveryRepository struct {
	db *sqlx.DB
}

func NewDeliveryRepository(db *sqlx.DB) repository.DeliveryRepository {
	return &deliveryRepository{db: db}
}

func (r *deliveryRepository) Create(ctx context.Context, d *model.Delivery) error {
	query := `
		INSERT INTO deliveries (
			id, notification_id, subscriber_id, status, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		d.ID,
		d.NotificationID,
		d.SubscriberID,
		d.Status,
		d.ErrorMessage,
		d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create delivery: %w", err)
	}
	return nil
}

func (r *deliveryRepository) CountByNotification(ctx context.Context, notificationID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM deliveries WHERE notification_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, notificationID); err != nil {
		return 0, fmt.Errorf("failed to count deliveries: %w", err)
	}
	return count, nil
}

type clickRepository struct {
	db *sqlx.DB
}

func NewClickRepository(db *sqlx.DB) repository.ClickRepository {
	return &clickRepository{db: db}
}

func (r *clickRepository) Create(ctx context.Context, e *model.ClickEvent) error {
	query := `
		INSERT INTO click_events (
			id, notification_id, ip_address, user_agent, created_at
		) VALUES ($1, $2, $3, $4, $5)
	`
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		e.ID,
		e.NotificationID,
		e.IPAddress,
		e.UserAgent,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create click event: %w", err)
	}
	return nil
}
