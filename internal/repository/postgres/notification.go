package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pushline/push-api/internal/model"
	"github.com/pushline/push-api/internal/repository"
)

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) repository.NotificationRepository {
	return &notificationRepository{db: db}
}

const notificationColumns = `
	id, client_id, title, body, icon, badge, target_url, tag, ttl,
	require_interaction, actions, target_domain_ids, status, failure_reason,
	scheduled_at, successful_sends, failed_sends, click_count, sent_at,
	created_at, updated_at
`

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (
			id, client_id, title, body, icon, badge, target_url, tag, ttl,
			require_interaction, actions, target_domain_ids, status,
			scheduled_at, successful_sends, failed_sends, click_count,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 0, 0, 0, $15, $15)
	`
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	now := time.Now()
	n.CreatedAt = now
	n.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		n.ID,
		n.ClientID,
		n.Title,
		n.Body,
		n.Icon,
		n.Badge,
		n.TargetURL,
		n.Tag,
		n.TTL,
		n.RequireInteraction,
		n.Actions,
		n.TargetDomainIDs,
		n.Status,
		n.ScheduledAt,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`

	var n model.Notification
	err := r.db.GetContext(ctx, &n, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return &n, nil
}

func (r *notificationRepository) MarkSending(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE notifications
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status IN ($4, $5)
	`
	result, err := r.db.ExecContext(ctx, query,
		model.NotificationStatusSending,
		time.Now(),
		id,
		model.NotificationStatusPending,
		model.NotificationStatusScheduled,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification sending: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *notificationRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE notifications
		SET status = $1, failure_reason = $2, updated_at = $3
		WHERE id = $4
	`
	if _, err := r.db.ExecContext(ctx, query, model.NotificationStatusFailed, reason, time.Now(), id); err != nil {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}
	return nil
}

func (r *notificationRepository) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	query := `
		UPDATE notifications
		SET status = $1, sent_at = $2, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	if _, err := r.db.ExecContext(ctx, query, model.NotificationStatusSent, sentAt, id, model.NotificationStatusSending); err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return nil
}

func (r *notificationRepository) IncrementSendCounters(ctx context.Context, id uuid.UUID, delivered bool) error {
	column := "failed_sends"
	if delivered {
		column = "successful_sends"
	}
	// Single atomic update; concurrent workers must never lose increments.
	query := fmt.Sprintf(`
		UPDATE notifications
		SET %s = %s + 1, updated_at = $1
		WHERE id = $2
	`, column, column)
	if _, err := r.db.ExecContext(ctx, query, time.Now(), id); err != nil {
		return fmt.Errorf("failed to increment send counter: %w", err)
	}
	return nil
}

func (r *notificationRepository) IncrementClickCount(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE notifications
		SET click_count = click_count + 1, updated_at = $1
		WHERE id = $2
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to increment click count: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *notificationRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*model.Notification, error) {
	// Claim and read in one statement; SKIP LOCKED keeps concurrent
	// schedulers from blocking on or double-claiming the same rows.
	query := `
		UPDATE notifications
		SET status = $1, updated_at = $2
		WHERE id IN (
			SELECT id FROM notifications
			WHERE status = $3 AND scheduled_at <= $2
			ORDER BY scheduled_at ASC
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + notificationColumns

	var claimed []*model.Notification
	err := r.db.SelectContext(ctx, &claimed, query,
		model.NotificationStatusSending,
		now,
		model.NotificationStatusScheduled,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to claim due notifications: %w", err)
	}
	return claimed, nil
}

func (r *notificationRepository) CountCreatedSince(ctx context.Context, clientID uuid.UUID, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM notifications
		WHERE client_id = $1 AND created_at >= $2
	`
	var count int
	if err := r.db.GetContext(ctx, &count, query, clientID, since); err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}
