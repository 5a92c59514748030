package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/pushline/push-api/internal/model"
	"github.com/pushline/push-api/internal/repository"
)

type subscriberRepository struct {
	db *sqlx.DB
}

func NewSubscriberRepository(db *sqlx.DB) repository.SubscriberRepository {
	return &subscriberRepository{db: db}
}

func (r *subscriberRepository) Upsert(ctx context.Context, sub *model.Subscriber) (*model.Subscriber, error) {
	query := `
		INSERT INTO subscribers (
			id, client_id, domain_id, endpoint, p256dh_key, auth_key,
			active, user_agent, page_url, last_seen_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, true, $7, $8, $9, $9, $9)
		ON CONFLICT (client_id, endpoint) DO UPDATE SET
			domain_id = EXCLUDED.domain_id,
			p256dh_key = EXCLUDED.p256dh_key,
			auth_key = EXCLUDED.auth_key,
			active = true,
			user_agent = EXCLUDED.user_agent,
			page_url = EXCLUDED.page_url,
			last_seen_at = EXCLUDED.last_seen_at,
			updated_at = EXCLUDED.updated_at
		RETURNING id, client_id, domain_id, endpoint, p256dh_key, auth_key,
				  active, user_agent, page_url, last_seen_at, created_at, updated_at
	`
	now := time.Now()
	var out model.Subscriber
	err := r.db.GetContext(ctx, &out, query,
		uuid.New(),
		sub.ClientID,
		sub.DomainID,
		sub.Endpoint,
		sub.P256dhKey,
		sub.AuthKey,
		sub.UserAgent,
		sub.PageURL,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert subscriber: %w", err)
	}
	return &out, nil
}

func (r *subscriberRepository) GetByEndpoint(ctx context.Context, clientID uuid.UUID, endpoint string) (*model.Subscriber, error) {
	query := `
		SELECT id, client_id, domain_id, endpoint, p256dh_key, auth_key,
			   active, user_agent, page_url, last_seen_at, created_at, updated_at
		FROM subscribers
		WHERE client_id = $1 AND endpoint = $2
	`
	var sub model.Subscriber
	err := r.db.GetContext(ctx, &sub, query, clientID, endpoint)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriber: %w", err)
	}
	return &sub, nil
}

func (r *subscriberRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE subscribers
		SET active = false, updated_at = $1
		WHERE id = $2 AND active = true
	`
	if _, err := r.db.ExecContext(ctx, query, time.Now(), id); err != nil {
		return fmt.Errorf("failed to deactivate subscriber: %w", err)
	}
	return nil
}

func (r *subscriberRepository) DeactivateActiveByEndpoint(ctx context.Context, clientID uuid.UUID, endpoint string) (bool, error) {
	query := `
		UPDATE subscribers
		SET active = false, updated_at = $1
		WHERE client_id = $2 AND endpoint = $3 AND active = true
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), clientID, endpoint)
	if err != nil {
		return false, fmt.Errorf("failed to deactivate subscriber: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *subscriberRepository) ActiveForClient(ctx context.Context, clientID uuid.UUID, domainIDs []uuid.UUID) (repository.SubscriberCursor, error) {
	query := `
		SELECT id, client_id, domain_id, endpoint, p256dh_key, auth_key,
			   active, user_agent, page_url, last_seen_at, created_at, updated_at
		FROM subscribers
		WHERE client_id = $1 AND active = true
	`
	args := []interface{}{clientID}
	if len(domainIDs) > 0 {
		query += " AND domain_id = ANY($2)"
		ids := make([]string, len(domainIDs))
		for i, id := range domainIDs {
			ids[i] = id.String()
		}
		args = append(args, pq.Array(ids))
	}

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query active subscribers: %w", err)
	}
	return &subscriberCursor{rows: rows}, nil
}

// subscriberCursor streams rows one at a time so large subscriber sets never
// materialize in memory.
type subscriberCursor struct {
	rows    *sqlx.Rows
	current model.Subscriber
	err     error
}

func (c *subscriberCursor) Next() bool {
	if c.err != nil {
		return false
	}
	if !c.rows.Next() {
		c.err = c.rows.Err()
		return false
	}
	if err := c.rows.StructScan(&c.current); err != nil {
		c.err = fmt.Errorf("failed to scan subscriber: %w", err)
		return false
	}
	return true
}

func (c *subscriberCursor) Subscriber() *model.Subscriber {
	sub := c.current
	return &sub
}

func (c *subscriberCursor) Err() error {
	return c.err
}

func (c *subscriberCursor) Close() error {
	return c.rows.Close()
}
