package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pushline/push-api/internal/model"
	"github.com/pushline/push-api/internal/repository"
)

type clientRepository struct {
	db *sqlx.DB
}

func NewClientRepository(db *sqlx.DB) repository.ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	query := `
		SELECT id, name, active, send_limit_day, send_limit_month, created_at
		FROM clients
		WHERE id = $1
	`
	var client model.Client
	err := r.db.GetContext(ctx, &client, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &client, nil
}

type domainRepository struct {
	db *sqlx.DB
}

func NewDomainRepository(db *sqlx.DB) repository.DomainRepository {
	return &domainRepository{db: db}
}

func (r *domainRepository) Get(ctx context.Context, id uuid.UUID) (*model.Domain, error) {
	query := `
		SELECT id, client_id, name, verified, active, created_at
		FROM domains
		WHERE id = $1
	`
	var domain model.Domain
	err := r.db.GetContext(ctx, &domain, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get domain: %w", err)
	}
	return &domain, nil
}

type vapidKeyRepository struct {
	db *sqlx.DB
}

func NewVAPIDKeyRepository(db *sqlx.DB) repository.VAPIDKeyRepository {
	return &vapidKeyRepository{db: db}
}

func (r *vapidKeyRepository) ActiveForClient(ctx context.Context, clientID uuid.UUID) (*model.VAPIDKey, error) {
	query := `
		SELECT id, client_id, public_key, private_key, active, created_at
		FROM vapid_keys
		WHERE client_id = $1 AND active = true
		ORDER BY created_at DESC
		LIMIT 1
	`
	var key model.VAPIDKey
	err := r.db.GetContext(ctx, &key, query, clientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active vapid key: %w", err)
	}
	return &key, nil
}

type templateRepository struct {
	db *sqlx.DB
}

func NewTemplateRepository(db *sqlx.DB) repository.TemplateRepository {
	return &templateRepository{db: db}
}

func (r *templateRepository) GetForClient(ctx context.Context, clientID, id uuid.UUID) (*model.Template, error) {
	query := `
		SELECT id, client_id, name, title, body, icon, badge, target_url,
			   tag, ttl, require_interaction, created_at
		FROM notification_templates
		WHERE id = $1 AND client_id = $2
	`
	var tpl model.Template
	err := r.db.GetContext(ctx, &tpl, query, id, clientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &tpl, nil
}
