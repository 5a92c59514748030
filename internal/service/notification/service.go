package notification

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pushline/push-api/internal/model"
	"github.com/pushline/push-api/internal/repository"
	apperrors "github.com/pushline/push-api/pkg/errors"
)

const (
	titleMaxLen = 100
	bodyMaxLen  = 300
)

// ComposeRequest materializes into one Notification. Explicit fields win
// over template values.
type ComposeRequest struct {
	ClientID           uuid.UUID
	TemplateID         *uuid.UUID
	ScheduledAt        *time.Time
	TargetDomainIDs    []uuid.UUID
	Title              string
	Body               string
	Icon               string
	Badge              string
	TargetURL          string
	Tag                string
	TTL                int
	RequireInteraction bool
	Actions            []model.NotificationAction
}

type Service interface {
	Compose(ctx context.Context, req *ComposeRequest) (*model.Notification, error)
	Get(ctx context.Context, clientID, id uuid.UUID) (*model.Notification, error)
}

type service struct {
	notifications repository.NotificationRepository
	templates     repository.TemplateRepository
	clients       repository.ClientRepository
	validate      *validator.Validate
}

func NewService(notifications repository.NotificationRepository, templates repository.TemplateRepository, clients repository.ClientRepository) Service {
	return &service{
		notifications: notifications,
		templates:     templates,
		clients:       clients,
		validate:      validator.New(),
	}
}

func (s *service) Compose(ctx context.Context, req *ComposeRequest) (*model.Notification, error) {
	client, err := s.clients.Get(ctx, req.ClientID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("client", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve client: %w", err)
	}
	if !client.Active {
		return nil, apperrors.NewAuthorization("client is inactive", nil)
	}

	if err := s.checkQuota(ctx, client); err != nil {
		return nil, err
	}

	n := &model.Notification{
		ClientID:           req.ClientID,
		Title:              req.Title,
		Body:               req.Body,
		Icon:               req.Icon,
		Badge:              req.Badge,
		TargetURL:          req.TargetURL,
		Tag:                req.Tag,
		TTL:                req.TTL,
		RequireInteraction: req.RequireInteraction,
		Actions:            req.Actions,
		TargetDomainIDs:    req.TargetDomainIDs,
		ScheduledAt:        req.ScheduledAt,
	}

	if req.TemplateID != nil {
		tpl, err := s.templates.GetForClient(ctx, req.ClientID, *req.TemplateID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("template", err)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load template: %w", err)
		}
		applyTemplate(n, tpl)
	}

	if err := s.validateContent(n); err != nil {
		return nil, err
	}

	n.Status = model.NotificationStatusPending
	if req.ScheduledAt != nil && req.ScheduledAt.After(time.Now()) {
		n.Status = model.NotificationStatusScheduled
	}

	if err := s.notifications.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to persist notification: %w", err)
	}
	return n, nil
}

func (s *service) Get(ctx context.Context, clientID, id uuid.UUID) (*model.Notification, error) {
	n, err := s.notifications.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("notification", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	if n.ClientID != clientID {
		return nil, apperrors.NewNotFound("notification", nil)
	}
	return n, nil
}

// applyTemplate fills only the fields the request left empty.
func applyTemplate(n *model.Notification, tpl *model.Template) {
	if n.Title == "" {
		n.Title = tpl.Title
	}
	if n.Body == "" {
		n.Body = tpl.Body
	}
	if n.Icon == "" {
		n.Icon = tpl.Icon
	}
	if n.Badge == "" {
		n.Badge = tpl.Badge
	}
	if n.TargetURL == "" {
		n.TargetURL = tpl.TargetURL
	}
	if n.Tag == "" {
		n.Tag = tpl.Tag
	}
	if n.TTL == 0 {
		n.TTL = tpl.TTL
	}
	if !n.RequireInteraction {
		n.RequireInteraction = tpl.RequireInteraction
	}
}

func (s *service) validateContent(n *model.Notification) error {
	if l := utf8.RuneCountInString(n.Title); l < 1 || l > titleMaxLen {
		return apperrors.NewValidation(fmt.Sprintf("title must be 1-%d characters", titleMaxLen), nil)
	}
	if l := utf8.RuneCountInString(n.Body); l < 1 || l > bodyMaxLen {
		return apperrors.NewValidation(fmt.Sprintf("body must be 1-%d characters", bodyMaxLen), nil)
	}

	urls := map[string]string{
		"icon":       n.Icon,
		"badge":      n.Badge,
		"target_url": n.TargetURL,
	}
	for field, value := range urls {
		if value == "" {
			continue
		}
		if err := s.validate.Var(value, "url"); err != nil {
			return apperrors.NewValidation(fmt.Sprintf("%s must be a valid URL", field), err)
		}
	}
	for _, action := range n.Actions {
		if action.Action == "" || action.Title == "" {
			return apperrors.NewValidation("action entries need action and title", nil)
		}
		if action.URL != "" {
			if err := s.validate.Var(action.URL, "url"); err != nil {
				return apperrors.NewValidation("action url must be a valid URL", err)
			}
		}
	}
	if n.TTL < 0 {
		return apperrors.NewValidation("ttl must not be negative", nil)
	}
	return nil
}

func (s *service) checkQuota(ctx context.Context, client *model.Client) error {
	now := time.Now().UTC()

	if client.SendLimitDay > 0 {
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		count, err := s.notifications.CountCreatedSince(ctx, client.ID, dayStart)
		if err != nil {
			return fmt.Errorf("failed to check daily quota: %w", err)
		}
		if count >= client.SendLimitDay {
			return apperrors.NewAuthorization("daily send quota exceeded", nil)
		}
	}

	if client.SendLimitMonth > 0 {
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		count, err := s.notifications.CountCreatedSince(ctx, client.ID, monthStart)
		if err != nil {
			return fmt.Errorf("failed to check monthly quota: %w", err)
		}
		if count >= client.SendLimitMonth {
			return apperrors.NewAuthorization("monthly send quota exceeded", nil)
		}
	}

	return nil
}
