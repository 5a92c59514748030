// Package memory holds a mutex-guarded in-memory Store implementing every
// repository interface. Tests inject it in place of postgres; the semantics
// (upsert on (client_id, endpoint), atomic counter increments, claim-once
// scheduling) mirror the SQL implementation.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pushline/push-api/internal/model"
	"github.com/pushline/push-api/internal/repository"
)

type Store struct {
	mu            sync.Mutex
	clients       map[uuid.UUID]*model.Client
	domains       map[uuid.UUID]*model.Domain
	vapidKeys     map[uuid.UUID]*model.VAPIDKey
	templates     map[uuid.UUID]*model.Template
	subscribers   map[uuid.UUID]*model.Subscriber
	notifications map[uuid.UUID]*model.Notification
	deliveries    map[uuid.UUID]*model.Delivery
	clicks        map[uuid.UUID]*model.ClickEvent
}

func NewStore() *Store {
	return &Store{
		clients:       make(map[uuid.UUID]*model.Client),
		domains:       make(map[uuid.UUID]*model.Domain),
		vapidKeys:     make(map[uuid.UUID]*model.VAPIDKey),
		templates:     make(map[uuid.UUID]*model.Template),
		subscribers:   make(map[uuid.UUID]*model.Subscriber),
		notifications: make(map[uuid.UUID]*model.Notification),
		deliveries:    make(map[uuid.UUID]*model.Delivery),
		clicks:        make(map[uuid.UUID]*model.ClickEvent),
	}
}

// Seed helpers

func (s *Store) AddClient(c *model.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.clients[c.ID] = &cp
}

func (s *Store) AddDomain(d *model.Domain) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.domains[d.ID] = &cp
}

func (s *Store) AddVAPIDKey(k *model.VAPIDKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *k
	s.vapidKeys[k.ID] = &cp
}

func (s *Store) AddTemplate(t *model.Template) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.templates[t.ID] = &cp
}

// ClientRepository

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// DomainRepository lives on a separate view because its Get signature
// collides with ClientRepository's.

func (s *Store) Domains() repository.DomainRepository { return &domainView{s} }

type domainView struct{ s *Store }

func (v *domainView) Get(ctx context.Context, id uuid.UUID) (*model.Domain, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	d, ok := v.s.domains[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

// NotificationRepository Get also collides; expose the store itself for all
// non-colliding interfaces and a view per colliding one.

func (s *Store) Notifications() repository.NotificationRepository { return &notificationView{s} }

type notificationView struct{ s *Store }

func (v *notificationView) Create(ctx context.Context, n *model.Notification) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	now := time.Now()
	n.CreatedAt = now
	n.UpdatedAt = now
	cp := *n
	v.s.notifications[n.ID] = &cp
	return nil
}

func (v *notificationView) Get(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	n, ok := v.s.notifications[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (v *notificationView) MarkSending(ctx context.Context, id uuid.UUID) (bool, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	n, ok := v.s.notifications[id]
	if !ok {
		return false, nil
	}
	if n.Status != model.NotificationStatusPending && n.Status != model.NotificationStatusScheduled {
		return false, nil
	}
	n.Status = model.NotificationStatusSending
	n.UpdatedAt = time.Now()
	return true, nil
}

func (v *notificationView) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	n, ok := v.s.notifications[id]
	if !ok {
		return repository.ErrNotFound
	}
	n.Status = model.NotificationStatusFailed
	n.FailureReason = reason
	n.UpdatedAt = time.Now()
	return nil
}

func (v *notificationView) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	n, ok := v.s.notifications[id]
	if !ok {
		return repository.ErrNotFound
	}
	if n.Status != model.NotificationStatusSending {
		return nil
	}
	n.Status = model.NotificationStatusSent
	at := sentAt
	n.SentAt = &at
	n.UpdatedAt = sentAt
	return nil
}

func (v *notificationView) IncrementSendCounters(ctx context.Context, id uuid.UUID, delivered bool) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	n, ok := v.s.notifications[id]
	if !ok {
		return repository.ErrNotFound
	}
	if delivered {
		n.SuccessfulSends++
	} else {
		n.FailedSends++
	}
	n.UpdatedAt = time.Now()
	return nil
}

func (v *notificationView) IncrementClickCount(ctx context.Context, id uuid.UUID) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	n, ok := v.s.notifications[id]
	if !ok {
		return repository.ErrNotFound
	}
	n.ClickCount++
	n.UpdatedAt = time.Now()
	return nil
}

func (v *notificationView) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*model.Notification, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	var due []*model.Notification
	for _, n := range v.s.notifications {
		if n.Status == model.NotificationStatusScheduled && n.ScheduledAt != nil && !n.ScheduledAt.After(now) {
			due = append(due, n)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].ScheduledAt.Before(*due[j].ScheduledAt)
	})
	if len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]*model.Notification, 0, len(due))
	for _, n := range due {
		n.Status = model.NotificationStatusSending
		n.UpdatedAt = now
		cp := *n
		claimed = append(claimed, &cp)
	}
	return claimed, nil
}

func (v *notificationView) CountCreatedSince(ctx context.Context, clientID uuid.UUID, since time.Time) (int, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	count := 0
	for _, n := range v.s.notifications {
		if n.ClientID == clientID && !n.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// VAPIDKeyRepository

func (s *Store) ActiveForClient(ctx context.Context, clientID uuid.UUID) (*model.VAPIDKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.vapidKeys {
		if k.ClientID == clientID && k.Active {
			cp := *k
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

// TemplateRepository

func (s *Store) GetForClient(ctx context.Context, clientID, id uuid.UUID) (*model.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[id]
	if !ok || t.ClientID != clientID {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// SubscriberRepository

func (s *Store) Subscribers() repository.SubscriberRepository { return &subscriberView{s} }

type subscriberView struct{ s *Store }

func (v *subscriberView) Upsert(ctx context.Context, sub *model.Subscriber) (*model.Subscriber, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	now := time.Now()

	for _, existing := range v.s.subscribers {
		if existing.ClientID == sub.ClientID && existing.Endpoint == sub.Endpoint {
			existing.DomainID = sub.DomainID
			existing.P256dhKey = sub.P256dhKey
			existing.AuthKey = sub.AuthKey
			existing.UserAgent = sub.UserAgent
			existing.PageURL = sub.PageURL
			existing.Active = true
			existing.LastSeenAt = now
			existing.UpdatedAt = now
			cp := *existing
			return &cp, nil
		}
	}

	created := *sub
	created.ID = uuid.New()
	created.Active = true
	created.LastSeenAt = now
	created.CreatedAt = now
	created.UpdatedAt = now
	v.s.subscribers[created.ID] = &created
	cp := created
	return &cp, nil
}

func (v *subscriberView) GetByEndpoint(ctx context.Context, clientID uuid.UUID, endpoint string) (*model.Subscriber, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, sub := range v.s.subscribers {
		if sub.ClientID == clientID && sub.Endpoint == endpoint {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (v *subscriberView) Deactivate(ctx context.Context, id uuid.UUID) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if sub, ok := v.s.subscribers[id]; ok && sub.Active {
		sub.Active = false
		sub.UpdatedAt = time.Now()
	}
	return nil
}

func (v *subscriberView) DeactivateActiveByEndpoint(ctx context.Context, clientID uuid.UUID, endpoint string) (bool, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, sub := range v.s.subscribers {
		if sub.ClientID == clientID && sub.Endpoint == endpoint && sub.Active {
			sub.Active = false
			sub.UpdatedAt = time.Now()
			return true, nil
		}
	}
	return false, nil
}

func (v *subscriberView) ActiveForClient(ctx context.Context, clientID uuid.UUID, domainIDs []uuid.UUID) (repository.SubscriberCursor, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	domainSet := make(map[uuid.UUID]bool, len(domainIDs))
	for _, id := range domainIDs {
		domainSet[id] = true
	}

	var matched []*model.Subscriber
	for _, sub := range v.s.subscribers {
		if sub.ClientID != clientID || !sub.Active {
			continue
		}
		if len(domainSet) > 0 && !domainSet[sub.DomainID] {
			continue
		}
		cp := *sub
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	return &sliceCursor{subs: matched}, nil
}

type sliceCursor struct {
	subs []*model.Subscriber
	pos  int
}

func (c *sliceCursor) Next() bool {
	if c.pos >= len(c.subs) {
		return false
	}
	c.pos++
	return true
}

func (c *sliceCursor) Subscriber() *model.Subscriber { return c.subs[c.pos-1] }
func (c *sliceCursor) Err() error                    { return nil }
func (c *sliceCursor) Close() error                  { return nil }

// DeliveryRepository

func (s *Store) Deliveries() repository.DeliveryRepository { return &deliveryView{s} }

type deliveryView struct{ s *Store }

func (v *deliveryView) Create(ctx context.Context, d *model.Delivery) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt = time.Now()
	cp := *d
	v.s.deliveries[d.ID] = &cp
	return nil
}

func (v *deliveryView) CountByNotification(ctx context.Context, notificationID uuid.UUID) (int, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	count := 0
	for _, d := range v.s.deliveries {
		if d.NotificationID == notificationID {
			count++
		}
	}
	return count, nil
}

// ClickRepository

func (s *Store) Clicks() repository.ClickRepository { return &clickView{s} }

type clickView struct{ s *Store }

func (v *clickView) Create(ctx context.Context, e *model.ClickEvent) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now()
	cp := *e
	v.s.clicks[e.ID] = &cp
	return nil
}

// ClickCount reports how many click events exist for a notification.
func (s *Store) ClickCount(notificationID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, e := range s.clicks {
		if e.NotificationID == notificationID {
			count++
		}
	}
	return count
}
