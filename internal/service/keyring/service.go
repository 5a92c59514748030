package keyring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/pushline/push-api/internal/model"
	"github.com/pushline/push-api/internal/repository"
	apperrors "github.com/pushline/push-api/pkg/errors"
)

// Service resolves a client's active VAPID signing keys. Lookups are cached
// with a short TTL; key rotation takes effect within one cache window.
type Service interface {
	ActiveKeys(ctx context.Context, clientID uuid.UUID) (*model.VAPIDKey, error)
}

type service struct {
	keys  repository.VAPIDKeyRepository
	cache *gocache.Cache
}

func NewService(keys repository.VAPIDKeyRepository, ttl time.Duration) Service {
	return &service{
		keys:  keys,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (s *service) ActiveKeys(ctx context.Context, clientID uuid.UUID) (*model.VAPIDKey, error) {
	cacheKey := clientID.String()
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.(*model.VAPIDKey), nil
	}

	key, err := s.keys.ActiveForClient(ctx, clientID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("active signing keys", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load signing keys: %w", err)
	}

	s.cache.Set(cacheKey, key, gocache.DefaultExpiration)
	return key, nil
}
