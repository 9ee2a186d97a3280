package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ServiceCache fronts service lookups with a small expiring LRU. Services are
// reference data; slots and reservations are never cached.
type ServiceCache struct {
	store ServiceStore
	lru   *expirable.LRU[uuid.UUID, Service]
}

// NewServiceCache returns a cache of at most size entries. size <= 0 disables
// caching and every lookup hits the store.
func NewServiceCache(store ServiceStore, size int, ttl time.Duration) *ServiceCache {
	c := &ServiceCache{store: store}
	if size > 0 {
		c.lru = expirable.NewLRU[uuid.UUID, Service](size, nil, ttl)
	}
	return c
}

func (c *ServiceCache) Get(ctx context.Context, id uuid.UUID) (*Service, error) {
	if c.lru != nil {
		if svc, ok := c.lru.Get(id); ok {
			return &svc, nil
		}
	}

	svc, err := c.store.GetService(ctx, id)
	if err != nil {
		return nil, err
	}

	if c.lru != nil {
		c.lru.Add(id, *svc)
	}
	return svc, nil
}

// GetActive is Get but reports inactive services as not found.
func (c *ServiceCache) GetActive(ctx context.Context, id uuid.UUID) (*Service, error) {
	svc, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !svc.Active {
		return nil, ErrServiceNotFound
	}
	return svc, nil
}

func (c *ServiceCache) Invalidate(id uuid.UUID) {
	if c.lru != nil {
		c.lru.Remove(id)
	}
}
