package catalog

import (
	"context"
	"sync"
	"time"

	"challenge-reward-system/models"
)

// Cached keeps a snapshot of another catalog. Reads are served from the
// snapshot once one exists; Refresh replaces it.
type Cached struct {
	source Catalog

	mu        sync.RWMutex
	items     []models.Challenge
	refreshed time.Time
}

func NewCached(source Catalog) *Cached {
	return &Cached{source: source}
}

// Refresh pulls the full list from the source.
func (c *Cached) Refresh(ctx context.Context) error {
	items, err := c.source.List(ctx, Filter{})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.items = items
	c.refreshed = time.Now()
	c.mu.Unlock()
	return nil
}

// RefreshedAt is zero until the first successful Refresh.
func (c *Cached) RefreshedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshed
}

func (c *Cached) List(ctx context.Context, filter Filter) ([]models.Challenge, error) {
	c.mu.RLock()
	items, ok := c.items, !c.refreshed.IsZero()
	c.mu.RUnlock()
	if !ok {
		return c.source.List(ctx, filter)
	}
	return Apply(items, filter), nil
}

func (c *Cached) Get(ctx context.Context, id string) (*models.Challenge, error) {
	c.mu.RLock()
	for _, item := range c.items {
		if item.ID == id {
			item := item
			c.mu.RUnlock()
			return &item, nil
		}
	}
	c.mu.RUnlock()
	return c.source.Get(ctx, id)
}
