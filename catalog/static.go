package catalog

import (
	"context"
	"sync"

	"challenge-reward-system/models"
)

// Static serves a fixed in-memory list.
type Static struct {
	mu    sync.RWMutex
	items []models.Challenge
}

func NewStatic(items []models.Challenge) *Static {
	return &Static{items: items}
}

// NewSeeded serves the starter catalog.
func NewSeeded() *Static {
	return NewStatic(models.SeedChallenges())
}

func (s *Static) List(ctx context.Context, filter Filter) ([]models.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Apply(s.items, filter), nil
}

func (s *Static) Get(ctx context.Context, id string) (*models.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.items {
		if c.ID == id {
			c := c
			return &c, nil
		}
	}
	return nil, ErrChallengeNotFound
}

// Replace swaps the whole list.
func (s *Static) Replace(items []models.Challenge) {
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
}
