// Package wishlist keeps the set of wishlisted product ids, persisted as
// a single blob like the cart.
package wishlist

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"sync"

	"github.com/bluehouse-sports/storefront/internal/kv"
)

const storageKey = "bluehouse_wishlist"

type Store struct {
	store  kv.Store
	logger *slog.Logger

	mu  sync.Mutex
	ids []int
}

func NewStore(ctx context.Context, store kv.Store, logger *slog.Logger) *Store {
	s := &Store{store: store, logger: logger}
	s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) {
	raw, err := s.store.Get(ctx, storageKey)
	if err != nil {
		if err != kv.ErrNotFound {
			s.logger.Warn("failed to load wishlist, starting empty", "error", err)
		}
		return
	}
	var ids []int
	if err := json.Unmarshal(raw, &ids); err != nil {
		s.logger.Warn("discarding malformed wishlist blob", "error", err)
		return
	}
	s.ids = ids
}

func (s *Store) Add(ctx context.Context, productID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.ids, productID) {
		return
	}
	s.ids = append(s.ids, productID)
	s.persist(ctx)
}

func (s *Store) Remove(ctx context.Context, productID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := slices.Index(s.ids, productID)
	if idx < 0 {
		return
	}
	s.ids = slices.Delete(s.ids, idx, idx+1)
	s.persist(ctx)
}

// Toggle flips membership and reports whether the product is wishlisted
// afterwards.
func (s *Store) Toggle(ctx context.Context, productID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := slices.Index(s.ids, productID)
	if idx >= 0 {
		s.ids = slices.Delete(s.ids, idx, idx+1)
		s.persist(ctx)
		return false
	}
	s.ids = append(s.ids, productID)
	s.persist(ctx)
	return true
}

func (s *Store) Contains(productID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.ids, productID)
}

func (s *Store) IDs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.ids)
}

func (s *Store) persist(ctx context.Context) {
	raw, err := json.Marshal(s.ids)
	if err != nil {
		s.logger.Warn("failed to serialize wishlist", "error", err)
		return
	}
	if err := s.store.Set(ctx, storageKey, raw); err != nil {
		s.logger.Warn("failed to persist wishlist", "error", err)
	}
}
