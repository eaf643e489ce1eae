package content

import (
	"context"
	"sync"

	"github.com/sidneypayan/linguami-srs/internal/domain"
)

// Loader fetches the words of one deck from the backing store.
type Loader func(ctx context.Context, language, deck string) ([]domain.Word, error)

type deckKey struct {
	language string
	deck     string
}

// Cache is a read-through cache of deck contents keyed by (language,
// deck). It is an explicit object with explicit invalidation, owned by
// whoever serves deck content; reconciliation invalidates it after
// every content change.
type Cache struct {
	mu      sync.RWMutex
	load    Loader
	entries map[deckKey][]domain.Word
}

// NewCache creates a cache over the given loader.
func NewCache(load Loader) *Cache {
	return &Cache{
		load:    load,
		entries: make(map[deckKey][]domain.Word),
	}
}

// Get returns the deck's words, loading and memoizing them on first use.
func (c *Cache) Get(ctx context.Context, language, deck string) ([]domain.Word, error) {
	key := deckKey{language: language, deck: deck}

	c.mu.RLock()
	words, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return words, nil
	}

	words, err := c.load(ctx, language, deck)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = words
	c.mu.Unlock()
	return words, nil
}

// Invalidate drops one deck from the cache.
func (c *Cache) Invalidate(language, deck string) {
	c.mu.Lock()
	delete(c.entries, deckKey{language: language, deck: deck})
	c.mu.Unlock()
}

// InvalidateAll drops every cached deck.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[deckKey][]domain.Word)
	c.mu.Unlock()
}
