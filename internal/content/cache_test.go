package content

import (
	"context"
	"testing"

	"github.com/sidneypayan/linguami-srs/internal/domain"
)

func TestCacheReadThrough(t *testing.T) {
	loads := 0
	cache := NewCache(func(ctx context.Context, language, deck string) ([]domain.Word, error) {
		loads++
		return []domain.Word{{Hash: "h1", Language: language, Deck: deck, Front: "chien", Back: "dog"}}, nil
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		words, err := cache.Get(ctx, "fr", "animals")
		if err != nil {
			t.Fatalf("Get() returned an unexpected error: %v", err)
		}
		if len(words) != 1 || words[0].Front != "chien" {
			t.Fatalf("Unexpected deck contents: %+v", words)
		}
	}
	if loads != 1 {
		t.Errorf("Expected a single backing load, got %d", loads)
	}

	// Distinct keys load separately.
	if _, err := cache.Get(ctx, "ru", "animals"); err != nil {
		t.Fatalf("Get() returned an unexpected error: %v", err)
	}
	if loads != 2 {
		t.Errorf("Expected a second load for a different language, got %d", loads)
	}
}

func TestCacheInvalidate(t *testing.T) {
	loads := 0
	cache := NewCache(func(ctx context.Context, language, deck string) ([]domain.Word, error) {
		loads++
		return nil, nil
	})

	ctx := context.Background()
	cache.Get(ctx, "fr", "animals")
	cache.Invalidate("fr", "animals")
	cache.Get(ctx, "fr", "animals")
	if loads != 2 {
		t.Errorf("Expected a reload after Invalidate, got %d loads", loads)
	}

	cache.InvalidateAll()
	cache.Get(ctx, "fr", "animals")
	if loads != 3 {
		t.Errorf("Expected a reload after InvalidateAll, got %d loads", loads)
	}
}
