package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/sidneypayan/linguami-srs/internal/domain"
)

// GuestStore keeps card state in memory for unauthenticated users. It
// implements the same contract as DB so the session layer can swap the
// two on an authentication flag; guest progress simply does not survive
// a restart.
type GuestStore struct {
	mu    sync.RWMutex
	words []domain.Word
	cards map[string]map[string]domain.Card // userID -> cardID -> card
	log   map[string][]domain.ReviewEvent
}

// NewGuestStore creates a guest store over the given shared word set.
func NewGuestStore(words []domain.Word) *GuestStore {
	return &GuestStore{
		words: words,
		cards: make(map[string]map[string]domain.Card),
		log:   make(map[string][]domain.ReviewEvent),
	}
}

// NewGuestID generates an opaque guest user ID.
func NewGuestID() (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("failed to generate guest ID: %w", err)
	}
	return "guest_" + id, nil
}

// EnsureUserCards creates fresh cards for every word the guest has not
// seen yet.
func (g *GuestStore) EnsureUserCards(ctx context.Context, userID string, now time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	user := g.cards[userID]
	if user == nil {
		user = make(map[string]domain.Card, len(g.words))
		g.cards[userID] = user
	}
	for _, w := range g.words {
		if _, ok := user[w.Hash]; !ok {
			user[w.Hash] = domain.NewCard(w, now)
		}
	}
	return nil
}

// LoadDueCards returns the guest's unsuspended cards due at or before now.
func (g *GuestStore) LoadDueCards(ctx context.Context, userID string, now time.Time) ([]domain.Card, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var due []domain.Card
	for _, c := range g.cards[userID] {
		if c.State != domain.StateSuspended && !c.Due.After(now) {
			due = append(due, c)
		}
	}
	return due, nil
}

// SaveCardState stores the updated card for the guest.
func (g *GuestStore) SaveCardState(ctx context.Context, userID string, card domain.Card) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	user := g.cards[userID]
	if user == nil {
		return fmt.Errorf("guest %s has no cards", userID)
	}
	if _, ok := user[card.ID]; !ok {
		return fmt.Errorf("guest %s has no card %s", userID, card.ID)
	}
	user[card.ID] = card
	return nil
}

// SetSuspended suspends or resumes one of the guest's cards.
func (g *GuestStore) SetSuspended(ctx context.Context, userID, cardID string, suspended bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	user := g.cards[userID]
	c, ok := user[cardID]
	if !ok {
		return fmt.Errorf("guest %s has no card %s", userID, cardID)
	}
	if suspended {
		c.State = domain.StateSuspended
	} else if c.State == domain.StateSuspended {
		if c.Repetitions > 0 || c.Lapses > 0 {
			c.State = domain.StateReview
		} else {
			c.State = domain.StateNew
		}
	}
	user[cardID] = c
	return nil
}

// AppendReview records a review in the guest's in-memory audit trail.
func (g *GuestStore) AppendReview(ctx context.Context, userID string, ev domain.ReviewEvent) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.log[userID] = append(g.log[userID], ev)
	return nil
}
