package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sidneypayan/linguami-srs/internal/domain"
)

var start = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// fakeStore records writes and can be told to fail.
type fakeStore struct {
	saved     []domain.Card
	suspended map[string]bool
	failFor   int // SaveCardState calls to fail before succeeding
	saveCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{suspended: make(map[string]bool)}
}

func (f *fakeStore) LoadDueCards(ctx context.Context, userID string, now time.Time) ([]domain.Card, error) {
	return nil, nil
}

func (f *fakeStore) SaveCardState(ctx context.Context, userID string, card domain.Card) error {
	f.saveCalls++
	if f.failFor > 0 {
		f.failFor--
		return errors.New("store unavailable")
	}
	f.saved = append(f.saved, card)
	return nil
}

func (f *fakeStore) SetSuspended(ctx context.Context, userID, cardID string, suspended bool) error {
	f.suspended[cardID] = suspended
	return nil
}

func makeCards(n int) []domain.Card {
	cards := make([]domain.Card, n)
	for i := range cards {
		w := domain.Word{Hash: fmt.Sprintf("card-%03d", i), Front: "mot", Back: "word"}
		c := domain.NewCard(w, start.Add(time.Duration(i)*time.Minute))
		c.State = domain.StateReview
		c.Interval = 24 * time.Hour
		cards[i] = c
	}
	return cards
}

func TestCardsModeClamping(t *testing.T) {
	cases := []struct {
		name       string
		candidates int
		limit      int
		want       int
	}{
		{"limit below candidates", 100, 20, 20},
		{"candidates below limit", 5, 20, 5},
		{"exact", 10, 10, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := New(newFakeStore(), "u1", makeCards(tc.candidates), Config{Mode: ModeCards, CardsLimit: tc.limit})
			if err != nil {
				t.Fatalf("New() returned an unexpected error: %v", err)
			}
			if s.Remaining() != tc.want {
				t.Errorf("Expected queue of %d, got %d", tc.want, s.Remaining())
			}
		})
	}
}

func TestConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"valid cards", Config{Mode: ModeCards, CardsLimit: 20}, true},
		{"valid time", Config{Mode: ModeTime, TimeLimit: 5}, true},
		{"unknown mode", Config{Mode: "marathon", CardsLimit: 20}, false},
		{"cards limit not offered", Config{Mode: ModeCards, CardsLimit: 25}, false},
		{"time limit not offered", Config{Mode: ModeTime, TimeLimit: 7}, false},
		{"cards mode missing limit", Config{Mode: ModeCards}, false},
		{"time mode missing limit", Config{Mode: ModeTime}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.ok && err != nil {
				t.Errorf("Expected valid config, got %v", err)
			}
			if !tc.ok && err == nil {
				t.Error("Expected validation error, got nil")
			}
		})
	}
}

func TestQueueOrderIsDeterministic(t *testing.T) {
	cards := makeCards(3)
	// Same due date for the first two; ties break on ID ascending.
	cards[1].Due = cards[0].Due
	shuffled := []domain.Card{cards[2], cards[1], cards[0]}

	s, err := New(newFakeStore(), "u1", shuffled, Config{Mode: ModeCards, CardsLimit: 10})
	if err != nil {
		t.Fatalf("New() returned an unexpected error: %v", err)
	}
	head, ok := s.Current()
	if !ok {
		t.Fatal("Expected a current card")
	}
	if head.ID != "card-000" {
		t.Errorf("Expected card-000 first, got %s", head.ID)
	}
}

func TestSubmitReviewAdvancesQueue(t *testing.T) {
	store := newFakeStore()
	s, err := New(store, "u1", makeCards(3), Config{Mode: ModeCards, CardsLimit: 10})
	if err != nil {
		t.Fatalf("New() returned an unexpected error: %v", err)
	}

	head, _ := s.Current()
	res, err := s.SubmitReview(context.Background(), head.ID, domain.Good, start)
	if err != nil {
		t.Fatalf("SubmitReview() returned an unexpected error: %v", err)
	}
	if res.Next != Continue {
		t.Errorf("Expected continue, got %v", res.Next)
	}
	if len(store.saved) != 1 {
		t.Fatalf("Expected exactly one persisted write, got %d", len(store.saved))
	}
	if next, _ := s.Current(); next.ID == head.ID {
		t.Error("Queue did not advance past the reviewed card")
	}
}

func TestSubmitReviewWrongCard(t *testing.T) {
	s, err := New(newFakeStore(), "u1", makeCards(3), Config{Mode: ModeCards, CardsLimit: 10})
	if err != nil {
		t.Fatalf("New() returned an unexpected error: %v", err)
	}
	_, err = s.SubmitReview(context.Background(), "card-002", domain.Good, start)
	if !errors.Is(err, ErrCardNotCurrent) {
		t.Errorf("Expected ErrCardNotCurrent, got %v", err)
	}
}

func TestLearningCardReenqueued(t *testing.T) {
	store := newFakeStore()
	cards := makeCards(2)
	cards[0].State = domain.StateNew
	s, err := New(store, "u1", cards, Config{Mode: ModeCards, CardsLimit: 10})
	if err != nil {
		t.Fatalf("New() returned an unexpected error: %v", err)
	}

	// Again on a new card lands on the 1m learning step: inside the
	// session horizon, so the card returns to the back of the queue.
	res, err := s.SubmitReview(context.Background(), "card-000", domain.Again, start)
	if err != nil {
		t.Fatalf("SubmitReview() returned an unexpected error: %v", err)
	}
	if res.Card.State != domain.StateLearning {
		t.Fatalf("Expected learning state, got %v", res.Card.State)
	}
	if s.Remaining() != 2 {
		t.Errorf("Expected the lapsed card re-enqueued (2 remaining), got %d", s.Remaining())
	}

	// A graduated card leaves the session entirely.
	res, err = s.SubmitReview(context.Background(), "card-001", domain.Good, start)
	if err != nil {
		t.Fatalf("SubmitReview() returned an unexpected error: %v", err)
	}
	if s.Remaining() != 1 {
		t.Errorf("Expected only the learning card left, got %d remaining", s.Remaining())
	}
}

func TestReenqueuedCardAcceptsSameTimestamp(t *testing.T) {
	store := newFakeStore()
	cards := makeCards(2)
	cards[0].State = domain.StateNew
	s, err := New(store, "u1", cards, Config{Mode: ModeCards, CardsLimit: 10})
	if err != nil {
		t.Fatalf("New() returned an unexpected error: %v", err)
	}

	// Clients that truncate to whole seconds can grade a re-enqueued
	// card with the exact timestamp of its first review. Once the card
	// is back at the head that is a fresh review, not a resubmission.
	if _, err := s.SubmitReview(context.Background(), "card-000", domain.Again, start); err != nil {
		t.Fatalf("SubmitReview() returned an unexpected error: %v", err)
	}
	if _, err := s.SubmitReview(context.Background(), "card-001", domain.Good, start); err != nil {
		t.Fatalf("SubmitReview() returned an unexpected error: %v", err)
	}

	res, err := s.SubmitReview(context.Background(), "card-000", domain.Good, start)
	if err != nil {
		t.Fatalf("SubmitReview() returned an unexpected error: %v", err)
	}
	if res.Card.Step != 1 {
		t.Errorf("Expected the second grade to advance the learning step, got step %d", res.Card.Step)
	}
	if s.Reviewed() != 3 {
		t.Errorf("Expected 3 reviews scored, got %d", s.Reviewed())
	}
	if len(store.saved) != 3 {
		t.Errorf("Expected 3 persisted writes, got %d", len(store.saved))
	}
}

func TestDuplicateSubmissionIsNoOp(t *testing.T) {
	store := newFakeStore()
	s, err := New(store, "u1", makeCards(2), Config{Mode: ModeCards, CardsLimit: 10})
	if err != nil {
		t.Fatalf("New() returned an unexpected error: %v", err)
	}

	first, err := s.SubmitReview(context.Background(), "card-000", domain.Good, start)
	if err != nil {
		t.Fatalf("SubmitReview() returned an unexpected error: %v", err)
	}
	second, err := s.SubmitReview(context.Background(), "card-000", domain.Good, start)
	if err != nil {
		t.Fatalf("Duplicate SubmitReview() returned an unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("Duplicate submission returned a different result:\n%+v\n%+v", first, second)
	}
	if len(store.saved) != 1 {
		t.Errorf("Expected the card persisted exactly once, got %d writes", len(store.saved))
	}
}

func TestPersistenceFailureLeavesQueueIntact(t *testing.T) {
	store := newFakeStore()
	store.failFor = 10 // more than the retry budget
	s, err := New(store, "u1", makeCards(2), Config{Mode: ModeCards, CardsLimit: 10})
	if err != nil {
		t.Fatalf("New() returned an unexpected error: %v", err)
	}

	_, err = s.SubmitReview(context.Background(), "card-000", domain.Good, start)
	if err == nil {
		t.Fatal("Expected an error after exhausted retries")
	}
	if store.saveCalls != 3 {
		t.Errorf("Expected 3 bounded attempts, got %d", store.saveCalls)
	}
	if head, _ := s.Current(); head.ID != "card-000" {
		t.Errorf("Queue advanced past an unpersisted card; head is %s", head.ID)
	}

	// The store recovers; the same submission now goes through.
	store.failFor = 0
	res, err := s.SubmitReview(context.Background(), "card-000", domain.Good, start)
	if err != nil {
		t.Fatalf("Retried SubmitReview() returned an unexpected error: %v", err)
	}
	if res.Next != Continue {
		t.Errorf("Expected continue after recovery, got %v", res.Next)
	}
}

func TestRetriesStopAfterTransientFailure(t *testing.T) {
	store := newFakeStore()
	store.failFor = 2 // third attempt succeeds
	s, err := New(store, "u1", makeCards(2), Config{Mode: ModeCards, CardsLimit: 10})
	if err != nil {
		t.Fatalf("New() returned an unexpected error: %v", err)
	}
	if _, err := s.SubmitReview(context.Background(), "card-000", domain.Good, start); err != nil {
		t.Fatalf("Expected the transient failure absorbed by retries, got %v", err)
	}
	if len(store.saved) != 1 {
		t.Errorf("Expected one successful write, got %d", len(store.saved))
	}
}

func TestContractViolationDoesNotMutate(t *testing.T) {
	store := newFakeStore()
	s, err := New(store, "u1", makeCards(1), Config{Mode: ModeCards, CardsLimit: 10})
	if err != nil {
		t.Fatalf("New() returned an unexpected error: %v", err)
	}
	_, err = s.SubmitReview(context.Background(), "card-000", domain.ButtonType(99), start)
	if err == nil {
		t.Fatal("Expected a contract-violation error")
	}
	if len(store.saved) != 0 {
		t.Errorf("Contract violation must not persist anything, got %d writes", len(store.saved))
	}
	if head, _ := s.Current(); head.ID != "card-000" {
		t.Error("Contract violation must not advance the queue")
	}
}

func TestTimeBoxWindDown(t *testing.T) {
	clock := start
	store := newFakeStore()
	s, err := New(store, "u1", makeCards(10), Config{Mode: ModeTime, TimeLimit: 3},
		WithClock(func() time.Time { return clock }))
	if err != nil {
		t.Fatalf("New() returned an unexpected error: %v", err)
	}

	// Within the time box: plain continue.
	clock = start.Add(1 * time.Minute)
	res, err := s.SubmitReview(context.Background(), "card-000", domain.Good, clock)
	if err != nil {
		t.Fatalf("SubmitReview() returned an unexpected error: %v", err)
	}
	if res.Next != Continue {
		t.Fatalf("Expected continue inside the time box, got %v", res.Next)
	}

	// Past the limit: the user gets one last card, never a fresh continue.
	clock = start.Add(3 * time.Minute)
	res, err = s.SubmitReview(context.Background(), "card-001", domain.Good, clock)
	if err != nil {
		t.Fatalf("SubmitReview() returned an unexpected error: %v", err)
	}
	if res.Next != TimeUpFinishCurrent {
		t.Fatalf("Expected time_up_finish_current, got %v", res.Next)
	}

	// Finishing that card completes the session even with cards queued.
	head, ok := s.Current()
	if !ok {
		t.Fatal("Expected one final card to remain servable")
	}
	res, err = s.SubmitReview(context.Background(), head.ID, domain.Good, clock.Add(time.Second))
	if err != nil {
		t.Fatalf("SubmitReview() returned an unexpected error: %v", err)
	}
	if res.Next != SessionComplete {
		t.Fatalf("Expected session_complete after the last card, got %v", res.Next)
	}
	if _, ok := s.Current(); ok {
		t.Error("Completed session should not serve more cards")
	}
}

func TestSessionCompleteWhenQueueDrains(t *testing.T) {
	s, err := New(newFakeStore(), "u1", makeCards(1), Config{Mode: ModeCards, CardsLimit: 10})
	if err != nil {
		t.Fatalf("New() returned an unexpected error: %v", err)
	}
	res, err := s.SubmitReview(context.Background(), "card-000", domain.Good, start)
	if err != nil {
		t.Fatalf("SubmitReview() returned an unexpected error: %v", err)
	}
	if res.Next != SessionComplete {
		t.Errorf("Expected session_complete, got %v", res.Next)
	}
	_, err = s.SubmitReview(context.Background(), "card-000", domain.Good, start.Add(time.Minute))
	if !errors.Is(err, ErrSessionComplete) {
		t.Errorf("Expected ErrSessionComplete, got %v", err)
	}
}

func TestSuspendCardRemovesFromQueue(t *testing.T) {
	store := newFakeStore()
	s, err := New(store, "u1", makeCards(3), Config{Mode: ModeCards, CardsLimit: 10})
	if err != nil {
		t.Fatalf("New() returned an unexpected error: %v", err)
	}
	if err := s.SuspendCard(context.Background(), "card-001"); err != nil {
		t.Fatalf("SuspendCard() returned an unexpected error: %v", err)
	}
	if !store.suspended["card-001"] {
		t.Error("Expected the store told to suspend card-001")
	}
	if s.Remaining() != 2 {
		t.Errorf("Expected 2 cards remaining, got %d", s.Remaining())
	}
}
