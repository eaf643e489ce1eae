// Package session sequences one user's study session: which card to
// show next, when the session ends, and how review results flow from
// the scheduler into persistence.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sidneypayan/linguami-srs/internal/domain"
	"github.com/sidneypayan/linguami-srs/internal/scheduler"
)

// reenqueueThreshold is the horizon within which a learning card stays
// in the current session's queue instead of waiting for a future one.
const reenqueueThreshold = 10 * time.Minute

// saveAttempts bounds retries against a failing store before the error
// is surfaced and the queue left in place.
const saveAttempts = 3

var (
	// ErrCardNotCurrent is returned when a review is submitted for a
	// card other than the one at the head of the queue.
	ErrCardNotCurrent = errors.New("session: card is not the current card")
	// ErrSessionComplete is returned when a review is submitted after
	// the session has finished.
	ErrSessionComplete = errors.New("session: session already complete")
)

// Store is the persistence collaborator. SaveCardState must be atomic
// per card row.
type Store interface {
	LoadDueCards(ctx context.Context, userID string, now time.Time) ([]domain.Card, error)
	SaveCardState(ctx context.Context, userID string, card domain.Card) error
	SetSuspended(ctx context.Context, userID, cardID string, suspended bool) error
}

// NextAction tells the presentation layer what to do after a review.
type NextAction int

const (
	Continue            NextAction = iota + 1 // serve the next card
	SessionComplete                           // queue empty or limit reached
	TimeUpFinishCurrent                       // time box elapsed; one last card
)

var nextActionNames = [...]string{
	Continue:            "continue",
	SessionComplete:     "session_complete",
	TimeUpFinishCurrent: "time_up_finish_current",
}

func (a NextAction) String() string {
	if a >= Continue && a <= TimeUpFinishCurrent {
		return nextActionNames[a]
	}
	return fmt.Sprintf("NextAction(%d)", int(a))
}

// MarshalText implements encoding.TextMarshaler.
func (a NextAction) MarshalText() ([]byte, error) {
	if a < Continue || a > TimeUpFinishCurrent {
		return nil, fmt.Errorf("session: invalid next action: %d", int(a))
	}
	return []byte(nextActionNames[a]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *NextAction) UnmarshalText(text []byte) error {
	for v := Continue; v <= TimeUpFinishCurrent; v++ {
		if nextActionNames[v] == string(text) {
			*a = v
			return nil
		}
	}
	return fmt.Errorf("session: invalid next action: %q", text)
}

// Result is the outcome of a review submission.
type Result struct {
	Card domain.Card `json:"card"`
	Next NextAction  `json:"next_action"`
}

type reviewKey struct {
	cardID string
	at     time.Time
}

// Session is one user's in-memory study queue. It is scoped to a
// single user and a single active session; concurrent sessions for the
// same user are not coordinated beyond last-write-wins at the store.
type Session struct {
	mu       sync.Mutex
	userID   string
	store    Store
	params   *scheduler.Params
	cfg      Config
	queue    []domain.Card
	started  time.Time
	now      func() time.Time
	windDown bool // time box elapsed; current card is the last
	done     bool
	reviewed int
	seen     map[reviewKey]Result // duplicate-submission guard
}

// Option configures a Session.
type Option func(*Session)

// WithClock replaces the wall clock, for tests and replay.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New builds a session from the user's candidate cards. Candidates are
// expected to be due and unsuspended already; they are ordered by due
// date then card ID for determinism. In cards mode the queue is clamped
// to the smaller of the limit and the candidate count.
func New(store Store, userID string, candidates []domain.Card, cfg Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	queue := make([]domain.Card, len(candidates))
	copy(queue, candidates)
	sort.Slice(queue, func(i, j int) bool {
		if !queue[i].Due.Equal(queue[j].Due) {
			return queue[i].Due.Before(queue[j].Due)
		}
		return queue[i].ID < queue[j].ID
	})

	if cfg.Mode == ModeCards && len(queue) > cfg.CardsLimit {
		queue = queue[:cfg.CardsLimit]
	}

	s := &Session{
		userID: userID,
		store:  store,
		params: scheduler.DefaultParams(),
		cfg:    cfg,
		queue:  queue,
		now:    time.Now,
		seen:   make(map[reviewKey]Result),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.started = s.now()
	s.done = len(queue) == 0
	return s, nil
}

// WithParams replaces the default scheduling parameters.
func WithParams(p *scheduler.Params) Option {
	return func(s *Session) { s.params = p }
}

// Current returns the card to show, or false when the session is over.
func (s *Session) Current() (domain.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done || len(s.queue) == 0 {
		return domain.Card{}, false
	}
	return s.queue[0], true
}

// Remaining reports how many cards are left in the queue.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Reviewed reports how many reviews this session has processed.
func (s *Session) Reviewed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reviewed
}

// Config returns the session's configuration.
func (s *Session) Config() Config { return s.cfg }

// SubmitReview grades the current card, persists the scheduler's
// result, and decides what happens next.
//
// A resubmission of the same (card, submission time) pair after the
// queue has moved past the card is answered from the first result
// without touching the store. While the card is at the head it is
// awaiting a grade, so an identical timestamp counts as a fresh review;
// a re-enqueued learning card graded twice by a second-granularity
// client is therefore scored twice. A store failure after the bounded
// retries leaves the queue, and the card's persisted state, exactly as
// they were; the caller may retry the submission.
func (s *Session) SubmitReview(ctx context.Context, cardID string, button domain.ButtonType, at time.Time) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := reviewKey{cardID: cardID, at: at}
	if s.done {
		if res, ok := s.seen[key]; ok {
			return res, nil
		}
		return Result{}, ErrSessionComplete
	}
	if len(s.queue) == 0 || s.queue[0].ID != cardID {
		if res, ok := s.seen[key]; ok {
			return res, nil
		}
		return Result{}, fmt.Errorf("%w: %s", ErrCardNotCurrent, cardID)
	}

	current := s.queue[0]
	updated, err := s.params.Next(current, button, at)
	if err != nil {
		// Contract violation. Nothing was mutated; abort the submission.
		return Result{}, err
	}

	if err := s.save(ctx, updated); err != nil {
		return Result{}, err
	}

	// The write is acknowledged; now advance the queue.
	s.queue = s.queue[1:]
	s.reviewed++
	if s.shouldReenqueue(updated) {
		s.queue = append(s.queue, updated)
	}

	res := Result{Card: updated, Next: s.nextAction()}
	if res.Next == SessionComplete {
		s.done = true
	}
	s.seen[key] = res
	return res, nil
}

// save writes the card state with bounded retries.
func (s *Session) save(ctx context.Context, card domain.Card) error {
	var err error
	for attempt := 0; attempt < saveAttempts; attempt++ {
		if err = s.store.SaveCardState(ctx, s.userID, card); err == nil {
			return nil
		}
	}
	return fmt.Errorf("session: saving card %s after %d attempts: %w", card.ID, saveAttempts, err)
}

// shouldReenqueue keeps short-interval learning cards in this session.
func (s *Session) shouldReenqueue(c domain.Card) bool {
	if c.State != domain.StateLearning && c.State != domain.StateRelearning {
		return false
	}
	return c.Interval < reenqueueThreshold
}

// nextAction inspects the queue and the time box. Once the time limit
// has elapsed the session winds down: the head of the queue may still
// be finished, but no fresh card follows it.
func (s *Session) nextAction() NextAction {
	if len(s.queue) == 0 {
		return SessionComplete
	}
	if s.windDown {
		// The wound-down session's last card was just reviewed.
		s.queue = nil
		return SessionComplete
	}
	if s.cfg.Mode == ModeTime {
		elapsed := s.now().Sub(s.started)
		if elapsed >= time.Duration(s.cfg.TimeLimit)*time.Minute {
			s.windDown = true
			return TimeUpFinishCurrent
		}
	}
	return Continue
}

// SuspendCard marks the card suspended in the store and drops it from
// the active queue. It is deliberately not reachable through
// SubmitReview.
func (s *Session) SuspendCard(ctx context.Context, cardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SetSuspended(ctx, s.userID, cardID, true); err != nil {
		return fmt.Errorf("session: suspending card %s: %w", cardID, err)
	}
	for i, c := range s.queue {
		if c.ID == cardID {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			break
		}
	}
	if len(s.queue) == 0 {
		s.done = true
	}
	return nil
}
