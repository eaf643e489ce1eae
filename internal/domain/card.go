package domain

import "time"

// DefaultEase is the ease factor assigned to a card that has never been
// reviewed. The scheduler keeps ease between its configured minimum and
// this starting point plus accumulated easy rewards.
const DefaultEase = 2.5

// Word is one learnable fact: a term in the target language, its
// translation, and an optional example sentence. Words are shared
// content; per-user study state lives on Card.
type Word struct {
	Hash     string
	Language string
	Deck     string
	Front    string
	Back     string
	Example  string
}

// Card is the scheduling state of one word for one user.
// A card is created on the user's first exposure to a word and is only
// ever mutated by a review submission or an explicit suspend/resume.
type Card struct {
	ID          string        `json:"id"` // word hash
	Front       string        `json:"front"`
	Back        string        `json:"back"`
	Example     string        `json:"example,omitempty"`
	State       CardState     `json:"state"`
	Step        int           `json:"step"` // position in the learning/relearning ladder
	Interval    time.Duration `json:"interval"`
	Ease        float64       `json:"ease"`
	Repetitions int           `json:"repetitions"` // consecutive successes since the last lapse
	Lapses      int           `json:"lapses"`
	Due         time.Time     `json:"due"`
	LastReview  time.Time     `json:"last_review"` // zero before the first review
}

// NewCard creates a fresh card for the given word, due immediately.
func NewCard(w Word, now time.Time) Card {
	return Card{
		ID:      w.Hash,
		Front:   w.Front,
		Back:    w.Back,
		Example: w.Example,
		State:   StateNew,
		Ease:    DefaultEase,
		Due:     now,
	}
}

// ReviewEvent records a single graded review of a card. It is the input
// to the scheduler and, optionally, an audit-trail row.
type ReviewEvent struct {
	CardID string     `json:"card_id"`
	Button ButtonType `json:"button"`
	At     time.Time  `json:"at"`
}
