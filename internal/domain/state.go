package domain

import (
	"encoding"
	"fmt"
)

// CardState is the learning stage of a card. Every card is in exactly
// one state at a time.
type CardState int

const (
	StateNew        CardState = iota + 1 // never reviewed
	StateLearning                        // in the initial short-interval ladder
	StateReview                          // graduated to day-granularity review
	StateRelearning                      // lapsed out of Review, back on a short ladder
	StateSuspended                       // excluded from study until explicitly resumed
)

var (
	stateNames = [...]string{
		StateNew:        "new",
		StateLearning:   "learning",
		StateReview:     "review",
		StateRelearning: "relearning",
		StateSuspended:  "suspended",
	}
	stateByName = map[string]CardState{
		"new":        StateNew,
		"learning":   StateLearning,
		"review":     StateReview,
		"relearning": StateRelearning,
		"suspended":  StateSuspended,
	}
)

var (
	_ fmt.Stringer             = CardState(0)
	_ encoding.TextMarshaler   = CardState(0)
	_ encoding.TextUnmarshaler = (*CardState)(nil)
)

// IsValid reports whether s is one of the five enumerated states.
func (s CardState) IsValid() bool {
	return s >= StateNew && s <= StateSuspended
}

// String returns the lowercase name of the state. For invalid values it
// returns "CardState(n)".
func (s CardState) String() string {
	if s.IsValid() {
		return stateNames[s]
	}
	return fmt.Sprintf("CardState(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s CardState) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("domain: invalid card state: %d", int(s))
	}
	return []byte(stateNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *CardState) UnmarshalText(text []byte) error {
	v, ok := stateByName[string(text)]
	if !ok {
		return fmt.Errorf("domain: invalid card state: %q", text)
	}
	*s = v
	return nil
}
