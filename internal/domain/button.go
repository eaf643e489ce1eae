package domain

import (
	"encoding"
	"fmt"
)

// ButtonType is the user's grade for a review: the four answer buttons.
type ButtonType int

const (
	Again ButtonType = iota + 1 // failed to recall
	Hard                        // recalled with difficulty
	Good                        // recalled with some effort
	Easy                        // recalled effortlessly
)

var (
	buttonNames = [...]string{
		Again: "again",
		Hard:  "hard",
		Good:  "good",
		Easy:  "easy",
	}
	buttonByName = map[string]ButtonType{
		"again": Again,
		"hard":  Hard,
		"good":  Good,
		"easy":  Easy,
	}
)

var (
	_ fmt.Stringer             = ButtonType(0)
	_ encoding.TextMarshaler   = ButtonType(0)
	_ encoding.TextUnmarshaler = (*ButtonType)(nil)
)

// IsValid reports whether b is one of the four answer buttons.
func (b ButtonType) IsValid() bool {
	return b >= Again && b <= Easy
}

// String returns the lowercase name of the button. For invalid values
// it returns "ButtonType(n)".
func (b ButtonType) String() string {
	if b.IsValid() {
		return buttonNames[b]
	}
	return fmt.Sprintf("ButtonType(%d)", int(b))
}

// MarshalText implements encoding.TextMarshaler.
func (b ButtonType) MarshalText() ([]byte, error) {
	if !b.IsValid() {
		return nil, fmt.Errorf("domain: invalid button type: %d", int(b))
	}
	return []byte(buttonNames[b]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *ButtonType) UnmarshalText(text []byte) error {
	v, ok := buttonByName[string(text)]
	if !ok {
		return fmt.Errorf("domain: invalid button type: %q", text)
	}
	*b = v
	return nil
}
