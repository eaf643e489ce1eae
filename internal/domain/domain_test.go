package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestCardStateText(t *testing.T) {
	for _, s := range []CardState{StateNew, StateLearning, StateReview, StateRelearning, StateSuspended} {
		text, err := s.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v) returned an unexpected error: %v", s, err)
		}
		var back CardState
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q) returned an unexpected error: %v", text, err)
		}
		if back != s {
			t.Errorf("Round trip changed %v into %v", s, back)
		}
	}

	if _, err := CardState(0).MarshalText(); err == nil {
		t.Error("Expected the zero state to be rejected")
	}
	var s CardState
	if err := s.UnmarshalText([]byte("frozen")); err == nil {
		t.Error("Expected an unknown state name to be rejected")
	}
}

func TestButtonTypeJSON(t *testing.T) {
	var b ButtonType
	if err := json.Unmarshal([]byte(`"good"`), &b); err != nil {
		t.Fatalf("Unmarshal returned an unexpected error: %v", err)
	}
	if b != Good {
		t.Errorf("Expected good, got %v", b)
	}
	if err := json.Unmarshal([]byte(`"perfect"`), &b); err == nil {
		t.Error("Expected an unknown button name to be rejected")
	}
}

func TestNewCard(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	w := Word{Hash: "h1", Front: "chien", Back: "dog", Example: "Le chien dort."}
	c := NewCard(w, now)

	if c.ID != "h1" || c.State != StateNew {
		t.Errorf("Unexpected new card: %+v", c)
	}
	if c.Ease != DefaultEase {
		t.Errorf("Expected default ease, got %f", c.Ease)
	}
	if !c.Due.Equal(now) {
		t.Errorf("Expected a new card due immediately, got %v", c.Due)
	}
	if !c.LastReview.IsZero() {
		t.Errorf("Expected no last review on a new card, got %v", c.LastReview)
	}
}
