package session

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Mode selects how a study session is bounded: by card count or by
// elapsed time.
type Mode string

const (
	ModeCards Mode = "cards"
	ModeTime  Mode = "time"
)

// The limit choices offered to users. Values outside these sets are
// rejected at session creation.
var (
	AllowedCardLimits = []int{10, 20, 30, 50, 100}
	AllowedTimeLimits = []int{3, 5, 10, 15, 20} // minutes
)

// Config describes a single study session. Exactly one of the two
// limits is active, selected by Mode; the other is ignored.
type Config struct {
	Mode       Mode `json:"mode" koanf:"mode" validate:"required,oneof=cards time"`
	CardsLimit int  `json:"cards_limit" koanf:"cards_limit" validate:"omitempty,oneof=10 20 30 50 100"`
	TimeLimit  int  `json:"time_limit" koanf:"time_limit" validate:"omitempty,oneof=3 5 10 15 20"` // minutes
}

var validate = validator.New()

// Validate checks the config against the allowed modes and limit sets.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("session: invalid config: %w", err)
	}
	switch c.Mode {
	case ModeCards:
		if c.CardsLimit == 0 {
			return fmt.Errorf("session: invalid config: cards mode requires cards_limit")
		}
	case ModeTime:
		if c.TimeLimit == 0 {
			return fmt.Errorf("session: invalid config: time mode requires time_limit")
		}
	}
	return nil
}
