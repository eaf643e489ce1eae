// Package scheduler computes a card's next memory state from a review
// grade. It is a pure SM-2-variant state machine: no I/O, no clock of
// its own, and identical inputs always produce identical outputs.
//
// Intervals are time.Durations everywhere. Learning and relearning
// ladders run at minute granularity; once a card graduates to Review
// its interval is always a whole number of days, at least one and at
// most MaxInterval.
package scheduler

import (
	"fmt"
	"math"
	"time"

	"github.com/sidneypayan/linguami-srs/internal/domain"
)

const day = 24 * time.Hour

// Params holds the numeric tuning of the scheduling policy.
// DefaultParams matches the common Anki-style defaults.
type Params struct {
	LearningSteps   []time.Duration // ladder for New/Learning cards
	RelearningSteps []time.Duration // ladder after a lapse

	GraduatingInterval time.Duration // seed interval when finishing a ladder
	EasyInterval       time.Duration // seed interval when easy skips the ladder

	StartingEase float64 // ease given to a card leaving New, if unset
	MinEase      float64 // hard floor for ease
	AgainPenalty float64 // ease lost on a lapse
	HardPenalty  float64 // ease lost on hard in Review
	EasyReward   float64 // ease gained on easy in Review

	HardFactor float64 // interval multiplier for hard in Review
	EasyBonus  float64 // extra interval multiplier for easy in Review

	MaxInterval time.Duration // cap on review intervals
}

// DefaultParams returns the default tuning.
func DefaultParams() *Params {
	return &Params{
		LearningSteps:      []time.Duration{1 * time.Minute, 10 * time.Minute},
		RelearningSteps:    []time.Duration{10 * time.Minute},
		GraduatingInterval: 1 * day,
		EasyInterval:       4 * day,
		StartingEase:       domain.DefaultEase,
		MinEase:            1.3,
		AgainPenalty:       0.20,
		HardPenalty:        0.15,
		EasyReward:         0.15,
		HardFactor:         1.2,
		EasyBonus:          1.3,
		MaxInterval:        365 * day,
	}
}

// Validate checks that the parameters describe a usable policy.
func (p *Params) Validate() error {
	if len(p.LearningSteps) == 0 || len(p.RelearningSteps) == 0 {
		return fmt.Errorf("%w: at least one learning and one relearning step required", ErrInvalidParams)
	}
	for _, s := range append(append([]time.Duration{}, p.LearningSteps...), p.RelearningSteps...) {
		if s <= 0 {
			return fmt.Errorf("%w: step durations must be positive", ErrInvalidParams)
		}
	}
	if p.MinEase <= 0 || p.StartingEase < p.MinEase {
		return fmt.Errorf("%w: ease bounds (min %.2f, start %.2f)", ErrInvalidParams, p.MinEase, p.StartingEase)
	}
	if p.GraduatingInterval < day || p.EasyInterval < day {
		return fmt.Errorf("%w: graduating intervals must be at least one day", ErrInvalidParams)
	}
	if p.HardFactor <= 0 || p.EasyBonus < 1 {
		return fmt.Errorf("%w: interval factors (hard %.2f, easy bonus %.2f)", ErrInvalidParams, p.HardFactor, p.EasyBonus)
	}
	if p.MaxInterval < p.EasyInterval {
		return fmt.Errorf("%w: max interval below easy interval", ErrInvalidParams)
	}
	return nil
}

// Next computes the card's state after a review graded with button at
// the given time. The input card is not mutated; the returned card has
// Due set to now plus the new interval.
//
// Unknown states or buttons, and suspended cards, are contract
// violations: Next returns an error and the caller must not persist
// anything.
func (p *Params) Next(card domain.Card, button domain.ButtonType, now time.Time) (domain.Card, error) {
	if !button.IsValid() {
		return domain.Card{}, fmt.Errorf("%w: %d", ErrInvalidButton, int(button))
	}

	c := card
	switch c.State {
	case domain.StateNew:
		p.answerNew(&c, button)
	case domain.StateLearning:
		p.answerLadder(&c, button, p.LearningSteps)
	case domain.StateRelearning:
		p.answerLadder(&c, button, p.RelearningSteps)
	case domain.StateReview:
		p.answerReview(&c, button)
	case domain.StateSuspended:
		return domain.Card{}, fmt.Errorf("%w: card %s", ErrCardSuspended, card.ID)
	default:
		return domain.Card{}, fmt.Errorf("%w: %d", ErrInvalidState, int(card.State))
	}

	c.Due = now.Add(c.Interval)
	c.LastReview = now
	return c, nil
}

// answerNew handles a card's very first review. Easy skips the ladder
// entirely and seeds a multi-day review interval; every other grade
// enters the learning ladder.
func (p *Params) answerNew(c *domain.Card, button domain.ButtonType) {
	if c.Ease == 0 {
		c.Ease = p.StartingEase
	}

	switch button {
	case domain.Again:
		c.State = domain.StateLearning
		c.Step = 0
		c.Interval = p.LearningSteps[0]
		c.Repetitions = 0
	case domain.Hard:
		c.State = domain.StateLearning
		c.Step = 0
		c.Interval = hardStepInterval(p.LearningSteps, 0)
		c.Repetitions++
	case domain.Good:
		c.State = domain.StateLearning
		if len(p.LearningSteps) > 1 {
			c.Step = 1
			c.Interval = p.LearningSteps[1]
		} else {
			c.Step = 0
			c.Interval = p.LearningSteps[0]
		}
		c.Repetitions++
	case domain.Easy:
		c.State = domain.StateReview
		c.Step = 0
		c.Interval = p.EasyInterval
		c.Repetitions++
	}
}

// answerLadder handles Learning and Relearning cards. Again restarts
// the ladder without counting a lapse; lapses are only counted when a
// card falls out of Review. Finishing the ladder promotes to Review.
func (p *Params) answerLadder(c *domain.Card, button domain.ButtonType, steps []time.Duration) {
	if c.Step >= len(steps) {
		c.Step = len(steps) - 1
	}

	switch button {
	case domain.Again:
		c.Step = 0
		c.Interval = steps[0]
		c.Repetitions = 0
	case domain.Hard:
		c.Interval = hardStepInterval(steps, c.Step)
		c.Repetitions++
	case domain.Good:
		if c.Step+1 >= len(steps) {
			p.graduate(c, p.GraduatingInterval)
		} else {
			c.Step++
			c.Interval = steps[c.Step]
		}
		c.Repetitions++
	case domain.Easy:
		p.graduate(c, p.EasyInterval)
		c.Repetitions++
	}
}

// answerReview handles mature cards. Again is a lapse: back to the
// relearning ladder, ease penalized, lapse counted. The passing grades
// grow the interval multiplicatively and round to whole days.
func (p *Params) answerReview(c *domain.Card, button domain.ButtonType) {
	switch button {
	case domain.Again:
		c.State = domain.StateRelearning
		c.Step = 0
		c.Interval = p.RelearningSteps[0]
		c.Lapses++
		c.Repetitions = 0
		c.Ease = math.Max(p.MinEase, c.Ease-p.AgainPenalty)
	case domain.Hard:
		c.Interval = p.clampReviewInterval(time.Duration(float64(c.Interval) * p.HardFactor))
		c.Ease = math.Max(p.MinEase, c.Ease-p.HardPenalty)
		c.Repetitions++
	case domain.Good:
		c.Interval = p.clampReviewInterval(time.Duration(float64(c.Interval) * c.Ease))
		c.Repetitions++
	case domain.Easy:
		c.Interval = p.clampReviewInterval(time.Duration(float64(c.Interval) * c.Ease * p.EasyBonus))
		c.Ease += p.EasyReward
		c.Repetitions++
	}
}

// graduate promotes a card from a ladder into Review with a seed interval.
func (p *Params) graduate(c *domain.Card, seed time.Duration) {
	c.State = domain.StateReview
	c.Step = 0
	c.Interval = seed
}

// hardStepInterval is the interval for a hard answer on a ladder step:
// the mean of the first two steps at step zero (or 1.5x a lone step),
// otherwise the current step repeated.
func hardStepInterval(steps []time.Duration, step int) time.Duration {
	if step == 0 {
		if len(steps) >= 2 {
			return (steps[0] + steps[1]) / 2
		}
		return steps[0] * 3 / 2
	}
	return steps[step]
}

// clampReviewInterval rounds to whole days and bounds the result to
// [1 day, MaxInterval].
func (p *Params) clampReviewInterval(iv time.Duration) time.Duration {
	days := math.Round(float64(iv) / float64(day))
	if days < 1 {
		days = 1
	}
	out := time.Duration(days) * day
	if out > p.MaxInterval {
		out = p.MaxInterval
	}
	return out
}
