package scheduler

import "errors"

// Contract-violation sentinels. Callers check with errors.Is; none of
// these are recoverable by retrying the same input.
var (
	ErrInvalidState  = errors.New("scheduler: invalid card state")
	ErrInvalidButton = errors.New("scheduler: invalid button type")
	ErrCardSuspended = errors.New("scheduler: card is suspended")
	ErrInvalidParams = errors.New("scheduler: invalid parameters")
)
