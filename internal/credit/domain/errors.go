package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount        = errors.New("invalid_amount")
	ErrInsufficientCredits  = errors.New("insufficient_credits")
	ErrPlanNotFound         = errors.New("plan_not_found")
	ErrInvalidRolloverInput = errors.New("invalid_rollover_input")
)

// InsufficientCreditsError reports the exact shortfall so a caller can decide
// whether to retry with fewer units.
type InsufficientCreditsError struct {
	Available int64
	Requested int64
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient_credits: available %d, requested %d", e.Available, e.Requested)
}

func (e *InsufficientCreditsError) Is(target error) bool {
	return target == ErrInsufficientCredits
}
