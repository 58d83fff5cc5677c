package calculator

import (
	"errors"
	"fmt"
)

var (
	ErrNoParticipants     = errors.New("must have at least one participant")
	ErrDoesNotSumTo100    = errors.New("percentages must total exactly 100")
	ErrNegativePercentage = errors.New("percentage cannot be negative")
	ErrPercentageTooLarge = errors.New("percentage cannot exceed 100")
	ErrEmptySplit         = errors.New("split must name at least one participant")
	ErrNonPositiveAmount  = errors.New("amount must be greater than zero")
	ErrAmountPrecision    = errors.New("amount has too many decimal places")
	ErrMissingPayer       = errors.New("payer is required")
)

// SplitError describes why a percentage split was rejected.
// Use errors.Is against the sentinel errors above to branch on the cause.
type SplitError struct {
	Err error

	// Participant is set when a single entry caused the failure.
	Participant string

	// Total is the sum of all percentages in the rejected split.
	Total int
}

func (e *SplitError) Error() string {
	switch {
	case errors.Is(e.Err, ErrNegativePercentage), errors.Is(e.Err, ErrPercentageTooLarge):
		return fmt.Sprintf("%v: %s", e.Err, e.Participant)
	case errors.Is(e.Err, ErrDoesNotSumTo100):
		return fmt.Sprintf("%v (current: %d%%)", e.Err, e.Total)
	default:
		return e.Err.Error()
	}
}

func (e *SplitError) Unwrap() error {
	return e.Err
}
