package calculator

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Expense is the minimal information the engine needs about one expense.
type Expense struct {
	ID       string
	Amount   decimal.Decimal
	Payer    string
	Split    map[string]int // participant -> percentage
	Category string
}

// EmptySplitPolicy decides what an expense without any split entries means.
type EmptySplitPolicy int

const (
	// SkipEmptySplit leaves the expense out of every balance.
	SkipEmptySplit EmptySplitPolicy = iota
	// PayerAbsorbsEmptySplit treats the payer as owing the whole amount.
	PayerAbsorbsEmptySplit
	// RejectEmptySplit refuses such expenses when they are created.
	RejectEmptySplit
)

func (p EmptySplitPolicy) String() string {
	switch p {
	case PayerAbsorbsEmptySplit:
		return "payer"
	case RejectEmptySplit:
		return "reject"
	default:
		return "skip"
	}
}

// ParseEmptySplitPolicy parses the names produced by EmptySplitPolicy.String.
func ParseEmptySplitPolicy(s string) (EmptySplitPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "skip":
		return SkipEmptySplit, nil
	case "payer":
		return PayerAbsorbsEmptySplit, nil
	case "reject":
		return RejectEmptySplit, nil
	default:
		return SkipEmptySplit, fmt.Errorf("unknown empty split policy %q", s)
	}
}

// NewExpense validates the inputs and returns an Expense the engine can use.
// A non-empty split must pass ValidatePercentageSplit; an empty one is only
// accepted when the engine's policy allows it.
func (e *Engine) NewExpense(id string, amount decimal.Decimal, payer string, split map[string]int) (Expense, error) {
	if payer == "" {
		return Expense{}, ErrMissingPayer
	}
	if err := checkAmount(amount, e.places); err != nil {
		return Expense{}, err
	}
	if len(split) == 0 {
		if e.emptySplit == RejectEmptySplit {
			return Expense{}, &SplitError{Err: ErrEmptySplit}
		}
	} else if err := ValidatePercentageSplit(split); err != nil {
		return Expense{}, err
	}

	copied := make(map[string]int, len(split))
	for p, pct := range split {
		copied[p] = pct
	}
	return Expense{ID: id, Amount: amount, Payer: payer, Split: copied}, nil
}
