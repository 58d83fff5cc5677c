package calculator

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// EqualSplit divides 100 percent across participants.
// Each participant receives floor(100/N); the leftover points go one at a time
// to participants in the order given. Duplicate IDs keep their first position.
func EqualSplit(participants []string) (map[string]int, error) {
	unique := dedupe(participants)
	if len(unique) == 0 {
		return nil, ErrNoParticipants
	}

	base := 100 / len(unique)
	remainder := 100 - base*len(unique)

	split := make(map[string]int, len(unique))
	for i, p := range unique {
		split[p] = base
		if i < remainder {
			split[p]++
		}
	}
	return split, nil
}

// ValidatePercentageSplit checks that every percentage lies in [0, 100] and
// that all percentages add up to exactly 100. Zero entries are allowed: the participant
// is part of the expense but is not charged for it.
func ValidatePercentageSplit(split map[string]int) error {
	total := 0
	for _, p := range sortedKeys(split) {
		pct := split[p]
		if pct < 0 {
			return &SplitError{Err: ErrNegativePercentage, Participant: p}
		}
		// Bounding each entry keeps the running total from overflowing.
		if pct > 100 {
			return &SplitError{Err: ErrPercentageTooLarge, Participant: p}
		}
		total += pct
	}
	if total != 100 {
		return &SplitError{Err: ErrDoesNotSumTo100, Total: total}
	}
	return nil
}

// Allocate converts a percentage split into monetary shares of amount rounded
// to the given number of decimal places. Shares are rounded down and the minor
// units left over are handed out by largest remainder, ties going to the
// lowest participant ID, so the shares always add up to amount exactly.
func Allocate(amount decimal.Decimal, split map[string]int, places int32) (map[string]decimal.Decimal, error) {
	if err := checkAmount(amount, places); err != nil {
		return nil, err
	}
	if err := ValidatePercentageSplit(split); err != nil {
		return nil, err
	}

	type remainder struct {
		participant string
		fraction    decimal.Decimal
	}

	shares := make(map[string]decimal.Decimal, len(split))
	remainders := make([]remainder, 0, len(split))
	allocated := decimal.Zero
	for p, pct := range split {
		exact := shareOf(amount, pct)
		rounded := exact.Truncate(places)
		shares[p] = rounded
		allocated = allocated.Add(rounded)
		remainders = append(remainders, remainder{participant: p, fraction: exact.Sub(rounded)})
	}

	slices.SortFunc(remainders, func(a, b remainder) int {
		if c := b.fraction.Cmp(a.fraction); c != 0 {
			return c
		}
		return cmp.Compare(a.participant, b.participant)
	})

	unit := decimal.New(1, -places)
	leftover := amount.Sub(allocated)
	for i := 0; leftover.IsPositive() && i < len(remainders); i++ {
		p := remainders[i].participant
		shares[p] = shares[p].Add(unit)
		leftover = leftover.Sub(unit)
	}

	return shares, nil
}

// shareOf returns amount * pct / 100 without rounding.
func shareOf(amount decimal.Decimal, pct int) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(int64(pct))).Shift(-2)
}

func checkAmount(amount decimal.Decimal, places int32) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if !amount.Equal(amount.Truncate(places)) {
		return fmt.Errorf("%w: %s (max %d)", ErrAmountPrecision, amount, places)
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
