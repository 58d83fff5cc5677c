package calculator

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"
)

// UncategorizedLabel is used for expenses without a category.
const UncategorizedLabel = "Uncategorized"

// CategoryTotal is the amount spent in one category.
type CategoryTotal struct {
	Category string
	Amount   decimal.Decimal
}

// Report summarizes a set of expenses from one participant's point of view.
type Report struct {
	Participant string
	TotalSpent  decimal.Decimal // Sum of every expense amount
	YouOwe      decimal.Decimal // Shares of expenses someone else paid
	OwedToYou   decimal.Decimal // Others' shares of expenses this participant paid
	Categories  []CategoryTotal // Largest first
}

// Report builds a spending report for participant. Every expense counts towards
// the totals per category; only expenses that take part in balances count
// towards YouOwe and OwedToYou.
func (e *Engine) Report(participant string, expenses []Expense) Report {
	r := Report{Participant: participant}
	categories := make(map[string]decimal.Decimal)

	for _, exp := range expenses {
		r.TotalSpent = r.TotalSpent.Add(exp.Amount)

		category := exp.Category
		if category == "" {
			category = UncategorizedLabel
		}
		categories[category] = categories[category].Add(exp.Amount)

		if len(exp.Split) == 0 {
			continue
		}

		share := shareOf(exp.Amount, exp.Split[participant])
		if exp.Payer == participant {
			if others := exp.Amount.Sub(share); others.IsPositive() {
				r.OwedToYou = r.OwedToYou.Add(others)
			}
		} else if share.IsPositive() {
			r.YouOwe = r.YouOwe.Add(share)
		}
	}

	for name, amount := range categories {
		r.Categories = append(r.Categories, CategoryTotal{Category: name, Amount: amount})
	}
	slices.SortFunc(r.Categories, func(a, b CategoryTotal) int {
		if c := b.Amount.Cmp(a.Amount); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})

	return r
}
