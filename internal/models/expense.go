package models

import "github.com/shopspring/decimal"

// Expense represents money one member fronted for the group.
// Expenses are immutable once created; they can only be deleted.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the group this expense belongs to.
	GroupID string

	// Title is the human-readable description (e.g., "Groceries").
	Title string

	// Amount is the positive total of the expense.
	Amount decimal.Decimal

	// PaidBy is the user ID of the member who fronted the money.
	PaidBy string

	// Split maps a member's user ID to the percentage of Amount they owe.
	// Percentages sum to 100 unless the split is empty.
	Split map[string]int

	// Date is the Unix timestamp of when the expense happened.
	Date int64

	// Category is optional (e.g., "Food", "Travel").
	Category string

	// Note is optional free text.
	Note string

	// CreatedBy is the user ID who recorded this expense.
	CreatedBy string

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64
}
