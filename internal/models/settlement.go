package models

import "github.com/shopspring/decimal"

// Settlement is a payment one member has already made to another. Recorded
// settlements are applied on top of the balances derived from a group's
// expenses, so suggested transfers shrink as payments are recorded.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// GroupID is the group this settlement belongs to.
	GroupID string

	// FromUserID is the member who paid. Their net balance rises by Amount.
	FromUserID string

	// ToUserID is the member who was paid. Their net balance falls by Amount.
	ToUserID string

	// Amount is positive and carries no more decimal places than money is
	// kept to.
	Amount decimal.Decimal

	// CreatedAt is the Unix timestamp when the settlement was recorded.
	CreatedAt int64

	// CreatedBy is the user ID who recorded this settlement.
	CreatedBy string

	// Note is an optional description for the settlement.
	Note string
}
