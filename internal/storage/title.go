package storage

import (
	"fmt"
	"time"
)

// DefaultExpenseTitle creates an auto-generated title for an expense saved
// without one, from its category and date.
func DefaultExpenseTitle(category string, date int64) string {
	day := time.Unix(date, 0).UTC().Format("Jan 2, 2006")
	if category == "" {
		return fmt.Sprintf("Expense - %s", day)
	}
	return fmt.Sprintf("%s - %s", category, day)
}
