package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/rpc"
)

// Split modes accepted in split_mode.
const (
	SplitModeEqual      = "equal"
	SplitModePercentage = "percentage"
)

// splitFromArgs builds the percentage split described by a request.
// With no split_mode, an explicit split wins over a participant list.
// Neither yields an empty split.
func splitFromArgs(args rpc.Args) (map[string]int, error) {
	mode := strings.ToLower(strings.TrimSpace(args.String("split_mode")))
	if mode == "" {
		switch {
		case args.Has("split"):
			mode = SplitModePercentage
		case args.Has("participants"):
			mode = SplitModeEqual
		default:
			return map[string]int{}, nil
		}
	}

	switch mode {
	case SplitModeEqual:
		participants, err := args.Strings("participants")
		if err != nil {
			return nil, err
		}
		return calculator.EqualSplit(dedupeMembers(participants))
	case SplitModePercentage:
		split, err := args.IntMap("split")
		if err != nil {
			return nil, err
		}
		if split == nil {
			split = map[string]int{}
		}
		return split, nil
	default:
		return nil, fmt.Errorf("unknown split_mode %q", mode)
	}
}

// PreviewSplit computes the split and the monetary share of each participant
// without saving anything.
func (s *LedgerService) PreviewSplit(ctx context.Context, args rpc.Args) (rpc.Object, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	amount, err := args.Decimal("amount")
	if err != nil {
		return nil, invalid(err)
	}
	split, err := splitFromArgs(args)
	if err != nil {
		return nil, invalid(err)
	}
	s.logger.Info("PreviewSplit request received", "amount", amount.String(), "participants", len(split))

	if len(split) == 0 {
		return nil, invalid(&calculator.SplitError{Err: calculator.ErrEmptySplit})
	}
	shares, err := s.engine.Allocate(amount, split)
	if err != nil {
		return nil, invalid(err)
	}
	return rpc.Object{"amount": amount, "split": split, "shares": shares}, nil
}

// CreateExpense records an expense in a group the caller belongs to. The
// payer defaults to the caller and must be a member, as must everyone named
// in the split.
func (s *LedgerService) CreateExpense(ctx context.Context, args rpc.Args) (rpc.Object, error) {
	groupID := args.String("group_id")
	s.logger.Info("CreateExpense request received", "group_id", groupID)

	group, userID, err := s.memberGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	amount, err := args.Decimal("amount")
	if err != nil {
		return nil, invalid(err)
	}
	split, err := splitFromArgs(args)
	if err != nil {
		return nil, invalid(err)
	}
	date, err := args.Int64("date")
	if err != nil {
		return nil, invalid(err)
	}
	if date < 0 {
		return nil, invalid(errors.New("date must not be negative"))
	}

	payer := strings.TrimSpace(args.String("paid_by"))
	if payer == "" {
		payer = userID
	}
	if err := requireMembers(group, payer); err != nil {
		return nil, err
	}
	for participant := range split {
		if err := requireMembers(group, participant); err != nil {
			return nil, err
		}
	}

	validated, err := s.engine.NewExpense("", amount, payer, split)
	if err != nil {
		s.logger.Warn("CreateExpense rejected", "group_id", group.ID, "error", err)
		return nil, invalid(err)
	}

	expense := &models.Expense{
		GroupID:   group.ID,
		Title:     strings.TrimSpace(args.String("title")),
		Amount:    validated.Amount,
		PaidBy:    validated.Payer,
		Split:     validated.Split,
		Date:      date,
		Category:  strings.TrimSpace(args.String("category")),
		Note:      strings.TrimSpace(args.String("note")),
		CreatedBy: userID,
	}
	if err := s.store.CreateExpense(ctx, expense); err != nil {
		s.logger.Error("CreateExpense failed", "group_id", group.ID, "error", err)
		return nil, storeError(err)
	}
	s.metrics.ExpensesCreated.Inc()

	shares, err := s.shares(expense)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Expense created", "expense_id", expense.ID, "group_id", group.ID, "amount", expense.Amount.String())
	return rpc.Object{"expense": expenseObject(expense, shares)}, nil
}

// shares allocates an expense's amount across its split, or returns nil for
// an empty split.
func (s *LedgerService) shares(expense *models.Expense) (map[string]decimal.Decimal, error) {
	if len(expense.Split) == 0 {
		return nil, nil
	}
	shares, err := s.engine.Allocate(expense.Amount, expense.Split)
	if err != nil {
		return nil, invalid(err)
	}
	return shares, nil
}

// memberExpense loads an expense and checks the caller belongs to its group.
func (s *LedgerService) memberExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	if expenseID == "" {
		return nil, invalid(errors.New("expense_id required"))
	}
	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, storeError(err)
	}
	if _, _, err := s.memberGroup(ctx, expense.GroupID); err != nil {
		return nil, err
	}
	return expense, nil
}

// GetExpense returns one expense with its monetary shares.
func (s *LedgerService) GetExpense(ctx context.Context, args rpc.Args) (rpc.Object, error) {
	expenseID := args.String("expense_id")
	s.logger.Info("GetExpense request received", "expense_id", expenseID)

	expense, err := s.memberExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	shares, err := s.shares(expense)
	if err != nil {
		return nil, err
	}
	return rpc.Object{"expense": expenseObject(expense, shares)}, nil
}

// ListExpenses returns a group's expenses, newest first.
func (s *LedgerService) ListExpenses(ctx context.Context, args rpc.Args) (rpc.Object, error) {
	groupID := args.String("group_id")
	s.logger.Info("ListExpenses request received", "group_id", groupID)

	group, _, err := s.memberGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	expenses, err := s.store.ListExpensesByGroup(ctx, group.ID)
	if err != nil {
		s.logger.Error("ListExpenses failed", "group_id", group.ID, "error", err)
		return nil, storeError(err)
	}

	out := make([]rpc.Object, len(expenses))
	total := decimal.Zero
	for i, e := range expenses {
		out[i] = expenseObject(e, nil)
		total = total.Add(e.Amount)
	}
	s.logger.Info("ListExpenses successful", "group_id", group.ID, "count", len(expenses))
	return rpc.Object{"expenses": out, "total": total}, nil
}

// DeleteExpense removes an expense from a group the caller belongs to.
func (s *LedgerService) DeleteExpense(ctx context.Context, args rpc.Args) (rpc.Object, error) {
	expenseID := args.String("expense_id")
	s.logger.Info("DeleteExpense request received", "expense_id", expenseID)

	expense, err := s.memberExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteExpense(ctx, expense.ID); err != nil {
		s.logger.Error("DeleteExpense failed", "expense_id", expense.ID, "error", err)
		return nil, storeError(err)
	}
	s.logger.Info("Expense deleted", "expense_id", expense.ID, "group_id", expense.GroupID)
	return rpc.Object{}, nil
}
