package service

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/rpc"
)

// names maps user IDs to display names. Unknown IDs render as the ID itself.
type names map[string]string

func (n names) of(id string) string {
	if name, ok := n[id]; ok && name != "" {
		return name
	}
	return id
}

func userObject(user *models.User) rpc.Object {
	return rpc.Object{
		"id":           user.ID,
		"email":        user.Email,
		"display_name": user.DisplayName,
		"created_at":   user.CreatedAt,
	}
}

func groupObject(group *models.Group, n names) rpc.Object {
	members := make([]rpc.Object, len(group.Members))
	for i, id := range group.Members {
		members[i] = rpc.Object{"id": id, "display_name": n.of(id)}
	}
	return rpc.Object{
		"id":          group.ID,
		"name":        group.Name,
		"description": group.Description,
		"created_by":  group.CreatedBy,
		"members":     members,
		"created_at":  group.CreatedAt,
	}
}

func expenseObject(expense *models.Expense, shares map[string]decimal.Decimal) rpc.Object {
	obj := rpc.Object{
		"id":         expense.ID,
		"group_id":   expense.GroupID,
		"title":      expense.Title,
		"amount":     expense.Amount,
		"paid_by":    expense.PaidBy,
		"split":      expense.Split,
		"date":       expense.Date,
		"category":   expense.Category,
		"note":       expense.Note,
		"created_by": expense.CreatedBy,
		"created_at": expense.CreatedAt,
	}
	if shares != nil {
		obj["shares"] = shares
	}
	return obj
}

func settlementObject(s *models.Settlement, n names) rpc.Object {
	return rpc.Object{
		"id":         s.ID,
		"group_id":   s.GroupID,
		"from":       s.FromUserID,
		"from_name":  n.of(s.FromUserID),
		"to":         s.ToUserID,
		"to_name":    n.of(s.ToUserID),
		"amount":     s.Amount,
		"note":       s.Note,
		"created_by": s.CreatedBy,
		"created_at": s.CreatedAt,
	}
}

func transferObject(t calculator.Transfer, n names) rpc.Object {
	return rpc.Object{
		"from":      t.From,
		"from_name": n.of(t.From),
		"to":        t.To,
		"to_name":   n.of(t.To),
		"amount":    t.Amount,
	}
}

func memberBalanceObject(mb calculator.MemberBalance, n names) rpc.Object {
	return rpc.Object{
		"member":       mb.Member,
		"display_name": n.of(mb.Member),
		"net_balance":  mb.NetBalance,
		"total_paid":   mb.TotalPaid,
		"total_owed":   mb.TotalOwed,
	}
}

func reportObject(r calculator.Report, groupID string, since int64, count int) rpc.Object {
	categories := make([]rpc.Object, len(r.Categories))
	for i, c := range r.Categories {
		categories[i] = rpc.Object{"category": c.Category, "amount": c.Amount}
	}
	return rpc.Object{
		"member":        r.Participant,
		"group_id":      groupID,
		"since":         since,
		"expense_count": count,
		"total_spent":   r.TotalSpent,
		"you_owe":       r.YouOwe,
		"owed_to_you":   r.OwedToYou,
		"categories":    categories,
	}
}
