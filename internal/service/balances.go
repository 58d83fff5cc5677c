package service

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/rpc"
)

// GetGroupBalances computes each member's net balance from the group's
// expenses and recorded settlements, plus the transfers that would settle
// what is left.
func (s *LedgerService) GetGroupBalances(ctx context.Context, args rpc.Args) (rpc.Object, error) {
	groupID := args.String("group_id")
	s.logger.Info("GetGroupBalances request received", "group_id", groupID)

	group, _, err := s.memberGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.ListExpensesByGroup(ctx, group.ID)
	if err != nil {
		s.logger.Error("GetGroupBalances failed - could not list expenses", "group_id", group.ID, "error", err)
		return nil, storeError(err)
	}
	recorded, err := s.store.ListSettlementsByGroup(ctx, group.ID)
	if err != nil {
		s.logger.Error("GetGroupBalances failed - could not list settlements", "group_id", group.ID, "error", err)
		return nil, storeError(err)
	}

	expenses, err := s.engineExpenses(rows)
	if err != nil {
		return nil, err
	}
	for _, e := range expenses {
		if len(e.Split) == 0 {
			s.metrics.EmptySplits.Inc()
		}
	}

	ledger := s.engine.Ledger(expenses, payments(recorded))
	s.metrics.SuggestedTransfers.Observe(float64(len(ledger.Settlements)))

	// Members without activity still get a zero row.
	byMember := make(map[string]calculator.MemberBalance, len(ledger.Members))
	for _, mb := range ledger.Members {
		byMember[mb.Member] = mb
	}
	ids := dedupeMembers(append(append([]string{}, group.Members...), ledger.Balances.Participants()...))
	n, err := s.displayNames(ctx, ids)
	if err != nil {
		return nil, err
	}

	slices.Sort(ids)
	balances := make([]rpc.Object, 0, len(ids))
	for _, id := range ids {
		mb, ok := byMember[id]
		if !ok {
			mb = calculator.MemberBalance{Member: id}
		}
		// Net balance comes from the ledger so that it matches the transfers.
		mb.NetBalance = ledger.Balances[id]
		balances = append(balances, memberBalanceObject(mb, n))
	}

	transfers := make([]rpc.Object, len(ledger.Settlements))
	for i, t := range ledger.Settlements {
		transfers[i] = transferObject(t, n)
	}

	s.logger.Info("GetGroupBalances successful",
		"group_id", group.ID,
		"expenses", len(expenses),
		"settlements_recorded", len(recorded),
		"transfers_suggested", len(ledger.Settlements),
	)
	return rpc.Object{
		"group_id":              group.ID,
		"balances":              balances,
		"suggested_settlements": transfers,
		"settled":               s.engine.Settled(ledger.Balances),
	}, nil
}

// RecordSettlement saves a payment from one member to another. The sender
// defaults to the caller.
func (s *LedgerService) RecordSettlement(ctx context.Context, args rpc.Args) (rpc.Object, error) {
	groupID := args.String("group_id")
	s.logger.Info("RecordSettlement request received", "group_id", groupID)

	group, userID, err := s.memberGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	amount, err := args.Decimal("amount")
	if err != nil {
		return nil, invalid(err)
	}

	from := strings.TrimSpace(args.String("from"))
	if from == "" {
		from = userID
	}
	to := strings.TrimSpace(args.String("to"))
	if to == "" {
		return nil, invalid(errors.New("to required"))
	}
	if from == to {
		return nil, invalid(errors.New("cannot settle with yourself"))
	}
	if err := requireMembers(group, from, to); err != nil {
		return nil, err
	}

	if err := s.engine.ValidateAmount(amount); err != nil {
		return nil, invalid(err)
	}

	settlement := &models.Settlement{
		GroupID:    group.ID,
		FromUserID: from,
		ToUserID:   to,
		Amount:     amount,
		CreatedBy:  userID,
		Note:       strings.TrimSpace(args.String("note")),
	}
	if err := s.store.CreateSettlement(ctx, settlement); err != nil {
		s.logger.Error("RecordSettlement failed", "group_id", group.ID, "error", err)
		return nil, storeError(err)
	}
	s.metrics.SettlementsSaved.Inc()

	n, err := s.displayNames(ctx, []string{from, to})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Settlement recorded", "settlement_id", settlement.ID, "group_id", group.ID, "amount", amount.String())
	return rpc.Object{"settlement": settlementObject(settlement, n)}, nil
}

// ListSettlements returns the payments recorded in a group.
func (s *LedgerService) ListSettlements(ctx context.Context, args rpc.Args) (rpc.Object, error) {
	groupID := args.String("group_id")
	s.logger.Info("ListSettlements request received", "group_id", groupID)

	group, _, err := s.memberGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	settlements, err := s.store.ListSettlementsByGroup(ctx, group.ID)
	if err != nil {
		s.logger.Error("ListSettlements failed", "group_id", group.ID, "error", err)
		return nil, storeError(err)
	}

	var ids []string
	for _, st := range settlements {
		ids = append(ids, st.FromUserID, st.ToUserID)
	}
	n, err := s.displayNames(ctx, dedupeMembers(ids))
	if err != nil {
		return nil, err
	}

	out := make([]rpc.Object, len(settlements))
	for i, st := range settlements {
		out[i] = settlementObject(st, n)
	}
	return rpc.Object{"settlements": out}, nil
}

// DeleteSettlement removes a recorded payment.
func (s *LedgerService) DeleteSettlement(ctx context.Context, args rpc.Args) (rpc.Object, error) {
	settlementID := args.String("settlement_id")
	s.logger.Info("DeleteSettlement request received", "settlement_id", settlementID)

	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	if settlementID == "" {
		return nil, invalid(errors.New("settlement_id required"))
	}
	settlement, err := s.store.GetSettlement(ctx, settlementID)
	if err != nil {
		return nil, storeError(err)
	}
	if _, _, err := s.memberGroup(ctx, settlement.GroupID); err != nil {
		return nil, err
	}

	if err := s.store.DeleteSettlement(ctx, settlement.ID); err != nil {
		s.logger.Error("DeleteSettlement failed", "settlement_id", settlement.ID, "error", err)
		return nil, storeError(err)
	}
	s.logger.Info("Settlement deleted", "settlement_id", settlement.ID)
	return rpc.Object{}, nil
}

// GetReport summarizes the caller's spending, either in one group or across
// all of their groups, optionally limited to expenses dated at or after since.
func (s *LedgerService) GetReport(ctx context.Context, args rpc.Args) (rpc.Object, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	groupID := args.String("group_id")
	since, err := args.Int64("since")
	if err != nil {
		return nil, invalid(err)
	}
	s.logger.Info("GetReport request received", "user_id", userID, "group_id", groupID, "since", since)

	var groups []*models.Group
	if groupID != "" {
		group, _, err := s.memberGroup(ctx, groupID)
		if err != nil {
			return nil, err
		}
		groups = []*models.Group{group}
	} else {
		if groups, err = s.store.ListGroupsForMember(ctx, userID); err != nil {
			return nil, storeError(err)
		}
	}

	var rows []*models.Expense
	for _, g := range groups {
		list, err := s.store.ListExpensesByGroup(ctx, g.ID)
		if err != nil {
			s.logger.Error("GetReport failed - could not list expenses", "group_id", g.ID, "error", err)
			return nil, storeError(err)
		}
		for _, e := range list {
			if e.Date >= since {
				rows = append(rows, e)
			}
		}
	}

	expenses, err := s.engineExpenses(rows)
	if err != nil {
		return nil, err
	}
	report := s.engine.Report(userID, expenses)
	return rpc.Object{"report": reportObject(report, groupID, since, len(expenses))}, nil
}
