package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/rpc"
	"github.com/mmynk/splitledger/internal/storage"
)

// LedgerServiceName is the fully-qualified Connect service name.
const LedgerServiceName = "splitledger.v1.LedgerService"

// LedgerService implements group, expense, balance and settlement RPCs.
// Every call requires an authenticated member.
type LedgerService struct {
	store   storage.Store
	engine  *calculator.Engine
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewLedgerService creates a LedgerService. A nil engine uses the defaults.
func NewLedgerService(store storage.Store, engine *calculator.Engine, m *metrics.Metrics, logger *slog.Logger) *LedgerService {
	if engine == nil {
		engine = calculator.NewEngine()
	}
	if m == nil {
		m = metrics.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerService{store: store, engine: engine, metrics: m, logger: logger}
}

// NewLedgerServiceHandler returns the path prefix and handler serving svc.
func NewLedgerServiceHandler(svc *LedgerService, opts ...connect.HandlerOption) (string, http.Handler) {
	return rpc.NewServiceHandler(LedgerServiceName, map[string]rpc.Func{
		"CreateGroup":      svc.CreateGroup,
		"GetGroup":         svc.GetGroup,
		"ListGroups":       svc.ListGroups,
		"AddGroupMembers":  svc.AddGroupMembers,
		"DeleteGroup":      svc.DeleteGroup,
		"PreviewSplit":     svc.PreviewSplit,
		"CreateExpense":    svc.CreateExpense,
		"GetExpense":       svc.GetExpense,
		"ListExpenses":     svc.ListExpenses,
		"DeleteExpense":    svc.DeleteExpense,
		"GetGroupBalances": svc.GetGroupBalances,
		"RecordSettlement": svc.RecordSettlement,
		"ListSettlements":  svc.ListSettlements,
		"DeleteSettlement": svc.DeleteSettlement,
		"GetReport":        svc.GetReport,
	}, opts...)
}

var (
	errNotMember     = errors.New("not a member of this group")
	errGroupRequired = errors.New("group_id required")
)

// caller returns the authenticated member ID.
func caller(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}
	return userID, nil
}

// memberGroup loads a group and checks that the caller belongs to it.
func (s *LedgerService) memberGroup(ctx context.Context, groupID string) (*models.Group, string, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, "", err
	}
	if groupID == "" {
		return nil, "", connect.NewError(connect.CodeInvalidArgument, errGroupRequired)
	}
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, "", storeError(err)
	}
	if !group.HasMember(userID) {
		return nil, "", connect.NewError(connect.CodePermissionDenied, errNotMember)
	}
	return group, userID, nil
}

// requireMembers fails when any of ids is not a member of group.
func requireMembers(group *models.Group, ids ...string) error {
	for _, id := range ids {
		if !group.HasMember(id) {
			return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%s is not a member of group %s", id, group.ID))
		}
	}
	return nil
}

// displayNames looks up display names for ids.
func (s *LedgerService) displayNames(ctx context.Context, ids []string) (names, error) {
	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, storeError(err)
	}
	n := make(names, len(users))
	for id, u := range users {
		n[id] = u.DisplayName
	}
	return n, nil
}

// storeError maps storage failures onto Connect codes.
func storeError(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, storage.ErrConflict):
		return connect.NewError(connect.CodeAlreadyExists, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

func invalid(err error) error {
	return connect.NewError(connect.CodeInvalidArgument, err)
}

// engineExpense re-validates a stored expense before it reaches the engine.
func (s *LedgerService) engineExpense(e *models.Expense) (calculator.Expense, error) {
	exp, err := s.engine.NewExpense(e.ID, e.Amount, e.PaidBy, e.Split)
	// Rows saved before the policy became reject stay readable.
	if errors.Is(err, calculator.ErrEmptySplit) {
		exp, err = calculator.Expense{ID: e.ID, Amount: e.Amount, Payer: e.PaidBy}, nil
	}
	if err != nil {
		return calculator.Expense{}, connect.NewError(connect.CodeDataLoss, fmt.Errorf("stored expense %s is invalid: %w", e.ID, err))
	}
	exp.Category = e.Category
	return exp, nil
}

func (s *LedgerService) engineExpenses(rows []*models.Expense) ([]calculator.Expense, error) {
	out := make([]calculator.Expense, 0, len(rows))
	for _, row := range rows {
		exp, err := s.engineExpense(row)
		if err != nil {
			s.logger.Error("Stored expense failed validation", "expense_id", row.ID, "error", err)
			return nil, err
		}
		out = append(out, exp)
	}
	return out, nil
}

func payments(rows []*models.Settlement) []calculator.Transfer {
	out := make([]calculator.Transfer, len(rows))
	for i, s := range rows {
		out[i] = calculator.Transfer{From: s.FromUserID, To: s.ToUserID, Amount: s.Amount}
	}
	return out
}
