package calculator

import (
	"math/rand/v2"
	"testing"

	"github.com/shopspring/decimal"
)

// scenarioExpenses is the three-person group used throughout these tests.
func scenarioExpenses() []Expense {
	return []Expense{
		{ID: "e1", Amount: d("90"), Payer: "A", Split: map[string]int{"A": 0, "B": 50, "C": 50}},
		{ID: "e2", Amount: d("30"), Payer: "B", Split: map[string]int{"A": 34, "B": 33, "C": 33}},
	}
}

func assertBalances(t *testing.T, got Balances, want map[string]string) {
	t.Helper()
	if len(got) != len(want) {
		t.Errorf("got %d balances, want %d: %v", len(got), len(want), got)
	}
	for p, w := range want {
		if !got[p].Equal(d(w)) {
			t.Errorf("balance[%s] = %s, want %s", p, got[p], w)
		}
	}
}

func TestComputeBalances(t *testing.T) {
	tests := []struct {
		name     string
		expenses []Expense
		want     map[string]string
	}{
		{
			name:     "no expenses",
			expenses: nil,
			want:     map[string]string{},
		},
		{
			name:     "payer not charged",
			expenses: scenarioExpenses()[:1],
			want:     map[string]string{"A": "90", "B": "-45", "C": "-45"},
		},
		{
			name:     "three people, two expenses",
			expenses: scenarioExpenses(),
			want:     map[string]string{"A": "79.8", "B": "-24.9", "C": "-54.9"},
		},
		{
			name: "single participant pays for themselves",
			expenses: []Expense{
				{Amount: d("42.50"), Payer: "A", Split: map[string]int{"A": 100}},
			},
			want: map[string]string{"A": "0"},
		},
		{
			name: "empty split contributes nothing",
			expenses: []Expense{
				{Amount: d("90"), Payer: "A", Split: map[string]int{"A": 0, "B": 50, "C": 50}},
				{Amount: d("500"), Payer: "B", Split: map[string]int{}},
			},
			want: map[string]string{"A": "90", "B": "-45", "C": "-45"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeBalances(tt.expenses)
			assertBalances(t, got, tt.want)
			if !got.Total().IsZero() {
				t.Errorf("balances sum to %s, want 0", got.Total())
			}
		})
	}
}

func TestBalances_EmptySplitPolicies(t *testing.T) {
	expenses := []Expense{
		{Amount: d("60"), Payer: "B", Split: nil},
	}

	t.Run("skip leaves payer out", func(t *testing.T) {
		got := NewEngine(WithEmptySplitPolicy(SkipEmptySplit)).Balances(expenses)
		assertBalances(t, got, map[string]string{})
	})

	t.Run("payer absorbs nets to zero", func(t *testing.T) {
		engine := NewEngine(WithEmptySplitPolicy(PayerAbsorbsEmptySplit))
		assertBalances(t, engine.Balances(expenses), map[string]string{"B": "0"})

		members := engine.Summaries(expenses, nil)
		if len(members) != 1 {
			t.Fatalf("expected 1 member, got %d", len(members))
		}
		if !members[0].TotalPaid.Equal(d("60")) || !members[0].TotalOwed.Equal(d("60")) {
			t.Errorf("unexpected summary %+v", members[0])
		}
	})
}

func TestComputeBalances_Idempotent(t *testing.T) {
	expenses := scenarioExpenses()
	first := ComputeBalances(expenses)
	second := ComputeBalances(expenses)
	assertBalances(t, second, map[string]string{
		"A": first["A"].String(),
		"B": first["B"].String(),
		"C": first["C"].String(),
	})
}

func TestComputeSettlements_Scenario(t *testing.T) {
	balances := ComputeBalances(scenarioExpenses())
	got := ComputeSettlements(balances)

	want := []Transfer{
		{From: "C", To: "A", Amount: d("54.9")},
		{From: "B", To: "A", Amount: d("24.9")},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d transfers, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i].From != want[i].From || got[i].To != want[i].To || !got[i].Amount.Equal(want[i].Amount) {
			t.Errorf("transfer %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	settled := ApplyTransfers(balances, got)
	for p, bal := range settled {
		if bal.Abs().GreaterThan(DefaultEpsilon) {
			t.Errorf("%s still has balance %s after settling", p, bal)
		}
	}
}

func TestComputeSettlements(t *testing.T) {
	tests := []struct {
		name     string
		balances Balances
		want     []Transfer
	}{
		{
			name:     "everyone settled",
			balances: Balances{"A": decimal.Zero, "B": decimal.Zero},
			want:     nil,
		},
		{
			name:     "noise below epsilon is ignored",
			balances: Balances{"A": d("0.004"), "B": d("-0.004")},
			want:     nil,
		},
		{
			name:     "two creditors one debtor",
			balances: Balances{"A": d("30"), "B": d("10"), "C": d("-40")},
			want: []Transfer{
				{From: "C", To: "A", Amount: d("30")},
				{From: "C", To: "B", Amount: d("10")},
			},
		},
		{
			name:     "ties broken by participant id",
			balances: Balances{"B": d("5"), "A": d("5"), "D": d("-5"), "C": d("-5")},
			want: []Transfer{
				{From: "C", To: "A", Amount: d("5")},
				{From: "D", To: "B", Amount: d("5")},
			},
		},
		{
			name:     "partial matches across both sides",
			balances: Balances{"A": d("3"), "B": d("3"), "C": d("-4"), "D": d("-2")},
			want: []Transfer{
				{From: "C", To: "A", Amount: d("3")},
				{From: "C", To: "B", Amount: d("1")},
				{From: "D", To: "B", Amount: d("2")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeSettlements(tt.balances)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d transfers, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range tt.want {
				if got[i].From != tt.want[i].From || got[i].To != tt.want[i].To || !got[i].Amount.Equal(tt.want[i].Amount) {
					t.Errorf("transfer %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestComputeSettlements_SingleParticipantNeverSettles(t *testing.T) {
	expenses := []Expense{
		{Amount: d("12.34"), Payer: "A", Split: map[string]int{"A": 100}},
		{Amount: d("0.01"), Payer: "A", Split: map[string]int{"A": 100}},
	}
	if got := ComputeSettlements(ComputeBalances(expenses)); len(got) != 0 {
		t.Errorf("expected no transfers, got %+v", got)
	}
}

func TestComputeSettlements_SmallCreditsAbsorbOpenDebt(t *testing.T) {
	var expenses []Expense
	for _, payer := range []string{"C1", "C2", "C3", "C4", "C5"} {
		expenses = append(expenses, Expense{Amount: d("0.01"), Payer: payer, Split: map[string]int{"D": 100}})
	}
	engine := NewEngine()
	balances := engine.Balances(expenses)
	if engine.Settled(balances) {
		t.Fatalf("D owes 0.05, balances must not count as settled: %v", balances)
	}

	transfers := engine.Settlements(balances)
	want := []Transfer{
		{From: "D", To: "C1", Amount: d("0.01")},
		{From: "D", To: "C2", Amount: d("0.01")},
		{From: "D", To: "C3", Amount: d("0.01")},
		{From: "D", To: "C4", Amount: d("0.01")},
	}
	if len(transfers) != len(want) {
		t.Fatalf("expected %d transfers, got %+v", len(want), transfers)
	}
	for i, w := range want {
		if got := transfers[i]; got.From != w.From || got.To != w.To || !got.Amount.Equal(w.Amount) {
			t.Errorf("transfer %d = %+v, want %+v", i, got, w)
		}
	}

	after := ApplyTransfers(balances, transfers)
	if !engine.Settled(after) {
		t.Errorf("expected balances within epsilon after transfers, got %v", after)
	}
}

func TestComputeSettlements_SmallDebtsCoverOpenCredit(t *testing.T) {
	balances := Balances{"A": d("0.03"), "B": d("-0.01"), "C": d("-0.01"), "D": d("-0.01")}
	engine := NewEngine()

	transfers := engine.Settlements(balances)
	if len(transfers) != 2 {
		t.Fatalf("expected 2 transfers, got %+v", transfers)
	}
	for _, tr := range transfers {
		if tr.To != "A" || !tr.Amount.Equal(d("0.01")) {
			t.Errorf("unexpected transfer %+v", tr)
		}
	}
	if after := ApplyTransfers(balances, transfers); !engine.Settled(after) {
		t.Errorf("expected settled balances, got %v", after)
	}
}

func TestSettlementsProperties(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	// Whole-unit amounts keep every balance a multiple of 0.01, so a tighter
	// epsilon lets the greedy match settle everything exactly.
	engine := NewEngine(WithEpsilon(d("0.001")))

	for round := 0; round < 200; round++ {
		group := participants(2 + r.IntN(8))
		var expenses []Expense
		for n := 1 + r.IntN(12); n > 0; n-- {
			r.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })
			split, err := EqualSplit(group[:1+r.IntN(len(group))])
			if err != nil {
				t.Fatalf("EqualSplit failed: %v", err)
			}
			expenses = append(expenses, Expense{
				Amount: decimal.NewFromInt(int64(1 + r.IntN(500))),
				Payer:  group[r.IntN(len(group))],
				Split:  split,
			})
		}

		balances := engine.Balances(expenses)
		if !balances.Total().IsZero() {
			t.Fatalf("round %d: balances sum to %s", round, balances.Total())
		}

		var debtors, creditors int
		for _, b := range balances {
			switch {
			case b.GreaterThan(engine.Epsilon()):
				creditors++
			case b.LessThan(engine.Epsilon().Neg()):
				debtors++
			}
		}

		transfers := engine.Settlements(balances)
		if debtors > 0 && len(transfers) > debtors+creditors-1 {
			t.Errorf("round %d: %d transfers for %d debtors and %d creditors", round, len(transfers), debtors, creditors)
		}
		if (debtors == 1 || creditors == 1) && len(transfers) > max(debtors, creditors) {
			t.Errorf("round %d: too many transfers: %d", round, len(transfers))
		}
		for _, tr := range transfers {
			if !tr.Amount.IsPositive() || tr.From == tr.To {
				t.Errorf("round %d: bad transfer %+v", round, tr)
			}
		}

		for p, b := range ApplyTransfers(balances, transfers) {
			if b.Abs().GreaterThan(engine.Epsilon()) {
				t.Errorf("round %d: %s left with %s", round, p, b)
			}
		}
	}
}

func TestLedger_AppliesRecordedPayments(t *testing.T) {
	engine := NewEngine()
	payments := []Transfer{{From: "C", To: "A", Amount: d("54.9")}}

	ledger := engine.Ledger(scenarioExpenses(), payments)

	assertBalances(t, ledger.Balances, map[string]string{"A": "24.9", "B": "-24.9", "C": "0"})

	if len(ledger.Settlements) != 1 {
		t.Fatalf("expected 1 remaining transfer, got %+v", ledger.Settlements)
	}
	if s := ledger.Settlements[0]; s.From != "B" || s.To != "A" || !s.Amount.Equal(d("24.9")) {
		t.Errorf("unexpected transfer %+v", s)
	}

	if len(ledger.Members) != 3 {
		t.Fatalf("expected 3 members, got %d", len(ledger.Members))
	}
	for _, m := range ledger.Members {
		if !m.NetBalance.Equal(ledger.Balances[m.Member]) {
			t.Errorf("%s: summary net %s != balance %s", m.Member, m.NetBalance, ledger.Balances[m.Member])
		}
	}
	if a := ledger.Members[0]; a.Member != "A" || !a.TotalPaid.Equal(d("90")) || !a.TotalOwed.Equal(d("65.1")) {
		t.Errorf("unexpected summary for A: %+v", a)
	}
}
