package calculator

import "testing"

func TestReport(t *testing.T) {
	expenses := []Expense{
		{Amount: d("90"), Payer: "A", Split: map[string]int{"A": 0, "B": 50, "C": 50}, Category: "Food"},
		{Amount: d("30"), Payer: "B", Split: map[string]int{"A": 34, "B": 33, "C": 33}, Category: "Travel"},
		{Amount: d("12"), Payer: "C", Split: map[string]int{"A": 50, "C": 50}},
		{Amount: d("8"), Payer: "A", Split: nil, Category: "Food"},
	}

	r := NewEngine().Report("A", expenses)

	if !r.TotalSpent.Equal(d("140")) {
		t.Errorf("TotalSpent = %s, want 140", r.TotalSpent)
	}
	// 30 * 34% + 12 * 50%
	if !r.YouOwe.Equal(d("16.2")) {
		t.Errorf("YouOwe = %s, want 16.2", r.YouOwe)
	}
	// empty split expense is not counted as owed
	if !r.OwedToYou.Equal(d("90")) {
		t.Errorf("OwedToYou = %s, want 90", r.OwedToYou)
	}

	want := []struct {
		category string
		amount   string
	}{
		{"Food", "98"},
		{"Travel", "30"},
		{UncategorizedLabel, "12"},
	}
	if len(r.Categories) != len(want) {
		t.Fatalf("got %d categories, want %d: %+v", len(r.Categories), len(want), r.Categories)
	}
	for i, w := range want {
		if r.Categories[i].Category != w.category || !r.Categories[i].Amount.Equal(d(w.amount)) {
			t.Errorf("category %d = %+v, want %s %s", i, r.Categories[i], w.category, w.amount)
		}
	}
}

func TestReport_NoExpenses(t *testing.T) {
	r := NewEngine().Report("A", nil)
	if !r.TotalSpent.IsZero() || !r.YouOwe.IsZero() || !r.OwedToYou.IsZero() {
		t.Errorf("expected zero report, got %+v", r)
	}
	if len(r.Categories) != 0 {
		t.Errorf("expected no categories, got %+v", r.Categories)
	}
}
