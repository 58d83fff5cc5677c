package calculator

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func participants(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("user-%02d", i+1)
	}
	return ids
}

func TestEqualSplit(t *testing.T) {
	tests := []struct {
		name         string
		participants []string
		want         map[string]int
		wantErr      error
	}{
		{
			name:         "single participant takes everything",
			participants: []string{"Alice"},
			want:         map[string]int{"Alice": 100},
		},
		{
			name:         "two participants split evenly",
			participants: []string{"Alice", "Bob"},
			want:         map[string]int{"Alice": 50, "Bob": 50},
		},
		{
			name:         "three participants - remainder to first",
			participants: []string{"Alice", "Bob", "Charlie"},
			want:         map[string]int{"Alice": 34, "Bob": 33, "Charlie": 33},
		},
		{
			name:         "remainder follows given order",
			participants: []string{"Charlie", "Bob", "Alice"},
			want:         map[string]int{"Charlie": 34, "Bob": 33, "Alice": 33},
		},
		{
			name:         "seven participants",
			participants: participants(7),
			want: map[string]int{
				"user-01": 15, "user-02": 15, "user-03": 14, "user-04": 14,
				"user-05": 14, "user-06": 14, "user-07": 14,
			},
		},
		{
			name:         "duplicates collapse",
			participants: []string{"Alice", "Bob", "Alice"},
			want:         map[string]int{"Alice": 50, "Bob": 50},
		},
		{
			name:         "no participants should error",
			participants: []string{},
			wantErr:      ErrNoParticipants,
		},
		{
			name:         "nil participants should error",
			participants: nil,
			wantErr:      ErrNoParticipants,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EqualSplit(tt.participants)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("EqualSplit() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("EqualSplit() returned %d entries, want %d", len(got), len(tt.want))
			}
			for p, pct := range tt.want {
				if got[p] != pct {
					t.Errorf("%s = %d, want %d", p, got[p], pct)
				}
			}
		})
	}
}

func TestEqualSplit_AlwaysSumsTo100(t *testing.T) {
	for n := 1; n <= 20; n++ {
		split, err := EqualSplit(participants(n))
		if err != nil {
			t.Fatalf("N=%d: unexpected error: %v", n, err)
		}

		floor := 100 / n
		total := 0
		for p, pct := range split {
			if pct != floor && pct != floor+1 {
				t.Errorf("N=%d: %s got %d, want %d or %d", n, p, pct, floor, floor+1)
			}
			total += pct
		}
		if total != 100 {
			t.Errorf("N=%d: total = %d, want 100", n, total)
		}
		if err := ValidatePercentageSplit(split); err != nil {
			t.Errorf("N=%d: equal split failed validation: %v", n, err)
		}
	}
}

func TestValidatePercentageSplit(t *testing.T) {
	tests := []struct {
		name      string
		split     map[string]int
		wantErr   error
		wantTotal int
		wantWho   string
	}{
		{
			name:  "valid split",
			split: map[string]int{"Alice": 60, "Bob": 40},
		},
		{
			name:  "zero share is allowed",
			split: map[string]int{"Alice": 0, "Bob": 50, "Charlie": 50},
		},
		{
			name:  "one person pays everything",
			split: map[string]int{"Alice": 100},
		},
		{
			name:      "under 100",
			split:     map[string]int{"Alice": 50, "Bob": 40},
			wantErr:   ErrDoesNotSumTo100,
			wantTotal: 90,
		},
		{
			name:      "over 100",
			split:     map[string]int{"Alice": 60, "Bob": 60},
			wantErr:   ErrDoesNotSumTo100,
			wantTotal: 120,
		},
		{
			name:    "negative percentage",
			split:   map[string]int{"Alice": 100, "Bob": -10},
			wantErr: ErrNegativePercentage,
			wantWho: "Bob",
		},
		{
			name:    "single entry above 100",
			split:   map[string]int{"Alice": 0, "Bob": 101},
			wantErr: ErrPercentageTooLarge,
			wantWho: "Bob",
		},
		{
			name:    "huge entries that wrap around to 100",
			split:   map[string]int{"Alice": math.MaxInt, "Bob": math.MaxInt, "Carol": 102},
			wantErr: ErrPercentageTooLarge,
			wantWho: "Alice",
		},
		{
			name:    "empty split does not sum to 100",
			split:   map[string]int{},
			wantErr: ErrDoesNotSumTo100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePercentageSplit(tt.split)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidatePercentageSplit() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr == nil {
				return
			}

			var splitErr *SplitError
			if !errors.As(err, &splitErr) {
				t.Fatalf("expected *SplitError, got %T", err)
			}
			if errors.Is(tt.wantErr, ErrDoesNotSumTo100) && splitErr.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", splitErr.Total, tt.wantTotal)
			}
			if splitErr.Participant != tt.wantWho {
				t.Errorf("Participant = %q, want %q", splitErr.Participant, tt.wantWho)
			}
		})
	}
}

func TestAllocate(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		split   map[string]int
		want    map[string]string
		wantErr error
	}{
		{
			name:   "exact shares",
			amount: "10.00",
			split:  map[string]int{"Alice": 34, "Bob": 33, "Charlie": 33},
			want:   map[string]string{"Alice": "3.40", "Bob": "3.30", "Charlie": "3.30"},
		},
		{
			name:   "leftover cent goes to largest remainder",
			amount: "10.01",
			split:  map[string]int{"Alice": 33, "Bob": 33, "Charlie": 34},
			want:   map[string]string{"Alice": "3.30", "Bob": "3.30", "Charlie": "3.41"},
		},
		{
			name:   "tied remainders go to lowest id",
			amount: "0.05",
			split:  map[string]int{"Bob": 50, "Alice": 50},
			want:   map[string]string{"Alice": "0.03", "Bob": "0.02"},
		},
		{
			name:   "zero share gets nothing",
			amount: "90",
			split:  map[string]int{"Alice": 0, "Bob": 50, "Charlie": 50},
			want:   map[string]string{"Alice": "0", "Bob": "45", "Charlie": "45"},
		},
		{
			name:    "too many decimal places",
			amount:  "1.005",
			split:   map[string]int{"Alice": 100},
			wantErr: ErrAmountPrecision,
		},
		{
			name:    "zero amount",
			amount:  "0",
			split:   map[string]int{"Alice": 100},
			wantErr: ErrNonPositiveAmount,
		},
		{
			name:    "negative amount",
			amount:  "-5",
			split:   map[string]int{"Alice": 100},
			wantErr: ErrNonPositiveAmount,
		},
		{
			name:    "invalid split",
			amount:  "5",
			split:   map[string]int{"Alice": 40},
			wantErr: ErrDoesNotSumTo100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Allocate(d(tt.amount), tt.split, DefaultPlaces)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Allocate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			for p, want := range tt.want {
				if !got[p].Equal(d(want)) {
					t.Errorf("%s = %s, want %s", p, got[p], want)
				}
			}
		})
	}
}

func TestAllocate_SharesSumToAmount(t *testing.T) {
	amounts := []string{"0.01", "0.99", "1.00", "10.01", "33.33", "99.99", "1234.57"}
	for n := 1; n <= 20; n++ {
		split, err := EqualSplit(participants(n))
		if err != nil {
			t.Fatalf("EqualSplit(%d) failed: %v", n, err)
		}
		for _, a := range amounts {
			amount := d(a)
			shares, err := Allocate(amount, split, DefaultPlaces)
			if err != nil {
				t.Fatalf("N=%d amount=%s: unexpected error: %v", n, a, err)
			}

			sum := decimal.Zero
			for _, s := range shares {
				if s.IsNegative() {
					t.Errorf("N=%d amount=%s: negative share %s", n, a, s)
				}
				if !s.Equal(s.Truncate(DefaultPlaces)) {
					t.Errorf("N=%d amount=%s: share %s not in minor units", n, a, s)
				}
				sum = sum.Add(s)
			}
			if !sum.Equal(amount) {
				t.Errorf("N=%d amount=%s: shares sum to %s", n, a, sum)
			}
		}
	}
}

func TestEngineNewExpense(t *testing.T) {
	tests := []struct {
		name    string
		policy  EmptySplitPolicy
		amount  string
		payer   string
		split   map[string]int
		wantErr error
	}{
		{
			name:   "valid expense",
			amount: "30",
			payer:  "Bob",
			split:  map[string]int{"Alice": 34, "Bob": 33, "Charlie": 33},
		},
		{
			name:    "missing payer",
			amount:  "30",
			split:   map[string]int{"Alice": 100},
			wantErr: ErrMissingPayer,
		},
		{
			name:    "non-positive amount",
			amount:  "0",
			payer:   "Alice",
			split:   map[string]int{"Alice": 100},
			wantErr: ErrNonPositiveAmount,
		},
		{
			name:    "split must sum to 100",
			amount:  "30",
			payer:   "Alice",
			split:   map[string]int{"Alice": 30, "Bob": 30},
			wantErr: ErrDoesNotSumTo100,
		},
		{
			name:   "empty split skipped by default",
			amount: "30",
			payer:  "Alice",
			split:  map[string]int{},
		},
		{
			name:   "empty split allowed when payer absorbs",
			policy: PayerAbsorbsEmptySplit,
			amount: "30",
			payer:  "Alice",
		},
		{
			name:    "empty split rejected",
			policy:  RejectEmptySplit,
			amount:  "30",
			payer:   "Alice",
			wantErr: ErrEmptySplit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(WithEmptySplitPolicy(tt.policy))
			exp, err := engine.NewExpense("exp-1", d(tt.amount), tt.payer, tt.split)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NewExpense() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if exp.ID != "exp-1" || exp.Payer != tt.payer {
				t.Errorf("unexpected expense %+v", exp)
			}
			if len(exp.Split) != len(tt.split) {
				t.Errorf("split has %d entries, want %d", len(exp.Split), len(tt.split))
			}
		})
	}
}

func TestEngineNewExpense_CopiesSplit(t *testing.T) {
	split := map[string]int{"Alice": 50, "Bob": 50}
	exp, err := NewEngine().NewExpense("", d("10"), "Alice", split)
	if err != nil {
		t.Fatalf("NewExpense failed: %v", err)
	}
	split["Alice"] = 0
	if exp.Split["Alice"] != 50 {
		t.Errorf("expense split changed with caller's map: %v", exp.Split)
	}
}

func TestParseEmptySplitPolicy(t *testing.T) {
	for _, p := range []EmptySplitPolicy{SkipEmptySplit, PayerAbsorbsEmptySplit, RejectEmptySplit} {
		got, err := ParseEmptySplitPolicy(p.String())
		if err != nil {
			t.Fatalf("ParseEmptySplitPolicy(%q) failed: %v", p, err)
		}
		if got != p {
			t.Errorf("ParseEmptySplitPolicy(%q) = %v", p.String(), got)
		}
	}
	if _, err := ParseEmptySplitPolicy("maybe"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestEngine_ValidateAmount(t *testing.T) {
	engine := NewEngine()
	tests := []struct {
		amount  string
		wantErr error
	}{
		{"12.34", nil},
		{"0", ErrNonPositiveAmount},
		{"-5", ErrNonPositiveAmount},
		{"1.005", ErrAmountPrecision},
	}
	for _, tt := range tests {
		err := engine.ValidateAmount(decimal.RequireFromString(tt.amount))
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("ValidateAmount(%s) = %v, want %v", tt.amount, err, tt.wantErr)
		}
	}
}
