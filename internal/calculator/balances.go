package calculator

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"
)

const (
	// DefaultPlaces is the number of minor-unit digits money is kept to.
	DefaultPlaces int32 = 2
)

// DefaultEpsilon is the largest balance still treated as settled.
var DefaultEpsilon = decimal.New(1, -2)

// Balances maps a participant to their net position.
// Positive = owed money, Negative = owes money.
type Balances map[string]decimal.Decimal

// Total returns the sum of all balances. It is zero for any set of valid expenses.
func (b Balances) Total() decimal.Decimal {
	total := decimal.Zero
	for _, v := range b {
		total = total.Add(v)
	}
	return total
}

// Participants returns the participant IDs in ascending order.
func (b Balances) Participants() []string {
	return sortedKeys(b)
}

// Transfer is one payment that moves two balances towards zero.
type Transfer struct {
	From   string // Person who owes
	To     string // Person who is owed
	Amount decimal.Decimal
}

// MemberBalance represents the balance information for one group member.
type MemberBalance struct {
	Member     string
	NetBalance decimal.Decimal // Positive = owed money, Negative = owes money
	TotalPaid  decimal.Decimal // Paid for expenses plus settlements sent
	TotalOwed  decimal.Decimal // Share of expenses plus settlements received
}

// Ledger is everything derived from a group's expenses and recorded payments.
type Ledger struct {
	Balances    Balances
	Members     []MemberBalance
	Settlements []Transfer
}

// Engine computes balances and settlements. It holds no state besides its
// configuration and is safe for concurrent use.
type Engine struct {
	epsilon    decimal.Decimal
	places     int32
	emptySplit EmptySplitPolicy
}

// Option configures an Engine.
type Option func(*Engine)

// WithEpsilon sets the threshold below which a balance counts as settled.
func WithEpsilon(eps decimal.Decimal) Option {
	return func(e *Engine) {
		e.epsilon = eps.Abs()
	}
}

// WithPlaces sets the number of decimal places amounts may carry.
func WithPlaces(places int32) Option {
	return func(e *Engine) {
		if places >= 0 {
			e.places = places
		}
	}
}

// WithEmptySplitPolicy sets how expenses with no split entries are treated.
func WithEmptySplitPolicy(p EmptySplitPolicy) Option {
	return func(e *Engine) {
		e.emptySplit = p
	}
}

// NewEngine returns an Engine with the defaults overridden by opts.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		epsilon:    DefaultEpsilon,
		places:     DefaultPlaces,
		emptySplit: SkipEmptySplit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = NewEngine()

// ComputeBalances runs Engine.Balances with the default configuration.
func ComputeBalances(expenses []Expense) Balances {
	return defaultEngine.Balances(expenses)
}

// ComputeSettlements runs Engine.Settlements with the default configuration.
func ComputeSettlements(balances Balances) []Transfer {
	return defaultEngine.Settlements(balances)
}

// Epsilon returns the settled threshold.
func (e *Engine) Epsilon() decimal.Decimal { return e.epsilon }

// Places returns the number of decimal places money is kept to.
func (e *Engine) Places() int32 { return e.places }

// EmptySplitPolicy returns the configured policy.
func (e *Engine) EmptySplitPolicy() EmptySplitPolicy { return e.emptySplit }

// ValidateAmount checks that amount is positive and fits the engine's precision.
func (e *Engine) ValidateAmount(amount decimal.Decimal) error {
	return checkAmount(amount, e.places)
}

// Allocate splits amount into monetary shares at the engine's precision.
func (e *Engine) Allocate(amount decimal.Decimal, split map[string]int) (map[string]decimal.Decimal, error) {
	return Allocate(amount, split, e.places)
}

// Balances computes each participant's net balance from scratch.
//
// Algorithm:
//   - each split participant owes amount * pct / 100
//   - the payer is credited the full amount
//
// The payer's own share is both owed and credited, so their net effect is the
// amount minus their share. Balances always sum to zero.
func (e *Engine) Balances(expenses []Expense) Balances {
	balances := make(Balances)
	for _, exp := range expenses {
		if len(exp.Split) == 0 {
			if e.emptySplit != PayerAbsorbsEmptySplit {
				continue
			}
			// Payer paid and owes the whole amount.
			if _, ok := balances[exp.Payer]; !ok {
				balances[exp.Payer] = decimal.Zero
			}
			continue
		}

		for p, pct := range exp.Split {
			balances[p] = balances[p].Sub(shareOf(exp.Amount, pct))
		}
		balances[exp.Payer] = balances[exp.Payer].Add(exp.Amount)
	}
	return balances
}

// Summaries aggregates per-member totals across expenses and recorded payments.
// A payment counts as paid by its sender and owed by its receiver, which moves
// both net balances towards zero.
func (e *Engine) Summaries(expenses []Expense, payments []Transfer) []MemberBalance {
	byMember := make(map[string]*MemberBalance)
	get := func(id string) *MemberBalance {
		if mb, ok := byMember[id]; ok {
			return mb
		}
		mb := &MemberBalance{Member: id}
		byMember[id] = mb
		return mb
	}

	for _, exp := range expenses {
		if len(exp.Split) == 0 {
			if e.emptySplit != PayerAbsorbsEmptySplit {
				continue
			}
			payer := get(exp.Payer)
			payer.TotalPaid = payer.TotalPaid.Add(exp.Amount)
			payer.TotalOwed = payer.TotalOwed.Add(exp.Amount)
			continue
		}

		payer := get(exp.Payer)
		payer.TotalPaid = payer.TotalPaid.Add(exp.Amount)
		for p, pct := range exp.Split {
			mb := get(p)
			mb.TotalOwed = mb.TotalOwed.Add(shareOf(exp.Amount, pct))
		}
	}

	for _, t := range payments {
		from := get(t.From)
		from.TotalPaid = from.TotalPaid.Add(t.Amount)
		to := get(t.To)
		to.TotalOwed = to.TotalOwed.Add(t.Amount)
	}

	members := make([]MemberBalance, 0, len(byMember))
	for _, id := range sortedKeys(byMember) {
		mb := byMember[id]
		mb.NetBalance = mb.TotalPaid.Sub(mb.TotalOwed)
		members = append(members, *mb)
	}
	return members
}

// ApplyTransfers returns a copy of balances with every transfer executed:
// the sender's balance rises and the receiver's falls by the amount.
func ApplyTransfers(balances Balances, transfers []Transfer) Balances {
	out := make(Balances, len(balances))
	for p, v := range balances {
		out[p] = v
	}
	for _, t := range transfers {
		out[t.From] = out[t.From].Add(t.Amount)
		out[t.To] = out[t.To].Sub(t.Amount)
	}
	return out
}

type position struct {
	participant string
	amount      decimal.Decimal // always positive
}

func byAmountDesc(a, b position) int {
	if c := b.amount.Cmp(a.amount); c != 0 {
		return c
	}
	return cmp.Compare(a.participant, b.participant)
}

// Settlements reduces balances to a list of transfers using greedy matching:
// the largest remaining debtor pays the largest remaining creditor the smaller
// of the two amounts until either side runs out. Ties are broken by participant
// ID so the output is reproducible.
//
// Balances within epsilon of zero take no part in the matching. When such
// balances together hold more than epsilon, the debt they leave open is paid
// into them afterwards, so every balance ends within epsilon of zero.
func (e *Engine) Settlements(balances Balances) []Transfer {
	var creditors, debtors, smallCredit, smallDebt []position
	for p, bal := range balances {
		switch {
		case bal.GreaterThan(e.epsilon):
			creditors = append(creditors, position{participant: p, amount: bal})
		case bal.LessThan(e.epsilon.Neg()):
			debtors = append(debtors, position{participant: p, amount: bal.Neg()})
		case bal.IsPositive():
			smallCredit = append(smallCredit, position{participant: p, amount: bal})
		case bal.IsNegative():
			smallDebt = append(smallDebt, position{participant: p, amount: bal.Neg()})
		}
	}
	slices.SortFunc(creditors, byAmountDesc)
	slices.SortFunc(debtors, byAmountDesc)

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := decimal.Min(debtors[i].amount, creditors[j].amount)

		if amount.GreaterThan(e.epsilon) {
			transfers = append(transfers, Transfer{
				From:   debtors[i].participant,
				To:     creditors[j].participant,
				Amount: amount,
			})
		}

		debtors[i].amount = debtors[i].amount.Sub(amount)
		creditors[j].amount = creditors[j].amount.Sub(amount)

		if debtors[i].amount.LessThanOrEqual(e.epsilon) {
			i++
		}
		if creditors[j].amount.LessThanOrEqual(e.epsilon) {
			j++
		}
	}

	// At most one side is left open here.
	if i < len(debtors) {
		pool := leftovers(creditors, smallCredit)
		for _, d := range debtors[i:] {
			transfers = append(transfers, e.drain(d, pool, func(to string, amount decimal.Decimal) Transfer {
				return Transfer{From: d.participant, To: to, Amount: amount}
			})...)
		}
	}
	if j < len(creditors) {
		pool := leftovers(debtors, smallDebt)
		for _, c := range creditors[j:] {
			transfers = append(transfers, e.drain(c, pool, func(from string, amount decimal.Decimal) Transfer {
				return Transfer{From: from, To: c.participant, Amount: amount}
			})...)
		}
	}
	return transfers
}

// leftovers collects what remains of matched positions along with the
// positions that were too small to match, largest first.
func leftovers(matched, small []position) []position {
	var pool []position
	for _, p := range matched {
		if p.amount.IsPositive() {
			pool = append(pool, p)
		}
	}
	pool = append(pool, small...)
	slices.SortFunc(pool, byAmountDesc)
	return pool
}

// drain moves open's amount into pool until no more than epsilon of it is
// left, building one transfer per pool entry it touches.
func (e *Engine) drain(open position, pool []position, transfer func(counterparty string, amount decimal.Decimal) Transfer) []Transfer {
	var out []Transfer
	for k := range pool {
		if open.amount.LessThanOrEqual(e.epsilon) {
			break
		}
		if !pool[k].amount.IsPositive() {
			continue
		}
		amount := decimal.Min(open.amount, pool[k].amount)
		out = append(out, transfer(pool[k].participant, amount))
		open.amount = open.amount.Sub(amount)
		pool[k].amount = pool[k].amount.Sub(amount)
	}
	return out
}

// Settled reports whether every balance is within epsilon of zero.
func (e *Engine) Settled(balances Balances) bool {
	for _, b := range balances {
		if b.Abs().GreaterThan(e.epsilon) {
			return false
		}
	}
	return true
}

// Ledger computes balances from expenses, applies recorded payments and
// derives the transfers still needed to settle the group.
func (e *Engine) Ledger(expenses []Expense, payments []Transfer) Ledger {
	balances := ApplyTransfers(e.Balances(expenses), payments)
	return Ledger{
		Balances:    balances,
		Members:     e.Summaries(expenses, payments),
		Settlements: e.Settlements(balances),
	}
}
