package betting

import (
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/betevolve/pkg/history"
)

// Wager results
const (
	WagerLost    = -1
	WagerPending = 0
	WagerWon     = 1
)

// Pick is one leg of a wager
type Pick struct {
	Match   history.Match   `json:"match"`
	Outcome history.Outcome `json:"outcome"`
}

// Wager is a placed bet over one or more matches
type Wager struct {
	Matches     []history.Match `json:"matches"`
	Stake       decimal.Decimal `json:"stake"`
	CombinedOdd decimal.Decimal `json:"combined_odd"`
	Result      int             `json:"result"`
}

// NewWager builds an unsettled wager. Each match carries its predicted outcome
// in SimulatedResult and the combined odd is the product of the picked odds.
func NewWager(stake float64, picks ...Pick) *Wager {
	w := &Wager{
		Matches:     make([]history.Match, 0, len(picks)),
		Stake:       decimal.NewFromFloat(stake).Round(2),
		CombinedOdd: decimal.NewFromInt(1),
		Result:      WagerPending,
	}
	for _, p := range picks {
		m := p.Match
		m.SimulatedResult = p.Outcome
		w.Matches = append(w.Matches, m)
		w.CombinedOdd = w.CombinedOdd.Mul(decimal.NewFromFloat(m.Odd(p.Outcome)))
	}
	return w
}

// Settle compares every leg with its actual result. One lost leg loses the wager.
func (w *Wager) Settle() int {
	if len(w.Matches) == 0 {
		w.Result = WagerPending
		return w.Result
	}
	for _, m := range w.Matches {
		if m.SimulatedResult != m.Result() {
			w.Result = WagerLost
			return w.Result
		}
	}
	w.Result = WagerWon
	return w.Result
}

// Profit returns the settled profit rounded to cents; zero while pending
func (w *Wager) Profit() decimal.Decimal {
	switch w.Result {
	case WagerWon:
		return w.Stake.Mul(w.CombinedOdd).Sub(w.Stake).Round(2)
	case WagerLost:
		return w.Stake.Neg()
	default:
		return decimal.Zero
	}
}
