package betting

import (
	"math"

	"github.com/ajitpratap0/betevolve/pkg/history"
)

// Policy decides whether to back a predicted outcome and how much to stake
type Policy struct {
	PlayLimit    float64 `json:"play_limit"`
	DrawLimit    float64 `json:"draw_limit"`
	MinimumStake float64 `json:"minimum_stake"`
}

// Decision is the full outcome of applying a Policy to one match
type Decision struct {
	Outcome history.Outcome `json:"outcome"`
	Odd     float64         `json:"odd"`
	Weight  float64         `json:"weight"`
	Risk    float64         `json:"risk"`
	Played  bool            `json:"played"`
	Stake   float64         `json:"stake"`
	Won     bool            `json:"won"`
	Profit  float64         `json:"profit"`
}

// Classify maps a predicted goal differential to a 1X2 outcome.
// Predictions inside the draw band are draws.
func Classify(prediction, drawLimit float64) history.Outcome {
	switch {
	case math.Abs(prediction) < drawLimit:
		return history.OutcomeDraw
	case prediction > 0:
		return history.OutcomeHome
	default:
		return history.OutcomeAway
	}
}

// ExpectedResultWeight is |p|·e^-|p|. It peaks at |p| = 1 and decays for
// extreme predictions.
func ExpectedResultWeight(prediction float64) float64 {
	p := math.Abs(prediction)
	return math.Exp(-p) * p
}

// Decide classifies the prediction, computes the risk coefficient and, when the
// bet is played, its stake and settled profit against the actual scoreline
func (p Policy) Decide(m history.Match, prediction float64) Decision {
	d := Decision{Outcome: Classify(prediction, p.DrawLimit)}
	d.Odd = m.Odd(d.Outcome)
	d.Weight = ExpectedResultWeight(prediction)
	d.Risk = d.Weight * d.Odd

	if d.Risk < p.PlayLimit {
		return d
	}

	d.Played = true
	d.Stake = p.MinimumStake * (d.Risk / p.PlayLimit)
	d.Won = d.Outcome == m.Result()
	if d.Won {
		d.Profit = d.Stake*d.Odd - d.Stake
	} else {
		d.Profit = -d.Stake
	}
	return d
}

// PlayBet returns the realized profit of betting on m; zero when the policy declines
func (p Policy) PlayBet(m history.Match, prediction float64) float64 {
	return p.Decide(m, prediction).Profit
}

// Wager converts a played decision into a single-match wager record
func (d Decision) Wager(m history.Match) (*Wager, bool) {
	if !d.Played {
		return nil, false
	}
	w := NewWager(d.Stake, Pick{Match: m, Outcome: d.Outcome})
	w.Settle()
	return w, true
}
