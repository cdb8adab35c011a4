// Package genetic evolves betting-strategy parameter vectors ("nodes") by
// simulating them against historical matches and recombining the fittest.
package genetic

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/ajitpratap0/betevolve/pkg/betting"
)

var (
	// ErrConfiguration is returned for unrecognized operator names
	ErrConfiguration = errors.New("configuration error")

	// ErrValidation is returned for invalid parameters or operator results
	ErrValidation = errors.New("validation error")
)

// Legal gene ranges
const (
	MinPlayLimit  = 0.01
	MaxPlayLimit  = 2.0
	MinDrawLimit  = 0.0
	MaxDrawLimit  = 5.0
	MinSampleSize = 1
	MaxSampleSize = 40
)

// Node is one candidate set of betting-strategy parameters together with the
// counters of its latest fitness evaluation
type Node struct {
	PlayLimit            float64 `json:"play_limit"`
	DrawLimit            float64 `json:"draw_limit"`
	MinimumStake         float64 `json:"minimum_stake"`
	SimulationSampleSize int     `json:"simulation_sample_size"`
	Generation           int     `json:"generation"`

	Fitness        float64 `json:"fitness"`
	CrossoverValue float64 `json:"crossover_value"`
	BetsWon        int     `json:"bets_won"`
	BetsLost       int     `json:"bets_lost"`
	BetsNotPlayed  int     `json:"bets_not_played"`
	BetsSkipped    int     `json:"bets_skipped"`
}

// NewNode creates a node with its genes clamped into their legal ranges.
// A non-positive minimum stake or a negative generation is rejected.
func NewNode(playLimit, drawLimit, minimumStake float64, sampleSize, generation int) (*Node, error) {
	if !(minimumStake > 0) {
		return nil, fmt.Errorf("%w: minimum stake must be positive, got %v", ErrValidation, minimumStake)
	}
	if generation < 0 {
		return nil, fmt.Errorf("%w: generation must not be negative, got %d", ErrValidation, generation)
	}
	return &Node{
		PlayLimit:            clampFloat(playLimit, MinPlayLimit, MaxPlayLimit),
		DrawLimit:            clampFloat(drawLimit, MinDrawLimit, MaxDrawLimit),
		MinimumStake:         minimumStake,
		SimulationSampleSize: clampInt(sampleSize, MinSampleSize, MaxSampleSize),
		Generation:           generation,
	}, nil
}

// NewRandomNode draws every gene uniformly from its legal range
func NewRandomNode(rng *rand.Rand, minimumStake float64, generation int) (*Node, error) {
	return NewNode(
		MinPlayLimit+rng.Float64()*(MaxPlayLimit-MinPlayLimit),
		MinDrawLimit+rng.Float64()*(MaxDrawLimit-MinDrawLimit),
		minimumStake,
		MinSampleSize+rng.Intn(MaxSampleSize-MinSampleSize+1),
		generation,
	)
}

// NewRandomPopulation creates size random nodes at the given generation
func NewRandomPopulation(rng *rand.Rand, size int, minimumStake float64, generation int) ([]*Node, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: population size must be positive, got %d", ErrValidation, size)
	}
	pop := make([]*Node, 0, size)
	for i := 0; i < size; i++ {
		n, err := NewRandomNode(rng, minimumStake, generation)
		if err != nil {
			return nil, err
		}
		pop = append(pop, n)
	}
	return pop, nil
}

// Clone returns an independent copy of n
func (n *Node) Clone() *Node {
	c := *n
	return &c
}

// Equal compares every parameter, the fitness and all counters
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	return *n == *o
}

// Policy returns the betting policy encoded by the node's genes
func (n *Node) Policy() betting.Policy {
	return betting.Policy{
		PlayLimit:    n.PlayLimit,
		DrawLimit:    n.DrawLimit,
		MinimumStake: n.MinimumStake,
	}
}

// ResetEvaluation clears fitness, selection weight and counters
func (n *Node) ResetEvaluation() {
	n.Fitness = 0
	n.CrossoverValue = 0
	n.BetsWon = 0
	n.BetsLost = 0
	n.BetsNotPlayed = 0
	n.BetsSkipped = 0
}

// BetsPlaced returns the number of bets actually staked
func (n *Node) BetsPlaced() int {
	return n.BetsWon + n.BetsLost
}

func (n *Node) String() string {
	return fmt.Sprintf("gen=%d play=%.4f draw=%.4f n=%d fitness=%.2f (w=%d l=%d np=%d s=%d)",
		n.Generation, n.PlayLimit, n.DrawLimit, n.SimulationSampleSize, n.Fitness,
		n.BetsWon, n.BetsLost, n.BetsNotPlayed, n.BetsSkipped)
}

// CloneAll deep-copies a population
func CloneAll(pop []*Node) []*Node {
	out := make([]*Node, len(pop))
	for i, n := range pop {
		out[i] = n.Clone()
	}
	return out
}

// MaxSimulationSampleSize returns the largest window any node in pop requests
func MaxSimulationSampleSize(pop []*Node) int {
	max := 0
	for _, n := range pop {
		if n.SimulationSampleSize > max {
			max = n.SimulationSampleSize
		}
	}
	return max
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
