package genetic

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

// Selection method names accepted by NewSelector
const (
	SelectionTournament = "tournament"
	SelectionWeighted   = "weighted"
)

// SelectionMethods lists the recognized selection names
var SelectionMethods = []string{SelectionTournament, SelectionWeighted}

// Selector picks two distinct parents from a population
type Selector interface {
	SelectForCrossover(population []*Node) (*Node, *Node, error)
	Name() string
}

// NewSelector selects a parent-selection strategy by name
func NewSelector(method string, tournamentSize int, rng *rand.Rand) (Selector, error) {
	switch strings.ToLower(method) {
	case SelectionTournament:
		return NewTournament(tournamentSize, rng)
	case SelectionWeighted:
		return NewWeighted(rng), nil
	default:
		return nil, fmt.Errorf("%w: unknown parent selection method %q (available: %s)",
			ErrConfiguration, method, strings.Join(SelectionMethods, ", "))
	}
}

func checkPopulation(population []*Node) error {
	if len(population) < 2 {
		return fmt.Errorf("%w: selection needs at least 2 nodes, got %d", ErrValidation, len(population))
	}
	return nil
}

// without returns population minus every occurrence of n
func without(population []*Node, n *Node) []*Node {
	out := make([]*Node, 0, len(population))
	for _, p := range population {
		if p != n {
			out = append(out, p)
		}
	}
	return out
}

// ============================================================================
// TOURNAMENT
// ============================================================================

// Tournament returns the fittest of a random subset, drawn with replacement
type Tournament struct {
	size int
	rng  *rand.Rand
}

// NewTournament creates a tournament selector; size must be >= 1
func NewTournament(size int, rng *rand.Rand) (*Tournament, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: tournament size must be at least 1, got %d", ErrValidation, size)
	}
	return &Tournament{size: size, rng: rng}, nil
}

func (t *Tournament) Name() string { return SelectionTournament }

func (t *Tournament) compete(candidates []*Node) *Node {
	k := t.size
	if k > len(candidates) {
		k = len(candidates)
	}
	var best *Node
	for i := 0; i < k; i++ {
		c := candidates[t.rng.Intn(len(candidates))]
		if best == nil || c.Fitness > best.Fitness {
			best = c
		}
	}
	return best
}

func (t *Tournament) SelectForCrossover(population []*Node) (*Node, *Node, error) {
	if err := checkPopulation(population); err != nil {
		return nil, nil, err
	}
	first := t.compete(population)
	rest := without(population, first)
	if len(rest) == 0 {
		return nil, nil, fmt.Errorf("%w: population holds a single distinct node", ErrValidation)
	}
	return first, t.compete(rest), nil
}

// ============================================================================
// WEIGHTED
// ============================================================================

// Weighted is a roulette selection over cumulative fitness deltas
type Weighted struct {
	rng *rand.Rand
}

// NewWeighted creates a weighted selector
func NewWeighted(rng *rand.Rand) *Weighted {
	return &Weighted{rng: rng}
}

func (w *Weighted) Name() string { return SelectionWeighted }

// AssignCrossoverValues sorts population by ascending fitness and gives each node
// the running sum of consecutive fitness deltas; the least fit node gets 0.
// Values already assigned are left untouched.
func AssignCrossoverValues(population []*Node) {
	for _, n := range population {
		if n.CrossoverValue != 0 {
			return
		}
	}
	sorted := make([]*Node, len(population))
	copy(sorted, population)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Fitness < sorted[j].Fitness
	})
	for i, n := range sorted {
		if i == 0 {
			n.CrossoverValue = 0
			continue
		}
		prev := sorted[i-1]
		n.CrossoverValue = prev.CrossoverValue + (n.Fitness - prev.Fitness)
	}
}

func (w *Weighted) SelectForCrossover(population []*Node) (*Node, *Node, error) {
	if err := checkPopulation(population); err != nil {
		return nil, nil, err
	}
	AssignCrossoverValues(population)

	candidates := make([]*Node, len(population))
	copy(candidates, population)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CrossoverValue < candidates[j].CrossoverValue
	})
	lo := candidates[0].CrossoverValue
	hi := candidates[len(candidates)-1].CrossoverValue

	var picked [2]*Node
	for i := range picked {
		if len(candidates) == 0 {
			return nil, nil, fmt.Errorf("%w: population holds a single distinct node", ErrValidation)
		}
		draw := lo + w.rng.Float64()*(hi-lo)
		choice := candidates[0]
		for _, c := range candidates {
			if c.CrossoverValue > draw {
				choice = c
				break
			}
		}
		picked[i] = choice
		candidates = without(candidates, choice)
	}
	return picked[0], picked[1], nil
}
