package genetic

import (
	"fmt"
	"math/rand"
	"strings"
)

// Mutation method names accepted by NewMutator
const (
	MutationUniform = "uniform"
)

// MutationMethods lists the recognized mutation names
var MutationMethods = []string{MutationUniform}

// Mutator optionally perturbs a population after crossover
type Mutator interface {
	Mutate(population []*Node, probability float64) ([]*Node, error)
	Name() string
}

// NewMutator selects a mutation strategy by name
func NewMutator(method string, rng *rand.Rand) (Mutator, error) {
	switch strings.ToLower(method) {
	case MutationUniform:
		return NewUniformMutation(rng), nil
	default:
		return nil, fmt.Errorf("%w: unknown mutation method %q (available: %s)",
			ErrConfiguration, method, strings.Join(MutationMethods, ", "))
	}
}

// UniformMutation replaces a node with a fresh random one with the given probability
type UniformMutation struct {
	rng *rand.Rand
}

// NewUniformMutation creates a uniform mutation
func NewUniformMutation(rng *rand.Rand) *UniformMutation {
	return &UniformMutation{rng: rng}
}

func (m *UniformMutation) Name() string { return MutationUniform }

// Mutate returns a new slice in which each node has been independently replaced,
// with the given probability, by a random node of the same stake and generation
func (m *UniformMutation) Mutate(population []*Node, probability float64) ([]*Node, error) {
	if !(probability >= 0 && probability <= 1) {
		return nil, fmt.Errorf("%w: mutation probability must be within [0, 1], got %v", ErrValidation, probability)
	}
	out := make([]*Node, len(population))
	for i, n := range population {
		if m.rng.Float64() >= probability {
			out[i] = n
			continue
		}
		fresh, err := NewRandomNode(m.rng, n.MinimumStake, n.Generation)
		if err != nil {
			return nil, err
		}
		out[i] = fresh
	}
	return out, nil
}
