package history

import (
	"fmt"
	"math/rand"
	"sync"
)

// Sampler draws match indexes without replacement
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSampler creates a sampler backed by the given random source
func NewSampler(rng *rand.Rand) *Sampler {
	return &Sampler{rng: rng}
}

// DrawWithoutReplacement returns k distinct indexes from [0, populationSize).
// Uses a partial Fisher-Yates shuffle so the cost is O(populationSize) memory and O(k) swaps.
func (s *Sampler) DrawWithoutReplacement(populationSize, k int) ([]int, error) {
	if k < 0 || populationSize < 0 {
		return nil, fmt.Errorf("%w: negative sample (k=%d, population=%d)", ErrSampling, k, populationSize)
	}
	if k > populationSize {
		return nil, fmt.Errorf("%w: sample size %d exceeds %d available matches", ErrSampling, k, populationSize)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := make([]int, populationSize)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + s.rng.Intn(populationSize-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k:k], nil
}
