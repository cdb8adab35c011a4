package genetic

import "fmt"

// Reproducer builds the next generation from selected parent pairs
type Reproducer struct {
	selector  Selector
	crossover Crossover
}

// NewReproducer pairs a selection strategy with a crossover operator
func NewReproducer(selector Selector, crossover Crossover) *Reproducer {
	return &Reproducer{selector: selector, crossover: crossover}
}

// CreateNewGeneration returns 2*floor(len(population)/2) offspring
func (r *Reproducer) CreateNewGeneration(population []*Node) ([]*Node, error) {
	if len(population) < 2 {
		return nil, fmt.Errorf("%w: reproduction needs at least 2 nodes, got %d", ErrValidation, len(population))
	}

	pairs := len(population) / 2
	offspring := make([]*Node, 0, 2*pairs)
	for i := 0; i < pairs; i++ {
		p1, p2, err := r.selector.SelectForCrossover(population)
		if err != nil {
			return nil, fmt.Errorf("selecting parents for pair %d: %w", i, err)
		}
		if p1 == nil || p2 == nil || p1 == p2 {
			return nil, fmt.Errorf("%w: %s selection did not return two distinct parents", ErrValidation, r.selector.Name())
		}
		c1, c2, err := r.crossover.Crossover(p1, p2)
		if err != nil {
			return nil, fmt.Errorf("%s crossover for pair %d: %w", r.crossover.Name(), i, err)
		}
		offspring = append(offspring, c1, c2)
	}
	return offspring, nil
}
