package genetic

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// Crossover method names accepted by NewCrossover
const (
	CrossoverBLX          = "blx"
	CrossoverUniformAlpha = "uni-alpha"
	CrossoverUniform      = "uniform"
)

// CrossoverMethods lists the recognized crossover names
var CrossoverMethods = []string{CrossoverBLX, CrossoverUniformAlpha, CrossoverUniform}

// Crossover combines two parents into two offspring. Offspring are one
// generation older than their parent and inherit that parent's minimum stake.
type Crossover interface {
	Crossover(parent1, parent2 *Node) (*Node, *Node, error)
	Name() string
}

// NewCrossover selects a crossover operator by name
func NewCrossover(method string, alpha float64, rng *rand.Rand) (Crossover, error) {
	switch strings.ToLower(method) {
	case CrossoverBLX:
		return NewBLXAlpha(alpha, rng)
	case CrossoverUniformAlpha:
		return NewUniformAlpha(alpha, rng)
	case CrossoverUniform:
		return NewUniform(rng), nil
	default:
		return nil, fmt.Errorf("%w: unknown crossover method %q (available: %s)",
			ErrConfiguration, method, strings.Join(CrossoverMethods, ", "))
	}
}

func checkParents(parent1, parent2 *Node) error {
	if parent1 == nil || parent2 == nil {
		return fmt.Errorf("%w: crossover needs two parents", ErrValidation)
	}
	return nil
}

// crossPair builds one child per parent lineage
func crossPair(parent1, parent2 *Node, child func(lineage, parent1, parent2 *Node) (*Node, error)) (*Node, *Node, error) {
	if err := checkParents(parent1, parent2); err != nil {
		return nil, nil, err
	}
	child1, err := child(parent1, parent1, parent2)
	if err != nil {
		return nil, nil, err
	}
	child2, err := child(parent2, parent1, parent2)
	if err != nil {
		return nil, nil, err
	}
	return child1, child2, nil
}

func checkAlpha(alpha float64) error {
	if alpha < 0 || math.IsNaN(alpha) || math.IsInf(alpha, 0) {
		return fmt.Errorf("%w: alpha must be a finite non-negative number, got %v", ErrValidation, alpha)
	}
	return nil
}

// uniformInt draws a sample size uniformly from [round(lo), round(hi)], the
// interval first clamped into the legal sample-size range
func uniformInt(rng *rand.Rand, lo, hi float64) int {
	lo = clampFloat(lo, MinSampleSize, MaxSampleSize)
	hi = clampFloat(hi, MinSampleSize, MaxSampleSize)
	a, b := int(math.Round(lo)), int(math.Round(hi))
	if b < a {
		a, b = b, a
	}
	return a + rng.Intn(b-a+1)
}

func uniformFloat(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// ============================================================================
// BLX-ALPHA
// ============================================================================

// BLXAlpha draws each gene uniformly from the parents' interval widened by
// alpha times its length on both sides
type BLXAlpha struct {
	alpha float64
	rng   *rand.Rand
}

// NewBLXAlpha creates a blend crossover; alpha must be >= 0
func NewBLXAlpha(alpha float64, rng *rand.Rand) (*BLXAlpha, error) {
	if err := checkAlpha(alpha); err != nil {
		return nil, err
	}
	return &BLXAlpha{alpha: alpha, rng: rng}, nil
}

func (c *BLXAlpha) Name() string { return CrossoverBLX }

// Interval returns the blend range [lo, hi] for two parent values
func (c *BLXAlpha) Interval(v1, v2 float64) (float64, float64) {
	d := math.Abs(v1 - v2)
	return math.Min(v1, v2) - c.alpha*d, math.Max(v1, v2) + c.alpha*d
}

func (c *BLXAlpha) blend(v1, v2 float64) float64 {
	lo, hi := c.Interval(v1, v2)
	return uniformFloat(c.rng, lo, hi)
}

func (c *BLXAlpha) blendInt(v1, v2 int) int {
	lo, hi := c.Interval(float64(v1), float64(v2))
	return uniformInt(c.rng, lo, hi)
}

func (c *BLXAlpha) child(lineage, parent1, parent2 *Node) (*Node, error) {
	return NewNode(
		c.blend(parent1.PlayLimit, parent2.PlayLimit),
		c.blend(parent1.DrawLimit, parent2.DrawLimit),
		lineage.MinimumStake,
		c.blendInt(parent1.SimulationSampleSize, parent2.SimulationSampleSize),
		lineage.Generation+1,
	)
}

func (c *BLXAlpha) Crossover(parent1, parent2 *Node) (*Node, *Node, error) {
	return crossPair(parent1, parent2, c.child)
}

// ============================================================================
// UNIFORM
// ============================================================================

// Uniform copies every gene of every child from a parent chosen by a fair coin
type Uniform struct {
	rng *rand.Rand
}

// NewUniform creates a uniform crossover
func NewUniform(rng *rand.Rand) *Uniform {
	return &Uniform{rng: rng}
}

func (c *Uniform) Name() string { return CrossoverUniform }

func (c *Uniform) pick(parent1, parent2 *Node) *Node {
	if c.rng.Intn(2) == 0 {
		return parent1
	}
	return parent2
}

func (c *Uniform) child(lineage, parent1, parent2 *Node) (*Node, error) {
	return NewNode(
		c.pick(parent1, parent2).PlayLimit,
		c.pick(parent1, parent2).DrawLimit,
		lineage.MinimumStake,
		c.pick(parent1, parent2).SimulationSampleSize,
		lineage.Generation+1,
	)
}

func (c *Uniform) Crossover(parent1, parent2 *Node) (*Node, *Node, error) {
	return crossPair(parent1, parent2, c.child)
}

// ============================================================================
// UNIFORM-ALPHA
// ============================================================================

// UniformAlpha picks each gene from a random parent and perturbs it: real
// genes within ±alpha, integer genes within ±alpha of their own value
type UniformAlpha struct {
	alpha float64
	coin  *Uniform
	rng   *rand.Rand
}

// NewUniformAlpha creates a perturbed uniform crossover; alpha must be >= 0
func NewUniformAlpha(alpha float64, rng *rand.Rand) (*UniformAlpha, error) {
	if err := checkAlpha(alpha); err != nil {
		return nil, err
	}
	return &UniformAlpha{alpha: alpha, coin: NewUniform(rng), rng: rng}, nil
}

func (c *UniformAlpha) Name() string { return CrossoverUniformAlpha }

func (c *UniformAlpha) perturb(x float64) float64 {
	return uniformFloat(c.rng, x-c.alpha, x+c.alpha)
}

func (c *UniformAlpha) perturbInt(x int) int {
	v := float64(x)
	return uniformInt(c.rng, v-v*c.alpha, v+v*c.alpha)
}

func (c *UniformAlpha) child(lineage, parent1, parent2 *Node) (*Node, error) {
	return NewNode(
		c.perturb(c.coin.pick(parent1, parent2).PlayLimit),
		c.perturb(c.coin.pick(parent1, parent2).DrawLimit),
		lineage.MinimumStake,
		c.perturbInt(c.coin.pick(parent1, parent2).SimulationSampleSize),
		lineage.Generation+1,
	)
}

func (c *UniformAlpha) Crossover(parent1, parent2 *Node) (*Node, *Node, error) {
	return crossPair(parent1, parent2, c.child)
}
