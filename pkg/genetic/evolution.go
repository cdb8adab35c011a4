package genetic

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/betevolve/pkg/history"
)

// ============================================================================
// COLLABORATORS
// ============================================================================

// MatchStore is the source of historical matches
type MatchStore interface {
	// LoadAll returns every match ordered by date
	LoadAll(ctx context.Context) ([]history.Match, error)
	// SelectByIndex returns the matches at the given positions of the LoadAll ordering
	SelectByIndex(ctx context.Context, indexes []int) ([]history.Match, error)
	// Count returns the number of stored matches
	Count(ctx context.Context) (int, error)
}

// Generation is a persisted population
type Generation struct {
	Number int     `json:"number"`
	Nodes  []*Node `json:"nodes"`
}

// Persistence stores generations and the run log of a save.
// The Load methods return nil, nil when nothing has been written yet.
type Persistence interface {
	LoadLatestGeneration(ctx context.Context, save string) (*Generation, error)
	LoadGenerationBefore(ctx context.Context, save string) (*Generation, error)
	WriteGeneration(ctx context.Context, save string, nodes []*Node, number int) error
	AppendLog(ctx context.Context, save string, lines []string) error
}

// Observer is notified after each generation has been evaluated.
// Observer errors are logged and never stop the loop.
type Observer interface {
	OnGeneration(ctx context.Context, summary Summary) error
}

// ============================================================================
// LOOP
// ============================================================================

// LoopConfig parameterizes an evolution run
type LoopConfig struct {
	Save                string
	NumberOfNodes       int
	SampleSize          int
	MinimumStake        float64
	MutationProbability float64
	Workers             int
	// MaxGenerations stops the run after that many generations; 0 runs until cancelled
	MaxGenerations int
}

// Validate checks the numeric parameters of the run
func (c LoopConfig) Validate() error {
	switch {
	case c.Save == "":
		return fmt.Errorf("%w: save name is required", ErrValidation)
	case c.NumberOfNodes < 2:
		return fmt.Errorf("%w: number of nodes must be at least 2, got %d", ErrValidation, c.NumberOfNodes)
	case c.SampleSize < 1:
		return fmt.Errorf("%w: sample size must be positive, got %d", ErrValidation, c.SampleSize)
	case !(c.MinimumStake > 0):
		return fmt.Errorf("%w: minimum stake must be positive, got %v", ErrValidation, c.MinimumStake)
	case !(c.MutationProbability >= 0 && c.MutationProbability <= 1):
		return fmt.Errorf("%w: mutation probability must be within [0, 1], got %v", ErrValidation, c.MutationProbability)
	case c.MaxGenerations < 0:
		return fmt.Errorf("%w: max generations must not be negative, got %d", ErrValidation, c.MaxGenerations)
	}
	return nil
}

// Operators are the strategies chosen once from configuration
type Operators struct {
	Selector  Selector
	Crossover Crossover
	Mutator   Mutator
}

// Loop runs the generational cycle: sample, index, evaluate, persist,
// reproduce, mutate, persist. It is driven by a single goroutine.
type Loop struct {
	cfg         LoopConfig
	store       MatchStore
	persistence Persistence
	reproducer  *Reproducer
	mutator     Mutator
	sampler     *history.Sampler
	rng         *rand.Rand
	observers   []Observer
	logger      zerolog.Logger

	matches    []history.Match
	population []*Node
	generation int
}

// NewLoop creates an evolution loop. The population is resumed or seeded on the first Step.
func NewLoop(cfg LoopConfig, store MatchStore, persistence Persistence, ops Operators, rng *rand.Rand) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil || persistence == nil {
		return nil, fmt.Errorf("%w: match store and persistence are required", ErrValidation)
	}
	if ops.Selector == nil || ops.Crossover == nil || ops.Mutator == nil {
		return nil, fmt.Errorf("%w: selection, crossover and mutation operators are required", ErrValidation)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano())) // #nosec G404 -- Non-cryptographic use: simulation randomness
	}
	return &Loop{
		cfg:         cfg,
		store:       store,
		persistence: persistence,
		reproducer:  NewReproducer(ops.Selector, ops.Crossover),
		mutator:     ops.Mutator,
		sampler:     history.NewSampler(rng),
		rng:         rng,
		logger:      log.With().Str("component", "evolution").Str("save", cfg.Save).Logger(),
	}, nil
}

// AddObserver registers an observer for generation summaries
func (l *Loop) AddObserver(o Observer) {
	l.observers = append(l.observers, o)
}

// SetLogger replaces the loop's logger
func (l *Loop) SetLogger(logger zerolog.Logger) {
	l.logger = logger
}

// Population returns the current population
func (l *Loop) Population() []*Node {
	return l.population
}

// Generation returns the number of the current population
func (l *Loop) Generation() int {
	return l.generation
}

// Run evolves generations until ctx is cancelled or MaxGenerations is reached.
// Cancellation is only observed between generations; a generation in flight
// always completes. Returns nil on cancellation.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info().
		Int("nodes", l.cfg.NumberOfNodes).
		Int("sample_size", l.cfg.SampleSize).
		Int("max_generations", l.cfg.MaxGenerations).
		Msg("Starting evolution")

	for completed := 0; l.cfg.MaxGenerations == 0 || completed < l.cfg.MaxGenerations; completed++ {
		select {
		case <-ctx.Done():
			l.logger.Info().Int("generation", l.generation).Msg("Evolution cancelled at generation boundary")
			return nil
		default:
		}

		if _, err := l.Step(context.WithoutCancel(ctx)); err != nil {
			return err
		}
	}

	l.logger.Info().Int("generation", l.generation).Msg("Evolution finished")
	return nil
}

// Step runs exactly one generation and returns its summary
func (l *Loop) Step(ctx context.Context) (Summary, error) {
	start := time.Now()
	if err := l.prepare(ctx); err != nil {
		return Summary{}, err
	}

	// Sampling
	count, err := l.store.Count(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("counting matches: %w", err)
	}
	indexes, err := l.sampler.DrawWithoutReplacement(count, l.cfg.SampleSize)
	if err != nil {
		return Summary{}, err
	}
	sample, err := l.store.SelectByIndex(ctx, indexes)
	if err != nil {
		return Summary{}, fmt.Errorf("selecting sample: %w", err)
	}

	// Evaluating
	idx, err := history.BuildIndex(l.matches, sample, MaxSimulationSampleSize(l.population))
	if err != nil {
		return Summary{}, fmt.Errorf("building window index: %w", err)
	}
	evaluator := NewEvaluator(idx, l.cfg.Workers)
	if err := evaluator.EvaluatePopulation(l.population, sample); err != nil {
		return Summary{}, err
	}

	summary := ComputeSummary(l.cfg.Save, l.population)
	summary.Generation = l.generation
	summary.Duration = time.Since(start)
	l.logger.Info().EmbedObject(summary).Msg("Generation evaluated")
	l.notify(ctx, summary)

	if err := l.persistence.WriteGeneration(ctx, l.cfg.Save, l.population, l.generation); err != nil {
		return summary, fmt.Errorf("writing generation %d: %w", l.generation, err)
	}

	// Selecting + reproducing
	offspring, err := l.reproducer.CreateNewGeneration(l.population)
	if err != nil {
		return summary, err
	}
	next, err := l.mutator.Mutate(offspring, l.cfg.MutationProbability)
	if err != nil {
		return summary, err
	}

	if err := l.persistence.WriteGeneration(ctx, l.cfg.Save, next, l.generation+1); err != nil {
		return summary, fmt.Errorf("writing generation %d: %w", l.generation+1, err)
	}
	if err := l.persistence.AppendLog(ctx, l.cfg.Save, logLines(summary)); err != nil {
		return summary, fmt.Errorf("appending run log: %w", err)
	}

	l.population = next
	l.generation++
	return summary, nil
}

// prepare loads the match history and resumes or seeds the population on first use
func (l *Loop) prepare(ctx context.Context) error {
	if l.matches == nil {
		matches, err := l.store.LoadAll(ctx)
		if err != nil {
			return fmt.Errorf("loading matches: %w", err)
		}
		if len(matches) == 0 {
			return fmt.Errorf("%w: match store is empty", history.ErrSampling)
		}
		l.matches = matches
		l.logger.Info().Int("matches", len(matches)).Msg("Match history loaded")
	}
	if l.population != nil {
		return nil
	}

	latest, err := l.persistence.LoadLatestGeneration(ctx, l.cfg.Save)
	if err != nil {
		return fmt.Errorf("loading latest generation: %w", err)
	}
	if latest != nil && len(latest.Nodes) >= 2 {
		l.population = latest.Nodes
		l.generation = latest.Number
		l.logger.Info().
			Int("generation", latest.Number).
			Int("nodes", len(latest.Nodes)).
			Msg("Resuming from saved generation")
		return nil
	}

	pop, err := NewRandomPopulation(l.rng, l.cfg.NumberOfNodes, l.cfg.MinimumStake, 0)
	if err != nil {
		return err
	}
	l.population = pop
	l.generation = 0
	l.logger.Info().Int("nodes", len(pop)).Msg("Seeded random population")
	return nil
}

func (l *Loop) notify(ctx context.Context, summary Summary) {
	for _, o := range l.observers {
		if err := o.OnGeneration(ctx, summary); err != nil {
			l.logger.Warn().Err(err).Int("generation", summary.Generation).Msg("Generation observer failed")
		}
	}
}

func logLines(s Summary) []string {
	lines := []string{
		fmt.Sprintf("%s generation=%d nodes=%d best=%.2f mean=%.2f stddev=%.2f worst=%.2f won=%d lost=%d not_played=%d skipped=%d duration=%s",
			s.Timestamp.Format(time.RFC3339), s.Generation, s.Size, s.BestFitness, s.MeanFitness,
			s.StdDevFitness, s.WorstFitness, s.BetsWon, s.BetsLost, s.BetsNotPlayed, s.BetsSkipped,
			s.Duration.Round(time.Millisecond)),
	}
	if s.Best != nil {
		lines = append(lines, "  best: "+s.Best.String())
	}
	return lines
}
