package genetic

import (
	"math"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates one evaluated generation
type Summary struct {
	Save          string        `json:"save"`
	Generation    int           `json:"generation"`
	Size          int           `json:"size"`
	BestFitness   float64       `json:"best_fitness"`
	MeanFitness   float64       `json:"mean_fitness"`
	StdDevFitness float64       `json:"stddev_fitness"`
	WorstFitness  float64       `json:"worst_fitness"`
	BetsWon       int           `json:"bets_won"`
	BetsLost      int           `json:"bets_lost"`
	BetsNotPlayed int           `json:"bets_not_played"`
	BetsSkipped   int           `json:"bets_skipped"`
	Best          *Node         `json:"best,omitempty"`
	Duration      time.Duration `json:"duration"`
	Timestamp     time.Time     `json:"timestamp"`
}

// ComputeSummary aggregates the fitness and bet counters of an evaluated population
func ComputeSummary(save string, population []*Node) Summary {
	s := Summary{
		Save:      save,
		Size:      len(population),
		Timestamp: time.Now().UTC(),
	}
	if len(population) == 0 {
		return s
	}

	fitness := make([]float64, len(population))
	s.BestFitness = math.Inf(-1)
	s.WorstFitness = math.Inf(1)
	for i, n := range population {
		fitness[i] = n.Fitness
		if n.Fitness > s.BestFitness {
			s.BestFitness = n.Fitness
			s.Best = n.Clone()
		}
		if n.Fitness < s.WorstFitness {
			s.WorstFitness = n.Fitness
		}
		s.BetsWon += n.BetsWon
		s.BetsLost += n.BetsLost
		s.BetsNotPlayed += n.BetsNotPlayed
		s.BetsSkipped += n.BetsSkipped
	}
	s.Generation = population[0].Generation

	s.MeanFitness, s.StdDevFitness = stat.MeanStdDev(fitness, nil)
	if len(population) == 1 {
		s.StdDevFitness = 0
	}
	return s
}

// MarshalZerologObject lets a Summary be logged as a structured object
func (s Summary) MarshalZerologObject(e *zerolog.Event) {
	e.Str("save", s.Save).
		Int("generation", s.Generation).
		Int("size", s.Size).
		Float64("best_fitness", s.BestFitness).
		Float64("mean_fitness", s.MeanFitness).
		Float64("stddev_fitness", s.StdDevFitness).
		Float64("worst_fitness", s.WorstFitness).
		Int("bets_won", s.BetsWon).
		Int("bets_lost", s.BetsLost).
		Int("bets_not_played", s.BetsNotPlayed).
		Int("bets_skipped", s.BetsSkipped).
		Dur("duration", s.Duration)
}
