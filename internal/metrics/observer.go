package metrics

import (
	"context"

	"github.com/ajitpratap0/betevolve/pkg/genetic"
)

// Observer exports generation summaries as Prometheus metrics
type Observer struct{}

// NewObserver creates a metrics observer
func NewObserver() *Observer {
	return &Observer{}
}

// OnGeneration records the summary of an evaluated generation
func (o *Observer) OnGeneration(_ context.Context, summary genetic.Summary) error {
	RecordGeneration(summary)
	return nil
}

// RecordGeneration updates the evolution metrics of a save
func RecordGeneration(s genetic.Summary) {
	GenerationsTotal.WithLabelValues(s.Save).Inc()
	CurrentGeneration.WithLabelValues(s.Save).Set(float64(s.Generation))
	GenerationDuration.WithLabelValues(s.Save).Observe(s.Duration.Seconds())
	PopulationSize.WithLabelValues(s.Save).Set(float64(s.Size))

	BestFitness.WithLabelValues(s.Save).Set(s.BestFitness)
	MeanFitness.WithLabelValues(s.Save).Set(s.MeanFitness)
	StdDevFitness.WithLabelValues(s.Save).Set(s.StdDevFitness)
	WorstFitness.WithLabelValues(s.Save).Set(s.WorstFitness)

	Bets.WithLabelValues(s.Save, OutcomeWon).Add(float64(s.BetsWon))
	Bets.WithLabelValues(s.Save, OutcomeLost).Add(float64(s.BetsLost))
	Bets.WithLabelValues(s.Save, OutcomeNotPlayed).Add(float64(s.BetsNotPlayed))
	Bets.WithLabelValues(s.Save, OutcomeSkipped).Add(float64(s.BetsSkipped))
}

type instrumented struct {
	name string
	next genetic.Observer
}

// Instrument counts the errors of an observer under name
func Instrument(name string, next genetic.Observer) genetic.Observer {
	return &instrumented{name: name, next: next}
}

func (i *instrumented) OnGeneration(ctx context.Context, summary genetic.Summary) error {
	err := i.next.OnGeneration(ctx, summary)
	if err != nil {
		RecordObserverError(i.name)
	}
	return err
}
