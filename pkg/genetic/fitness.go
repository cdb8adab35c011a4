package genetic

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/betevolve/pkg/betting"
	"github.com/ajitpratap0/betevolve/pkg/history"
)

// chunkSize is the number of matches in one unit of parallel work; chunk
// boundaries do not depend on the worker count
const chunkSize = 16

// tally is the private result of evaluating one chunk of a sample
type tally struct {
	profit    float64
	won       int
	lost      int
	notPlayed int
	skipped   int
}

func (t *tally) add(o tally) {
	t.profit += o.profit
	t.won += o.won
	t.lost += o.lost
	t.notPlayed += o.notPlayed
	t.skipped += o.skipped
}

// Evaluator simulates nodes against a match sample. Each node's sample is
// split into chunks evaluated in parallel; every worker writes only its own
// tally and the tallies are merged into the node after the join.
type Evaluator struct {
	model   *betting.Model
	workers int
}

// NewEvaluator creates an evaluator predicting from h. workers <= 0 uses GOMAXPROCS.
func NewEvaluator(h betting.History, workers int) *Evaluator {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Evaluator{model: betting.NewModel(h), workers: workers}
}

// Workers returns the fan-out width
func (e *Evaluator) Workers() int {
	return e.workers
}

// EvaluateFitness stores in node the summed profit of its policy over sample.
// Matches without enough history are skipped and counted; they never fail the call.
func (e *Evaluator) EvaluateFitness(node *Node, sample []history.Match) error {
	if node == nil {
		return fmt.Errorf("%w: nil node", ErrValidation)
	}
	node.ResetEvaluation()
	if len(sample) == 0 {
		return nil
	}

	parts := chunks(len(sample))
	partials := make([]tally, len(parts))
	policy := node.Policy()

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, c := range parts {
		g.Go(func() error {
			t, err := e.evaluateChunk(policy, node.SimulationSampleSize, sample[c[0]:c[1]])
			if err != nil {
				return err
			}
			partials[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// merged in chunk order so the float sum is reproducible
	var total tally
	for _, p := range partials {
		total.add(p)
	}

	node.Fitness = total.profit
	node.BetsWon = total.won
	node.BetsLost = total.lost
	node.BetsNotPlayed = total.notPlayed
	node.BetsSkipped = total.skipped
	return nil
}

func (e *Evaluator) evaluateChunk(policy betting.Policy, sampleSize int, matches []history.Match) (tally, error) {
	var t tally
	for _, m := range matches {
		prediction, err := e.model.Predict(m, sampleSize)
		if err != nil {
			if errors.Is(err, history.ErrInsufficientData) {
				t.skipped++
				continue
			}
			return t, fmt.Errorf("predicting %s: %w", m, err)
		}
		profit := policy.PlayBet(m, prediction)
		switch {
		case profit > 0:
			t.won++
		case profit < 0:
			t.lost++
		default:
			t.notPlayed++
		}
		t.profit += profit
	}
	return t, nil
}

// chunks splits [0, n) into contiguous [start, end) ranges of chunkSize
func chunks(n int) [][2]int {
	out := make([][2]int, 0, (n+chunkSize-1)/chunkSize)
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

// EvaluatePopulation evaluates every node of population against sample, one node at a time
func (e *Evaluator) EvaluatePopulation(population []*Node, sample []history.Match) error {
	for i, n := range population {
		if err := e.EvaluateFitness(n, sample); err != nil {
			return fmt.Errorf("evaluating node %d: %w", i, err)
		}
		log.Debug().
			Int("node", i).
			Float64("fitness", n.Fitness).
			Int("won", n.BetsWon).
			Int("lost", n.BetsLost).
			Int("skipped", n.BetsSkipped).
			Msg("Node evaluated")
	}
	return nil
}
