package alerts

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ajitpratap0/betevolve/pkg/genetic"
)

// WatcherConfig sets the thresholds of a Watcher
type WatcherConfig struct {
	// StagnationGenerations raises an alert once the best fitness has not
	// improved for that many generations; 0 disables the check
	StagnationGenerations int
	// MinStdDev raises an alert when the fitness spread of a generation falls
	// below it; 0 disables the check
	MinStdDev float64
}

// Watcher observes generation summaries and alerts on unhealthy runs:
// stagnating best fitness, collapsed diversity, and generations in which no
// node placed a bet
type Watcher struct {
	cfg     WatcherConfig
	manager *Manager

	mu    sync.Mutex
	saves map[string]*progress
}

type progress struct {
	best         float64
	bestAt       int
	seen         bool
	stagnating   bool
	collapsed    bool
	idleReported bool
}

// NewWatcher creates a watcher sending through manager
func NewWatcher(cfg WatcherConfig, manager *Manager) *Watcher {
	return &Watcher{cfg: cfg, manager: manager, saves: map[string]*progress{}}
}

// OnGeneration implements genetic.Observer. Each condition alerts once when it
// starts and re-arms when it clears.
func (w *Watcher) OnGeneration(ctx context.Context, s genetic.Summary) error {
	w.mu.Lock()
	p, ok := w.saves[s.Save]
	if !ok {
		p = &progress{}
		w.saves[s.Save] = p
	}
	var pending []func(context.Context) error

	if !p.seen || s.BestFitness > p.best {
		p.best, p.bestAt, p.seen = s.BestFitness, s.Generation, true
		p.stagnating = false
	} else if n := w.cfg.StagnationGenerations; n > 0 && !p.stagnating && s.Generation-p.bestAt >= n {
		p.stagnating = true
		best, since := p.best, p.bestAt
		pending = append(pending, func(ctx context.Context) error {
			return w.manager.SendWarning(ctx, s, "Evolution Stagnating",
				fmt.Sprintf("best fitness %.2f unchanged since generation %d", best, since),
				map[string]interface{}{"best_fitness": best, "best_generation": since})
		})
	}

	if w.cfg.MinStdDev > 0 && s.Size > 1 {
		collapsed := s.StdDevFitness < w.cfg.MinStdDev
		if collapsed && !p.collapsed {
			pending = append(pending, func(ctx context.Context) error {
				return w.manager.SendWarning(ctx, s, "Population Diversity Collapsed",
					fmt.Sprintf("fitness stddev %.4f below %.4f", s.StdDevFitness, w.cfg.MinStdDev),
					map[string]interface{}{"stddev_fitness": s.StdDevFitness})
			})
		}
		p.collapsed = collapsed
	}

	idle := s.BetsWon+s.BetsLost == 0
	if idle && !p.idleReported {
		pending = append(pending, func(ctx context.Context) error {
			return w.manager.SendInfo(ctx, s, "No Bets Placed",
				"no node placed a bet", map[string]interface{}{"skipped": s.BetsSkipped})
		})
	}
	p.idleReported = idle
	w.mu.Unlock()

	var errs []error
	for _, send := range pending {
		if err := send(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
