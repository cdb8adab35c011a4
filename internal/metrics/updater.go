package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// MatchCounter reports the size of a match store
type MatchCounter interface {
	Count(ctx context.Context) (int, error)
}

// Updater periodically samples gauges that nothing else updates:
// database pool usage and the size of the match store
type Updater struct {
	pool     *pgxpool.Pool
	store    MatchCounter
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewUpdater creates a new metrics updater. pool and store may be nil.
func NewUpdater(pool *pgxpool.Pool, store MatchCounter, interval time.Duration) *Updater {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Updater{
		pool:     pool,
		store:    store,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the update loop until Stop is called or ctx is done
func (u *Updater) Start(ctx context.Context) {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	u.update(ctx)

	for {
		select {
		case <-ticker.C:
			u.update(ctx)
		case <-u.stopCh:
			log.Info().Msg("Metrics updater stopped")
			return
		case <-ctx.Done():
			log.Info().Msg("Metrics updater context cancelled")
			return
		}
	}
}

// Stop stops the metrics updater
func (u *Updater) Stop() {
	u.stopOnce.Do(func() { close(u.stopCh) })
}

func (u *Updater) update(ctx context.Context) {
	if u.pool != nil {
		stat := u.pool.Stat()
		UpdateDatabaseConnections(stat.AcquiredConns(), stat.IdleConns())
	}

	if u.store != nil {
		countCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		n, err := u.store.Count(countCtx)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to count stored matches")
			return
		}
		MatchesStored.Set(float64(n))
	}
}
