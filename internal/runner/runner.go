// Package runner wires a configuration into an evolution loop: the match
// store, the snapshot directory of the save, the genetic operators and the
// generation observers (metrics, Redis mirror, NATS events).
package runner

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/betevolve/internal/alerts"
	"github.com/ajitpratap0/betevolve/internal/config"
	"github.com/ajitpratap0/betevolve/internal/db"
	"github.com/ajitpratap0/betevolve/internal/events"
	"github.com/ajitpratap0/betevolve/internal/ingest"
	"github.com/ajitpratap0/betevolve/internal/metrics"
	"github.com/ajitpratap0/betevolve/internal/snapshot"
	"github.com/ajitpratap0/betevolve/pkg/genetic"
)

// Runner owns the collaborators of one evolution save
type Runner struct {
	cfg       *config.Config
	save      string
	resumed   bool
	store     genetic.MatchStore
	snapshots *snapshot.Store
	loop      *genetic.Loop
	log       zerolog.Logger

	database  *db.DB
	redis     *redis.Client
	mirror    *snapshot.Mirror
	publisher *events.Publisher
	server    *metrics.Server
	updater   *metrics.Updater
}

// New builds the loop of a save. When the save already has a stored
// configuration, its evolution options replace those of cfg so that a resumed
// run keeps evolving with the parameters it was started with.
func New(ctx context.Context, cfg *config.Config, save string) (*Runner, error) {
	if save == "" {
		return nil, fmt.Errorf("%w: save name is required", genetic.ErrConfiguration)
	}

	snapshots := snapshot.NewStore(cfg.SavesDir)
	stored, err := snapshots.LoadConfiguration(save)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration of save %s: %w", save, err)
	}

	r := &Runner{
		cfg:       cfg,
		save:      save,
		snapshots: snapshots,
		log:       config.NewRunLogger(save, snapshots.RunID()),
	}
	if stored != nil {
		r.cfg = mergeStored(cfg, stored)
		r.resumed = true
	}
	if err := r.cfg.Validate(); err != nil {
		return nil, err
	}

	if err := r.openStore(ctx); err != nil {
		return nil, err
	}
	if err := r.buildLoop(); err != nil {
		r.Close()
		return nil, err
	}
	if err := r.attachObservers(ctx); err != nil {
		r.Close()
		return nil, err
	}

	if !r.resumed {
		if err := snapshots.WriteConfiguration(save, r.cfg); err != nil {
			r.Close()
			return nil, fmt.Errorf("failed to store configuration of save %s: %w", save, err)
		}
	}

	return r, nil
}

// mergeStored takes the recognized evolution options from the stored
// configuration and every ambient setting from the current one
func mergeStored(current, stored *config.Config) *config.Config {
	merged := *current
	merged.Alpha = stored.Alpha
	merged.MinimumStake = stored.MinimumStake
	merged.NumberOfNodes = stored.NumberOfNodes
	merged.SampleSize = stored.SampleSize
	merged.Database = stored.Database
	merged.CrossoverMethod = stored.CrossoverMethod
	merged.ParentSelectionMethod = stored.ParentSelectionMethod
	merged.TournamentSize = stored.TournamentSize
	merged.MutationMethod = stored.MutationMethod
	merged.MutationProbability = stored.MutationProbability
	return &merged
}

func (r *Runner) openStore(ctx context.Context) error {
	if !r.cfg.UsesPostgres() {
		r.store = ingest.NewFileStore(r.cfg.Database)
		r.log.Info().Str("path", r.cfg.Database).Msg("Using CSV match store")
		return nil
	}

	database, err := db.New(ctx, r.cfg.Database, r.cfg.Postgres.PoolSize)
	if err != nil {
		return err
	}
	r.database = database
	r.store = database.Matches()
	r.log.Info().Msg("Using Postgres match store")
	return nil
}

func (r *Runner) buildLoop() error {
	seed := r.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed)) // #nosec G404 -- Non-cryptographic use: simulation randomness

	selector, err := genetic.NewSelector(r.cfg.ParentSelectionMethod, r.cfg.TournamentSize, rng)
	if err != nil {
		return err
	}
	crossover, err := genetic.NewCrossover(r.cfg.CrossoverMethod, r.cfg.Alpha, rng)
	if err != nil {
		return err
	}
	mutator, err := genetic.NewMutator(r.cfg.MutationMethod, rng)
	if err != nil {
		return err
	}

	loop, err := genetic.NewLoop(genetic.LoopConfig{
		Save:                r.save,
		NumberOfNodes:       r.cfg.NumberOfNodes,
		SampleSize:          r.cfg.SampleSize,
		MinimumStake:        r.cfg.MinimumStake,
		MutationProbability: r.cfg.MutationProbability,
		Workers:             r.cfg.Workers,
		MaxGenerations:      r.cfg.MaxGenerations,
	}, r.store, r.snapshots, genetic.Operators{
		Selector:  selector,
		Crossover: crossover,
		Mutator:   mutator,
	}, rng)
	if err != nil {
		return err
	}
	loop.SetLogger(r.log)
	r.loop = loop

	r.log.Info().
		Int64("seed", seed).
		Str("crossover", crossover.Name()).
		Str("selection", selector.Name()).
		Str("mutation", mutator.Name()).
		Bool("resumed", r.resumed).
		Msg("Evolution loop configured")
	return nil
}

func (r *Runner) attachObservers(ctx context.Context) error {
	r.loop.AddObserver(metrics.NewObserver())

	if r.cfg.Alerts.Enabled {
		watcher := alerts.NewWatcher(alerts.WatcherConfig{
			StagnationGenerations: r.cfg.Alerts.StagnationGenerations,
			MinStdDev:             r.cfg.Alerts.MinStdDev,
		}, alerts.NewManager(alerts.NewLogAlerter(config.NewLogger("alerts"))))
		r.loop.AddObserver(metrics.Instrument("alerts", watcher))
	}

	if r.cfg.Redis.Enabled {
		r.redis = redis.NewClient(&redis.Options{
			Addr:     r.cfg.Redis.GetRedisAddr(),
			Password: r.cfg.Redis.Password,
			DB:       r.cfg.Redis.DB,
		})
		r.redis.AddHook(metrics.RedisHook{})
		if err := r.redis.Ping(ctx).Err(); err != nil {
			r.log.Warn().Err(err).Str("addr", r.cfg.Redis.GetRedisAddr()).Msg("Redis unavailable, mirror writes will fail")
		}
		r.mirror = snapshot.NewMirror(r.redis, r.cfg.Redis.KeyPrefix, r.cfg.Redis.GetTTL())
		r.loop.AddObserver(metrics.Instrument("redis", r.mirror))
	}

	if r.cfg.NATS.Enabled {
		publisher, err := events.NewPublisher(events.PublisherConfig{
			URL:     r.cfg.NATS.URL,
			Subject: r.cfg.NATS.Subject,
			RunID:   r.snapshots.RunID(),
		})
		if err != nil {
			return err
		}
		r.publisher = publisher
		r.loop.AddObserver(metrics.Instrument("nats", publisher))
	}

	return nil
}

// Config returns the effective configuration of the run
func (r *Runner) Config() *config.Config {
	return r.cfg
}

// Resumed reports whether the save existed before this run
func (r *Runner) Resumed() bool {
	return r.resumed
}

// Snapshots returns the snapshot store of the run
func (r *Runner) Snapshots() *snapshot.Store {
	return r.snapshots
}

// Mirror returns the Redis mirror, nil when Redis is disabled
func (r *Runner) Mirror() *snapshot.Mirror {
	return r.mirror
}

// Run starts monitoring when enabled and evolves until ctx is cancelled or
// the configured number of generations is reached
func (r *Runner) Run(ctx context.Context) error {
	if r.cfg.Monitoring.EnableMetrics {
		if err := r.startMonitoring(ctx); err != nil {
			return err
		}
		defer r.stopMonitoring()
	}

	if err := r.loop.Run(ctx); err != nil {
		return fmt.Errorf("evolution of save %s failed: %w", r.save, err)
	}
	return nil
}

func (r *Runner) startMonitoring(ctx context.Context) error {
	r.server = metrics.NewServer(r.cfg.Monitoring.PrometheusPort, r.log)
	if err := r.server.Start(); err != nil {
		return err
	}

	var pool *pgxpool.Pool
	if r.database != nil {
		pool = r.database.Pool()
	}
	r.updater = metrics.NewUpdater(pool, r.store, 30*time.Second)
	go r.updater.Start(ctx)
	return nil
}

func (r *Runner) stopMonitoring() {
	if r.updater != nil {
		r.updater.Stop()
	}
	if r.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.server.Shutdown(shutdownCtx); err != nil {
			r.log.Error().Err(err).Msg("Failed to shutdown metrics server")
		}
	}
}

// Close releases every connection opened by New
func (r *Runner) Close() {
	var errs []error
	if r.publisher != nil {
		errs = append(errs, r.publisher.Close())
	}
	if r.redis != nil {
		errs = append(errs, r.redis.Close())
	}
	if r.database != nil {
		r.database.Close()
	}
	if err := errors.Join(errs...); err != nil {
		log.Warn().Err(err).Str("save", r.save).Msg("Error closing runner")
	}
}
