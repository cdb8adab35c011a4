package runner

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/betevolve/internal/config"
	"github.com/ajitpratap0/betevolve/internal/events"
	"github.com/ajitpratap0/betevolve/internal/ingest"
	"github.com/ajitpratap0/betevolve/internal/snapshot"
	"github.com/ajitpratap0/betevolve/pkg/genetic"
	"github.com/ajitpratap0/betevolve/pkg/history"
)

// writeLeague writes a synthetic round of fixtures as a football-data CSV
func writeLeague(t *testing.T, n int) string {
	t.Helper()
	rng := rand.New(rand.NewSource(7)) // #nosec G404 -- test fixture
	start := time.Date(2019, time.August, 1, 0, 0, 0, 0, time.UTC)

	matches := make([]history.Match, 0, n)
	for i := 0; i < n; i++ {
		home := rng.Intn(8)
		away := (home + 1 + rng.Intn(7)) % 8
		date := start.AddDate(0, 0, i)
		matches = append(matches, history.Match{
			HomeTeam:  fmt.Sprintf("Team %d", home),
			AwayTeam:  fmt.Sprintf("Team %d", away),
			League:    "E0",
			Season:    history.SeasonOf(date),
			Date:      date,
			HomeScore: rng.Intn(5),
			AwayScore: rng.Intn(4),
			HomeOdd:   1.5 + rng.Float64()*3,
			DrawOdd:   2.8 + rng.Float64()*1.5,
			AwayOdd:   1.5 + rng.Float64()*4,
		})
	}

	path := filepath.Join(t.TempDir(), "E0.csv")
	f, err := os.Create(path) // #nosec G304 -- test temp dir
	require.NoError(t, err)
	require.NoError(t, ingest.WriteCSV(f, matches))
	require.NoError(t, f.Close())
	return path
}

func testConfig(t *testing.T, database string) *config.Config {
	t.Helper()
	return &config.Config{
		App:                   config.AppConfig{Name: "betevolve", Version: config.Version, LogLevel: "info", LogFormat: "json"},
		Alpha:                 0.5,
		MinimumStake:          5,
		NumberOfNodes:         6,
		SampleSize:            40,
		Database:              database,
		CrossoverMethod:       genetic.CrossoverBLX,
		ParentSelectionMethod: genetic.SelectionTournament,
		TournamentSize:        3,
		MutationMethod:        genetic.MutationUniform,
		MutationProbability:   0.2,
		Workers:               2,
		Seed:                  42,
		MaxGenerations:        2,
		SavesDir:              t.TempDir(),
		Postgres:              config.PostgresConfig{PoolSize: 2},
		Redis:                 config.RedisConfig{Host: "localhost", Port: config.RedisPort, KeyPrefix: "test:"},
		NATS:                  config.NATSConfig{URL: "nats://localhost:4222", Subject: events.DefaultSubject},
		Download:              config.DownloadConfig{RequestsPerSecond: 1, Timeout: 30},
		Monitoring:            config.MonitoringConfig{PrometheusPort: config.MetricsPort},
		Alerts:                config.AlertsConfig{Enabled: true, StagnationGenerations: 5, MinStdDev: 0.01},
	}
}

func startNATS(t *testing.T) *server.Server {
	t.Helper()
	ns, err := server.NewServer(&server.Options{Host: "127.0.0.1", Port: -1})
	require.NoError(t, err)

	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}
	t.Cleanup(ns.Shutdown)
	return ns
}

func TestRunner_RunPersistsAndNotifies(t *testing.T) {
	cfg := testConfig(t, writeLeague(t, 120))

	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	cfg.Redis.Enabled = true
	cfg.Redis.Host = mr.Host()
	cfg.Redis.Port = port

	ns := startNATS(t)
	cfg.NATS.Enabled = true
	cfg.NATS.URL = ns.ClientURL()

	nc, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	var (
		mu       sync.Mutex
		received []events.Event
	)
	sub, err := events.Subscribe(nc, cfg.NATS.Subject, "premier", func(e events.Event) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, e)
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()
	require.NoError(t, nc.Flush())

	ctx := context.Background()
	r, err := New(ctx, cfg, "premier")
	require.NoError(t, err)
	defer r.Close()
	assert.False(t, r.Resumed())

	require.NoError(t, r.Run(ctx))

	generations, err := r.Snapshots().Generations("premier")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, generations)

	evaluated, err := r.Snapshots().LoadGenerationBefore(ctx, "premier")
	require.NoError(t, err)
	require.NotNil(t, evaluated)
	assert.Equal(t, 1, evaluated.Number)
	assert.Len(t, evaluated.Nodes, cfg.NumberOfNodes)

	stored, err := r.Snapshots().LoadConfiguration("premier")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, cfg.SampleSize, stored.SampleSize)

	logData, err := os.ReadFile(filepath.Join(r.Snapshots().Dir("premier"), snapshot.LogFileName)) // #nosec G304 -- test temp dir
	require.NoError(t, err)
	assert.Contains(t, string(logData), "generation=1")

	latest, ok := r.Mirror().Latest(ctx, "premier")
	require.True(t, ok)
	assert.Equal(t, 1, latest.Generation)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 2
	}, 5*time.Second, 10*time.Millisecond)
	mu.Lock()
	assert.Equal(t, 0, received[0].Summary.Generation)
	assert.Equal(t, r.Snapshots().RunID(), received[1].RunID)
	mu.Unlock()
}

func TestRunner_ResumeKeepsStoredEvolutionOptions(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, writeLeague(t, 120))

	first, err := New(ctx, cfg, "resume")
	require.NoError(t, err)
	require.NoError(t, first.Run(ctx))
	first.Close()

	changed := *cfg
	changed.NumberOfNodes = 10
	changed.Alpha = 0.9
	changed.CrossoverMethod = genetic.CrossoverUniform
	changed.Workers = 1
	changed.MaxGenerations = 1

	second, err := New(ctx, &changed, "resume")
	require.NoError(t, err)
	defer second.Close()

	assert.True(t, second.Resumed())
	assert.Equal(t, 6, second.Config().NumberOfNodes)
	assert.Equal(t, 0.5, second.Config().Alpha)
	assert.Equal(t, genetic.CrossoverBLX, second.Config().CrossoverMethod)
	assert.Equal(t, 1, second.Config().Workers, "ambient settings come from the current configuration")

	require.NoError(t, second.Run(ctx))
	generations, err := second.Snapshots().Generations("resume")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, generations)
}

func TestRunner_CancelledRunStopsCleanly(t *testing.T) {
	cfg := testConfig(t, writeLeague(t, 60))
	cfg.MaxGenerations = 0

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, err := New(context.Background(), cfg, "cancelled")
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Run(ctx))
	generations, err := r.Snapshots().Generations("cancelled")
	require.NoError(t, err)
	assert.Empty(t, generations)
}

func TestNew_Errors(t *testing.T) {
	league := writeLeague(t, 60)

	tests := []struct {
		name   string
		save   string
		modify func(*config.Config)
		is     error
	}{
		{name: "missing save", save: "", modify: func(*config.Config) {}, is: genetic.ErrConfiguration},
		{name: "unknown crossover", save: "s", modify: func(c *config.Config) { c.CrossoverMethod = "single-point" }},
		{name: "unreachable nats", save: "s", modify: func(c *config.Config) {
			c.NATS.Enabled = true
			c.NATS.URL = "nats://127.0.0.1:1"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, league)
			tt.modify(cfg)

			r, err := New(context.Background(), cfg, tt.save)
			require.Error(t, err)
			assert.Nil(t, r)
			if tt.is != nil {
				assert.True(t, errors.Is(err, tt.is))
			}
		})
	}
}

func TestRunner_SampleLargerThanStore(t *testing.T) {
	cfg := testConfig(t, writeLeague(t, 20))
	cfg.SampleSize = 50

	r, err := New(context.Background(), cfg, "small")
	require.NoError(t, err)
	defer r.Close()

	err = r.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, history.ErrSampling)
}
