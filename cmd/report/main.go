// Report CLI
// Prints the last evaluated generation of a save, ranked by fitness
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/betevolve/internal/config"
	"github.com/ajitpratap0/betevolve/internal/events"
	"github.com/ajitpratap0/betevolve/internal/report"
	"github.com/ajitpratap0/betevolve/internal/snapshot"
	"github.com/ajitpratap0/betevolve/internal/validation"
	"github.com/ajitpratap0/betevolve/pkg/genetic"
)

var (
	configPath = flag.String("config", "", "Path to config file (default: ./configs/config.yaml)")
	save       = flag.String("save", "", "Name of the save to report on")
	top        = flag.Int("top", 10, "Number of nodes to list (0 lists all)")
	htmlOutput = flag.String("html", "", "Also write an HTML report to this file")
	live       = flag.Bool("live", false, "Print the latest summaries from the Redis mirror")
	follow     = flag.Bool("follow", false, "Keep printing generation events from NATS until interrupted")
)

func main() {
	flag.Parse()

	*save = validation.SanitizeInput(*save)
	v := validation.NewValidator()
	v.SaveName("save", *save)
	v.NonNegative("top", *top)
	if err := v.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	config.InitLogger(cfg.App.LogLevel, cfg.App.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := snapshot.NewStore(cfg.SavesDir)
	gen, err := store.LoadGenerationBefore(ctx, *save)
	if err != nil {
		log.Fatal().Err(err).Str("save", *save).Msg("Failed to load generation")
	}

	r, err := report.New(*save, gen)
	if err != nil {
		log.Fatal().Err(err).Msg("Nothing to report")
	}
	if err := r.WriteText(os.Stdout, *top); err != nil {
		log.Fatal().Err(err).Msg("Failed to write report")
	}

	if *htmlOutput != "" {
		if err := r.SaveToFile(*htmlOutput, *top); err != nil {
			log.Fatal().Err(err).Msg("Failed to write HTML report")
		}
		log.Info().Str("path", *htmlOutput).Msg("HTML report written")
	}

	if *live {
		printMirror(ctx, cfg, *save)
	}
	if *follow {
		followEvents(ctx, cfg, *save)
	}
}

func printSummary(s genetic.Summary) {
	fmt.Printf("generation %d  best %.2f  mean %.2f  stddev %.2f  won %d  lost %d  skipped %d  (%s)\n",
		s.Generation, s.BestFitness, s.MeanFitness, s.StdDevFitness,
		s.BetsWon, s.BetsLost, s.BetsSkipped, s.Duration)
}

func printMirror(ctx context.Context, cfg *config.Config, save string) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer client.Close()

	mirror := snapshot.NewMirror(client, cfg.Redis.KeyPrefix, cfg.Redis.GetTTL())
	history, err := mirror.History(ctx, save, *top)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read Redis mirror")
		return
	}

	fmt.Printf("\nRecent generations (%d)\n", len(history))
	for _, s := range history {
		printSummary(s)
	}
}

func followEvents(ctx context.Context, cfg *config.Config, save string) {
	nc, err := nats.Connect(cfg.NATS.URL, nats.Name("betevolve-report"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to NATS")
	}
	defer nc.Close()

	sub, err := events.Subscribe(nc, cfg.NATS.Subject, save, func(e events.Event) {
		printSummary(e.Summary)
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to subscribe to generation events")
		return
	}
	defer func() { _ = sub.Unsubscribe() }()

	log.Info().Str("subject", events.SubjectFor(cfg.NATS.Subject, save)).Msg("Following generation events")
	<-ctx.Done()
}
