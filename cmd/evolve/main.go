// Evolution runner CLI
// Evolves betting-strategy genomes for a save until interrupted
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/betevolve/internal/config"
	"github.com/ajitpratap0/betevolve/internal/runner"
	"github.com/ajitpratap0/betevolve/internal/validation"
)

var (
	configPath     = flag.String("config", "", "Path to config file (default: ./configs/config.yaml)")
	save           = flag.String("save", "", "Name of the save to create or resume")
	database       = flag.String("database", "", "Override match database (CSV file, CSV directory or postgres:// URL)")
	maxGenerations = flag.Int("generations", -1, "Stop after this many generations (0 runs until interrupted)")
	seed           = flag.Int64("seed", 0, "Random seed (0 seeds from the clock)")
	skipChecks     = flag.Bool("skip-connectivity-checks", false, "Do not verify database, Redis and NATS connectivity at startup")
	showVersion    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(config.GetVersion())
		return
	}

	*save = validation.SanitizeInput(*save)
	v := validation.NewValidator()
	v.SaveName("save", *save)
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
	if *database != "" {
		cfg.Database = *database
	}
	if *maxGenerations >= 0 {
		cfg.MaxGenerations = *maxGenerations
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}

	config.InitLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	log.Info().
		Str("version", config.GetVersion()).
		Str("save", *save).
		Msg("Starting betevolve")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	options := config.DefaultValidatorOptions()
	options.VerifyConnectivity = !*skipChecks
	if err := config.NewValidator(cfg, options).ValidateStartup(ctx); err != nil {
		log.Fatal().Err(err).Msg("Startup validation failed")
	}

	r, err := runner.New(ctx, cfg, *save)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize evolution")
	}

	err = r.Run(ctx)
	r.Close()
	if err != nil {
		log.Fatal().Err(err).Msg("Evolution failed")
	}

	log.Info().Str("save", *save).Msg("Evolution stopped")
}
