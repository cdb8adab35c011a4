// Match ingestion CLI
// Downloads league seasons from the football-data archive, or imports local
// CSV files, into a CSV directory or the Postgres match store
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/betevolve/internal/config"
	"github.com/ajitpratap0/betevolve/internal/db"
	"github.com/ajitpratap0/betevolve/internal/ingest"
	"github.com/ajitpratap0/betevolve/internal/validation"
)

var (
	configPath = flag.String("config", "", "Path to config file (default: ./configs/config.yaml)")
	leagues    = flag.String("leagues", "E0", "Comma-separated league codes (E0, SP1, D1, ...)")
	seasons    = flag.String("seasons", "", "Comma-separated seasons to download (YYYY-YYYY)")
	files      = flag.String("files", "", "Comma-separated local CSV files to import instead of downloading")
	season     = flag.String("season", "", "Season assigned to imported files (default: derived from match dates)")
	output     = flag.String("out", "", "Destination: CSV directory or postgres:// URL (default: configured database)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	config.InitLogger(cfg.App.LogLevel, cfg.App.LogFormat)

	v := validation.NewValidator()
	switch {
	case *files != "":
		if *season != "" {
			v.Season("season", *season)
		}
	case *seasons != "":
		v.Leagues("leagues", splitList(*leagues))
		v.Seasons("seasons", splitList(*seasons))
	default:
		v.AddError("seasons", "one of -seasons or -files is required")
	}
	if err := v.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	destination := *output
	if destination == "" {
		destination = cfg.Database
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	target, closeTarget, err := openTarget(ctx, cfg, destination)
	if err != nil {
		log.Fatal().Err(err).Str("destination", destination).Msg("Failed to open destination")
	}
	defer closeTarget()

	var result ingest.Result
	if *files != "" {
		result, err = ingest.ImportFiles(ctx, splitList(*files), ingest.ParseOptions{Season: *season}, target)
	} else {
		pipeline := ingest.NewPipeline(ingest.NewDownloader(cfg.Download), target)
		result, err = pipeline.Run(ctx, ingest.Jobs(splitList(*leagues), splitList(*seasons)))
	}

	log.Info().
		Int("downloaded", result.Downloaded).
		Int("missing", result.Missing).
		Int("failed", result.Failed).
		Int("imported", result.Imported).
		Int("skipped", result.Skipped).
		Int("duplicates", result.Duplicates).
		Msg("Ingestion finished")

	if err != nil {
		closeTarget()
		log.Fatal().Err(err).Msg("Ingestion failed")
	}
}

// openTarget returns the Postgres store for a postgres:// destination and a
// CSV directory otherwise
func openTarget(ctx context.Context, cfg *config.Config, destination string) (ingest.Target, func(), error) {
	lower := strings.ToLower(destination)
	if !strings.HasPrefix(lower, "postgres://") && !strings.HasPrefix(lower, "postgresql://") {
		return ingest.DirTarget{Dir: destination}, func() {}, nil
	}

	database, err := db.New(ctx, destination, cfg.Postgres.PoolSize)
	if err != nil {
		return nil, nil, err
	}
	return ingest.DBTarget{Inserter: database.Matches()}, database.Close, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
