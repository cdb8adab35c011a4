package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/ajitpratap0/betevolve/internal/metrics"
	"github.com/ajitpratap0/betevolve/pkg/history"
)

// Target receives the matches of one league and season
type Target interface {
	Store(ctx context.Context, league, season string, matches []history.Match) (int, error)
}

// MatchInserter bulk inserts matches, skipping ones already stored
type MatchInserter interface {
	InsertMatches(ctx context.Context, matches []history.Match) (int64, error)
}

// DirTarget writes one normalized CSV file per league and season
type DirTarget struct {
	Dir string
}

// Store implements Target
func (t DirTarget) Store(_ context.Context, league, season string, matches []history.Match) (int, error) {
	path, err := SaveCSV(t.Dir, league, season, matches)
	if err != nil {
		return 0, err
	}
	log.Debug().Str("path", path).Int("matches", len(matches)).Msg("Wrote match file")
	return len(matches), nil
}

// DBTarget inserts matches into the Postgres match store
type DBTarget struct {
	Inserter MatchInserter
}

// Store implements Target
func (t DBTarget) Store(ctx context.Context, _, _ string, matches []history.Match) (int, error) {
	n, err := t.Inserter.InsertMatches(ctx, matches)
	return int(n), err
}

// Job names one league season of the archive
type Job struct {
	League string
	Season string
}

// Result summarizes an ingestion run
type Result struct {
	Downloaded int
	Missing    int
	Failed     int
	Imported   int
	Skipped    int
	Duplicates int
}

func (r *Result) add(report Report, imported int) {
	r.Imported += imported
	r.Skipped += report.Skipped
	r.Duplicates += report.Duplicates + (report.Imported - imported)
}

// Pipeline downloads league seasons and hands them to a target
type Pipeline struct {
	downloader *Downloader
	target     Target
}

// NewPipeline creates an ingestion pipeline
func NewPipeline(downloader *Downloader, target Target) *Pipeline {
	return &Pipeline{downloader: downloader, target: target}
}

// Jobs expands every league and season combination
func Jobs(leagues, seasons []string) []Job {
	jobs := make([]Job, 0, len(leagues)*len(seasons))
	for _, league := range leagues {
		for _, season := range seasons {
			jobs = append(jobs, Job{League: league, Season: season})
		}
	}
	return jobs
}

// Run processes jobs in order. Seasons missing from the archive are skipped,
// other download failures are counted and the run continues until the circuit
// breaker opens or ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, jobs []Job) (Result, error) {
	var result Result

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		matches, report, err := p.downloader.Download(ctx, job.League, job.Season)
		metrics.RecordDownload(err)
		switch {
		case errors.Is(err, ErrNotFound):
			result.Missing++
			log.Warn().Str("league", job.League).Str("season", job.Season).Msg("Season not available")
			continue
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, context.Canceled):
			return result, err
		case err != nil:
			result.Failed++
			log.Error().Err(err).Str("league", job.League).Str("season", job.Season).Msg("Download failed")
			continue
		}
		result.Downloaded++

		imported, err := p.target.Store(ctx, job.League, job.Season, matches)
		if err != nil {
			return result, fmt.Errorf("failed to store %s %s: %w", job.League, job.Season, err)
		}
		metrics.RecordIngest(job.League, imported)
		result.add(report, imported)

		log.Info().
			Str("league", job.League).
			Str("season", job.Season).
			Int("rows", report.Rows).
			Int("imported", imported).
			Int("skipped", report.Skipped).
			Msg("Season ingested")
	}

	return result, nil
}

// ImportFiles parses local CSV files and hands each one to target. The league
// is taken from the file's Div column.
func ImportFiles(ctx context.Context, paths []string, opts ParseOptions, target Target) (Result, error) {
	var result Result

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		f, err := os.Open(path) // #nosec G304 -- paths are given on the command line
		if err != nil {
			return result, fmt.Errorf("failed to open %s: %w", path, err)
		}
		matches, report, err := ParseCSV(f, opts)
		_ = f.Close()
		if err != nil {
			return result, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if len(matches) == 0 {
			log.Warn().Str("path", path).Msg("No importable matches")
			result.add(report, 0)
			continue
		}

		league, season := matches[0].League, matches[0].Season
		imported, err := target.Store(ctx, league, season, matches)
		if err != nil {
			return result, fmt.Errorf("failed to store %s: %w", path, err)
		}
		metrics.RecordIngest(league, imported)
		result.add(report, imported)

		log.Info().Str("path", path).Int("imported", imported).Msg("File imported")
	}

	return result, nil
}
