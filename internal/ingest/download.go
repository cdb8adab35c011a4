package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/ajitpratap0/betevolve/internal/config"
	"github.com/ajitpratap0/betevolve/pkg/history"
)

// Downloader circuit breaker settings
const (
	downloadOpenTimeout     = 60 * time.Second
	downloadHalfOpenMaxReqs = 1
	downloadCountInterval   = 5 * time.Minute
	defaultMaxFailures      = 3

	maxFileSize = 16 << 20
)

var (
	// ErrNotFound is returned when the archive has no file for a league and season.
	// It does not count as a failure for the circuit breaker.
	ErrNotFound = errors.New("match file not found")

	// ErrTooLarge is returned when a downloaded file exceeds the size limit
	ErrTooLarge = errors.New("match file too large")
)

// SeasonCode converts "2019-2020" into the archive's "1920" directory name
func SeasonCode(season string) (string, error) {
	start, end, ok := strings.Cut(season, "-")
	if !ok || len(start) != 4 || len(end) != 4 {
		return "", fmt.Errorf("invalid season %q (expected YYYY-YYYY)", season)
	}
	var a, b int
	if _, err := fmt.Sscanf(season, "%4d-%4d", &a, &b); err != nil || b != a+1 {
		return "", fmt.Errorf("invalid season %q (expected consecutive years)", season)
	}
	return start[2:] + end[2:], nil
}

// Downloader fetches league CSV files from the football-data archive
type Downloader struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	maxSize int64
}

// NewDownloader creates a rate limited, circuit broken downloader
func NewDownloader(cfg config.DownloadConfig) *Downloader {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultMaxFailures
	}
	timeout := cfg.GetTimeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Downloader{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		limiter: rate.NewLimiter(limit, 1),
		maxSize: maxFileSize,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "download",
			MaxRequests: downloadHalfOpenMaxReqs,
			Interval:    downloadCountInterval,
			Timeout:     downloadOpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, ErrNotFound)
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				log.Warn().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("Circuit breaker state changed")
			},
		}),
	}
}

// URL returns the archive location of a league file
func (d *Downloader) URL(league, season string) (string, error) {
	code, err := SeasonCode(season)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s.csv", d.baseURL, code, league), nil
}

// Fetch downloads the raw CSV of a league season
func (d *Downloader) Fetch(ctx context.Context, league, season string) ([]byte, error) {
	url, err := d.URL(league, season)
	if err != nil {
		return nil, err
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	body, err := d.breaker.Execute(func() (interface{}, error) {
		return d.get(ctx, url)
	})
	if err != nil {
		return nil, err
	}
	return body.([]byte), nil
}

func (d *Downloader) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "betevolve/"+config.GetVersion())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("failed to download %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, d.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	if int64(len(body)) > d.maxSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, url, d.maxSize)
	}
	return body, nil
}

// Download fetches and parses a league season
func (d *Downloader) Download(ctx context.Context, league, season string) ([]history.Match, Report, error) {
	raw, err := d.Fetch(ctx, league, season)
	if err != nil {
		return nil, Report{}, err
	}
	matches, report, err := ParseCSV(bytes.NewReader(raw), ParseOptions{Season: season})
	if err != nil {
		return nil, report, fmt.Errorf("%s %s: %w", league, season, err)
	}

	log.Info().
		Str("league", league).
		Str("season", season).
		Int("matches", report.Imported).
		Int("skipped", report.Skipped).
		Msg("Downloaded league season")

	return matches, report, nil
}

// State returns the circuit breaker state
func (d *Downloader) State() gobreaker.State {
	return d.breaker.State()
}

// SaveCSV writes matches to dir/<league>_<code>.csv and returns the path
func SaveCSV(dir, league, season string, matches []history.Match) (string, error) {
	code, err := SeasonCode(season)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, matches); err != nil {
		return "", err
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", league, code))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return path, nil
}
