package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/betevolve/pkg/history"
)

// FileStore serves matches from a CSV file or a directory of CSV files.
// Files are read once, on first use.
type FileStore struct {
	path string

	mu      sync.Mutex
	loaded  bool
	matches []history.Match
}

// NewFileStore creates a store over path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file or directory backing the store
func (s *FileStore) Path() string {
	return s.path
}

// csvFiles lists the CSV files under path in name order
func csvFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open match database: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read match directory: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		files = append(files, filepath.Join(path, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func (s *FileStore) load(ctx context.Context) ([]history.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return s.matches, nil
	}

	files, err := csvFiles(s.path)
	if err != nil {
		return nil, err
	}

	var all []history.Match
	var total Report
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := os.Open(file) // #nosec G304 -- path comes from configuration
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", file, err)
		}
		matches, report, err := ParseCSV(f, ParseOptions{})
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file, err)
		}
		all = append(all, matches...)
		total.Rows += report.Rows
		total.Skipped += report.Skipped
		total.Duplicates += report.Duplicates
	}

	unique := history.Dedupe(all)
	history.SortByDate(unique)
	total.Duplicates += len(all) - len(unique)
	total.Imported = len(unique)

	log.Info().
		Str("path", s.path).
		Int("files", len(files)).
		Int("matches", total.Imported).
		Int("skipped", total.Skipped).
		Int("duplicates", total.Duplicates).
		Msg("Loaded match files")

	s.matches = unique
	s.loaded = true
	return s.matches, nil
}

// LoadAll returns every match ordered by date, home team and away team
func (s *FileStore) LoadAll(ctx context.Context) ([]history.Match, error) {
	matches, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]history.Match, len(matches))
	copy(out, matches)
	return out, nil
}

// Count returns the number of matches in the store
func (s *FileStore) Count(ctx context.Context) (int, error) {
	matches, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	return len(matches), nil
}

// SelectByIndex returns the matches at the given positions of the LoadAll ordering
func (s *FileStore) SelectByIndex(ctx context.Context, indexes []int) ([]history.Match, error) {
	matches, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]history.Match, len(indexes))
	for i, idx := range indexes {
		if idx < 0 || idx >= len(matches) {
			return nil, fmt.Errorf("%w: match index %d is out of range [0, %d)", history.ErrSampling, idx, len(matches))
		}
		out[i] = matches[idx]
	}
	return out, nil
}

// Reload drops the cached matches so the next call re-reads the files
func (s *FileStore) Reload() {
	s.mu.Lock()
	s.loaded = false
	s.matches = nil
	s.mu.Unlock()
}
