// Package snapshot persists evolution saves on disk: one JSON file per
// generation, the configuration the save was started with, and a run log.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/betevolve/internal/config"
	"github.com/ajitpratap0/betevolve/pkg/genetic"
)

// SchemaVersion is the version of the generation file layout written by this package
const SchemaVersion = "1.0.0"

// LogFileName is the run log kept in every save
const LogFileName = "log.txt"

var generationFile = regexp.MustCompile(`^generation_(\d+)\.json$`)

// ErrIncompatibleSchema is returned for generation files written by a newer
// or structurally different version of the program
var ErrIncompatibleSchema = errors.New("incompatible snapshot schema")

// File is the on-disk envelope of one generation
type File struct {
	SchemaVersion string          `json:"schema_version"`
	RunID         string          `json:"run_id"`
	Save          string          `json:"save"`
	Generation    int             `json:"generation"`
	WrittenAt     time.Time       `json:"written_at"`
	Nodes         []*genetic.Node `json:"nodes"`
}

// Store keeps saves as directories under a root directory
type Store struct {
	root   string
	runID  string
	schema *semver.Version
}

// NewStore creates a store rooted at dir. Every store gets a fresh run id that
// is stamped on the generations it writes.
func NewStore(dir string) *Store {
	return &Store{
		root:   dir,
		runID:  uuid.NewString(),
		schema: semver.MustParse(SchemaVersion),
	}
}

// RunID identifies the process writing to the store
func (s *Store) RunID() string {
	return s.runID
}

// Dir returns the directory of a save
func (s *Store) Dir(save string) string {
	return filepath.Join(s.root, save)
}

func (s *Store) generationPath(save string, number int) string {
	return filepath.Join(s.Dir(save), fmt.Sprintf("generation_%06d.json", number))
}

// Saves lists the saves under the root directory
func (s *Store) Saves() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read saves directory: %w", err)
	}
	var saves []string
	for _, entry := range entries {
		if entry.IsDir() {
			saves = append(saves, entry.Name())
		}
	}
	return saves, nil
}

// Generations returns the generation numbers stored for a save, ascending
func (s *Store) Generations(save string) ([]int, error) {
	entries, err := os.ReadDir(s.Dir(save))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read save %s: %w", save, err)
	}

	var numbers []int
	for _, entry := range entries {
		m := generationFile.FindStringSubmatch(entry.Name())
		if m == nil || entry.IsDir() {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers, nil
}

// LoadGeneration reads one generation of a save
func (s *Store) LoadGeneration(save string, number int) (*genetic.Generation, error) {
	path := s.generationPath(save, number)
	data, err := os.ReadFile(path) // #nosec G304 -- path is built from the saves directory
	if err != nil {
		return nil, fmt.Errorf("failed to read generation %d: %w", number, err)
	}

	nodes, err := s.decode(data)
	if err != nil {
		return nil, fmt.Errorf("generation %d of %s: %w", number, save, err)
	}
	for i, n := range nodes {
		if n == nil {
			return nil, fmt.Errorf("generation %d of %s: node %d is empty", number, save, i)
		}
	}
	return &genetic.Generation{Number: number, Nodes: nodes}, nil
}

// decode accepts the versioned envelope and the legacy bare node array
func (s *Store) decode(data []byte) ([]*genetic.Node, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var nodes []*genetic.Node
		if err := json.Unmarshal(trimmed, &nodes); err != nil {
			return nil, fmt.Errorf("failed to decode nodes: %w", err)
		}
		return nodes, nil
	}

	var file File
	if err := json.Unmarshal(trimmed, &file); err != nil {
		return nil, fmt.Errorf("failed to decode generation file: %w", err)
	}
	if err := s.checkSchema(file.SchemaVersion); err != nil {
		return nil, err
	}
	return file.Nodes, nil
}

func (s *Store) checkSchema(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%w: invalid version %q", ErrIncompatibleSchema, version)
	}
	if v.Major() != s.schema.Major() || v.GreaterThan(s.schema) {
		return fmt.Errorf("%w: file version %s, supported %s", ErrIncompatibleSchema, v, s.schema)
	}
	return nil
}

// LoadLatestGeneration returns the highest numbered generation of a save,
// or nil when the save has none
func (s *Store) LoadLatestGeneration(_ context.Context, save string) (*genetic.Generation, error) {
	numbers, err := s.Generations(save)
	if err != nil || len(numbers) == 0 {
		return nil, err
	}
	return s.LoadGeneration(save, numbers[len(numbers)-1])
}

// LoadGenerationBefore returns the generation preceding the latest one, which
// is the last generation that was evaluated. Nil when the save has fewer than
// two generations.
func (s *Store) LoadGenerationBefore(_ context.Context, save string) (*genetic.Generation, error) {
	numbers, err := s.Generations(save)
	if err != nil || len(numbers) < 2 {
		return nil, err
	}
	return s.LoadGeneration(save, numbers[len(numbers)-2])
}

// WriteGeneration atomically replaces generation number of a save
func (s *Store) WriteGeneration(_ context.Context, save string, nodes []*genetic.Node, number int) error {
	if number < 0 {
		return fmt.Errorf("%w: negative generation %d", genetic.ErrValidation, number)
	}

	file := File{
		SchemaVersion: SchemaVersion,
		RunID:         s.runID,
		Save:          save,
		Generation:    number,
		WrittenAt:     time.Now().UTC(),
		Nodes:         nodes,
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode generation %d: %w", number, err)
	}

	if err := writeAtomic(s.generationPath(save, number), data); err != nil {
		return err
	}

	log.Debug().
		Str("save", save).
		Int("generation", number).
		Int("nodes", len(nodes)).
		Msg("Generation written")
	return nil
}

// AppendLog appends lines to the run log of a save
func (s *Store) AppendLog(_ context.Context, save string, lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	if err := os.MkdirAll(s.Dir(save), 0o750); err != nil {
		return fmt.Errorf("failed to create save directory: %w", err)
	}

	path := filepath.Join(s.Dir(save), LogFileName)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) // #nosec G304 -- path is built from the saves directory
	if err != nil {
		return fmt.Errorf("failed to open run log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(strings.Join(lines, "\n") + "\n"); err != nil {
		return fmt.Errorf("failed to append run log: %w", err)
	}
	return nil
}

// LoadConfiguration returns the configuration snapshot of a save, or nil when
// the save has none
func (s *Store) LoadConfiguration(save string) (*config.Config, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(save), config.ConfigFileName)) // #nosec G304 -- path is built from the saves directory
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration of %s: %w", save, err)
	}
	return config.Parse(data)
}

// WriteConfiguration snapshots cfg into a save
func (s *Store) WriteConfiguration(save string, cfg *config.Config) error {
	return config.ExportToFile(cfg, filepath.Join(s.Dir(save), config.ConfigFileName))
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create save directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
