// Package ingest reads football-data style match CSV files, serves them as a
// match store and downloads them from the upstream archive.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/betevolve/pkg/history"
)

// Required football-data columns
const (
	colLeague    = "Div"
	colDate      = "Date"
	colHomeTeam  = "HomeTeam"
	colAwayTeam  = "AwayTeam"
	colHomeGoals = "FTHG"
	colAwayGoals = "FTAG"
)

// oddsColumns lists the 1X2 odds columns in order of preference
var oddsColumns = [][3]string{
	{"B365H", "B365D", "B365A"},
	{"AvgH", "AvgD", "AvgA"},
	{"BbAvH", "BbAvD", "BbAvA"},
}

var dateLayouts = []string{"02/01/2006", "02/01/06", "2006-01-02"}

// ErrMissingColumn is returned when a required column is absent from the header
var ErrMissingColumn = errors.New("missing required column")

// ParseOptions tunes ParseCSV
type ParseOptions struct {
	// Season overrides the season derived from each match date
	Season string
}

// Report summarizes a parse
type Report struct {
	Rows       int `json:"rows"`
	Imported   int `json:"imported"`
	Skipped    int `json:"skipped"`
	Duplicates int `json:"duplicates"`
}

type columns struct {
	league, date, home, away, homeGoals, awayGoals int
	odds                                           [3]int
}

func resolveColumns(header []string) (columns, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, ok := index[name]; !ok {
			index[name] = i
		}
	}

	var c columns
	required := []struct {
		name string
		dst  *int
	}{
		{colLeague, &c.league},
		{colDate, &c.date},
		{colHomeTeam, &c.home},
		{colAwayTeam, &c.away},
		{colHomeGoals, &c.homeGoals},
		{colAwayGoals, &c.awayGoals},
	}
	for _, r := range required {
		i, ok := index[r.name]
		if !ok {
			return c, fmt.Errorf("%w: %s", ErrMissingColumn, r.name)
		}
		*r.dst = i
	}

	for _, set := range oddsColumns {
		h, okH := index[set[0]]
		d, okD := index[set[1]]
		a, okA := index[set[2]]
		if okH && okD && okA {
			c.odds = [3]int{h, d, a}
			return c, nil
		}
	}
	return c, fmt.Errorf("%w: 1X2 odds (B365H/B365D/B365A)", ErrMissingColumn)
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// ParseCSV reads matches from a football-data CSV stream. Rows without a
// result or without odds are skipped. Duplicate matches keep their first row.
func ParseCSV(r io.Reader, opts ParseOptions) ([]history.Match, Report, error) {
	var report Report

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, report, fmt.Errorf("failed to read CSV header: %w", err)
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return nil, report, err
	}

	var matches []history.Match
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, report, fmt.Errorf("failed to read CSV record at line %d: %w", line, err)
		}

		// football-data files end with rows of empty separators
		if field(record, cols.league) == "" && field(record, cols.home) == "" {
			continue
		}
		report.Rows++

		m, err := parseRecord(record, cols, opts)
		if err != nil {
			report.Skipped++
			log.Debug().Err(err).Int("line", line).Msg("Skipping CSV record")
			continue
		}
		matches = append(matches, m)
	}

	unique := history.Dedupe(matches)
	report.Duplicates = len(matches) - len(unique)
	report.Imported = len(unique)

	return unique, report, nil
}

func parseRecord(record []string, cols columns, opts ParseOptions) (history.Match, error) {
	date, err := parseDate(field(record, cols.date))
	if err != nil {
		return history.Match{}, err
	}
	homeGoals, err := strconv.Atoi(field(record, cols.homeGoals))
	if err != nil {
		return history.Match{}, fmt.Errorf("home goals: %w", err)
	}
	awayGoals, err := strconv.Atoi(field(record, cols.awayGoals))
	if err != nil {
		return history.Match{}, fmt.Errorf("away goals: %w", err)
	}

	var odds [3]float64
	for i, c := range cols.odds {
		odds[i], err = strconv.ParseFloat(field(record, c), 64)
		if err != nil {
			return history.Match{}, fmt.Errorf("odds column %d: %w", c, err)
		}
	}

	season := opts.Season
	if season == "" {
		season = history.SeasonOf(date)
	}

	m := history.Match{
		League:    field(record, cols.league),
		Season:    season,
		Date:      date,
		HomeTeam:  field(record, cols.home),
		AwayTeam:  field(record, cols.away),
		HomeScore: homeGoals,
		AwayScore: awayGoals,
		HomeOdd:   odds[0],
		DrawOdd:   odds[1],
		AwayOdd:   odds[2],
	}
	if err := m.Validate(); err != nil {
		return history.Match{}, err
	}
	return m, nil
}

// WriteCSV writes matches using the football-data column names ParseCSV reads
func WriteCSV(w io.Writer, matches []history.Match) error {
	writer := csv.NewWriter(w)
	header := []string{colLeague, colDate, colHomeTeam, colAwayTeam, colHomeGoals, colAwayGoals, "B365H", "B365D", "B365A"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, m := range matches {
		record := []string{
			m.League,
			m.Date.Format("02/01/2006"),
			m.HomeTeam,
			m.AwayTeam,
			strconv.Itoa(m.HomeScore),
			strconv.Itoa(m.AwayScore),
			strconv.FormatFloat(m.HomeOdd, 'f', -1, 64),
			strconv.FormatFloat(m.DrawOdd, 'f', -1, 64),
			strconv.FormatFloat(m.AwayOdd, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
