package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/betevolve/pkg/history"
)

// PoolInterface defines the pool operations the match store needs.
// *pgxpool.Pool and pgxmock pools both satisfy it.
type PoolInterface interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// matchColumns is the column order used by every match query
var matchColumns = []string{
	"league", "season", "match_date", "home_team", "away_team",
	"home_score", "away_score", "home_odd", "draw_odd", "away_odd",
}

// The "C" collation keeps team ordering identical to Go string comparison.
const matchOrder = `match_date, home_team COLLATE "C", away_team COLLATE "C"`

const selectMatches = `
	SELECT league, season, match_date, home_team, away_team,
	       home_score, away_score, home_odd, draw_odd, away_odd
	FROM matches
	ORDER BY ` + matchOrder

const selectMatchesByIndex = `
	SELECT position, league, season, match_date, home_team, away_team,
	       home_score, away_score, home_odd, draw_odd, away_odd
	FROM (
		SELECT ROW_NUMBER() OVER (ORDER BY ` + matchOrder + `) - 1 AS position,
		       league, season, match_date, home_team, away_team,
		       home_score, away_score, home_odd, draw_odd, away_odd
		FROM matches
	) numbered
	WHERE position = ANY($1)`

const countMatches = `SELECT COUNT(*) FROM matches`

const createStaging = `CREATE TEMP TABLE matches_staging (LIKE matches INCLUDING DEFAULTS) ON COMMIT DROP`

const mergeStaging = `
	INSERT INTO matches (league, season, match_date, home_team, away_team,
	                     home_score, away_score, home_odd, draw_odd, away_odd)
	SELECT league, season, match_date, home_team, away_team,
	       home_score, away_score, home_odd, draw_odd, away_odd
	FROM matches_staging
	ON CONFLICT (match_date, home_team, away_team) DO NOTHING`

// MatchStore serves historical matches from PostgreSQL
type MatchStore struct {
	pool PoolInterface
}

// NewMatchStore creates a match store on top of pool
func NewMatchStore(pool PoolInterface) *MatchStore {
	return &MatchStore{pool: pool}
}

// LoadAll returns every stored match ordered by date, home team and away team
func (s *MatchStore) LoadAll(ctx context.Context) ([]history.Match, error) {
	rows, err := s.pool.Query(ctx, selectMatches)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var matches []history.Match
	for rows.Next() {
		var m history.Match
		if err := rows.Scan(
			&m.League, &m.Season, &m.Date, &m.HomeTeam, &m.AwayTeam,
			&m.HomeScore, &m.AwayScore, &m.HomeOdd, &m.DrawOdd, &m.AwayOdd,
		); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}

	log.Debug().Int("matches", len(matches)).Msg("Loaded matches from database")
	return matches, nil
}

// Count returns the number of stored matches
func (s *MatchStore) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, countMatches).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", err)
	}
	return int(n), nil
}

// SelectByIndex returns the matches at the given zero-based positions of the
// LoadAll ordering, in the order the positions were requested.
func (s *MatchStore) SelectByIndex(ctx context.Context, indexes []int) ([]history.Match, error) {
	if len(indexes) == 0 {
		return nil, nil
	}

	positions := make([]int64, len(indexes))
	for i, idx := range indexes {
		if idx < 0 {
			return nil, fmt.Errorf("%w: negative match index %d", history.ErrSampling, idx)
		}
		positions[i] = int64(idx)
	}

	rows, err := s.pool.Query(ctx, selectMatchesByIndex, positions)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches by index: %w", err)
	}
	defer rows.Close()

	byPosition := make(map[int64]history.Match, len(indexes))
	for rows.Next() {
		var (
			pos int64
			m   history.Match
		)
		if err := rows.Scan(
			&pos, &m.League, &m.Season, &m.Date, &m.HomeTeam, &m.AwayTeam,
			&m.HomeScore, &m.AwayScore, &m.HomeOdd, &m.DrawOdd, &m.AwayOdd,
		); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		byPosition[pos] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}

	matches := make([]history.Match, len(positions))
	for i, pos := range positions {
		m, ok := byPosition[pos]
		if !ok {
			return nil, fmt.Errorf("%w: match index %d is out of range", history.ErrSampling, pos)
		}
		matches[i] = m
	}
	return matches, nil
}

// InsertMatches bulk loads matches and returns how many were new.
// Matches already stored under the same date and teams are left untouched.
func (s *MatchStore) InsertMatches(ctx context.Context, matches []history.Match) (int64, error) {
	if len(matches) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // no-op after commit

	if _, err := tx.Exec(ctx, createStaging); err != nil {
		return 0, fmt.Errorf("failed to create staging table: %w", err)
	}

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"matches_staging"},
		matchColumns,
		pgx.CopyFromSlice(len(matches), func(i int) ([]any, error) {
			m := matches[i]
			return []any{
				m.League, m.Season, m.Date, m.HomeTeam, m.AwayTeam,
				m.HomeScore, m.AwayScore, m.HomeOdd, m.DrawOdd, m.AwayOdd,
			}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to copy matches: %w", err)
	}

	tag, err := tx.Exec(ctx, mergeStaging)
	if err != nil {
		return 0, fmt.Errorf("failed to merge matches: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit matches: %w", err)
	}

	log.Info().
		Int64("copied", copied).
		Int64("inserted", tag.RowsAffected()).
		Msg("Matches stored")

	return tag.RowsAffected(), nil
}
