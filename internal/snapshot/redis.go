package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/betevolve/pkg/genetic"
)

const (
	defaultMirrorTTL = 24 * time.Hour
	mirrorTimeout    = 500 * time.Millisecond

	// HistoryLength is the number of summaries kept per save
	HistoryLength = 100
)

// Mirror publishes generation summaries to Redis so dashboards can follow a
// running save without reading its files
type Mirror struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewMirror creates a Redis mirror.
// If client is nil, returns nil (optional Redis support)
func NewMirror(client *redis.Client, prefix string, ttl time.Duration) *Mirror {
	if client == nil {
		return nil
	}
	if ttl == 0 {
		ttl = defaultMirrorTTL
	}
	return &Mirror{client: client, prefix: prefix, ttl: ttl}
}

func (m *Mirror) latestKey(save string) string {
	return fmt.Sprintf("%ssave:%s:latest", m.prefix, save)
}

func (m *Mirror) historyKey(save string) string {
	return fmt.Sprintf("%ssave:%s:history", m.prefix, save)
}

// OnGeneration stores the summary as the latest of its save and prepends it
// to the save's bounded history
func (m *Mirror) OnGeneration(ctx context.Context, summary genetic.Summary) error {
	if m == nil || m.client == nil {
		return nil
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	cacheCtx, cancel := context.WithTimeout(ctx, mirrorTimeout)
	defer cancel()

	historyKey := m.historyKey(summary.Save)
	_, err = m.client.TxPipelined(cacheCtx, func(pipe redis.Pipeliner) error {
		pipe.Set(cacheCtx, m.latestKey(summary.Save), data, m.ttl)
		pipe.LPush(cacheCtx, historyKey, data)
		pipe.LTrim(cacheCtx, historyKey, 0, HistoryLength-1)
		pipe.Expire(cacheCtx, historyKey, m.ttl)
		return nil
	})
	if err != nil {
		log.Warn().
			Err(err).
			Str("save", summary.Save).
			Int("generation", summary.Generation).
			Msg("Failed to mirror generation summary")
		return err
	}
	return nil
}

// Latest returns the most recent summary of a save.
// Returns false if not found or on error
func (m *Mirror) Latest(ctx context.Context, save string) (genetic.Summary, bool) {
	var summary genetic.Summary
	if m == nil || m.client == nil {
		return summary, false
	}

	cacheCtx, cancel := context.WithTimeout(ctx, mirrorTimeout)
	defer cancel()

	cached, err := m.client.Get(cacheCtx, m.latestKey(save)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Debug().Err(err).Str("save", save).Msg("Redis get error - treating as miss")
		}
		return summary, false
	}
	if err := json.Unmarshal([]byte(cached), &summary); err != nil {
		log.Warn().Err(err).Str("save", save).Msg("Failed to unmarshal mirrored summary")
		return summary, false
	}
	return summary, true
}

// History returns up to limit summaries of a save, newest first
func (m *Mirror) History(ctx context.Context, save string, limit int) ([]genetic.Summary, error) {
	if m == nil || m.client == nil {
		return nil, fmt.Errorf("mirror not initialized")
	}
	if limit <= 0 || limit > HistoryLength {
		limit = HistoryLength
	}

	cacheCtx, cancel := context.WithTimeout(ctx, mirrorTimeout)
	defer cancel()

	raw, err := m.client.LRange(cacheCtx, m.historyKey(save), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read summary history: %w", err)
	}

	summaries := make([]genetic.Summary, 0, len(raw))
	for _, item := range raw {
		var s genetic.Summary
		if err := json.Unmarshal([]byte(item), &s); err != nil {
			return nil, fmt.Errorf("failed to decode summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}
