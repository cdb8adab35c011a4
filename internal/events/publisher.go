// Package events publishes evolution progress over NATS
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/betevolve/pkg/genetic"
)

// DefaultSubject is the subject prefix generation events are published under
const DefaultSubject = "betevolve.generations"

// EventType names the kind of event
type EventType string

const (
	EventGenerationEvaluated EventType = "generation.evaluated"
)

// Event is the envelope published for every evaluated generation
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      EventType       `json:"type"`
	RunID     string          `json:"run_id"`
	Save      string          `json:"save"`
	Timestamp time.Time       `json:"timestamp"`
	Summary   genetic.Summary `json:"summary"`
}

// PublisherConfig configures the publisher
type PublisherConfig struct {
	URL     string
	Subject string
	RunID   string
}

// Publisher sends generation summaries to NATS. Subjects are
// "<subject>.<save>" so consumers can follow one save or all of them.
type Publisher struct {
	nc      *nats.Conn
	subject string
	runID   string
}

// NewPublisher connects to NATS
func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	nc, err := nats.Connect(
		cfg.URL,
		nats.Name("betevolve-evolve"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	subject := strings.TrimSuffix(cfg.Subject, ".")
	if subject == "" {
		subject = DefaultSubject
	}

	log.Info().
		Str("nats_url", cfg.URL).
		Str("subject", subject).
		Msg("Event publisher initialized")

	return &Publisher{nc: nc, subject: subject, runID: cfg.RunID}, nil
}

// Subject returns the subject events of save are published on
func (p *Publisher) Subject(save string) string {
	return SubjectFor(p.subject, save)
}

// SubjectFor builds the subject of a save under prefix
func SubjectFor(prefix, save string) string {
	// NATS tokens may not contain separators or wildcards
	r := strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_")
	return prefix + "." + r.Replace(save)
}

// OnGeneration publishes the summary of an evaluated generation
func (p *Publisher) OnGeneration(ctx context.Context, summary genetic.Summary) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !p.nc.IsConnected() {
		return fmt.Errorf("event publisher not connected")
	}

	event := Event{
		ID:        uuid.New(),
		Type:      EventGenerationEvaluated,
		RunID:     p.runID,
		Save:      summary.Save,
		Timestamp: time.Now().UTC(),
		Summary:   summary,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := p.Subject(summary.Save)
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.Debug().
		Str("subject", subject).
		Int("generation", summary.Generation).
		Msg("Generation event published")
	return nil
}

// Close flushes pending events and closes the connection
func (p *Publisher) Close() error {
	if p.nc == nil || p.nc.IsClosed() || p.nc.IsDraining() {
		return nil
	}
	if err := p.nc.Drain(); err != nil {
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	return nil
}

// Subscribe delivers the events of save to handler. Use "*" to follow every save.
func Subscribe(nc *nats.Conn, prefix, save string, handler func(Event)) (*nats.Subscription, error) {
	if prefix == "" {
		prefix = DefaultSubject
	}
	subject := prefix + ".*"
	if save != "*" {
		subject = SubjectFor(prefix, save)
	}

	return nc.Subscribe(subject, func(msg *nats.Msg) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Warn().Err(err).Str("subject", msg.Subject).Msg("Discarding malformed event")
			return
		}
		handler(event)
	})
}
