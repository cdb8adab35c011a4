// Package alerts notifies operators about unhealthy evolution runs
package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ajitpratap0/betevolve/pkg/genetic"
)

// Severity levels for alerts
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
)

// Alert is one notification about a generation of a save
type Alert struct {
	Save       string
	Generation int
	Title      string
	Message    string
	Severity   Severity
	Timestamp  time.Time
	Fields     map[string]interface{}
}

// Alerter delivers alerts to one channel
type Alerter interface {
	Send(ctx context.Context, alert Alert) error
}

// Manager fans alerts out to several channels
type Manager struct {
	alerters []Alerter
}

// NewManager creates a new alert manager
func NewManager(alerters ...Alerter) *Manager {
	return &Manager{alerters: alerters}
}

// Send delivers alert to every alerter. One failing channel does not stop the
// others; all failures are returned joined.
func (m *Manager) Send(ctx context.Context, alert Alert) error {
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now()
	}

	var errs []error
	for _, alerter := range m.alerters {
		if err := alerter.Send(ctx, alert); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", alerter, err))
		}
	}
	return errors.Join(errs...)
}

// SendWarning sends a warning about the generation summarized by s
func (m *Manager) SendWarning(ctx context.Context, s genetic.Summary, title, message string, fields map[string]interface{}) error {
	return m.Send(ctx, summaryAlert(s, SeverityWarning, title, message, fields))
}

// SendInfo sends an informational alert about the generation summarized by s
func (m *Manager) SendInfo(ctx context.Context, s genetic.Summary, title, message string, fields map[string]interface{}) error {
	return m.Send(ctx, summaryAlert(s, SeverityInfo, title, message, fields))
}

func summaryAlert(s genetic.Summary, severity Severity, title, message string, fields map[string]interface{}) Alert {
	return Alert{
		Save:       s.Save,
		Generation: s.Generation,
		Title:      title,
		Message:    message,
		Severity:   severity,
		Timestamp:  s.Timestamp,
		Fields:     fields,
	}
}

// LogAlerter writes alerts to a zerolog logger
type LogAlerter struct {
	logger zerolog.Logger
}

// NewLogAlerter creates an alerter logging through logger
func NewLogAlerter(logger zerolog.Logger) *LogAlerter {
	return &LogAlerter{logger: logger}
}

// Send logs the alert at the level matching its severity
func (l *LogAlerter) Send(_ context.Context, alert Alert) error {
	var event *zerolog.Event
	switch alert.Severity {
	case SeverityWarning:
		event = l.logger.Warn()
	case SeverityInfo:
		event = l.logger.Info()
	default:
		event = l.logger.Log()
	}

	event.
		Fields(alert.Fields).
		Str("save", alert.Save).
		Int("generation", alert.Generation).
		Str("alert", alert.Title).
		Str("severity", string(alert.Severity)).
		Time("alert_time", alert.Timestamp).
		Msg(alert.Message)
	return nil
}
