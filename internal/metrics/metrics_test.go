package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/betevolve/pkg/genetic"
)

func TestNormalizeDownloadError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"breaker open", fmt.Errorf("fetch: %w", gobreaker.ErrOpenState), DownloadErrorOpen},
		{"half open saturated", gobreaker.ErrTooManyRequests, DownloadErrorOpen},
		{"missing file", errors.New("match file not found: http://x/1920/E9.csv"), DownloadErrorNotFound},
		{"deadline", context.DeadlineExceeded, DownloadErrorTimeout},
		{"status", errors.New("failed to download x: status 502"), DownloadErrorStatus},
		{"dial", errors.New("dial tcp 127.0.0.1:1: connect: connection refused"), DownloadErrorNetwork},
		{"parse", errors.New("missing required column: FTHG"), DownloadErrorParse},
		{"other", errors.New("boom"), DownloadErrorOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDownloadError(tt.err))
		})
	}
}

func TestRecordGeneration(t *testing.T) {
	save := t.Name()
	summary := genetic.Summary{
		Save:          save,
		Generation:    7,
		Size:          20,
		BestFitness:   41.5,
		MeanFitness:   3.25,
		StdDevFitness: 12,
		WorstFitness:  -30,
		BetsWon:       10,
		BetsLost:      25,
		BetsNotPlayed: 4,
		BetsSkipped:   1,
		Duration:      1500 * time.Millisecond,
	}

	require.NoError(t, NewObserver().OnGeneration(context.Background(), summary))
	summary.Generation = 8
	summary.BetsWon = 2
	RecordGeneration(summary)

	assert.Equal(t, 2.0, testutil.ToFloat64(GenerationsTotal.WithLabelValues(save)))
	assert.Equal(t, 8.0, testutil.ToFloat64(CurrentGeneration.WithLabelValues(save)))
	assert.Equal(t, 20.0, testutil.ToFloat64(PopulationSize.WithLabelValues(save)))
	assert.Equal(t, 41.5, testutil.ToFloat64(BestFitness.WithLabelValues(save)))
	assert.Equal(t, 3.25, testutil.ToFloat64(MeanFitness.WithLabelValues(save)))
	assert.Equal(t, 12.0, testutil.ToFloat64(StdDevFitness.WithLabelValues(save)))
	assert.Equal(t, -30.0, testutil.ToFloat64(WorstFitness.WithLabelValues(save)))
	assert.Equal(t, 12.0, testutil.ToFloat64(Bets.WithLabelValues(save, OutcomeWon)))
	assert.Equal(t, 50.0, testutil.ToFloat64(Bets.WithLabelValues(save, OutcomeLost)))
	assert.Equal(t, 2.0, testutil.ToFloat64(Bets.WithLabelValues(save, OutcomeSkipped)))
}

type failingObserver struct{ err error }

func (f failingObserver) OnGeneration(context.Context, genetic.Summary) error { return f.err }

func TestInstrument(t *testing.T) {
	name := t.Name()
	ctx := context.Background()

	ok := Instrument(name, failingObserver{})
	require.NoError(t, ok.OnGeneration(ctx, genetic.Summary{}))
	assert.Equal(t, 0.0, testutil.ToFloat64(ObserverErrors.WithLabelValues(name)))

	boom := errors.New("boom")
	failing := Instrument(name, failingObserver{err: boom})
	assert.ErrorIs(t, failing.OnGeneration(ctx, genetic.Summary{}), boom)
	assert.ErrorIs(t, failing.OnGeneration(ctx, genetic.Summary{}), boom)
	assert.Equal(t, 2.0, testutil.ToFloat64(ObserverErrors.WithLabelValues(name)))
}

func TestRecordDownloadAndIngest(t *testing.T) {
	successBefore := testutil.ToFloat64(Downloads.WithLabelValues(ResultSuccess))
	failureBefore := testutil.ToFloat64(Downloads.WithLabelValues(ResultFailure))
	openBefore := testutil.ToFloat64(DownloadErrors.WithLabelValues(DownloadErrorOpen))

	RecordDownload(nil)
	RecordDownload(gobreaker.ErrOpenState)

	assert.Equal(t, successBefore+1, testutil.ToFloat64(Downloads.WithLabelValues(ResultSuccess)))
	assert.Equal(t, failureBefore+1, testutil.ToFloat64(Downloads.WithLabelValues(ResultFailure)))
	assert.Equal(t, openBefore+1, testutil.ToFloat64(DownloadErrors.WithLabelValues(DownloadErrorOpen)))

	league := t.Name()
	RecordIngest(league, 380)
	RecordIngest(league, 0)
	assert.Equal(t, 380.0, testutil.ToFloat64(MatchesIngested.WithLabelValues(league)))
}

func TestUpdateDatabaseConnections(t *testing.T) {
	UpdateDatabaseConnections(5, 2)
	assert.Equal(t, 5.0, testutil.ToFloat64(DatabaseConnectionsActive))
	assert.Equal(t, 2.0, testutil.ToFloat64(DatabaseConnectionsIdle))
}
