package metrics

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type fakeCounter struct {
	n     int
	err   error
	calls atomic.Int32
}

func (f *fakeCounter) Count(context.Context) (int, error) {
	f.calls.Add(1)
	return f.n, f.err
}

func TestNewUpdater(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		want     time.Duration
	}{
		{"explicit", 10 * time.Second, 10 * time.Second},
		{"zero falls back", 0, 30 * time.Second},
		{"negative falls back", -time.Second, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := NewUpdater(nil, nil, tt.interval)
			assert.Equal(t, tt.want, u.interval)
			assert.NotNil(t, u.stopCh)
		})
	}
}

func TestUpdaterStop(t *testing.T) {
	u := NewUpdater(nil, nil, time.Second)

	assert.NotPanics(t, func() {
		u.Stop()
		u.Stop()
	})

	select {
	case <-u.stopCh:
	default:
		t.Fatal("stop channel should be closed")
	}
}

func TestUpdaterSamplesMatchCount(t *testing.T) {
	counter := &fakeCounter{n: 1234}
	u := NewUpdater(nil, counter, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		u.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool { return counter.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	u.Stop()
	<-done

	assert.Equal(t, 1234.0, testutil.ToFloat64(MatchesStored))
}

func TestUpdaterCountError(t *testing.T) {
	MatchesStored.Set(7)
	counter := &fakeCounter{n: 99, err: errors.New("db down")}

	NewUpdater(nil, counter, time.Second).update(context.Background())

	assert.Equal(t, int32(1), counter.calls.Load())
	assert.Equal(t, 7.0, testutil.ToFloat64(MatchesStored), "gauge keeps its last good value")
}

func TestUpdaterContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	u := NewUpdater(nil, nil, time.Hour)

	done := make(chan struct{})
	go func() {
		u.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("updater did not stop after cancel")
	}
}
