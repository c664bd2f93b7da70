package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingIngester struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func (b *blockingIngester) Full(_ context.Context) error {
	b.calls.Add(1)
	if b.release != nil {
		<-b.release
	}
	return b.err
}

func TestStartWithEmptySchedule(t *testing.T) {
	s := New(&blockingIngester{}, "")
	require.NoError(t, s.Start())
	assert.False(t, s.Status().Running)
}

func TestStartWithInvalidSchedule(t *testing.T) {
	s := New(&blockingIngester{}, "not-a-cron-expr")
	assert.Error(t, s.Start())
}

func TestStartTwice(t *testing.T) {
	s := New(&blockingIngester{}, "@hourly")
	require.NoError(t, s.Start())
	defer s.Stop()
	assert.Error(t, s.Start())
}

func TestTickSkipsOverlappingRuns(t *testing.T) {
	ing := &blockingIngester{release: make(chan struct{})}
	s := New(ing, "@hourly")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.tick()
	}()

	// Wait until the first run is in flight, then fire a second tick.
	require.Eventually(t, func() bool { return ing.calls.Load() == 1 }, time.Second, time.Millisecond)
	s.tick()
	assert.Equal(t, int32(1), ing.calls.Load(), "overlapping tick must be skipped")

	close(ing.release)
	wg.Wait()

	s.tick()
	assert.Equal(t, int32(2), ing.calls.Load(), "ticks resume once the run finishes")
}

func TestTickRecordsFailure(t *testing.T) {
	ing := &blockingIngester{err: errors.New("wiki unreachable")}
	s := New(ing, "@hourly")

	s.tick()

	status := s.Status()
	assert.Equal(t, "wiki unreachable", status.LastErr)
	assert.False(t, status.LastRun.IsZero())
}

func TestStatusNextRun(t *testing.T) {
	s := New(&blockingIngester{}, "@hourly")
	require.NoError(t, s.Start())
	defer s.Stop()

	status := s.Status()
	assert.True(t, status.Running)
	assert.False(t, status.NextRun.IsZero())
}
