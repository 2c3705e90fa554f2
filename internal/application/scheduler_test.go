package application

import (
	"bytes"
	"context"
	"log"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/calsnap/internal/domain"
)

const testInterval = 5 * time.Millisecond

func TestPollSchedulerFiresFirstTickImmediately(t *testing.T) {
	t.Parallel()

	ticks := make(chan Tick, 1)
	scheduler := NewPollScheduler(func(_ context.Context, tick Tick) TickDecision {
		ticks <- tick
		return TickStop
	}, nil, fixedClock{now: testEpoch}, SchedulerOptions{Interval: time.Hour})

	require.True(t, scheduler.Start("s1", testEpoch.Add(-time.Minute)))

	select {
	case tick := <-ticks:
		assert.Equal(t, domain.SessionID("s1"), tick.SessionID)
		assert.Equal(t, time.Minute, tick.Elapsed)
		assert.Equal(t, 1, tick.Attempt)
	case <-time.After(time.Second):
		t.Fatal("first tick did not fire")
	}

	scheduler.Wait()
	assert.False(t, scheduler.IsActive("s1"))
}

func TestPollSchedulerStartIsIdempotentPerSession(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	var calls atomic.Int32
	scheduler := NewPollScheduler(func(ctx context.Context, _ Tick) TickDecision {
		calls.Add(1)
		select {
		case <-release:
		case <-ctx.Done():
		}
		return TickStop
	}, nil, nil, SchedulerOptions{Interval: testInterval})

	require.True(t, scheduler.Start("s1", time.Time{}))
	assert.False(t, scheduler.Start("s1", time.Time{}))
	assert.Equal(t, []domain.SessionID{"s1"}, scheduler.Active())

	close(release)
	scheduler.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestPollSchedulerTicksAreSequentialWithinSession(t *testing.T) {
	t.Parallel()

	var inFlight, overlaps atomic.Int32
	var calls atomic.Int32
	scheduler := NewPollScheduler(func(_ context.Context, _ Tick) TickDecision {
		if inFlight.Add(1) > 1 {
			overlaps.Add(1)
		}
		defer inFlight.Add(-1)

		time.Sleep(2 * testInterval)
		if calls.Add(1) == 4 {
			return TickStop
		}
		return TickContinue
	}, nil, nil, SchedulerOptions{Interval: time.Millisecond})

	scheduler.Start("s1", time.Time{})
	scheduler.Wait()

	assert.Equal(t, int32(4), calls.Load())
	assert.Zero(t, overlaps.Load())
}

func TestPollSchedulerStopFromInsideHandler(t *testing.T) {
	t.Parallel()

	var scheduler *PollScheduler
	var calls atomic.Int32
	scheduler = NewPollScheduler(func(_ context.Context, tick Tick) TickDecision {
		calls.Add(1)
		scheduler.Stop(tick.SessionID)
		scheduler.Stop(tick.SessionID)
		return TickContinue
	}, nil, nil, SchedulerOptions{Interval: testInterval})

	scheduler.Start("s1", time.Time{})
	scheduler.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, scheduler.IsActive("s1"))
}

func TestPollSchedulerKeepaliveFollowsActiveSet(t *testing.T) {
	t.Parallel()

	keepalive := &countingKeepalive{}
	scheduler := NewPollScheduler(func(ctx context.Context, _ Tick) TickDecision {
		<-ctx.Done()
		return TickContinue
	}, keepalive, nil, SchedulerOptions{Interval: testInterval})

	scheduler.Start("s1", time.Time{})
	scheduler.Start("s2", time.Time{})
	acquired, released := keepalive.Counts()
	assert.Equal(t, 1, acquired)
	assert.Zero(t, released)

	scheduler.Stop("s1")
	_, released = keepalive.Counts()
	assert.Zero(t, released)

	scheduler.Stop("s2")
	scheduler.Stop("s2")
	acquired, released = keepalive.Counts()
	assert.Equal(t, 1, acquired)
	assert.Equal(t, 1, released)

	scheduler.Start("s3", time.Time{})
	scheduler.StopAll()
	scheduler.Wait()

	acquired, released = keepalive.Counts()
	assert.Equal(t, 2, acquired)
	assert.Equal(t, 2, released)
}

func TestPollSchedulerSessionsDoNotBlockEachOther(t *testing.T) {
	t.Parallel()

	slowStarted := make(chan struct{})
	var once sync.Once
	fastDone := make(chan struct{})
	scheduler := NewPollScheduler(func(ctx context.Context, tick Tick) TickDecision {
		if tick.SessionID == "slow" {
			once.Do(func() { close(slowStarted) })
			<-ctx.Done()
			return TickContinue
		}
		close(fastDone)
		return TickStop
	}, nil, nil, SchedulerOptions{Interval: testInterval})

	scheduler.Start("slow", time.Time{})
	<-slowStarted
	scheduler.Start("fast", time.Time{})

	select {
	case <-fastDone:
	case <-time.After(time.Second):
		t.Fatal("fast session was blocked by slow session")
	}

	scheduler.StopAll()
	scheduler.Wait()
}

func TestPollSchedulerRecoversFromPanickingHandler(t *testing.T) {
	t.Parallel()

	var logs safeBuffer
	var calls atomic.Int32
	scheduler := NewPollScheduler(func(_ context.Context, _ Tick) TickDecision {
		if calls.Add(1) == 1 {
			panic("boom")
		}
		return TickStop
	}, nil, nil, SchedulerOptions{Interval: testInterval, Logger: log.New(&logs, "", 0)})

	scheduler.Start("s1", time.Time{})
	scheduler.Wait()

	assert.Equal(t, int32(2), calls.Load())
	assert.Contains(t, logs.String(), "tick handler panicked for session s1: boom")
}

func TestPollSchedulerRestartWaitsForRetiredTask(t *testing.T) {
	t.Parallel()

	firstEntered := make(chan struct{})
	releaseFirst := make(chan struct{})
	var inFlight, overlaps atomic.Int32
	var calls atomic.Int32
	scheduler := NewPollScheduler(func(_ context.Context, _ Tick) TickDecision {
		if inFlight.Add(1) > 1 {
			overlaps.Add(1)
		}
		defer inFlight.Add(-1)

		if calls.Add(1) == 1 {
			close(firstEntered)
			<-releaseFirst
			return TickStop
		}
		return TickStop
	}, nil, nil, SchedulerOptions{Interval: testInterval})

	scheduler.Start("s1", time.Time{})
	<-firstEntered
	scheduler.Stop("s1")
	require.True(t, scheduler.Start("s1", time.Time{}))

	time.Sleep(4 * testInterval)
	assert.Equal(t, int32(1), calls.Load())

	close(releaseFirst)
	scheduler.Wait()

	assert.Equal(t, int32(2), calls.Load())
	assert.Zero(t, overlaps.Load())
	assert.False(t, scheduler.IsActive("s1"))
}

func TestPollSchedulerRestartChainNeverOverlapsHandlers(t *testing.T) {
	t.Parallel()

	firstEntered := make(chan struct{})
	releaseFirst := make(chan struct{})
	var inFlight, maxInFlight, calls atomic.Int32
	scheduler := NewPollScheduler(func(_ context.Context, _ Tick) TickDecision {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			seen := maxInFlight.Load()
			if n <= seen || maxInFlight.CompareAndSwap(seen, n) {
				break
			}
		}

		if calls.Add(1) == 1 {
			close(firstEntered)
			<-releaseFirst
		}
		return TickStop
	}, nil, nil, SchedulerOptions{Interval: testInterval})

	scheduler.Start("s1", time.Time{})
	<-firstEntered
	scheduler.Stop("s1")
	require.True(t, scheduler.Start("s1", time.Time{}))
	scheduler.Stop("s1")
	require.True(t, scheduler.Start("s1", time.Time{}))

	time.Sleep(4 * testInterval)
	assert.Equal(t, int32(1), calls.Load())

	close(releaseFirst)
	scheduler.Wait()

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, int32(1), maxInFlight.Load())
	assert.False(t, scheduler.IsActive("s1"))
}

type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
