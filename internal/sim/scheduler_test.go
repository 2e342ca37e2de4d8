package sim

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/san-kum/forcegraph/internal/dynamo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countdown struct {
	left   int
	calls  int
	delay  time.Duration
	onTick func(n int)
}

func (c *countdown) Update() (time.Duration, bool) {
	c.calls++
	if c.onTick != nil {
		c.onTick(c.calls)
	}
	if c.left > 0 {
		c.left--
	}
	return c.delay, c.left > 0
}

func (c *countdown) LastTick() dynamo.TickStats {
	return dynamo.TickStats{Live: 7, Redrawn: c.left}
}

type tickLog struct{ stats []dynamo.TickStats }

func (l *tickLog) OnTick(s dynamo.TickStats) { l.stats = append(l.stats, s) }

func TestDrainStopsWhenSettled(t *testing.T) {
	s := New(nil)
	sub := &countdown{left: 3}
	s.Subscribe(sub)
	s.Wake()

	n, err := s.Drain(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.False(t, s.Running())
}

func TestDrainIdleWithoutWake(t *testing.T) {
	s := New(nil)
	s.Subscribe(&countdown{left: 3})

	n, err := s.Drain(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDrainRespectsTickLimit(t *testing.T) {
	s := New(nil)
	s.Subscribe(&countdown{left: 1000})
	s.Wake()

	n, err := s.Drain(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.True(t, s.Running())
}

func TestWakeDuringTickKeepsRunning(t *testing.T) {
	s := New(nil)
	sub := &countdown{left: 1}
	sub.onTick = func(n int) {
		if n == 1 {
			s.Wake()
		}
	}
	s.Subscribe(sub)
	s.Wake()

	_, ok := s.Step()
	assert.True(t, ok)
	assert.True(t, s.Running())

	_, ok = s.Step()
	assert.False(t, ok)
	assert.False(t, s.Running())
}

func TestDispatchCompletesOnSchedulerGoroutine(t *testing.T) {
	s := New(nil)
	s.Subscribe(&countdown{left: 2})

	var done atomic.Bool
	s.Dispatch(context.Background(), func(ctx context.Context) func() {
		time.Sleep(5 * time.Millisecond)
		return func() {
			done.Store(true)
			s.Wake()
		}
	})
	assert.Equal(t, 1, s.Inflight())

	n, err := s.Drain(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, done.Load())
	assert.Equal(t, 2, n)
	assert.Zero(t, s.Inflight())
}

func TestDrainWaitsForDispatchBeforeTicking(t *testing.T) {
	s := New(nil)
	sub := &countdown{left: 1 << 30}
	s.Subscribe(sub)
	s.Wake()

	release := make(chan struct{})
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()
	var ticksBefore atomic.Int64
	ticksBefore.Store(-1)
	s.Dispatch(context.Background(), func(ctx context.Context) func() {
		<-release
		return func() { ticksBefore.Store(int64(sub.calls)) }
	})

	n, err := s.Drain(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Zero(t, ticksBefore.Load())
	assert.Zero(t, s.Inflight())
}

func TestObserversReceiveStats(t *testing.T) {
	s := New(nil)
	log := &tickLog{}
	s.AddObserver(log)
	s.Subscribe(&countdown{left: 2, delay: 5 * time.Millisecond})
	s.Wake()

	_, err := s.Drain(context.Background(), 0)
	require.NoError(t, err)

	require.Len(t, log.stats, 2)
	assert.Equal(t, 1, log.stats[0].Tick)
	assert.Equal(t, 7, log.stats[0].Live)
	assert.Equal(t, 5*time.Millisecond, log.stats[0].Delay)
	assert.False(t, log.stats[0].Stopped)
	assert.True(t, log.stats[1].Stopped)
}

func TestRunUntilCancelled(t *testing.T) {
	s := New(nil)
	sub := &countdown{left: 1 << 30, delay: time.Millisecond}
	s.Subscribe(sub)
	s.Wake()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, s.Ticks(), 0)
}

func TestRunResumesAfterWake(t *testing.T) {
	s := New(nil)
	sub := &countdown{left: 1}
	s.Subscribe(sub)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	go func() {
		time.Sleep(10 * time.Millisecond)
		s.Post(func() {
			sub.left = 3
			s.Wake()
		})
	}()

	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 3, sub.calls)
}

func TestNoSubscriber(t *testing.T) {
	s := New(nil)
	_, err := s.Drain(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoSubscriber)
	assert.ErrorIs(t, s.Run(context.Background()), ErrNoSubscriber)
}
