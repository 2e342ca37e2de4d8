package sim

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/san-kum/forcegraph/internal/dynamo"
)

var ErrNoSubscriber = errors.New("sim: scheduler has no subscriber")

// Subscriber is ticked by the scheduler. It returns the delay before the
// next tick, or false to stop ticking until the next Wake.
type Subscriber interface {
	Update() (time.Duration, bool)
}

// StatsSource is implemented by subscribers that can describe their last tick.
type StatsSource interface {
	LastTick() dynamo.TickStats
}

// Scheduler drives a Subscriber from a single goroutine. Completions of
// background work are posted back and run on that same goroutine, between
// ticks, so the subscriber never needs locking.
type Scheduler struct {
	sub       Subscriber
	observers []dynamo.TickObserver
	metrics   []dynamo.Metric
	logger    *slog.Logger

	posted   chan func()
	nudge    chan struct{}
	running  atomic.Bool
	wakes    atomic.Uint64
	inflight atomic.Int64

	ticks int
	delay time.Duration
}

func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		logger: logger,
		posted: make(chan func(), 256),
		nudge:  make(chan struct{}, 1),
	}
}

func (s *Scheduler) Subscribe(sub Subscriber)          { s.sub = sub }
func (s *Scheduler) AddObserver(o dynamo.TickObserver) { s.observers = append(s.observers, o) }
func (s *Scheduler) AddMetric(m dynamo.Metric)         { s.metrics = append(s.metrics, m) }
func (s *Scheduler) Metrics() []dynamo.Metric          { return s.metrics }
func (s *Scheduler) Running() bool                     { return s.running.Load() }
func (s *Scheduler) Ticks() int                        { return s.ticks }
func (s *Scheduler) Delay() time.Duration              { return s.delay }
func (s *Scheduler) Inflight() int                     { return int(s.inflight.Load()) }
func (s *Scheduler) Posted() <-chan func()             { return s.posted }

// Wake restarts a stopped scheduler. It is safe to call from any goroutine.
func (s *Scheduler) Wake() {
	s.wakes.Add(1)
	if !s.running.Swap(true) {
		s.logger.Debug("scheduler woken")
	}
	select {
	case s.nudge <- struct{}{}:
	default:
	}
}

func (s *Scheduler) Stop() {
	s.running.Store(false)
}

// Post queues fn to run on the scheduler goroutine.
func (s *Scheduler) Post(fn func()) {
	s.posted <- fn
}

// Dispatch runs call on its own goroutine and posts the completion it
// returns. Dispatched work is never cancelled; ctx is only handed to call.
func (s *Scheduler) Dispatch(ctx context.Context, call func(context.Context) func()) {
	s.inflight.Add(1)
	go func() {
		done := call(ctx)
		s.Post(func() {
			s.inflight.Add(-1)
			if done != nil {
				done()
			}
		})
	}()
}

// Step runs one tick synchronously.
func (s *Scheduler) Step() (time.Duration, bool) {
	before := s.wakes.Load()
	delay, ok := s.sub.Update()
	s.ticks++
	s.delay = delay

	// A wake raised during the tick outranks the subscriber asking to stop.
	if !ok && s.wakes.Load() == before {
		s.running.Store(false)
	} else {
		ok = true
	}

	stats := dynamo.TickStats{}
	if src, isSrc := s.sub.(StatsSource); isSrc {
		stats = src.LastTick()
	}
	stats.Tick = s.ticks
	stats.Delay = delay
	stats.Stopped = !ok

	for _, obs := range s.observers {
		obs.OnTick(stats)
	}
	for _, m := range s.metrics {
		m.Observe(stats)
	}
	return delay, ok
}

// Run ticks the subscriber whenever it is running and executes posted
// completions in between, until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.sub == nil {
		return ErrNoSubscriber
	}
	timer := time.NewTimer(0)
	defer timer.Stop()
	armed := true
	if !s.running.Load() {
		timer.Stop()
		armed = false
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-s.posted:
			fn()
		case <-s.nudge:
		case <-timer.C:
			armed = false
			if s.running.Load() {
				s.Step()
			}
		}
		if !armed && s.running.Load() {
			timer.Reset(s.delay)
			armed = true
		}
	}
}

// Drain ticks without sleeping until the subscriber stops and no dispatched
// work is outstanding, or until maxTicks ticks have run (zero means no
// limit). It returns the number of ticks run.
//
// Outstanding dispatched work is waited for before the next tick.
func (s *Scheduler) Drain(ctx context.Context, maxTicks int) (int, error) {
	if s.sub == nil {
		return 0, ErrNoSubscriber
	}
	n := 0
	for {
		s.flush()
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if s.inflight.Load() > 0 {
			select {
			case fn := <-s.posted:
				fn()
			case <-ctx.Done():
				return n, ctx.Err()
			}
			continue
		}
		if s.running.Load() {
			if maxTicks > 0 && n >= maxTicks {
				return n, nil
			}
			s.Step()
			n++
			continue
		}
		if s.inflight.Load() == 0 && len(s.posted) == 0 {
			return n, nil
		}
		select {
		case fn := <-s.posted:
			fn()
		case <-ctx.Done():
			return n, ctx.Err()
		}
	}
}

func (s *Scheduler) flush() {
	for {
		select {
		case fn := <-s.posted:
			fn()
		default:
			return
		}
	}
}
