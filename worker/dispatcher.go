// Package worker runs user-triggered actions on background goroutines
// and feeds their progress back through a single bounded event channel,
// keeping slow retrieval and generation work off the caller's thread.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

// ErrDispatcherClosed is returned when submitting to a released dispatcher.
var ErrDispatcherClosed = errors.New("dispatcher closed")

// State describes the dispatcher-visible phase of a background action.
type State int

const (
	// StateIdle means no background action is running.
	StateIdle State = iota
	// StateSearching means a retrieval action is in flight.
	StateSearching
	// StateGenerating means an answer is being generated.
	StateGenerating
	// StateError means the last action failed.
	StateError
)

func (s State) String() string {
	switch s {
	case StateSearching:
		return "searching"
	case StateGenerating:
		return "generating"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// Event is a tagged message produced by a background job. Each variant
// is an explicit type; consumers switch on the concrete type instead of
// parsing string conventions.
type Event interface {
	isEvent()
}

// LogEvent carries a log line destined for the user-facing surface.
type LogEvent struct {
	Level   slog.Level
	Message string
	Time    time.Time
}

// ChatTurnEvent carries a completed conversation turn.
type ChatTurnEvent struct {
	SessionID string
	Query     string
	Response  string
	Time      time.Time
}

// StateChangeEvent signals a phase transition of a background action.
type StateChangeEvent struct {
	State  State
	Detail string
	Time   time.Time
}

func (LogEvent) isEvent()         {}
func (ChatTurnEvent) isEvent()    {}
func (StateChangeEvent) isEvent() {}

// Dispatcher schedules background jobs on a worker pool and exposes
// their events on a bounded channel drained by a single consumer.
// Results arrive in completion order, not submission order.
type Dispatcher struct {
	pool   *ants.Pool
	events chan Event
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	once   sync.Once
}

// Option configures a Dispatcher.
type Option func(*dispatcherConfig) error

type dispatcherConfig struct {
	poolSize  int
	queueSize int
	logger    *slog.Logger
}

// WithPoolSize sets the worker pool size.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(c *dispatcherConfig) error {
		if size < 1 {
			size = 1
		}
		c.poolSize = size
		return nil
	}
}

// WithQueueSize bounds the event channel.
// Default is 256; events beyond the bound are dropped with a warning.
func WithQueueSize(size int) Option {
	return func(c *dispatcherConfig) error {
		if size < 1 {
			return errors.New("queue size must be positive")
		}
		c.queueSize = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *dispatcherConfig) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewDispatcher creates a dispatcher with its worker pool.
func NewDispatcher(opts ...Option) (*Dispatcher, error) {
	cfg := &dispatcherConfig{
		poolSize:  runtime.NumCPU() / 2,
		queueSize: 256,
		logger:    slog.Default(),
	}
	if cfg.poolSize < 1 {
		cfg.poolSize = 1
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	pool, err := ants.NewPool(cfg.poolSize)
	if err != nil {
		return nil, err
	}

	return &Dispatcher{
		pool:   pool,
		events: make(chan Event, cfg.queueSize),
		logger: cfg.logger,
	}, nil
}

// Submit schedules a job on the pool. The job publishes progress through
// emit; published events surface on Events.
func (d *Dispatcher) Submit(job func(emit func(Event))) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	d.mu.Unlock()

	return d.pool.Submit(func() {
		job(d.publish)
	})
}

// Events returns the channel the single consumer drains. The channel is
// closed by Release.
func (d *Dispatcher) Events() <-chan Event {
	return d.events
}

// Run drains events into handler until the context is cancelled or the
// dispatcher is released.
func (d *Dispatcher) Run(ctx context.Context, handler func(Event)) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-d.events:
			if !ok {
				return
			}
			handler(event)
		}
	}
}

// publish delivers an event without blocking the producing job. When the
// queue is full the event is dropped; consumers treat the stream as
// eventually consistent.
func (d *Dispatcher) publish(event Event) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	defer d.mu.Unlock()

	select {
	case d.events <- event:
	default:
		d.logger.Warn("event queue full, dropping event")
	}
}

// Release stops accepting jobs, waits briefly for running ones and
// closes the event channel. The dispatcher must not be used afterwards.
func (d *Dispatcher) Release() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()

		if err := d.pool.ReleaseTimeout(5 * time.Second); err != nil {
			d.logger.Warn("worker pool did not drain in time", "err", err)
		}
		close(d.events)
	})
}
