package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/roster/internal/roster"
)

var (
	// ErrBufferFull is returned when events arrive faster than they can be published.
	ErrBufferFull = errors.New("event buffer full")

	// ErrNotifierClosed is returned by Notify after Close.
	ErrNotifierClosed = errors.New("notifier closed")
)

// Consecutive failed publishes before the breaker opens.
const breakerThreshold = 5

// ResilientConfig tunes the background publisher.
type ResilientConfig struct {
	// Buffer is the number of events held while the broker is slow.
	Buffer int

	// MaxAttempts per event, including the first.
	MaxAttempts int

	InitialDelay time.Duration
	MaxDelay     time.Duration

	// PublishTimeout bounds one event across all of its attempts.
	PublishTimeout time.Duration

	// BreakerTimeout is how long the breaker stays open before probing.
	BreakerTimeout time.Duration
}

// DefaultResilientConfig returns defaults suited to a local broker.
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		Buffer:         256,
		MaxAttempts:    3,
		InitialDelay:   200 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		PublishTimeout: 15 * time.Second,
		BreakerTimeout: 30 * time.Second,
	}
}

// ResilientNotifier hands events to a background goroutine that publishes
// them through a circuit breaker and retry policy. Notify never blocks the
// caller on the broker.
type ResilientNotifier struct {
	next    roster.Notifier
	breaker circuitbreaker.CircuitBreaker[struct{}]
	retrier retry.Retry[struct{}]
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	events chan roster.Event
	done   chan struct{}

	published atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// NewResilientNotifier starts a publisher that delivers events to next.
func NewResilientNotifier(next roster.Notifier, cfg ResilientConfig) *ResilientNotifier {
	def := DefaultResilientConfig()
	if cfg.Buffer <= 0 {
		cfg.Buffer = def.Buffer
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = def.InitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = def.PublishTimeout
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = def.BreakerTimeout
	}

	n := &ResilientNotifier{
		next:    next,
		timeout: cfg.PublishTimeout,
		events:  make(chan roster.Event, cfg.Buffer),
		done:    make(chan struct{}),
	}

	n.breaker = circuitbreaker.New[struct{}](circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerThreshold
		},
		OnStateChange: func(from, to circuitbreaker.State) {
			slog.Warn("event publisher circuit breaker state change",
				"from", from.String(),
				"to", to.String())
		},
	})

	n.retrier = retry.New[struct{}](retry.Config{
		MaxAttempts:   cfg.MaxAttempts,
		InitialDelay:  cfg.InitialDelay,
		MaxDelay:      cfg.MaxDelay,
		Multiplier:    2.0,
		BackoffPolicy: retry.BackoffExponential,
		Jitter:        true,
		IsRetryable: func(err error) bool {
			return !errors.Is(err, context.Canceled)
		},
	})

	go n.run()
	return n
}

// Notify queues event for delivery.
func (n *ResilientNotifier) Notify(ctx context.Context, event roster.Event) error {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		return ErrNotifierClosed
	}
	select {
	case n.events <- event:
		return nil
	default:
		n.dropped.Add(1)
		return ErrBufferFull
	}
}

// Close stops accepting events, delivers what is queued and waits for the
// background goroutine.
func (n *ResilientNotifier) Close() {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.events)
	}
	n.mu.Unlock()
	<-n.done
}

// Stats reports delivery counters.
func (n *ResilientNotifier) Stats() (published, failed, dropped int64) {
	return n.published.Load(), n.failed.Load(), n.dropped.Load()
}

func (n *ResilientNotifier) run() {
	defer close(n.done)
	for event := range n.events {
		n.publish(event)
	}
}

func (n *ResilientNotifier) publish(event roster.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	_, err := n.breaker.Execute(ctx, func(ctx context.Context) (struct{}, error) {
		return n.retrier.Do(ctx, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, n.next.Notify(ctx, event)
		})
	})
	if err != nil {
		n.failed.Add(1)
		slog.Warn("roster event dropped",
			"type", event.Type,
			"student_id", event.Student.ID,
			"error", err)
		return
	}
	n.published.Add(1)
}

var _ roster.Notifier = (*ResilientNotifier)(nil)
