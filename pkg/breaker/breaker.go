package breaker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/klappy/translation-helps-core/errors"
	"github.com/klappy/translation-helps-core/metric"
)

// State represents the circuit breaker state
type State int32

// Possible breaker states
const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time view of breaker state for diagnostics
type Snapshot struct {
	Name            string    `json:"name"`
	State           string    `json:"state"`
	FailureCount    int32     `json:"failure_count"`
	LastFailureTime time.Time `json:"last_failure_time,omitempty"`
	NextAttemptTime time.Time `json:"next_attempt_time,omitempty"`
}

// Breaker is a circuit breaker guarding one named external dependency.
// Safe for concurrent use.
type Breaker struct {
	name string

	failureThreshold int32
	resetTimeout     time.Duration
	callTimeout      time.Duration

	state       atomic.Int32
	failures    atomic.Int32
	lastFailure atomic.Int64 // unix nanos, 0 = never
	nextAttempt atomic.Int64 // unix nanos

	now func() time.Time

	stateGauge  prometheus.Gauge
	transitions *prometheus.CounterVec
}

// Option configures a Breaker
type Option func(*Breaker)

// WithFailureThreshold sets the consecutive-failure count that opens the circuit
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = int32(n)
		}
	}
}

// WithResetTimeout sets the cooldown before an open circuit allows a probe
func WithResetTimeout(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.resetTimeout = d
		}
	}
}

// WithCallTimeout races each wrapped call against a timer; expiry counts as
// failure and the call is abandoned. Zero disables the per-call timeout.
func WithCallTimeout(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.callTimeout = d
		}
	}
}

// WithClock injects a clock, used by tests to control cooldown expiry
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

// WithMetrics exposes breaker state and transition counts through the registry
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(b *Breaker) {
		if registry == nil {
			return
		}
		gauge := prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "breaker_state",
			Help:        "Circuit breaker state (0=closed, 1=open, 2=half-open)",
			ConstLabels: prometheus.Labels{"dependency": b.name},
		})
		transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "breaker_transitions_total",
			Help:        "Circuit breaker state transitions",
			ConstLabels: prometheus.Labels{"dependency": b.name},
		}, []string{"to"})
		if err := registry.RegisterGauge("breaker", b.name+"_state", gauge); err == nil {
			b.stateGauge = gauge
		}
		if err := registry.RegisterCounterVec("breaker", b.name+"_transitions_total", transitions); err == nil {
			b.transitions = transitions
		}
	}
}

// New creates a circuit breaker for the named dependency
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		failureThreshold: 5,
		resetTimeout:     30 * time.Second,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.state.Store(int32(StateClosed))
	return b
}

// Name returns the dependency name this breaker guards
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current breaker state
func (b *Breaker) State() State {
	return State(b.state.Load())
}

// Snapshot returns a diagnostic view of the breaker
func (b *Breaker) Snapshot() Snapshot {
	snap := Snapshot{
		Name:         b.name,
		State:        b.State().String(),
		FailureCount: b.failures.Load(),
	}
	if ns := b.lastFailure.Load(); ns != 0 {
		snap.LastFailureTime = time.Unix(0, ns)
	}
	if ns := b.nextAttempt.Load(); ns != 0 {
		snap.NextAttemptTime = time.Unix(0, ns)
	}
	return snap
}

// Execute runs fn through the breaker. While open it fails fast with
// errors.ErrCircuitOpen without invoking fn.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	halfOpen, err := b.admit()
	if err != nil {
		return err
	}

	callErr := b.invoke(ctx, fn)
	if callErr != nil {
		b.recordFailure(halfOpen)
		return callErr
	}

	b.recordSuccess(halfOpen)
	return nil
}

// admit decides whether a call may proceed. Returns true when the caller won
// the half-open probe slot.
func (b *Breaker) admit() (bool, error) {
	switch b.State() {
	case StateClosed:
		return false, nil
	case StateHalfOpen:
		// A probe is already in flight; reject until it settles.
		return false, errors.WrapTransient(errors.ErrCircuitOpen, "Breaker", "Execute", b.name+" probe in flight")
	case StateOpen:
		if b.now().UnixNano() < b.nextAttempt.Load() {
			return false, errors.WrapTransient(errors.ErrCircuitOpen, "Breaker", "Execute", b.name+" cooling down")
		}
		// Cooldown elapsed: exactly one caller wins the probe.
		if b.transition(StateOpen, StateHalfOpen) {
			return true, nil
		}
		return false, errors.WrapTransient(errors.ErrCircuitOpen, "Breaker", "Execute", b.name+" probe in flight")
	}
	return false, nil
}

// invoke runs fn, racing it against the per-call timeout when configured.
// On expiry the call is abandoned at the network layer via context cancel.
func (b *Breaker) invoke(ctx context.Context, fn func(context.Context) error) error {
	if b.callTimeout <= 0 {
		return fn(ctx)
	}

	callCtx, cancel := context.WithTimeout(ctx, b.callTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(callCtx)
	}()

	select {
	case err := <-done:
		return err
	case <-callCtx.Done():
		return errors.WrapTransient(callCtx.Err(), "Breaker", "invoke", b.name+" call timeout")
	}
}

func (b *Breaker) recordSuccess(halfOpen bool) {
	if halfOpen {
		// Probe succeeded: close and reset.
		b.transition(StateHalfOpen, StateClosed)
		b.failures.Store(0)
		return
	}

	// Let isolated blips heal without a full reset.
	for {
		n := b.failures.Load()
		if n <= 0 {
			return
		}
		if b.failures.CompareAndSwap(n, n-1) {
			return
		}
	}
}

func (b *Breaker) recordFailure(halfOpen bool) {
	now := b.now()
	b.lastFailure.Store(now.UnixNano())
	failures := b.failures.Add(1)

	if halfOpen {
		// Probe failed: back to open, restart cooldown.
		b.nextAttempt.Store(now.Add(b.resetTimeout).UnixNano())
		b.transition(StateHalfOpen, StateOpen)
		return
	}

	if failures >= b.failureThreshold {
		// Set the cooldown before publishing the state so a concurrent
		// admit() cannot observe an open circuit with a stale deadline.
		b.nextAttempt.Store(now.Add(b.resetTimeout).UnixNano())
		b.transition(StateClosed, StateOpen)
	}
}

// transition performs a CAS state change and records it in metrics
func (b *Breaker) transition(from, to State) bool {
	if !b.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	if b.stateGauge != nil {
		b.stateGauge.Set(float64(to))
	}
	if b.transitions != nil {
		b.transitions.WithLabelValues(to.String()).Inc()
	}
	return true
}
