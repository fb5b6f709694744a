// Package resilience guards calls to remote collaborators with a count-based
// circuit breaker and a fixed-delay retry policy.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/turtacn/perimeter/internal/config"
	"github.com/turtacn/perimeter/pkg/constants"
	"github.com/turtacn/perimeter/pkg/errors"
)

// State is the circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Settings configures a CircuitBreaker.
type Settings struct {
	// FailureRateThreshold is a percentage in (0, 100].
	FailureRateThreshold    float64
	WaitDurationInOpenState time.Duration
	SlidingWindowSize       int
	MinimumNumberOfCalls    int

	// Clock defaults to time.Now.
	Clock func() time.Time
	// OnStateChange is invoked after every transition, outside the breaker lock.
	OnStateChange func(name string, from, to State)
}

// DefaultSettings returns 50% / 30s / 10 / 5.
func DefaultSettings() Settings {
	return Settings{
		FailureRateThreshold:    constants.DefaultFailureRateThreshold,
		WaitDurationInOpenState: constants.DefaultWaitDurationInOpenState,
		SlidingWindowSize:       constants.DefaultSlidingWindowSize,
		MinimumNumberOfCalls:    constants.DefaultMinimumNumberOfCalls,
	}
}

// SettingsFromConfig converts the configuration surface into Settings.
func SettingsFromConfig(cfg config.CircuitBreakerConfig) Settings {
	return Settings{
		FailureRateThreshold:    cfg.FailureRateThreshold,
		WaitDurationInOpenState: time.Duration(cfg.WaitDurationInOpenState) * time.Second,
		SlidingWindowSize:       cfg.SlidingWindowSize,
		MinimumNumberOfCalls:    cfg.MinimumNumberOfCalls,
	}
}

func (s Settings) normalized() Settings {
	d := DefaultSettings()
	if s.FailureRateThreshold <= 0 || s.FailureRateThreshold > 100 {
		s.FailureRateThreshold = d.FailureRateThreshold
	}
	if s.WaitDurationInOpenState < 0 {
		s.WaitDurationInOpenState = d.WaitDurationInOpenState
	}
	if s.SlidingWindowSize <= 0 {
		s.SlidingWindowSize = d.SlidingWindowSize
	}
	if s.MinimumNumberOfCalls <= 0 {
		s.MinimumNumberOfCalls = d.MinimumNumberOfCalls
	}
	if s.MinimumNumberOfCalls > s.SlidingWindowSize {
		s.MinimumNumberOfCalls = s.SlidingWindowSize
	}
	if s.Clock == nil {
		s.Clock = time.Now
	}
	return s
}

// Snapshot is a point-in-time view of a breaker.
type Snapshot struct {
	Name        string    `json:"name"`
	State       State     `json:"state"`
	Calls       int       `json:"calls"`
	Failures    int       `json:"failures"`
	FailureRate float64   `json:"failure_rate"`
	OpenedAt    time.Time `json:"opened_at,omitempty"`
}

type transition struct {
	from, to State
}

// permit is handed out by acquire and returned to record or release.
type permit struct {
	generation uint64
	probe      bool
}

// CircuitBreaker tracks the outcomes of calls to one remote target.
// All state lives behind mu; the wrapped call itself runs unlocked.
type CircuitBreaker struct {
	name     string
	settings Settings

	mu       sync.Mutex
	state    State
	ring     []bool // true marks a failure
	next     int
	count    int
	failures int
	openedAt time.Time
	probing  bool
	// generation changes on every transition so that outcomes of calls admitted
	// under an earlier state are discarded.
	generation uint64
}

// NewCircuitBreaker creates a breaker in the CLOSED state.
func NewCircuitBreaker(name string, settings Settings) *CircuitBreaker {
	s := settings.normalized()
	return &CircuitBreaker{
		name:     name,
		settings: s,
		state:    StateClosed,
		ring:     make([]bool, s.SlidingWindowSize),
	}
}

// Name returns the remote target this breaker guards.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Execute runs call if the breaker admits it and records the outcome.
// A rejected call returns errors.ErrCallNotPermitted without invoking call.
// When ctx is already done after a failed call, the outcome is not recorded.
func (cb *CircuitBreaker) Execute(ctx context.Context, call func(context.Context) error) error {
	p, err := cb.acquire()
	if err != nil {
		return err
	}

	callErr := call(ctx)
	if callErr != nil && ctx.Err() != nil {
		cb.release(p)
		return callErr
	}
	cb.record(p, callErr == nil)
	return callErr
}

// State returns the current state, moving OPEN to HALF_OPEN once the wait has elapsed.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	ts := cb.expireOpenLocked(cb.settings.Clock())
	state := cb.state
	cb.mu.Unlock()

	cb.notify(ts)
	return state
}

// Snapshot returns the current counters.
func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mu.Lock()
	ts := cb.expireOpenLocked(cb.settings.Clock())
	snap := Snapshot{
		Name:        cb.name,
		State:       cb.state,
		Calls:       cb.count,
		Failures:    cb.failures,
		FailureRate: cb.failureRateLocked(),
		OpenedAt:    cb.openedAt,
	}
	cb.mu.Unlock()

	cb.notify(ts)
	return snap
}

func (cb *CircuitBreaker) acquire() (permit, error) {
	cb.mu.Lock()
	ts := cb.expireOpenLocked(cb.settings.Clock())

	var (
		p   permit
		err error
	)
	switch cb.state {
	case StateClosed:
		p = permit{generation: cb.generation}
	case StateHalfOpen:
		if cb.probing {
			err = errors.ErrCallNotPermitted.WithMessage("circuit breaker " + cb.name + " is half-open, probe in flight")
		} else {
			cb.probing = true
			p = permit{generation: cb.generation, probe: true}
		}
	default:
		err = errors.ErrCallNotPermitted.WithMessage("circuit breaker " + cb.name + " is open")
	}
	cb.mu.Unlock()

	cb.notify(ts)
	return p, err
}

func (cb *CircuitBreaker) record(p permit, success bool) {
	cb.mu.Lock()
	var ts []transition
	if p.generation == cb.generation {
		now := cb.settings.Clock()
		if p.probe {
			cb.probing = false
			if success {
				ts = append(ts, cb.toLocked(StateClosed, now))
			} else {
				ts = append(ts, cb.toLocked(StateOpen, now))
			}
		} else if cb.state == StateClosed {
			cb.pushLocked(!success)
			if cb.count >= cb.settings.MinimumNumberOfCalls &&
				cb.failureRateLocked() >= cb.settings.FailureRateThreshold {
				ts = append(ts, cb.toLocked(StateOpen, now))
			}
		}
	}
	cb.mu.Unlock()

	cb.notify(ts)
}

func (cb *CircuitBreaker) release(p permit) {
	if !p.probe {
		return
	}
	cb.mu.Lock()
	if p.generation == cb.generation {
		cb.probing = false
	}
	cb.mu.Unlock()
}

// pushLocked appends an outcome, evicting the oldest once the ring is full.
func (cb *CircuitBreaker) pushLocked(failure bool) {
	if cb.count == len(cb.ring) {
		if cb.ring[cb.next] {
			cb.failures--
		}
	} else {
		cb.count++
	}
	cb.ring[cb.next] = failure
	if failure {
		cb.failures++
	}
	cb.next = (cb.next + 1) % len(cb.ring)
}

func (cb *CircuitBreaker) failureRateLocked() float64 {
	if cb.count == 0 {
		return 0
	}
	return float64(cb.failures) * 100 / float64(cb.count)
}

func (cb *CircuitBreaker) expireOpenLocked(now time.Time) []transition {
	if cb.state == StateOpen && !now.Before(cb.openedAt.Add(cb.settings.WaitDurationInOpenState)) {
		return []transition{cb.toLocked(StateHalfOpen, now)}
	}
	return nil
}

func (cb *CircuitBreaker) toLocked(state State, now time.Time) transition {
	t := transition{from: cb.state, to: state}
	cb.state = state
	cb.generation++
	cb.probing = false
	switch state {
	case StateOpen:
		cb.openedAt = now
		cb.resetWindowLocked()
	case StateClosed:
		cb.resetWindowLocked()
	}
	return t
}

func (cb *CircuitBreaker) resetWindowLocked() {
	for i := range cb.ring {
		cb.ring[i] = false
	}
	cb.next, cb.count, cb.failures = 0, 0, 0
}

func (cb *CircuitBreaker) notify(ts []transition) {
	if cb.settings.OnStateChange == nil {
		return
	}
	for _, t := range ts {
		cb.settings.OnStateChange(cb.name, t.from, t.to)
	}
}
