package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrCircuitOpen is returned without running the call while the breaker
// rejects traffic.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures a Breaker
type Settings struct {
	// Threshold is the run of consecutive failures that opens the breaker
	Threshold uint32
	// Cooldown is how long the breaker stays open before one probe call is let through
	Cooldown time.Duration
	// IsFailure decides which errors extend the failure run. Anything it
	// rejects resets the run. Defaults to every non-nil error.
	IsFailure func(err error) bool
	// OnStateChange runs after each transition, outside the breaker lock
	OnStateChange func(from, to State)
	Clock         clockwork.Clock
}

// Breaker fails fast after a run of consecutive failures, then admits a
// single probe once the cooldown has passed. A successful probe closes it.
type Breaker struct {
	settings Settings

	mu       sync.Mutex
	state    State
	failures uint32
	openedAt time.Time
	probing  bool
}

type transition struct{ from, to State }

// New creates a closed breaker
func New(settings Settings) *Breaker {
	if settings.Threshold == 0 {
		settings.Threshold = 5
	}
	if settings.Cooldown <= 0 {
		settings.Cooldown = 30 * time.Second
	}
	if settings.IsFailure == nil {
		settings.IsFailure = func(err error) bool { return err != nil }
	}
	if settings.Clock == nil {
		settings.Clock = clockwork.NewRealClock()
	}
	return &Breaker{settings: settings}
}

// State returns the current state. An open breaker whose cooldown has
// elapsed reports half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	changed := b.refreshLocked()
	state := b.state
	b.mu.Unlock()

	b.notify(changed)
	return state
}

// ConsecutiveFailures returns the current failure run
func (b *Breaker) ConsecutiveFailures() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Execute runs req unless the breaker is open or a half-open probe is
// already in flight, in which case it returns ErrCircuitOpen.
func (b *Breaker) Execute(req func() (interface{}, error)) (interface{}, error) {
	if err := b.admit(); err != nil {
		return nil, err
	}

	defer func() {
		if e := recover(); e != nil {
			b.record(true)
			panic(e)
		}
	}()

	result, err := req()
	b.record(b.settings.IsFailure(err))
	return result, err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	changed := b.refreshLocked()
	var err error
	switch b.state {
	case StateOpen:
		err = ErrCircuitOpen
	case StateHalfOpen:
		if b.probing {
			err = ErrCircuitOpen
		} else {
			b.probing = true
		}
	}
	b.mu.Unlock()

	b.notify(changed)
	return err
}

func (b *Breaker) record(failed bool) {
	b.mu.Lock()
	var changed []transition
	switch b.state {
	case StateClosed:
		if !failed {
			b.failures = 0
			break
		}
		b.failures++
		if b.failures >= b.settings.Threshold {
			changed = append(changed, b.setLocked(StateOpen))
		}
	case StateHalfOpen:
		b.probing = false
		if failed {
			changed = append(changed, b.setLocked(StateOpen))
		} else {
			changed = append(changed, b.setLocked(StateClosed))
		}
	}
	// A call admitted while closed can finish after another one opened the
	// breaker; its outcome no longer matters.
	b.mu.Unlock()

	b.notify(changed)
}

func (b *Breaker) refreshLocked() []transition {
	if b.state == StateOpen && !b.settings.Clock.Now().Before(b.openedAt.Add(b.settings.Cooldown)) {
		return []transition{b.setLocked(StateHalfOpen)}
	}
	return nil
}

func (b *Breaker) setLocked(to State) transition {
	t := transition{from: b.state, to: to}
	b.state = to
	switch to {
	case StateOpen:
		b.openedAt = b.settings.Clock.Now()
	case StateClosed:
		b.failures = 0
	}
	return t
}

func (b *Breaker) notify(changed []transition) {
	if b.settings.OnStateChange == nil {
		return
	}
	for _, t := range changed {
		b.settings.OnStateChange(t.from, t.to)
	}
}
