package correlator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/extension-relay/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/extension-relay/internal/shared/types"
)

// Defaults
const (
	DefaultRetention     = 5 * time.Minute
	DefaultSweepInterval = time.Minute
)

// Outcome is the value written into a result slot: either a peer result or
// an error from the taxonomy in shared/types.
type Outcome struct {
	Value interface{}
	Err   error
}

type slot struct {
	outcome     Outcome
	createdAt   time.Time
	fulfilledAt time.Time
	fulfilled   bool
	done        chan struct{}
}

// Correlator maps correlation ids to result slots. The session's receive
// path writes, blocked callers wait on a per-slot channel.
type Correlator struct {
	mu        sync.Mutex
	slots     map[string]*slot
	clock     clockwork.Clock
	retention time.Duration
	logger    *zap.Logger
	metrics   *monitoring.Metrics
}

// New creates a correlator with the given retention window
func New(clock clockwork.Clock, retention time.Duration, logger *zap.Logger) *Correlator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Correlator{
		slots:     make(map[string]*slot),
		clock:     clock,
		retention: retention,
		logger:    logger,
	}
}

// WithMetrics adds metrics tracking to the correlator
func (c *Correlator) WithMetrics(metrics *monitoring.Metrics) *Correlator {
	c.metrics = metrics
	return c
}

// Create allocates an empty slot. It fails if id is already live.
func (c *Correlator) Create(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.slots[id]; exists {
		return fmt.Errorf("result slot %s already exists", id)
	}
	c.slots[id] = &slot{createdAt: c.clock.Now(), done: make(chan struct{})}
	c.metrics.SetResultSlots(len(c.slots))
	return nil
}

// Fulfill writes the outcome for id and wakes any waiter. A later write
// overwrites the stored outcome. It reports false when no slot exists; a
// result for an evicted or unknown id is dropped rather than recreated.
func (c *Correlator) Fulfill(id string, outcome Outcome) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.slots[id]
	if !ok {
		return false
	}
	s.outcome = outcome
	s.fulfilledAt = c.clock.Now()
	if !s.fulfilled {
		s.fulfilled = true
		close(s.done)
	}
	return true
}

// Await blocks until id is fulfilled, the timeout elapses, or ctx is done.
// It returns the peer value, the stored error, ErrTimeout, or ErrNotFound
// for an absent slot. Await does not remove the slot.
func (c *Correlator) Await(ctx context.Context, id string, timeout time.Duration) (interface{}, error) {
	c.mu.Lock()
	s, ok := c.slots[id]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("result slot %s: %w", id, types.ErrNotFound)
	}

	timer := c.clock.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.done:
	case <-timer.Chan():
		return nil, fmt.Errorf("no result for %s within %s: %w", id, timeout, types.ErrTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	c.mu.Lock()
	outcome := s.outcome
	c.mu.Unlock()
	return outcome.Value, outcome.Err
}

// Peek returns the current outcome of id without blocking.
func (c *Correlator) Peek(id string) (Outcome, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.slots[id]
	if !ok {
		return Outcome{}, false, fmt.Errorf("result slot %s: %w", id, types.ErrNotFound)
	}
	return s.outcome, s.fulfilled, nil
}

// Remove evicts the slot for id. It reports whether a slot was removed.
func (c *Correlator) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.slots[id]; !ok {
		return false
	}
	delete(c.slots, id)
	c.metrics.SetResultSlots(len(c.slots))
	return true
}

// Len returns the number of live slots
func (c *Correlator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots)
}

// Sweep evicts slots older than the retention window. Unfulfilled slots are
// failed with ErrTimeout first so a lingering waiter is released.
func (c *Correlator) Sweep() int {
	now := c.clock.Now()

	c.mu.Lock()
	evicted := 0
	for id, s := range c.slots {
		if now.Sub(s.createdAt) < c.retention {
			continue
		}
		if !s.fulfilled {
			s.outcome = Outcome{Err: fmt.Errorf("result slot %s exceeded retention: %w", id, types.ErrTimeout)}
			s.fulfilled = true
			close(s.done)
		}
		delete(c.slots, id)
		evicted++
	}
	remaining := len(c.slots)
	c.mu.Unlock()

	if evicted > 0 {
		c.logger.Debug("Evicted result slots",
			zap.Int("evicted", evicted),
			zap.Int("remaining", remaining))
	}
	c.metrics.SetResultSlots(remaining)
	c.metrics.RecordEviction(monitoring.EvictSlotRetention, evicted)
	return evicted
}

// Run sweeps on every interval tick until ctx is done.
func (c *Correlator) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := c.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			c.Sweep()
		}
	}
}
