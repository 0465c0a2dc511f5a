package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/extension-relay/internal/domain/command"
	"github.com/GriffinCanCode/extension-relay/internal/domain/correlator"
	"github.com/GriffinCanCode/extension-relay/internal/domain/peer"
	"github.com/GriffinCanCode/extension-relay/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/extension-relay/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/extension-relay/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/extension-relay/internal/shared/types"
)

// NavigateCommand is the only command retried by the executor
const NavigateCommand = "navigate"

// Config holds executor limits
type Config struct {
	DefaultTimeout time.Duration
	MinTimeout     time.Duration
	MaxTimeout     time.Duration

	NavigateAttempts   int
	NavigateRetryDelay time.Duration

	ElementPollInterval time.Duration
	ElementWaitMax      time.Duration

	BreakerEnabled   bool
	BreakerThreshold uint32
	BreakerCooldown  time.Duration
}

// DefaultConfig returns the standard executor limits
func DefaultConfig() Config {
	return Config{
		DefaultTimeout:      10 * time.Second,
		MinTimeout:          time.Second,
		MaxTimeout:          60 * time.Second,
		NavigateAttempts:    3,
		NavigateRetryDelay:  time.Second,
		ElementPollInterval: 500 * time.Millisecond,
		ElementWaitMax:      10 * time.Second,
		BreakerEnabled:      false,
		BreakerThreshold:    5,
		BreakerCooldown:     30 * time.Second,
	}
}

// Executor is the caller-facing execution facade. It resolves commands from
// the catalog, dispatches through the live peer session, and waits on the
// correlator for the result.
type Executor struct {
	catalog *command.Catalog
	hub     *peer.Hub
	corr    *correlator.Correlator
	history *History
	breaker *resilience.Breaker
	cfg     Config
	clock   clockwork.Clock
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewExecutor creates an executor
func NewExecutor(catalog *command.Catalog, hub *peer.Hub, corr *correlator.Correlator, history *History, cfg Config, clock clockwork.Clock, logger *zap.Logger) *Executor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if history == nil {
		history = NewHistory(DefaultHistorySize, clock)
	}
	defaults := DefaultConfig()
	if cfg.MinTimeout <= 0 {
		cfg.MinTimeout = defaults.MinTimeout
	}
	if cfg.MaxTimeout < cfg.MinTimeout {
		cfg.MaxTimeout = defaults.MaxTimeout
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = defaults.DefaultTimeout
	}
	if cfg.NavigateAttempts < 1 {
		cfg.NavigateAttempts = 1
	}
	if cfg.ElementPollInterval <= 0 {
		cfg.ElementPollInterval = defaults.ElementPollInterval
	}

	e := &Executor{
		catalog: catalog,
		hub:     hub,
		corr:    corr,
		history: history,
		cfg:     cfg,
		clock:   clock,
		logger:  logger,
	}
	if cfg.BreakerEnabled {
		e.breaker = resilience.New(resilience.Settings{
			Threshold: cfg.BreakerThreshold,
			Cooldown:  cfg.BreakerCooldown,
			IsFailure: func(err error) bool { return errors.Is(err, types.ErrTimeout) },
			OnStateChange: func(from, to resilience.State) {
				e.logger.Warn("Dispatch breaker state change",
					zap.Stringer("from", from),
					zap.Stringer("to", to))
				e.metrics.SetBreakerState(int(to))
			},
			Clock: clock,
		})
	}
	return e
}

// WithMetrics adds metrics tracking to the executor
func (e *Executor) WithMetrics(metrics *monitoring.Metrics) *Executor {
	e.metrics = metrics
	return e
}

// History returns the execution history
func (e *Executor) History() *History {
	return e.history
}

// Catalog returns the command catalog
func (e *Executor) Catalog() *command.Catalog {
	return e.catalog
}

// Config returns the effective limits
func (e *Executor) Config() Config {
	return e.cfg
}

// ClampTimeout bounds timeout to the allowed range. Zero selects the default.
func (e *Executor) ClampTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		timeout = e.cfg.DefaultTimeout
	}
	if timeout < e.cfg.MinTimeout {
		return e.cfg.MinTimeout
	}
	if timeout > e.cfg.MaxTimeout {
		return e.cfg.MaxTimeout
	}
	return timeout
}

// ResolveTimeout turns an optional caller timeout in whole seconds into a
// duration. Nil selects the default; values outside the configured range
// are rejected.
func (e *Executor) ResolveTimeout(seconds *int) (time.Duration, error) {
	if seconds == nil {
		return e.cfg.DefaultTimeout, nil
	}
	minSec, maxSec := int(e.cfg.MinTimeout/time.Second), int(e.cfg.MaxTimeout/time.Second)
	if *seconds < minSec || *seconds > maxSec {
		return 0, types.InvalidParams("Timeout must be between %d and %d seconds", minSec, maxSec)
	}
	return time.Duration(*seconds) * time.Second, nil
}

// Run serves one caller request: it checks the timeout range, optionally
// waits for the target element, and executes the command.
func (e *Executor) Run(ctx context.Context, req types.ExecuteRequest) (interface{}, error) {
	timeout, err := e.ResolveTimeout(req.Timeout)
	if err != nil {
		return nil, err
	}
	if req.WaitForElement {
		return e.ActOnElement(ctx, req.Command, req.Params, timeout, e.cfg.ElementWaitMax)
	}
	return e.Execute(ctx, req.Command, req.Params, timeout)
}

// Execute runs the named command and returns the peer's result. Parameters
// are validated before anything is sent; navigate is retried, every other
// command is attempted once.
func (e *Executor) Execute(ctx context.Context, name string, params map[string]interface{}, timeout time.Duration) (interface{}, error) {
	return e.execute(ctx, name, params, timeout, true)
}

// execute is Execute with the breaker optional. Element lookups bypass it
// since a missing element times out without the peer being stuck.
func (e *Executor) execute(ctx context.Context, name string, params map[string]interface{}, timeout time.Duration, guarded bool) (interface{}, error) {
	if params == nil {
		params = map[string]interface{}{}
	}
	if err := e.catalog.Validate(name, params); err != nil {
		return nil, err
	}
	timeout = e.ClampTimeout(timeout)

	logger := e.logger.With(zap.String("command", name))
	if traceID := tracing.GetTraceID(ctx); traceID != "" {
		logger = logger.With(zap.String("trace_id", string(traceID)))
	}

	attempts := 1
	if name == NavigateCommand {
		attempts = e.cfg.NavigateAttempts
	}
	policy := resilience.Policy{
		MaxAttempts: attempts,
		Delay:       e.cfg.NavigateRetryDelay,
		Clock:       e.clock,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			e.metrics.RecordRetry(name)
			logger.Warn("Retrying command",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err))
		},
	}

	seq := e.history.Start(name, params)
	timer := monitoring.NewTimer(e.metrics, name)
	var lastID string

	value, err := resilience.Do(ctx, policy, classify, func(int) (interface{}, error) {
		v, cid, err := e.attempt(ctx, name, params, timeout, guarded)
		if cid != "" {
			lastID = cid
		}
		return v, err
	})

	elapsed := timer.Stop(types.ErrorKind(err))
	e.history.Finish(seq, lastID, err, elapsed)

	if err != nil {
		logger.Info("Command failed",
			zap.String("command_id", lastID),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return nil, err
	}
	logger.Debug("Command completed",
		zap.String("command_id", lastID),
		zap.Duration("elapsed", elapsed))
	return value, nil
}

// attempt performs one dispatch and wait. The pending entry and result slot
// are removed on every exit path.
func (e *Executor) attempt(ctx context.Context, name string, params map[string]interface{}, timeout time.Duration, guarded bool) (interface{}, string, error) {
	var cid string
	run := func() (interface{}, error) {
		session, err := e.hub.Active()
		if err != nil {
			return nil, err
		}
		cid, err = session.Dispatch(name, params)
		if err != nil {
			return nil, err
		}
		defer func() {
			session.RemovePending(cid)
			e.corr.Remove(cid)
		}()
		return e.corr.Await(ctx, cid, timeout)
	}

	if e.breaker == nil || !guarded {
		v, err := run()
		return v, cid, err
	}

	v, err := e.breaker.Execute(run)
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return nil, cid, fmt.Errorf("dispatch paused after %d consecutive timeouts: %w", e.cfg.BreakerThreshold, err)
	}
	return v, cid, err
}

// classify stops on errors a retry cannot fix
func classify(err error) resilience.Action {
	switch {
	case errors.Is(err, types.ErrInvalidParameters),
		errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrDisconnected),
		errors.Is(err, resilience.ErrCircuitOpen),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return resilience.Stop
	}
	return resilience.Retry
}

// Submit runs a request through Run and folds the outcome into the
// caller-facing shape. timeoutSeconds must lie within the configured range.
func (e *Executor) Submit(ctx context.Context, name string, params map[string]interface{}, timeoutSeconds int) types.Outcome {
	value, err := e.Run(ctx, types.ExecuteRequest{Command: name, Params: params, Timeout: &timeoutSeconds})
	if err != nil {
		return types.Outcome{Status: types.StatusError, Message: err.Error()}
	}
	return types.Outcome{Status: types.StatusSuccess, Result: value}
}

// ListCommands returns catalog entries, optionally filtered by category,
// annotated with execution statistics.
func (e *Executor) ListCommands(category command.Category) []types.CommandInfo {
	descs := e.catalog.List(category)
	stats := e.history.Stats("", time.Time{})
	last := e.history.LastExecution()

	out := make([]types.CommandInfo, 0, len(descs))
	for i := range descs {
		info := descs[i].Info()
		if s, ok := stats[info.Name]; ok {
			s := s
			info.Stats = &s
		}
		if ts, ok := last[info.Name]; ok {
			formatted := ts.Format(time.RFC3339)
			info.LastExecution = &formatted
		}
		out = append(out, info)
	}
	return out
}
