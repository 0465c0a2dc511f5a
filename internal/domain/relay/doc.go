/*
Package relay is the caller-facing execution facade.

An Executor turns "run command X with parameters P" into a result:

 1. the catalog validates P against X's descriptor (nothing is sent on
    failure)
 2. the hub's active session dispatches the command and registers a result
    slot under a fresh correlation id
 3. the correlator wakes the caller when the peer's result or error arrives,
    or reports a timeout
 4. the pending entry and result slot are removed whatever the outcome

navigate is retried (three attempts, one second apart by default); every
other command is attempted once. An optional breaker (off by default) fails
fast with resilience.ErrCircuitOpen after a run of timeouts until the
cooldown elapses. Element lookups never count toward it.

Run serves caller requests: it checks the timeout range and, when asked,
waits for the target element before executing. Submit folds Run's result
into a types.Outcome.

# Usage

	exec := relay.NewExecutor(catalog, hub, corr, relay.NewHistory(1000, nil),
		relay.DefaultConfig(), nil, logger).WithMetrics(metrics)

	title, err := exec.Execute(ctx, "getTitle", nil, 5*time.Second)
	switch {
	case errors.Is(err, types.ErrTimeout):
	case errors.Is(err, types.ErrDisconnected):
	}

History keeps the most recent executions in memory along with per-command
statistics (counts, mean and p95 execution time).
*/
package relay
