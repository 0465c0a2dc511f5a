/*
Package resilience provides the circuit breaker and retry helpers used
around command dispatch.

# Circuit Breaker

A three-state breaker (Closed, Open, Half-Open). IsFailure decides which
errors extend the failure run; the relay counts only timeouts, since a peer
that answers with a script error is still responsive. After the cooldown a
single probe call is admitted and its outcome closes or reopens the breaker.

	breaker := resilience.New(resilience.Settings{
		Threshold: 5,
		Cooldown:  30 * time.Second,
		IsFailure: func(err error) bool { return errors.Is(err, types.ErrTimeout) },
	})

	result, err := breaker.Execute(func() (interface{}, error) {
		return roundTrip()
	})

	Closed --[failures]-> Open --[cooldown]-> Half-Open --[probe ok]-> Closed
	                                            |
	                                        [failure]
	                                            v
	                                          Open

# Retry

Do runs an operation up to MaxAttempts times with a fixed (or growing)
delay between attempts. A Classify func stops early on permanent errors.

	val, err := resilience.Do(ctx, resilience.Policy{MaxAttempts: 3, Delay: time.Second},
		classify, func(attempt int) (interface{}, error) { return navigate() })
*/
package resilience
