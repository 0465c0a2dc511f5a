// Package correlator implements the response correlator: a table from
// correlation id to result slot shared by the peer session (writer) and
// blocked callers (readers).
//
// Each slot owns a channel closed on first fulfillment, so waiters wake
// without polling. A retention sweep bounds growth from slots whose caller
// never came back.
//
// Example Usage:
//
//	corr := correlator.New(clockwork.NewRealClock(), 5*time.Minute, logger)
//	go corr.Run(ctx, time.Minute)
//
//	_ = corr.Create(id)
//	defer corr.Remove(id)
//	value, err := corr.Await(ctx, id, 10*time.Second)
package correlator
