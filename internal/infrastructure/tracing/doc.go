/*
Package tracing provides lightweight request tracing for the relay's HTTP
surface.

Every HTTP request gets a span. The trace id is taken from the X-Trace-ID
header when present and generated otherwise; it is echoed back on the
response and carried in the request context so the execution facade can tag
its log lines with it.

# Usage

	tracer := tracing.New("relay", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	// Manual span creation
	span, ctx := tracer.StartSpan(ctx, "operation")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()

Completed spans are buffered (1000) and logged asynchronously. When the
buffer is full spans are dropped with a warning.
*/
package tracing
