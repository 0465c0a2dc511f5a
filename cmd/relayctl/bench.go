package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"gonum.org/v1/gonum/stat"

	"github.com/GriffinCanCode/extension-relay/internal/client"
)

type benchResult struct {
	duration time.Duration
	err      error
}

type benchReport struct {
	Total     int
	Succeeded int
	Failed    int
	Elapsed   time.Duration
	Mean      time.Duration
	P50       time.Duration
	P95       time.Duration
	P99       time.Duration
	Max       time.Duration
}

func runBench(ctx context.Context, c *client.Client, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	fs.SetOutput(stderr)
	requests := fs.Int("n", 100, "total number of requests")
	workers := fs.Int("workers", 4, "concurrent workers")
	rawParams := fs.String("params", "", "JSON object of parameters")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}
	if fs.NArg() != 1 {
		return usageError{"expected exactly one command name"}
	}
	if *requests < 1 || *workers < 1 {
		return usageError{"-n and -workers must be positive"}
	}

	params := map[string]interface{}{}
	if *rawParams != "" {
		if err := sonic.UnmarshalString(*rawParams, &params); err != nil {
			return usageError{fmt.Sprintf("invalid -params: %v", err)}
		}
	}

	command := fs.Arg(0)
	fmt.Fprintf(stdout, "Benchmarking %s: %d requests, %d workers\n", command, *requests, *workers)

	start := time.Now()
	results := bench(ctx, *requests, *workers, func(ctx context.Context) error {
		_, err := c.Execute(ctx, command, params)
		return err
	}, func(done int) {
		if done%100 == 0 {
			fmt.Fprintf(stdout, "Progress: %d/%d requests (%.2f req/sec)\n",
				done, *requests, float64(done)/time.Since(start).Seconds())
		}
	})
	report := analyze(results, time.Since(start))
	printReport(stdout, report)

	if report.Failed == report.Total {
		return fmt.Errorf("all %d requests failed: %v", report.Total, firstError(results))
	}
	return nil
}

// bench runs fn total times across workers goroutines
func bench(ctx context.Context, total, workers int, fn func(context.Context) error, progress func(done int)) []benchResult {
	jobs := make(chan struct{}, total)
	for i := 0; i < total; i++ {
		jobs <- struct{}{}
	}
	close(jobs)

	var (
		mu      sync.Mutex
		results = make([]benchResult, 0, total)
		wg      sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				if ctx.Err() != nil {
					return
				}
				began := time.Now()
				err := fn(ctx)
				res := benchResult{duration: time.Since(began), err: err}

				mu.Lock()
				results = append(results, res)
				if progress != nil {
					progress(len(results))
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return results
}

func analyze(results []benchResult, elapsed time.Duration) benchReport {
	report := benchReport{Total: len(results), Elapsed: elapsed}
	if len(results) == 0 {
		return report
	}

	seconds := make([]float64, 0, len(results))
	for _, r := range results {
		if r.err == nil {
			report.Succeeded++
		} else {
			report.Failed++
		}
		seconds = append(seconds, r.duration.Seconds())
	}
	sort.Float64s(seconds)

	toDuration := func(s float64) time.Duration { return time.Duration(math.Round(s * float64(time.Second))) }
	report.Mean = toDuration(stat.Mean(seconds, nil))
	report.P50 = toDuration(stat.Quantile(0.50, stat.Empirical, seconds, nil))
	report.P95 = toDuration(stat.Quantile(0.95, stat.Empirical, seconds, nil))
	report.P99 = toDuration(stat.Quantile(0.99, stat.Empirical, seconds, nil))
	report.Max = toDuration(seconds[len(seconds)-1])
	return report
}

func printReport(w io.Writer, r benchReport) {
	pct := func(n int) float64 {
		if r.Total == 0 {
			return 0
		}
		return float64(n) / float64(r.Total) * 100
	}
	fmt.Fprintln(w, "----------------------------------------")
	fmt.Fprintf(w, "Total Requests:    %d\n", r.Total)
	fmt.Fprintf(w, "Successful:        %d (%.2f%%)\n", r.Succeeded, pct(r.Succeeded))
	fmt.Fprintf(w, "Failed:            %d (%.2f%%)\n", r.Failed, pct(r.Failed))
	fmt.Fprintf(w, "Elapsed:           %v\n", r.Elapsed)
	fmt.Fprintf(w, "Average Latency:   %v\n", r.Mean)
	fmt.Fprintf(w, "P50 Latency:       %v\n", r.P50)
	fmt.Fprintf(w, "P95 Latency:       %v\n", r.P95)
	fmt.Fprintf(w, "P99 Latency:       %v\n", r.P99)
	fmt.Fprintf(w, "Max Latency:       %v\n", r.Max)
}

func firstError(results []benchResult) error {
	for _, r := range results {
		if r.err != nil {
			return r.err
		}
	}
	return nil
}
