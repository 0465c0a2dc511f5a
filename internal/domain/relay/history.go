package relay

import (
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"gonum.org/v1/gonum/stat"

	"github.com/GriffinCanCode/extension-relay/internal/shared/types"
)

// DefaultHistorySize bounds the completed-record ring
const DefaultHistorySize = 1000

// Record is one execution in the history
type Record struct {
	CommandID     string                 `json:"command_id,omitempty"`
	Command       string                 `json:"command"`
	Params        map[string]interface{} `json:"params"`
	Status        string                 `json:"status"`
	Error         string                 `json:"error,omitempty"`
	StartedAt     time.Time              `json:"timestamp"`
	ExecutionTime float64                `json:"execution_time"`
}

// Filter selects history records. Zero fields match everything.
type Filter struct {
	Command string
	Status  string
	From    time.Time
	To      time.Time
	Limit   int
}

// History keeps a bounded, in-memory record of executions
type History struct {
	mu       sync.Mutex
	ring     []Record
	next     int
	full     bool
	inflight map[uint64]*Record
	seq      uint64

	resetAll time.Time
	resets   map[string]time.Time

	clock clockwork.Clock
}

// NewHistory creates a history holding at most size completed records
func NewHistory(size int, clock clockwork.Clock) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &History{
		ring:     make([]Record, size),
		inflight: make(map[uint64]*Record),
		resets:   make(map[string]time.Time),
		clock:    clock,
	}
}

// Start records an in-flight execution and returns its handle
func (h *History) Start(command string, params map[string]interface{}) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	h.inflight[h.seq] = &Record{
		Command:   command,
		Params:    params,
		Status:    types.StatusPending,
		StartedAt: h.clock.Now(),
	}
	return h.seq
}

// Finish completes the execution started under seq
func (h *History) Finish(seq uint64, commandID string, err error, elapsed time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rec, ok := h.inflight[seq]
	if !ok {
		return
	}
	delete(h.inflight, seq)

	rec.CommandID = commandID
	rec.ExecutionTime = elapsed.Seconds()
	if err != nil {
		rec.Status = types.StatusError
		rec.Error = err.Error()
	} else {
		rec.Status = types.StatusSuccess
	}

	h.ring[h.next] = *rec
	h.next = (h.next + 1) % len(h.ring)
	if h.next == 0 {
		h.full = true
	}
}

// snapshotLocked returns completed and in-flight records, oldest first
func (h *History) snapshotLocked() []Record {
	var out []Record
	if h.full {
		out = append(out, h.ring[h.next:]...)
	}
	out = append(out, h.ring[:h.next]...)
	for _, rec := range h.inflight {
		out = append(out, *rec)
	}
	return out
}

// Query returns matching records, newest first
func (h *History) Query(f Filter) []Record {
	h.mu.Lock()
	records := h.snapshotLocked()
	h.mu.Unlock()

	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if f.Command != "" && rec.Command != f.Command {
			continue
		}
		if f.Status != "" && rec.Status != f.Status {
			continue
		}
		if !f.From.IsZero() && rec.StartedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && rec.StartedAt.After(f.To) {
			continue
		}
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// Clear removes completed records matching command (empty = any) that
// started before before (zero = any time). It returns the number removed.
func (h *History) Clear(command string, before time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	var completed []Record
	if h.full {
		completed = append(completed, h.ring[h.next:]...)
	}
	completed = append(completed, h.ring[:h.next]...)

	kept := completed[:0]
	removed := 0
	for _, rec := range completed {
		match := (command == "" || rec.Command == command) &&
			(before.IsZero() || rec.StartedAt.Before(before))
		if match {
			removed++
			continue
		}
		kept = append(kept, rec)
	}

	ring := make([]Record, len(h.ring))
	copy(ring, kept)
	h.ring = ring
	h.next = len(kept) % len(ring)
	h.full = len(kept) == len(ring)
	return removed
}

// Stats aggregates records per command. command narrows to one command;
// since drops records that started earlier. Records older than the last
// ResetStats for their command are ignored.
func (h *History) Stats(command string, since time.Time) map[string]types.CommandStats {
	h.mu.Lock()
	records := h.snapshotLocked()
	resetAll := h.resetAll
	resets := make(map[string]time.Time, len(h.resets))
	for k, v := range h.resets {
		resets[k] = v
	}
	h.mu.Unlock()

	stats := make(map[string]types.CommandStats)
	durations := make(map[string][]float64)
	for _, rec := range records {
		if command != "" && rec.Command != command {
			continue
		}
		if !since.IsZero() && rec.StartedAt.Before(since) {
			continue
		}
		if rec.StartedAt.Before(resetAll) || rec.StartedAt.Before(resets[rec.Command]) {
			continue
		}

		s := stats[rec.Command]
		s.Attempted++
		switch rec.Status {
		case types.StatusSuccess:
			s.Success++
			durations[rec.Command] = append(durations[rec.Command], rec.ExecutionTime)
		case types.StatusError:
			s.Failed++
		default:
			s.Pending++
		}
		stats[rec.Command] = s
	}

	for name, ds := range durations {
		sort.Float64s(ds)
		s := stats[name]
		s.AvgExecutionTime = stat.Mean(ds, nil)
		s.P95ExecutionTime = stat.Quantile(0.95, stat.Empirical, ds, nil)
		stats[name] = s
	}
	return stats
}

// LastExecution returns the most recent start time per command
func (h *History) LastExecution() map[string]time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[string]time.Time)
	for _, rec := range h.snapshotLocked() {
		if rec.StartedAt.After(out[rec.Command]) {
			out[rec.Command] = rec.StartedAt
		}
	}
	return out
}

// ResetStats zeroes statistics for command, or for all commands when empty.
// Records are kept.
func (h *History) ResetStats(command string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.clock.Now().Add(time.Nanosecond)
	if command == "" {
		h.resetAll = now
		h.resets = make(map[string]time.Time)
		return
	}
	h.resets[command] = now
}

// Len returns the number of completed and in-flight records
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := h.next
	if h.full {
		n = len(h.ring)
	}
	return n + len(h.inflight)
}

// RangeSince maps a stats range (1h, 24h, 7d, 30d) to its start time.
// Unknown ranges select 24h.
func RangeSince(r string, now time.Time) time.Time {
	switch r {
	case "1h":
		return now.Add(-time.Hour)
	case "7d":
		return now.AddDate(0, 0, -7)
	case "30d":
		return now.AddDate(0, 0, -30)
	default:
		return now.Add(-24 * time.Hour)
	}
}
