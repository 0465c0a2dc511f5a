package relay

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/extension-relay/internal/shared/types"
)

func record(h *History, clock *clockwork.FakeClock, command string, err error, elapsed time.Duration) {
	seq := h.Start(command, nil)
	h.Finish(seq, "cmd_"+command, err, elapsed)
	clock.Advance(time.Second)
}

func TestHistoryQuery(t *testing.T) {
	clock := clockwork.NewFakeClock()
	h := NewHistory(10, clock)

	record(h, clock, "navigate", nil, 100*time.Millisecond)
	record(h, clock, "getTitle", nil, 10*time.Millisecond)
	record(h, clock, "navigate", errors.New("boom"), 0)
	h.Start("getUrl", nil)

	all := h.Query(Filter{})
	require.Len(t, all, 4)
	assert.Equal(t, "getUrl", all[0].Command)
	assert.Equal(t, types.StatusPending, all[0].Status)
	assert.Equal(t, "navigate", all[3].Command)

	navs := h.Query(Filter{Command: "navigate"})
	require.Len(t, navs, 2)
	assert.Equal(t, types.StatusError, navs[0].Status)
	assert.Equal(t, "boom", navs[0].Error)

	assert.Len(t, h.Query(Filter{Status: types.StatusSuccess}), 2)
	assert.Len(t, h.Query(Filter{Limit: 1}), 1)

	start := clock.Now().Add(-3 * time.Second)
	assert.Len(t, h.Query(Filter{From: start.Add(time.Second)}), 3)
	assert.Len(t, h.Query(Filter{To: start}), 1)
}

func TestHistoryRingOverwrites(t *testing.T) {
	clock := clockwork.NewFakeClock()
	h := NewHistory(3, clock)

	for _, name := range []string{"a", "b", "c", "d", "e"} {
		record(h, clock, name, nil, time.Millisecond)
	}

	got := h.Query(Filter{})
	require.Len(t, got, 3)
	assert.Equal(t, "e", got[0].Command)
	assert.Equal(t, "c", got[2].Command)
	assert.Equal(t, 3, h.Len())
}

func TestHistoryClear(t *testing.T) {
	clock := clockwork.NewFakeClock()
	h := NewHistory(10, clock)

	record(h, clock, "navigate", nil, 0)
	cutoff := clock.Now()
	record(h, clock, "navigate", nil, 0)
	record(h, clock, "getTitle", nil, 0)

	assert.Equal(t, 1, h.Clear("navigate", cutoff))
	assert.Len(t, h.Query(Filter{}), 2)

	assert.Equal(t, 2, h.Clear("", time.Time{}))
	assert.Empty(t, h.Query(Filter{}))

	record(h, clock, "getTitle", nil, 0)
	assert.Len(t, h.Query(Filter{}), 1)
}

func TestHistoryStats(t *testing.T) {
	clock := clockwork.NewFakeClock()
	h := NewHistory(100, clock)

	for i := 1; i <= 20; i++ {
		record(h, clock, "navigate", nil, time.Duration(i)*100*time.Millisecond)
	}
	record(h, clock, "navigate", errors.New("timeout"), 0)
	h.Start("navigate", nil)

	stats := h.Stats("navigate", time.Time{})
	require.Contains(t, stats, "navigate")
	s := stats["navigate"]
	assert.Equal(t, 22, s.Attempted)
	assert.Equal(t, 20, s.Success)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Pending)
	assert.InDelta(t, 1.05, s.AvgExecutionTime, 1e-9)
	assert.GreaterOrEqual(t, s.P95ExecutionTime, 1.9-1e-9)
	assert.LessOrEqual(t, s.P95ExecutionTime, 2.0+1e-9)

	assert.Empty(t, h.Stats("getTitle", time.Time{}))

	recent := h.Stats("", clock.Now().Add(-time.Second))
	assert.Equal(t, 2, recent["navigate"].Attempted)
}

func TestHistoryResetStats(t *testing.T) {
	clock := clockwork.NewFakeClock()
	h := NewHistory(100, clock)

	record(h, clock, "navigate", nil, time.Second)
	record(h, clock, "getTitle", nil, time.Second)

	h.ResetStats("navigate")
	clock.Advance(time.Second)
	stats := h.Stats("", time.Time{})
	assert.NotContains(t, stats, "navigate")
	assert.Equal(t, 1, stats["getTitle"].Success)

	record(h, clock, "navigate", nil, time.Second)
	assert.Equal(t, 1, h.Stats("navigate", time.Time{})["navigate"].Success)

	h.ResetStats("")
	clock.Advance(time.Second)
	assert.Empty(t, h.Stats("", time.Time{}))
	assert.Len(t, h.Query(Filter{}), 3)
}

func TestRangeSince(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(-time.Hour), RangeSince("1h", now))
	assert.Equal(t, now.Add(-24*time.Hour), RangeSince("24h", now))
	assert.Equal(t, now.AddDate(0, 0, -7), RangeSince("7d", now))
	assert.Equal(t, now.AddDate(0, 0, -30), RangeSince("30d", now))
	assert.Equal(t, now.Add(-24*time.Hour), RangeSince("bogus", now))
}
