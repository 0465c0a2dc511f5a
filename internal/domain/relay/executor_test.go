package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/extension-relay/internal/domain/command"
	"github.com/GriffinCanCode/extension-relay/internal/domain/correlator"
	"github.com/GriffinCanCode/extension-relay/internal/domain/peer"
	"github.com/GriffinCanCode/extension-relay/internal/domain/peer/peertest"
	"github.com/GriffinCanCode/extension-relay/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/extension-relay/internal/shared/types"
)

type harness struct {
	exec *Executor
	hub  *peer.Hub
	corr *correlator.Correlator
	peer *peertest.Peer
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MinTimeout = 10 * time.Millisecond
	cfg.DefaultTimeout = time.Second
	cfg.NavigateRetryDelay = time.Millisecond
	cfg.ElementPollInterval = time.Millisecond
	cfg.ElementWaitMax = 200 * time.Millisecond
	cfg.BreakerCooldown = time.Hour
	return cfg
}

func newHarness(t *testing.T, cfg Config, respond peertest.Responder) *harness {
	t.Helper()
	clock := clockwork.NewRealClock()
	catalog := command.NewDefaultCatalog()
	corr := correlator.New(clock, correlator.DefaultRetention, nil)
	hub := peer.NewHub(nil)
	t.Cleanup(func() { hub.Close("test done") })

	exec := NewExecutor(catalog, hub, corr, NewHistory(100, clock), cfg, clock, nil)
	return &harness{exec: exec, hub: hub, corr: corr, peer: peertest.New(respond)}
}

// connect attaches an active session backed by the fake peer
func (h *harness) connect(t *testing.T) *peer.Session {
	t.Helper()
	return h.peer.Connect(t, h.hub, h.exec.Catalog(), h.corr)
}

type reply = peertest.Reply

var always = peertest.Always

func TestExecuteSuccess(t *testing.T) {
	h := newHarness(t, testConfig(), always(reply{Result: true}))
	s := h.connect(t)

	result, err := h.exec.Execute(context.Background(), "click_element", map[string]interface{}{"selector": "#btn"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, true, result)
	assert.Equal(t, []string{"clickElement|#btn"}, h.peer.Scripts())

	assert.Zero(t, s.PendingCount())
	assert.Zero(t, h.corr.Len())

	records := h.exec.History().Query(Filter{})
	require.Len(t, records, 1)
	assert.Equal(t, types.StatusSuccess, records[0].Status)
	assert.NotEmpty(t, records[0].CommandID)
}

func TestExecuteUnwrapsJSONResult(t *testing.T) {
	h := newHarness(t, testConfig(), always(reply{Result: `{"title":"Example"}`}))
	h.connect(t)

	result, err := h.exec.Execute(context.Background(), "getMetadata", nil, time.Second)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"title": "Example"}, result)
}

func TestExecuteRejectsBeforeSending(t *testing.T) {
	h := newHarness(t, testConfig(), always(reply{Result: true}))
	h.connect(t)

	tests := []struct {
		name    string
		command string
		params  map[string]interface{}
		want    error
	}{
		{"unknown command", "fly", nil, types.ErrNotFound},
		{"missing param", "click_element", nil, types.ErrInvalidParameters},
		{"bad enum", "clear_storage", map[string]interface{}{"storage_type": "indexedDB"}, types.ErrInvalidParameters},
		{"bad url", "navigate", map[string]interface{}{"url": "not a url"}, types.ErrInvalidParameters},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.exec.Execute(context.Background(), tt.command, tt.params, time.Second)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, h.peer.Scripts())
}

func TestExecuteWithoutPeer(t *testing.T) {
	h := newHarness(t, testConfig(), always(reply{Result: true}))

	start := time.Now()
	_, err := h.exec.Execute(context.Background(), "navigate", map[string]interface{}{"url": "https://example.com"}, time.Second)
	assert.ErrorIs(t, err, types.ErrDisconnected)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestExecutePeerError(t *testing.T) {
	h := newHarness(t, testConfig(), always(reply{Err: "Element not found: #missing"}))
	h.connect(t)

	_, err := h.exec.Execute(context.Background(), "click_element", map[string]interface{}{"selector": "#missing"}, time.Second)
	var peerErr *types.PeerExecutionError
	require.ErrorAs(t, err, &peerErr)
	assert.Equal(t, "Element not found: #missing", peerErr.Message)
	assert.Len(t, h.peer.Scripts(), 1)
}

func TestExecuteTimeoutCleansUp(t *testing.T) {
	h := newHarness(t, testConfig(), always(reply{Silent: true}))
	s := h.connect(t)

	_, err := h.exec.Execute(context.Background(), "getTitle", nil, 20*time.Millisecond)
	assert.ErrorIs(t, err, types.ErrTimeout)
	assert.Zero(t, s.PendingCount())
	assert.Zero(t, h.corr.Len())

	records := h.exec.History().Query(Filter{Status: types.StatusError})
	require.Len(t, records, 1)
	assert.Contains(t, records[0].Error, "timeout")
}

func TestNavigateRetries(t *testing.T) {
	h := newHarness(t, testConfig(), func(_ string, n int) reply {
		if n < 3 {
			return reply{Err: "navigation failed"}
		}
		return reply{Result: true}
	})
	h.connect(t)

	result, err := h.exec.Execute(context.Background(), "navigate", map[string]interface{}{"url": "https://example.com"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, true, result)
	assert.Len(t, h.peer.Scripts(), 3)
}

func TestNavigateGivesUp(t *testing.T) {
	h := newHarness(t, testConfig(), always(reply{Err: "navigation failed"}))
	h.connect(t)

	_, err := h.exec.Execute(context.Background(), "navigate", map[string]interface{}{"url": "https://example.com"}, time.Second)
	var peerErr *types.PeerExecutionError
	assert.ErrorAs(t, err, &peerErr)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.Len(t, h.peer.Scripts(), 3)
}

func TestOtherCommandsNotRetried(t *testing.T) {
	h := newHarness(t, testConfig(), always(reply{Err: "boom"}))
	h.connect(t)

	_, err := h.exec.Execute(context.Background(), "refresh", nil, time.Second)
	require.Error(t, err)
	assert.Equal(t, "boom", err.Error())
	assert.Len(t, h.peer.Scripts(), 1)
}

func TestRepeatedTimeoutsKeepDispatching(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinTimeout = 10 * time.Millisecond
	h := newHarness(t, cfg, func(_ string, n int) reply {
		if n <= 6 {
			return reply{Silent: true}
		}
		return reply{Result: "Example Domain"}
	})
	s := h.connect(t)

	for i := 0; i < 6; i++ {
		_, err := h.exec.Execute(context.Background(), "getTitle", nil, 20*time.Millisecond)
		require.ErrorIs(t, err, types.ErrTimeout, "call %d", i+1)
		assert.NotErrorIs(t, err, types.ErrDisconnected)
	}
	assert.Equal(t, peer.StatePeerActive, s.State())

	result, err := h.exec.Execute(context.Background(), "getTitle", nil, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "Example Domain", result)
	assert.Len(t, h.peer.Scripts(), 7)
}

func TestBreakerOpensOnTimeouts(t *testing.T) {
	cfg := testConfig()
	cfg.BreakerEnabled = true
	cfg.BreakerThreshold = 2
	h := newHarness(t, cfg, always(reply{Silent: true}))
	h.connect(t)

	for i := 0; i < 2; i++ {
		_, err := h.exec.Execute(context.Background(), "getTitle", nil, 20*time.Millisecond)
		require.ErrorIs(t, err, types.ErrTimeout)
	}

	_, err := h.exec.Execute(context.Background(), "getTitle", nil, 20*time.Millisecond)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.NotErrorIs(t, err, types.ErrDisconnected)
	assert.Len(t, h.peer.Scripts(), 2)
}

func TestBreakerSkipsElementLookups(t *testing.T) {
	cfg := testConfig()
	cfg.BreakerEnabled = true
	cfg.BreakerThreshold = 1
	h := newHarness(t, cfg, func(script string, _ int) reply {
		if strings.HasPrefix(script, "findElement|") {
			return reply{Silent: true}
		}
		return reply{Result: "Example Domain"}
	})
	h.connect(t)

	err := h.exec.WaitForElement(context.Background(), "#slow", 50*time.Millisecond)
	require.ErrorIs(t, err, types.ErrNotFound)

	result, err := h.exec.Execute(context.Background(), "getTitle", nil, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "Example Domain", result)
}

func TestBreakerIgnoresPeerErrors(t *testing.T) {
	cfg := testConfig()
	cfg.BreakerEnabled = true
	cfg.BreakerThreshold = 2
	h := newHarness(t, cfg, always(reply{Err: "nope"}))
	h.connect(t)

	for i := 0; i < 4; i++ {
		_, err := h.exec.Execute(context.Background(), "getTitle", nil, time.Second)
		var peerErr *types.PeerExecutionError
		require.ErrorAs(t, err, &peerErr)
	}
	assert.Len(t, h.peer.Scripts(), 4)
}

func TestSubmit(t *testing.T) {
	h := newHarness(t, testConfig(), always(reply{Result: "Example Domain"}))
	h.connect(t)

	out := h.exec.Submit(context.Background(), "getTitle", nil, 5)
	assert.Equal(t, types.StatusSuccess, out.Status)
	assert.Equal(t, "Example Domain", out.Result)

	out = h.exec.Submit(context.Background(), "getTitle", nil, 61)
	assert.Equal(t, types.StatusError, out.Status)
	assert.Contains(t, out.Message, "Timeout must be between")

	out = h.exec.Submit(context.Background(), "fly", nil, 5)
	assert.Equal(t, types.StatusError, out.Status)
	assert.Contains(t, out.Message, "not found")
}

func TestRun(t *testing.T) {
	h := newHarness(t, DefaultConfig(), always(reply{Result: true}))
	h.connect(t)

	seconds := 5
	result, err := h.exec.Run(context.Background(), types.ExecuteRequest{
		Command:        "click_element",
		Params:         map[string]interface{}{"selector": "#go"},
		Timeout:        &seconds,
		WaitForElement: true,
	})
	require.NoError(t, err)
	assert.Equal(t, true, result)
	assert.Equal(t, []string{"findElement|#go", "clickElement|#go"}, h.peer.Scripts())

	for _, bad := range []int{0, 61} {
		bad := bad
		_, err = h.exec.Run(context.Background(), types.ExecuteRequest{Command: "getTitle", Timeout: &bad})
		assert.ErrorIs(t, err, types.ErrInvalidParameters)
		assert.Contains(t, err.Error(), "Timeout must be between 1 and 60 seconds")
	}
	assert.Len(t, h.peer.Scripts(), 2)
}

func TestResolveTimeout(t *testing.T) {
	h := newHarness(t, DefaultConfig(), always(reply{}))

	timeout, err := h.exec.ResolveTimeout(nil)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, timeout)

	seconds := 60
	timeout, err = h.exec.ResolveTimeout(&seconds)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, timeout)
}

func TestClampTimeout(t *testing.T) {
	h := newHarness(t, DefaultConfig(), always(reply{}))

	assert.Equal(t, 10*time.Second, h.exec.ClampTimeout(0))
	assert.Equal(t, time.Second, h.exec.ClampTimeout(time.Millisecond))
	assert.Equal(t, 60*time.Second, h.exec.ClampTimeout(5*time.Minute))
	assert.Equal(t, 7*time.Second, h.exec.ClampTimeout(7*time.Second))
}

func TestConcurrentExecutions(t *testing.T) {
	h := newHarness(t, testConfig(), func(script string, _ int) reply {
		return reply{Result: strings.TrimPrefix(script, "getElementText|#")}
	})
	h.connect(t)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			want := fmt.Sprintf("item-%d", i)
			got, err := h.exec.Execute(context.Background(), "get_element_text",
				map[string]interface{}{"selector": "#" + want}, time.Second)
			if err != nil {
				errs <- err
				return
			}
			if got != want {
				errs <- errors.New("result for " + want + " routed as " + fmt.Sprint(got))
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestListCommandsCarriesStats(t *testing.T) {
	h := newHarness(t, testConfig(), always(reply{Result: "title"}))
	h.connect(t)

	_, err := h.exec.Execute(context.Background(), "getTitle", nil, time.Second)
	require.NoError(t, err)

	infos := h.exec.ListCommands(command.CategoryDOM)
	var found bool
	for _, info := range infos {
		assert.Equal(t, string(command.CategoryDOM), info.Type)
		if info.Name == "getTitle" {
			found = true
			require.NotNil(t, info.Stats)
			assert.Equal(t, 1, info.Stats.Success)
			assert.NotNil(t, info.LastExecution)
		}
	}
	assert.True(t, found)
	assert.Len(t, h.exec.ListCommands(command.CategoryStorage), 3)
}
