package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/extension-relay/internal/infrastructure/config"
	"github.com/GriffinCanCode/extension-relay/internal/infrastructure/logging"
	"github.com/GriffinCanCode/extension-relay/internal/shared/types"
)

type running struct {
	srv    *Server
	base   string
	cancel context.CancelFunc
	done   chan error
}

func start(t *testing.T, mutate func(*config.Config)) *running {
	t.Helper()
	cfg := config.Default()
	cfg.NetLog.Dir = ""
	cfg.Server.ShutdownTimeout = 2 * time.Second
	if mutate != nil {
		mutate(cfg)
	}

	srv, err := New(cfg, logging.NewDevelopment(), clockwork.NewRealClock())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	r := &running{srv: srv, base: "http://" + ln.Addr().String(), cancel: cancel, done: make(chan error, 1)}
	go func() { r.done <- srv.Serve(ctx, ln) }()
	t.Cleanup(r.stop)
	return r
}

func (r *running) stop() {
	r.cancel()
	select {
	case <-r.done:
	case <-time.After(5 * time.Second):
	}
}

func getJSON(t *testing.T, url string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, sonic.Unmarshal(raw, &body))
	return resp.StatusCode, body
}

func connectPeer(t *testing.T, base string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(base, "http") + "/ws/automation"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	frame := readFrame(t, conn)
	require.Equal(t, types.MsgConnectionEstablished, frame["type"])
	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"extension_connected","data":{"extensionId":"ext-srv"}}`)))
	require.Equal(t, types.MsgConnectionConfirmed, readFrame(t, conn)["type"])
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var frame map[string]interface{}
	require.NoError(t, sonic.Unmarshal(data, &frame))
	return frame
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.NetLog.Compression = "zip"
	_, err := New(cfg, logging.NewDevelopment(), nil)
	assert.Error(t, err)
}

func TestHealthWithoutPeer(t *testing.T) {
	r := start(t, nil)

	status, body := getJSON(t, r.base+"/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, false, body["peer"].(map[string]interface{})["connected"])

	status, body = getJSON(t, r.base+"/api/peer")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["peer"].(map[string]interface{})["connected"])
}

func TestExecuteEndToEnd(t *testing.T) {
	r := start(t, nil)
	peerConn := connectPeer(t, r.base)

	assert.Eventually(t, func() bool { return r.srv.Hub().Status().Connected }, 2*time.Second, 10*time.Millisecond)

	type result struct {
		status int
		body   map[string]interface{}
	}
	resCh := make(chan result, 1)
	go func() {
		resp, err := http.Post(r.base+"/api/commands/execute", "application/json",
			strings.NewReader(`{"command":"getTitle","timeout":5}`))
		if err != nil {
			resCh <- result{status: -1}
			return
		}
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		var body map[string]interface{}
		_ = sonic.Unmarshal(raw, &body)
		resCh <- result{status: resp.StatusCode, body: body}
	}()

	frame := readFrame(t, peerConn)
	require.Equal(t, types.MsgAutomationCommand, frame["type"])
	cmd := frame["command"].(map[string]interface{})
	assert.Equal(t, "getTitle", cmd["script"])

	reply, err := sonic.Marshal(map[string]interface{}{
		"type": types.MsgScriptResult, "command_id": cmd["command_id"], "result": "Example Domain",
	})
	require.NoError(t, err)
	require.NoError(t, peerConn.WriteMessage(websocket.TextMessage, reply))

	select {
	case res := <-resCh:
		require.Equal(t, http.StatusOK, res.status)
		assert.Equal(t, types.StatusSuccess, res.body["status"])
		assert.Equal(t, "Example Domain", res.body["result"])
	case <-time.After(5 * time.Second):
		t.Fatal("execute did not return")
	}

	resp, err := http.Get(r.base + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "relay_commands_total")
	assert.Contains(t, string(raw), "relay_http_requests_total")
}

func TestShutdownClosesPeer(t *testing.T) {
	r := start(t, nil)
	peerConn := connectPeer(t, r.base)
	assert.Eventually(t, func() bool { return r.srv.Hub().Status().Connected }, 2*time.Second, 10*time.Millisecond)

	r.cancel()
	select {
	case err := <-r.done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	require.NoError(t, peerConn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		if _, _, err := peerConn.ReadMessage(); err != nil {
			break
		}
	}
	assert.Eventually(t, func() bool { return !r.srv.Hub().Status().Connected }, 2*time.Second, 10*time.Millisecond)
}

func TestRateLimitRejects(t *testing.T) {
	r := start(t, func(cfg *config.Config) {
		cfg.RateLimit.RequestsPerSecond = 1
		cfg.RateLimit.Burst = 1
	})

	status, _ := getJSON(t, r.base+"/health")
	assert.Equal(t, http.StatusOK, status)
	status, body := getJSON(t, r.base+"/health")
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "rate limit exceeded", body["message"])
}
