// Package peertest provides an in-process peer that answers automation
// commands, for tests of code that sits above a peer.Session.
package peertest

import (
	"sync"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/extension-relay/internal/domain/peer"
	"github.com/GriffinCanCode/extension-relay/internal/shared/types"
)

// Reply is the peer's answer to one command. Silent sends nothing.
type Reply struct {
	Result interface{}
	Err    string
	Silent bool
}

// Responder picks the reply for the n-th command (1-based) with script
type Responder func(script string, n int) Reply

// Always answers every command with r
func Always(r Reply) Responder {
	return func(string, int) Reply { return r }
}

// Peer is a peer.Sender that answers automation commands asynchronously
// through the session it is bound to.
type Peer struct {
	mu      sync.Mutex
	session *peer.Session
	scripts []string
	respond Responder
	closed  bool
}

// New creates a peer answering with respond
func New(respond Responder) *Peer {
	return &Peer{respond: respond}
}

// Send implements peer.Sender
func (p *Peer) Send(msg interface{}) error {
	cmd, ok := msg.(types.AutomationCommand)
	if !ok {
		return nil
	}

	p.mu.Lock()
	p.scripts = append(p.scripts, cmd.Command.Script)
	n := len(p.scripts)
	session, respond := p.session, p.respond
	p.mu.Unlock()

	r := respond(cmd.Command.Script, n)
	if r.Silent || session == nil {
		return nil
	}

	frame := map[string]interface{}{"command_id": cmd.Command.CommandID}
	if r.Err != "" {
		frame["type"] = types.MsgScriptError
		frame["error"] = r.Err
	} else {
		frame["type"] = types.MsgScriptResult
		frame["result"] = r.Result
	}
	raw, err := sonic.Marshal(frame)
	if err != nil {
		return err
	}
	go func() { _ = session.Receive(raw) }()
	return nil
}

// Close implements peer.Sender
func (p *Peer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Closed reports whether the session closed its transport
func (p *Peer) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Scripts returns every script received so far, in order
func (p *Peer) Scripts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.scripts...)
}

// Connect attaches a new active session backed by p to hub
func (p *Peer) Connect(t testing.TB, hub *peer.Hub, builder peer.Builder, slots peer.Slots) *peer.Session {
	t.Helper()
	s := peer.NewSession(p, builder, slots, peer.DefaultConfig(), nil, nil)

	p.mu.Lock()
	p.session = s
	p.mu.Unlock()

	hub.Attach(s)
	require.NoError(t, s.Accept())
	require.NoError(t, s.Receive([]byte(`{"type":"extension_connected","data":{"extensionId":"ext-test"}}`)))
	return s
}
