package ws

import (
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const (
	writeDeadline = 5 * time.Second
	pingInterval  = 30 * time.Second
	pongDeadline  = 60 * time.Second
)

// conn adapts a gorilla connection to the session's Sender. Writes are
// serialized; pings keep the read deadline moving while the peer is alive.
// Socket deadlines are wall-clock; clock only drives the ping ticker.
type conn struct {
	ws    *websocket.Conn
	clock clockwork.Clock

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

func newConn(ws *websocket.Conn, clock clockwork.Clock, readLimit int64) *conn {
	c := &conn{ws: ws, clock: clock, done: make(chan struct{})}
	ws.SetReadLimit(readLimit)
	c.extendReadDeadline()
	ws.SetPongHandler(func(string) error {
		c.extendReadDeadline()
		return nil
	})
	go c.keepAlive()
	return c
}

// Send encodes msg as JSON and writes it as a text frame
func (c *conn) Send(msg interface{}) error {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeDeadline))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame and closes the connection
func (c *conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.writeMu.Lock()
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeDeadline))
		_ = c.ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()

		err = c.ws.Close()
	})
	return err
}

// read returns the next text frame
func (c *conn) read() ([]byte, error) {
	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			return nil, err
		}
		c.extendReadDeadline()
		if kind == websocket.TextMessage || kind == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (c *conn) keepAlive() {
	ticker := c.clock.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			c.writeMu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *conn) extendReadDeadline() {
	_ = c.ws.SetReadDeadline(time.Now().Add(pongDeadline))
}
