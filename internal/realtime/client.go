package realtime

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"coolwatch-server-go/internal/platform/logging"
)

// wsConn is the subset of *websocket.Conn the client uses. Narrowed to an
// interface so fan-out behaviour is testable without network sockets.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// ClientOptions bound the per-connection transport behaviour.
type ClientOptions struct {
	SendBufferSize int
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	PongTimeout    time.Duration
	ReadLimit      int64
}

func (o *ClientOptions) fillDefaults() {
	if o.SendBufferSize <= 0 {
		o.SendBufferSize = 256
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 25 * time.Second
	}
	if o.PongTimeout <= 0 {
		o.PongTimeout = 60 * time.Second
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 4096
	}
}

// Client is one authenticated websocket connection. Outbound frames go
// through a buffered channel drained by the write pump, so emitters never
// block on a slow consumer.
type Client struct {
	id        string
	principal Principal
	origin    string
	socket    wsConn
	opts      ClientOptions
	logger    *logging.Logger

	send   chan []byte
	done   chan struct{}
	closed atomic.Bool

	lastActive atomic.Int64
}

// NewClient wraps an upgraded websocket connection.
func NewClient(id string, principal Principal, origin string, socket wsConn, opts ClientOptions, logger *logging.Logger) *Client {
	opts.fillDefaults()
	c := &Client{
		id:        id,
		principal: principal,
		origin:    origin,
		socket:    socket,
		opts:      opts,
		logger:    logger,
		send:      make(chan []byte, opts.SendBufferSize),
		done:      make(chan struct{}),
	}
	c.touch()
	return c
}

// ID returns the connection identifier.
func (c *Client) ID() string { return c.id }

// Principal returns the authenticated user behind the connection.
func (c *Client) Principal() Principal { return c.principal }

// Origin returns the remote address recorded at handshake time.
func (c *Client) Origin() string { return c.origin }

// Enqueue hands a frame to the write pump without blocking. A full buffer
// means the consumer stopped draining, so the connection is dropped.
func (c *Client) Enqueue(data []byte) bool {
	if c.closed.Load() {
		return false
	}

	select {
	case c.send <- data:
		return true
	default:
		if c.logger != nil {
			c.logger.WarnTag("Realtime", "connection %s send buffer full, dropping client", c.id)
		}
		c.Close()
		return false
	}
}

// Close terminates the connection. Safe to call more than once.
func (c *Client) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	close(c.done)
	_ = c.socket.Close()
}

// IsClosed reports whether the connection has been torn down.
func (c *Client) IsClosed() bool {
	return c.closed.Load()
}

// LastActive exposes when the client last interacted with the server.
func (c *Client) LastActive() time.Time {
	return time.Unix(0, c.lastActive.Load())
}

// writePump drains the send buffer onto the socket and keeps the connection
// alive with periodic pings. Runs on its own goroutine per connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.socket.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// readPump consumes inbound frames and forwards them to handle until the
// socket fails or is closed.
func (c *Client) readPump(handle func(*Client, []byte)) {
	defer c.Close()

	c.socket.SetReadLimit(c.opts.ReadLimit)
	_ = c.socket.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))
	c.socket.SetPongHandler(func(string) error {
		c.touch()
		return c.socket.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))
	})

	for {
		messageType, payload, err := c.socket.ReadMessage()
		if err != nil {
			return
		}
		c.touch()
		if messageType != websocket.TextMessage {
			continue
		}
		handle(c, payload)
	}
}

func (c *Client) touch() {
	c.lastActive.Store(time.Now().UnixNano())
}
