package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/EngDotorDaSilva/doafacil-sub000/pkg/realtime"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	// sendBufferSize bounds the per-connection outbound queue. A client
	// that cannot drain it loses events and recovers on its next full
	// refresh.
	sendBufferSize = 64
)

// Client is one live transport session. It is created on transport open,
// destroyed on transport close, and never persisted. The accountID stays
// empty until the handshake succeeds.
type Client struct {
	id   string
	conn *websocket.Conn

	send chan []byte
	done chan struct{}

	closeOnce sync.Once

	mu        sync.RWMutex
	accountID string

	logger zerolog.Logger
}

func newClient(id string, conn *websocket.Conn, logger zerolog.Logger) *Client {
	return &Client{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
		logger: logger.With().Str("connection", id).Logger(),
	}
}

// Account returns the owning account ID, or "" before a successful handshake.
func (c *Client) Account() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accountID
}

func (c *Client) bindAccount(accountID string) {
	c.mu.Lock()
	c.accountID = accountID
	c.mu.Unlock()
}

// trySend queues data for the write pump without blocking. Events to a
// closed or backlogged connection are dropped; the hub must never stall on
// one slow member.
func (c *Client) trySend(data []byte) {
	select {
	case <-c.done:
	case c.send <- data:
	default:
		c.logger.Warn().Str("account", c.Account()).Msg("Send buffer full, dropping event.")
	}
}

// sendEvent marshals and queues a single direct event (handshake replies).
func (c *Client) sendEvent(evt *realtime.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		c.logger.Error().Err(err).Str("event_type", string(evt.Type)).Msg("Failed to marshal direct event.")
		return
	}
	c.trySend(data)
}

// close releases the connection exactly once. Safe to call from any
// goroutine.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Error closing connection.")
		}
	})
}

// readPump consumes client signals until the transport drops. It runs on
// the connection handler goroutine; signal handling must not block on I/O
// beyond the gateway's per-signal timeout.
func (c *Client) readPump(g *Gateway) {
	defer func() {
		g.dropClient(c)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug().Err(err).Msg("Unexpected connection close.")
			}
			return
		}

		var signal realtime.ClientSignal
		if err := json.Unmarshal(payload, &signal); err != nil {
			c.logger.Debug().Err(err).Msg("Discarding unparsable client signal.")
			continue
		}
		g.handleSignal(c, &signal)
	}
}

// writePump serializes all writes to the transport, preserving FIFO order
// per connection, and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
