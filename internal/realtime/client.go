package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second    // Time allowed to write a message to the peer.
	pongWait       = 60 * time.Second    // Time allowed to read the next pong message from the peer.
	pingPeriod     = (pongWait * 9) / 10 // Send pings to peer with this period. Must be less than pongWait.
	maxMessageSize = 512                 // Maximum message size allowed from peer.

	sendBufferSize = 256
)

// Client binds one websocket connection to one authenticated user for the
// lifetime of the session. The registry owns the mapping; the client owns
// the transport handle and its two pumps.
type Client struct {
	ID       string
	UserID   int
	Username string

	registry *Registry
	conn     *websocket.Conn
	send     chan []byte
	log      *logrus.Logger

	closeOnce sync.Once
	done      chan struct{}
}

func NewClient(registry *Registry, conn *websocket.Conn, userID int, username string, log *logrus.Logger) *Client {
	return &Client{
		ID:       uuid.NewString(),
		UserID:   userID,
		Username: username,
		registry: registry,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		log:      log,
		done:     make(chan struct{}),
	}
}

// close sends a close frame with the given code, then tears down the
// transport. Safe to call from any goroutine, any number of times.
func (c *Client) close(code int, reason string) {
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(code, reason)
		// WriteControl is safe to call concurrently with the write pump,
		// which may be mid-WriteMessage on this connection.
		c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		close(c.done)
		c.conn.Close()
	})
}

// ReadPump pumps inbound frames off the connection. The live channel is
// server-to-client; the only client frame with meaning is the literal
// "ping" keepalive, answered with "pong". Everything else is discarded.
// When the read side fails the client unregisters itself, so the registry
// never holds a stale handle after a dead connection.
func (c *Client) ReadPump() {
	defer c.registry.Unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).WithField("conn_id", c.ID).Warn("websocket read error")
			}
			return
		}
		if string(message) == PingFrame {
			select {
			case c.send <- []byte(PongFrame):
			default:
			}
			continue
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

// WritePump pumps queued payloads onto the connection and sends protocol
// pings to keep intermediaries from closing an idle connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}
