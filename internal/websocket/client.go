package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"course-chat-service/internal/auth"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// Outbound buffer per connection
	sendBufferSize = 256
)

// Client is one authenticated socket connection. The verified identity is
// attached at upgrade time and lives exactly as long as the connection.
type Client struct {
	id       string
	hub      *Hub
	gateway  *Gateway
	conn     *websocket.Conn
	send     chan []byte
	identity auth.Identity

	// rooms the client has joined; guarded by hub.mu
	rooms map[string]bool

	ctx    context.Context
	cancel context.CancelFunc
	closed int32
}

func NewClient(hub *Hub, gateway *Gateway, conn *websocket.Conn, identity auth.Identity) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		id:       uuid.New().String(),
		hub:      hub,
		gateway:  gateway,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		identity: identity,
		rooms:    make(map[string]bool),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) Identity() auth.Identity {
	return c.identity
}

func (c *Client) isClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

func (c *Client) close() {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		c.cancel()
	}
}

// enqueue hands a payload to the write pump without blocking. A full
// buffer means the peer is not draining; the client is cut off. The send
// channel is never closed, so enqueue cannot race a concurrent close;
// cancellation alone stops the pumps.
func (c *Client) enqueue(payload []byte) error {
	if c.isClosed() {
		return ErrClientDisconnected
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.ctx.Done():
		return ErrClientDisconnected
	default:
		c.close()
		return ErrClientDisconnected
	}
}

// SendFrame marshals and enqueues an outbound frame for this client only.
func (c *Client) SendFrame(frame *OutboundFrame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return c.enqueue(payload)
}

func (c *Client) readPump() {
	defer func() {
		c.close()
		select {
		case c.hub.unregister <- c:
		case <-time.After(5 * time.Second):
			slog.Warn("timeout sending unregister request", "clientID", c.id)
		}
		if err := c.conn.Close(); err != nil {
			slog.Debug("error closing connection", "clientID", c.id, "error", err)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		if c.isClosed() {
			return websocket.ErrCloseSent
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("websocket error", "clientID", c.id, "userID", c.identity.UserID, "error", err)
			} else {
				slog.Debug("websocket connection closed", "clientID", c.id, "error", err)
			}
			break
		}

		var frame Frame
		if err := json.Unmarshal(payload, &frame); err != nil {
			slog.Debug("unparsable frame", "clientID", c.id, "error", err)
			c.SendFrame(errorFrame("invalid_frame", "frame is not valid JSON"))
			continue
		}

		// Handlers run on this connection's goroutine: events from one
		// socket are processed in order while other connections proceed
		// concurrently.
		c.gateway.dispatch(c.ctx, c, &frame)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload := <-c.send:
			if c.isClosed() {
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				slog.Debug("error writing message", "clientID", c.id, "error", err)
				return
			}

		case <-ticker.C:
			if c.isClosed() {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			c.hub.refreshPresence(c.identity.UserID)

		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// Serve registers the client with the hub and starts its pumps. The caller
// has already authenticated the upgrade request.
func (c *Client) Serve() {
	select {
	case c.hub.register <- c:
	case <-time.After(5 * time.Second):
		slog.Error("timeout registering client", "clientID", c.id)
		c.conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()

	slog.Info("websocket connection established", "clientID", c.id, "userID", c.identity.UserID)
}
