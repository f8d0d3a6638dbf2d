package broker

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	brokererrors "github.com/railwatch/broker/internal/errors"
	"github.com/railwatch/broker/internal/logger"
	"github.com/railwatch/broker/internal/presence"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Signaling payloads are small;
	// SDP offers top out around tens of KB.
	maxMessageSize = 256 * 1024

	// Outbound buffer per connection
	sendBufferSize = 256
)

// Client is one authenticated signaling connection.
//
// Lifecycle: the WebSocket handshake authenticates the token, which fixes
// ClientID and Role for the life of the connection (CONNECTED). A
// register-<role> message moves it to REGISTERED; only then may it issue
// session, signaling, crew, or heartbeat messages. Disconnect runs the
// controller's cascading cleanup exactly once.
type Client struct {
	// ID is the connection handle, unique for the connection's lifetime.
	ID string

	// ClientID and Role come from the verified auth token.
	ClientID string
	Role     presence.Role

	conn *websocket.Conn
	send chan []byte

	// registered flips when a register-<role> message is accepted.
	registered atomic.Bool

	closeOnce sync.Once
}

// NewClient wraps an upgraded connection with its identity.
func NewClient(connectionID, clientID string, role presence.Role, conn *websocket.Conn) *Client {
	return &Client{
		ID:       connectionID,
		ClientID: clientID,
		Role:     role,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
	}
}

// Start launches the read and write pumps. The handshake handler returns
// immediately after calling this.
func (c *Client) Start(ctl *Controller) {
	go c.writePump()
	go c.readPump(ctl)
}

// Registered reports whether the connection has completed registration.
func (c *Client) Registered() bool {
	return c.registered.Load()
}

// markRegistered moves the connection to the REGISTERED state.
func (c *Client) markRegistered() {
	c.registered.Store(true)
}

// Send marshals and queues an outbound message. Returns an error when the
// send buffer is full (slow client) or the connection is closing.
func (c *Client) Send(msgType string, payload interface{}) error {
	frame, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	if !c.trySendFrame(frame) {
		return errSendBufferFull
	}
	return nil
}

// SendError queues a wire-level error message for this client.
func (c *Client) SendError(berr *brokererrors.BrokerError) {
	frame, err := marshalEnvelope(MsgError, berr.ToWire(nowMs()))
	if err != nil {
		logger.Broker().Error().Err(err).Msg("Failed to marshal error message")
		return
	}
	c.trySendFrame(frame)
}

var errSendBufferFull = &sendBufferFullError{}

type sendBufferFullError struct{}

func (e *sendBufferFullError) Error() string { return "send buffer full" }

// trySendFrame queues a pre-marshaled frame without blocking.
func (c *Client) trySendFrame(frame []byte) bool {
	defer func() {
		// Send on a closed channel panics when racing close(); treat as a
		// failed send rather than taking down the caller.
		_ = recover()
	}()
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// close tears down the connection. Safe to call more than once; the pumps and
// eviction paths all funnel through here.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// readPump reads frames off the connection and dispatches them in arrival
// order. Runs as one goroutine per connection; exits on any read error, and
// on exit triggers the controller's disconnect cleanup.
func (c *Client) readPump(ctl *Controller) {
	defer func() {
		ctl.HandleDisconnect(c)
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Broker().Warn().Err(err).
					Str("clientId", c.ClientID).
					Msg("Unexpected connection close")
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			c.SendError(brokererrors.InvalidRequest("Message is not valid JSON"))
			continue
		}
		if env.Type == "" {
			c.SendError(brokererrors.InvalidRequest("Message type is required"))
			continue
		}

		ctl.Dispatch(c, env)
	}
}

// writePump drains the send buffer onto the connection and keeps the
// transport alive with periodic pings. One goroutine per connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
