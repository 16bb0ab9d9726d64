package broadcast

import (
	"log"
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	// Buffer size for outbound messages
	sendBufferSize = 64
)

// Client is one connected observer. It belongs to at most one match room at a
// time; the hub owns the room bookkeeping.
type Client struct {
	ID   string
	conn *websocket.Conn
	hub  *Hub

	// Send is drained by WritePump; the hub closes it on unregister.
	Send chan ServerMessage

	// matchID is the room the client is currently in. Touched only by the
	// hub loop.
	matchID string
}

// NewClient wraps an upgraded websocket connection.
func NewClient(id string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		ID:   id,
		conn: conn,
		hub:  hub,
		Send: make(chan ServerMessage, sendBufferSize),
	}
}

// ReadPump consumes messages from the observer until the connection drops.
// The only meaningful inbound message is a join request; anything else is
// ignored. Runs on the connection's handler goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("observer %s unexpected close: %v", c.ID, err)
			}
			return
		}

		if msg.Type == "join" && msg.MatchID != "" {
			c.hub.Register(c, msg.MatchID)
		}
	}
}

// WritePump pumps events from the hub to the observer, keeping the connection
// alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				log.Printf("observer %s write error: %v", c.ID, err)
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

// TrySend queues a message without blocking. Returns false when the buffer is
// full, signaling the hub to drop the observer.
func (c *Client) TrySend(msg ServerMessage) bool {
	select {
	case c.Send <- msg:
		return true
	default:
		return false
	}
}
