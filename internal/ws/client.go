package ws

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"chat-hub/internal/observability"
)

const (
	sendBufferSize = 256
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
)

// Client is one live websocket connection. The write pump owns all socket
// writes; the hub and the router only enqueue frames through the buffered
// send channel, so delivery never blocks the caller.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	info ConnInfo

	// userID is bound after a successful auth and is only touched by the
	// connection's reader goroutine.
	userID int
}

// NewClient wraps an upgraded connection. The write pump is started
// separately by the websocket handler.
func NewClient(conn *websocket.Conn, info ConnInfo) *Client {
	return &Client{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
		info: info,
	}
}

// Info returns the connection metadata.
func (c *Client) Info() ConnInfo {
	return c.info
}

// UserID returns the authenticated user id, or 0 before auth.
func (c *Client) UserID() int {
	return c.userID
}

// BindUser associates the connection with an authenticated user.
func (c *Client) BindUser(id int) {
	c.userID = id
}

// GetSendChan exposes the queued outbound frames. The write pump consumes
// it in production; tests read it directly.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

// Enqueue marshals the event and queues it for delivery to this connection.
// A full buffer drops the frame rather than blocking.
func (c *Client) Enqueue(event any) bool {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("ws: marshal event: %v", err)
		return false
	}
	return c.push(payload)
}

func (c *Client) push(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		observability.IncWSFramesDropped()
		log.Printf("ws: dropping frame for conn %s: send buffer full", c.info.ConnID)
		return false
	}
}

// stop releases the write pump. Called exactly once, by the read loop's
// close path.
func (c *Client) stop() {
	close(c.done)
}

// writePump drains the send channel onto the socket and keeps the
// connection alive with pings. It exits when the client is stopped or the
// socket write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("ws: write error on conn %s: %v", c.info.ConnID, err)
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
