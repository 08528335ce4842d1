package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"chat-hub/internal/observability"
)

// EventHandler consumes decoded-from-the-wire frames for one connection.
// Frames from a single connection arrive strictly in order; HandleDisconnect
// is called exactly once, after the last frame.
type EventHandler interface {
	HandleFrame(ctx context.Context, c *Client, frame []byte)
	HandleDisconnect(ctx context.Context, c *Client)
}

// Handler upgrades HTTP requests to websocket connections and runs the
// per-connection read loop.
type Handler struct {
	events EventHandler
}

// NewHandler constructs a websocket Handler.
func NewHandler(events EventHandler) *Handler {
	return &Handler{events: events}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and serves it until the socket closes.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("chat-hub/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      uuid.NewString(),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		ConnectedAt: time.Now(),
	}
	client := NewClient(conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("connect")

	go client.writePump()
	go h.readLoop(context.WithoutCancel(ctx), client)
}

func (h *Handler) readLoop(ctx context.Context, client *Client) {
	defer func() {
		h.events.HandleDisconnect(ctx, client)
		client.stop()
		client.conn.Close()
		observability.DecWSActive()
		observability.IncWSEvent("disconnect")
	}()

	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := client.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("error")
			}
			return
		}
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		h.events.HandleFrame(ctx, client, frame)
	}
}
