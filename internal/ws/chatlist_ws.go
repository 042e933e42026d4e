package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"chatlist-service/internal/observability"
)

// ChatListWebSocketHandler subscribes UI clients to chat-list events.
type ChatListWebSocketHandler struct {
	hub *Hub
}

// NewChatListWebSocketHandler constructs a ChatListWebSocketHandler.
func NewChatListWebSocketHandler(hub *Hub) *ChatListWebSocketHandler {
	return &ChatListWebSocketHandler{hub: hub}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and registers the client.
func (h *ChatListWebSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("chatlist-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      uuid.NewString(),
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.AddClient(conn, info)
	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")

	// Drain reads so close frames are noticed; the hub only ever writes.
	go func() {
		defer func() {
			if h.hub.RemoveClient(conn) {
				observability.DecWSActive()
				observability.IncWSEvent("ws_disconnect")
			}
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent("ws_error")
				}
				return
			}
		}
	}()
}
