package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"chatlist-service/internal/bus"
	"chatlist-service/internal/logger"
	"chatlist-service/internal/models"
	"chatlist-service/internal/observability"
)

// Frame is pushed to every subscribed UI client.
type Frame struct {
	Type   string         `json:"type"`
	ChatID string         `json:"chat_id,omitempty"`
	Chat   *models.Chat   `json:"chat,omitempty"`
	Detail map[string]any `json:"detail,omitempty"`
}

// Hub fans chat-list events out to websocket subscribers so every connected
// UI stays in step with the selection and refresh lifecycle.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]ConnInfo
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]ConnInfo)}
}

// AddClient registers a websocket connection.
func (h *Hub) AddClient(conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = info
}

// RemoveClient removes a websocket connection. It reports whether the
// connection was still registered, so lifecycle metrics fire once even when
// broadcast eviction and the read-drain teardown race for the same conn.
func (h *Hub) RemoveClient(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; !ok {
		return false
	}
	delete(h.clients, conn)
	return true
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends the frame to all subscribers, dropping connections whose
// writes fail.
func (h *Hub) Broadcast(frame Frame) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	payload, _ := json.Marshal(frame)
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			logger.Errorf("websocket write error: %v", err)
			// Closing unblocks the read-drain goroutine, whose teardown owns
			// the connection metrics.
			conn.Close()
			if h.RemoveClient(conn) {
				observability.DecWSActive()
				observability.IncWSEvent("ws_error")
			}
		}
	}
	observability.IncWSEvent(frame.Type)
}

// Bridge subscribes the hub to the outbound bus topics and returns a detach
// func. Sync lifecycle topics collapse into a single sync_progress frame.
func (h *Hub) Bridge(b *bus.Bus) func() {
	progress := func(e bus.Event) {
		h.Broadcast(Frame{Type: "sync_progress", Detail: map[string]any{
			"event":      e.Topic,
			"chat_count": e.ChatCount,
		}})
	}

	unsubs := []func(){
		b.Subscribe(bus.TopicChatSelected, func(e bus.Event) {
			h.Broadcast(Frame{Type: "chat_selected", ChatID: e.ChatID, Chat: e.Chat})
		}),
		b.Subscribe(bus.TopicChatDeselected, func(e bus.Event) {
			h.Broadcast(Frame{Type: "chat_deselected", ChatID: e.ChatID})
		}),
		b.Subscribe(bus.TopicListRefreshed, func(e bus.Event) {
			h.Broadcast(Frame{Type: "list_refreshed", Detail: e.Detail})
		}),
		b.Subscribe(bus.TopicPhase1LastChatReady, progress),
		b.Subscribe(bus.TopicPhase2Last20ChatsReady, progress),
		b.Subscribe(bus.TopicPhase3Last100ChatsReady, progress),
		b.Subscribe(bus.TopicPhasedSyncComplete, progress),
		b.Subscribe(bus.TopicSyncComplete, progress),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}
