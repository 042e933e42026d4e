package bus

import (
	"sort"
	"sync"

	"chatlist-service/internal/models"
)

// Topic names carried on the bus. The phase topics are dispatched by the sync
// service in monotonic order, but subscribers must not rely on that: delivery
// may be duplicated or reordered.
const (
	TopicPhase1LastChatReady     = "phase_1_last_chat_ready"
	TopicPhase2Last20ChatsReady  = "phase_2_last_20_chats_ready"
	TopicPhase3Last100ChatsReady = "phase_3_last_100_chats_ready"
	TopicPhasedSyncComplete      = "phasedSyncComplete"
	TopicSyncComplete            = "syncComplete"
	TopicChatUpdated             = "chatUpdated"
	TopicChatDeleted             = "chatDeleted"
	TopicDraftChanged            = "draftChanged"

	TopicChatSelected   = "chatSelected"
	TopicChatDeselected = "chatDeselected"
	TopicListRefreshed  = "chatListRefreshed"
)

// Event is the typed payload shared by every topic. Fields are populated per
// topic; unused fields stay zero.
type Event struct {
	Topic           string          `json:"topic"`
	ChatID          string          `json:"chat_id,omitempty"`
	ChatCount       int             `json:"chat_count,omitempty"`
	ServerChatOrder []string        `json:"server_chat_order,omitempty"`
	NewMessage      *models.Message `json:"new_message,omitempty"`
	DraftDeleted    bool            `json:"draft_deleted,omitempty"`
	Chat            *models.Chat    `json:"chat,omitempty"`
	Detail          map[string]any  `json:"detail,omitempty"`
}

// Handler receives events for a subscribed topic.
type Handler func(Event)

// Bus is a synchronous in-process pub/sub mediator. Handlers run on the
// publisher's goroutine in subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]Handler
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[string]map[int]Handler)}
}

// Subscribe registers a handler for a topic and returns an unsubscribe func.
func (b *Bus) Subscribe(topic string, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[topic]; !ok {
		b.subs[topic] = make(map[int]Handler)
	}
	id := b.nextID
	b.nextID++
	b.subs[topic][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if handlers, ok := b.subs[topic]; ok {
			delete(handlers, id)
			if len(handlers) == 0 {
				delete(b.subs, topic)
			}
		}
	}
}

// Publish delivers the event to every handler subscribed to its topic.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	ids := make([]int, 0, len(b.subs[event.Topic]))
	for id := range b.subs[event.Topic] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, b.subs[event.Topic][id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}
