package ws

import (
	"testing"

	"chatlist-service/internal/bus"
)

func TestHubAddAndRemoveClient(t *testing.T) {
	hub := NewHub()

	hub.AddClient(nil, ConnInfo{ConnID: "c1"})
	if hub.ClientCount() != 1 {
		t.Fatalf("expected client to be registered")
	}

	if !hub.RemoveClient(nil) {
		t.Fatalf("expected removal of a registered client to be reported")
	}
	if hub.ClientCount() != 0 {
		t.Fatalf("expected client to be removed")
	}
}

func TestRemoveClientReportsRemovalOnce(t *testing.T) {
	hub := NewHub()
	hub.AddClient(nil, ConnInfo{ConnID: "c1"})

	// Broadcast eviction and the read-drain teardown can both try to remove
	// the same connection; only the first may account for it.
	if !hub.RemoveClient(nil) {
		t.Fatalf("first removal must be reported")
	}
	if hub.RemoveClient(nil) {
		t.Fatalf("second removal must not be reported")
	}
}

func TestBridgeDetaches(t *testing.T) {
	hub := NewHub()
	b := bus.New()

	detach := hub.Bridge(b)

	// With no clients a broadcast is a no-op; this must not panic.
	b.Publish(bus.Event{Topic: bus.TopicChatSelected, ChatID: "a"})
	b.Publish(bus.Event{Topic: bus.TopicListRefreshed})

	detach()
	b.Publish(bus.Event{Topic: bus.TopicChatDeselected, ChatID: "a"})
}
