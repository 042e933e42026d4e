package rabbitmq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatlist-service/internal/bus"
)

func TestDispatchPublishesDecodedEvent(t *testing.T) {
	b := bus.New()
	c := &Consumer{bus: b}

	var got []bus.Event
	b.Subscribe(bus.TopicSyncComplete, func(e bus.Event) { got = append(got, e) })

	c.dispatch([]byte(`{
		"event": "syncComplete",
		"detail": {"chat_count": 3, "serverChatOrder": ["a", "b", "c"]}
	}`))

	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].ChatCount)
	assert.Equal(t, []string{"a", "b", "c"}, got[0].ServerChatOrder)
}

func TestDispatchDropsUndecodableBody(t *testing.T) {
	b := bus.New()
	c := &Consumer{bus: b}

	count := 0
	b.Subscribe(bus.TopicSyncComplete, func(bus.Event) { count++ })

	c.dispatch([]byte(`not json`))
	assert.Zero(t, count)
}

func TestDispatchCarriesNewMessage(t *testing.T) {
	b := bus.New()
	c := &Consumer{bus: b}

	var got []bus.Event
	b.Subscribe(bus.TopicChatUpdated, func(e bus.Event) { got = append(got, e) })

	c.dispatch([]byte(`{
		"event": "chatUpdated",
		"detail": {
			"chat_id": "a",
			"newMessage": {"id": "m1", "chat_id": "a", "role": "user", "content": "hi", "status": "synced"}
		}
	}`))

	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ChatID)
	require.NotNil(t, got[0].NewMessage)
	assert.Equal(t, "m1", got[0].NewMessage.ID)
}

func TestNewConsumerRejectsEmptyURL(t *testing.T) {
	_, err := NewConsumer("", "chat_sync", "q", bus.New())
	require.Error(t, err)
}
