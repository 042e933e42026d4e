package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesSubscribers(t *testing.T) {
	b := New()

	var got []Event
	b.Subscribe(TopicChatUpdated, func(e Event) { got = append(got, e) })
	b.Subscribe(TopicChatUpdated, func(e Event) { got = append(got, e) })

	b.Publish(Event{Topic: TopicChatUpdated, ChatID: "a"})

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ChatID)
}

func TestPublishSkipsOtherTopics(t *testing.T) {
	b := New()

	count := 0
	b.Subscribe(TopicChatDeleted, func(Event) { count++ })

	b.Publish(Event{Topic: TopicChatUpdated, ChatID: "a"})
	assert.Zero(t, count)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()

	count := 0
	unsub := b.Subscribe(TopicDraftChanged, func(Event) { count++ })

	b.Publish(Event{Topic: TopicDraftChanged})
	require.Equal(t, 1, count)

	unsub()
	b.Publish(Event{Topic: TopicDraftChanged})
	assert.Equal(t, 1, count)
}

func TestHandlersRunInSubscriptionOrder(t *testing.T) {
	b := New()

	var order []int
	b.Subscribe(TopicSyncComplete, func(Event) { order = append(order, 1) })
	b.Subscribe(TopicSyncComplete, func(Event) { order = append(order, 2) })
	b.Subscribe(TopicSyncComplete, func(Event) { order = append(order, 3) })

	b.Publish(Event{Topic: TopicSyncComplete})
	assert.Equal(t, []int{1, 2, 3}, order)
}
