package chatlist

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chatlist-service/internal/bus"
	"chatlist-service/internal/metacache"
	"chatlist-service/internal/mocks"
	"chatlist-service/internal/models"
	"chatlist-service/internal/repositories"
)

type fixture struct {
	chatRepo    *mocks.ChatRepositoryMock
	messageRepo *mocks.MessageRepositoryMock
	activeRepo  *mocks.ActiveChatRepositoryMock
	events      *bus.Bus
	state       *SyncState
	list        *ChatList
}

func newFixture() *fixture {
	f := &fixture{
		chatRepo:    new(mocks.ChatRepositoryMock),
		messageRepo: new(mocks.MessageRepositoryMock),
		activeRepo:  new(mocks.ActiveChatRepositoryMock),
		events:      bus.New(),
		state:       NewSyncState(),
	}
	f.list = New(f.chatRepo, f.messageRepo, f.activeRepo, metacache.New(), f.events, f.state)
	return f
}

func chatFixture(id string, ts time.Time) models.Chat {
	return models.Chat{ID: id, LastMessageAt: ts, CreatedAt: ts, UpdatedAt: ts}
}

func (f *fixture) countTopic(topic string) *int {
	count := new(int)
	f.events.Subscribe(topic, func(bus.Event) { *count++ })
	return count
}

func TestRefreshIsIdempotentAcrossEventOrderings(t *testing.T) {
	f := newFixture()
	now := time.Now()
	store := []models.Chat{chatFixture("a", now), chatFixture("b", now.Add(-time.Hour)), chatFixture("c", now.Add(-2*time.Hour))}
	f.chatRepo.On("GetAllChats", mock.Anything).Return(store, nil)

	f.list.Start()
	defer f.list.Stop()

	// Duplicated and out-of-order delivery; every handler re-reads the store.
	f.events.Publish(bus.Event{Topic: bus.TopicPhase3Last100ChatsReady, ChatCount: 100})
	f.events.Publish(bus.Event{Topic: bus.TopicPhase2Last20ChatsReady, ChatCount: 20})
	f.events.Publish(bus.Event{Topic: bus.TopicPhase2Last20ChatsReady, ChatCount: 20})
	f.events.Publish(bus.Event{Topic: bus.TopicDraftChanged})

	got := f.list.Chats()
	require.Len(t, got, len(store))
	ids := []string{got[0].ID, got[1].ID, got[2].ID}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestPhase1QueuesSelectionWhenNothingActive(t *testing.T) {
	f := newFixture()
	now := time.Now()
	f.chatRepo.On("GetAllChats", mock.Anything).Return([]models.Chat{chatFixture("a", now)}, nil)
	f.activeRepo.On("Set", mock.Anything, "a").Return(nil).Once()

	selected := f.countTopic(bus.TopicChatSelected)

	f.list.Start()
	defer f.list.Stop()
	f.events.Publish(bus.Event{Topic: bus.TopicPhase1LastChatReady, ChatID: "a"})

	require.NotNil(t, f.list.Selected())
	assert.Equal(t, "a", f.list.Selected().ID)
	assert.Equal(t, 1, *selected)
	f.activeRepo.AssertExpectations(t)
}

func TestPhase1SkipsAutoSelectionWhenUserNavigatedElsewhere(t *testing.T) {
	f := newFixture()
	now := time.Now()
	store := []models.Chat{chatFixture("a", now), chatFixture("b", now.Add(-time.Minute))}
	f.chatRepo.On("GetAllChats", mock.Anything).Return(store, nil)
	f.chatRepo.On("GetChat", mock.Anything, "b").Return(store[1], nil).Once()
	f.activeRepo.On("Set", mock.Anything, "b").Return(nil)

	f.list.Start()
	defer f.list.Stop()

	_, err := f.list.Select(context.Background(), "b")
	require.NoError(t, err)

	f.events.Publish(bus.Event{Topic: bus.TopicPhase1LastChatReady, ChatID: "a"})

	require.NotNil(t, f.list.Selected())
	assert.Equal(t, "b", f.list.Selected().ID, "phase 1 must not steal the user's selection")
}

func TestQueuedSelectionAbsentLeavesSelectionUnchanged(t *testing.T) {
	f := newFixture()
	f.chatRepo.On("GetAllChats", mock.Anything).Return([]models.Chat{chatFixture("a", time.Now())}, nil)

	selected := f.countTopic(bus.TopicChatSelected)
	deselected := f.countTopic(bus.TopicChatDeselected)

	f.list.Start()
	defer f.list.Stop()
	f.events.Publish(bus.Event{Topic: bus.TopicPhase1LastChatReady, ChatID: "missing"})

	assert.Nil(t, f.list.Selected())
	assert.Zero(t, *selected)
	assert.Zero(t, *deselected)
}

func TestVanishedSelectionDeselectsExactlyOnce(t *testing.T) {
	f := newFixture()
	now := time.Now()
	a := chatFixture("a", now)
	f.chatRepo.On("GetChat", mock.Anything, "a").Return(a, nil).Once()
	f.chatRepo.On("GetAllChats", mock.Anything).Return([]models.Chat{}, nil)
	f.activeRepo.On("Set", mock.Anything, "a").Return(nil).Once()

	deselected := f.countTopic(bus.TopicChatDeselected)

	f.list.Start()
	defer f.list.Stop()

	_, err := f.list.Select(context.Background(), "a")
	require.NoError(t, err)

	f.events.Publish(bus.Event{Topic: bus.TopicDraftChanged})
	assert.Nil(t, f.list.Selected())
	assert.Equal(t, 1, *deselected)

	// Further refreshes must not re-fire the notification.
	f.events.Publish(bus.Event{Topic: bus.TopicDraftChanged})
	assert.Equal(t, 1, *deselected)
}

func TestDisplayLimitIsMonotonic(t *testing.T) {
	f := newFixture()
	f.chatRepo.On("GetAllChats", mock.Anything).Return([]models.Chat{}, nil)

	f.list.Start()
	defer f.list.Stop()

	assert.Equal(t, initialDisplayLimit, f.list.DisplayLimit())

	f.events.Publish(bus.Event{Topic: bus.TopicPhase2Last20ChatsReady, ChatCount: 20})
	assert.Equal(t, 20, f.list.DisplayLimit())

	// A lower count never lowers the limit.
	f.events.Publish(bus.Event{Topic: bus.TopicPhase2Last20ChatsReady, ChatCount: 5})
	assert.Equal(t, 20, f.list.DisplayLimit())

	f.events.Publish(bus.Event{Topic: bus.TopicPhase3Last100ChatsReady, ChatCount: 100})
	assert.Equal(t, UnlimitedDisplay, f.list.DisplayLimit())

	// Unbounded is sticky.
	f.events.Publish(bus.Event{Topic: bus.TopicPhase2Last20ChatsReady, ChatCount: 20})
	assert.Equal(t, UnlimitedDisplay, f.list.DisplayLimit())
}

func TestPhase2RevealsTwentyChats(t *testing.T) {
	f := newFixture()
	now := time.Now()
	store := make([]models.Chat, 0, 30)
	for i := 0; i < 30; i++ {
		id := string(rune('a'+i%26)) + string(rune('0'+i/26))
		store = append(store, chatFixture(id, now.Add(-time.Duration(i)*time.Minute)))
	}
	f.chatRepo.On("GetAllChats", mock.Anything).Return(store, nil)

	f.list.Start()
	defer f.list.Stop()

	f.events.Publish(bus.Event{Topic: bus.TopicDraftChanged})
	assert.Len(t, f.list.Visible(), initialDisplayLimit)

	f.events.Publish(bus.Event{Topic: bus.TopicPhase2Last20ChatsReady, ChatCount: 20})
	visible := f.list.Visible()
	require.Len(t, visible, 20)

	grouped := GroupChats(visible, now)
	total := 0
	for _, g := range grouped {
		total += len(g.Chats)
	}
	assert.Equal(t, 20, total)
}

func TestSyncCompleteInstallsServerOrder(t *testing.T) {
	f := newFixture()
	now := time.Now()
	// Recency order is c, b, a; the server order must win for ranked chats.
	store := []models.Chat{
		chatFixture("a", now.Add(-2*time.Hour)),
		chatFixture("b", now.Add(-time.Hour)),
		chatFixture("c", now),
	}
	f.chatRepo.On("GetAllChats", mock.Anything).Return(store, nil)

	f.list.Start()
	defer f.list.Stop()

	f.events.Publish(bus.Event{Topic: bus.TopicSyncComplete, ServerChatOrder: []string{"a", "b", "c"}})
	// Order installs before the completion refresh, but a later event must
	// also see it.
	f.events.Publish(bus.Event{Topic: bus.TopicDraftChanged})

	got := f.list.Chats()
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, "c", got[2].ID)
	assert.True(t, f.state.InitialSyncDone())
	assert.Equal(t, UnlimitedDisplay, f.list.DisplayLimit())
}

func TestPhasedSyncCompleteMarksInitialSyncDone(t *testing.T) {
	f := newFixture()
	f.chatRepo.On("GetAllChats", mock.Anything).Return([]models.Chat{}, nil)

	f.list.Start()
	defer f.list.Stop()

	require.False(t, f.state.InitialSyncDone())
	f.events.Publish(bus.Event{Topic: bus.TopicPhasedSyncComplete})
	assert.True(t, f.state.InitialSyncDone())
	assert.True(t, f.list.Status().SyncFlash)
}

func TestChatUpdatedReannouncesActiveSelection(t *testing.T) {
	f := newFixture()
	now := time.Now()
	stale := chatFixture("a", now.Add(-time.Hour))
	fresh := chatFixture("a", now)
	f.chatRepo.On("GetChat", mock.Anything, "a").Return(stale, nil).Once()
	f.chatRepo.On("GetAllChats", mock.Anything).Return([]models.Chat{fresh}, nil)
	f.activeRepo.On("Set", mock.Anything, "a").Return(nil)
	f.messageRepo.On("UpsertMessage", mock.Anything, mock.Anything).Return(nil).Once()

	var announced []models.Chat
	f.events.Subscribe(bus.TopicChatSelected, func(e bus.Event) {
		if e.Chat != nil {
			announced = append(announced, *e.Chat)
		}
	})

	f.list.Start()
	defer f.list.Stop()

	_, err := f.list.Select(context.Background(), "a")
	require.NoError(t, err)

	msg := &models.Message{ID: "m1", ChatID: "a", Role: models.RoleAssistant, Status: models.StatusSynced, CreatedAt: now}
	f.events.Publish(bus.Event{Topic: bus.TopicChatUpdated, ChatID: "a", NewMessage: msg})

	// One announce from Select, one re-announce carrying the updated record.
	require.Len(t, announced, 2)
	assert.Equal(t, fresh.LastMessageAt.Unix(), announced[1].LastMessageAt.Unix())
	f.messageRepo.AssertExpectations(t)
}

func TestChatDeletedClearsSelectionAndPersistedActiveChat(t *testing.T) {
	f := newFixture()
	now := time.Now()
	a := chatFixture("a", now)
	f.chatRepo.On("GetChat", mock.Anything, "a").Return(a, nil).Once()
	f.chatRepo.On("GetAllChats", mock.Anything).Return([]models.Chat{}, nil)
	f.activeRepo.On("Set", mock.Anything, "a").Return(nil).Once()
	f.activeRepo.On("Clear", mock.Anything).Return(nil).Once()

	deselected := f.countTopic(bus.TopicChatDeselected)

	f.list.Start()
	defer f.list.Stop()

	_, err := f.list.Select(context.Background(), "a")
	require.NoError(t, err)

	f.events.Publish(bus.Event{Topic: bus.TopicChatDeleted, ChatID: "a"})

	assert.Nil(t, f.list.Selected())
	assert.Equal(t, 1, *deselected)
	f.activeRepo.AssertExpectations(t)
}

func TestStoreFailureEmptiesListWithoutEscaping(t *testing.T) {
	f := newFixture()
	now := time.Now()
	a := chatFixture("a", now)
	f.chatRepo.On("GetChat", mock.Anything, "a").Return(a, nil).Once()
	f.chatRepo.On("GetAllChats", mock.Anything).Return([]models.Chat{a}, nil).Once()
	f.chatRepo.On("GetAllChats", mock.Anything).Return(([]models.Chat)(nil), assert.AnError)
	f.activeRepo.On("Set", mock.Anything, "a").Return(nil)

	f.list.Start()
	defer f.list.Stop()

	_, err := f.list.Select(context.Background(), "a")
	require.NoError(t, err)

	f.events.Publish(bus.Event{Topic: bus.TopicDraftChanged})
	require.Len(t, f.list.Chats(), 1)

	// No panic or error may escape the handler; the list just empties.
	f.events.Publish(bus.Event{Topic: bus.TopicDraftChanged})
	assert.Empty(t, f.list.Chats())
	assert.Nil(t, f.list.Selected())
}

func TestRestoreSelectionQueuesPersistedChat(t *testing.T) {
	f := newFixture()
	now := time.Now()
	f.chatRepo.On("GetAllChats", mock.Anything).Return([]models.Chat{chatFixture("a", now)}, nil)
	f.activeRepo.On("Get", mock.Anything).Return("a", nil).Once()
	f.activeRepo.On("Set", mock.Anything, "a").Return(nil).Once()

	f.list.Start()
	defer f.list.Stop()
	f.list.RestoreSelection(context.Background())

	f.events.Publish(bus.Event{Topic: bus.TopicDraftChanged})

	require.NotNil(t, f.list.Selected())
	assert.Equal(t, "a", f.list.Selected().ID)
	f.activeRepo.AssertExpectations(t)
}

func TestRestoreSelectionNoopWhenNothingPersisted(t *testing.T) {
	f := newFixture()
	f.activeRepo.On("Get", mock.Anything).Return("", repositories.ErrNoActiveChat).Once()

	f.list.RestoreSelection(context.Background())

	assert.Nil(t, f.list.Selected())
	f.activeRepo.AssertExpectations(t)
}

func TestSyncFlashClearsAfterDelay(t *testing.T) {
	f := newFixture()
	f.chatRepo.On("GetAllChats", mock.Anything).Return([]models.Chat{}, nil)

	f.list.Start()
	defer f.list.Stop()

	f.events.Publish(bus.Event{Topic: bus.TopicPhase3Last100ChatsReady, ChatCount: 100})
	require.True(t, f.list.Status().SyncFlash)

	time.Sleep(syncFlashDuration + 100*time.Millisecond)
	assert.False(t, f.list.Status().SyncFlash)
}

func TestStopDetachesHandlers(t *testing.T) {
	f := newFixture()
	f.chatRepo.On("GetAllChats", mock.Anything).Return([]models.Chat{}, nil)

	f.list.Start()
	f.events.Publish(bus.Event{Topic: bus.TopicPhase2Last20ChatsReady, ChatCount: 20})
	require.Equal(t, 20, f.list.DisplayLimit())

	f.list.Stop()
	f.events.Publish(bus.Event{Topic: bus.TopicPhase3Last100ChatsReady, ChatCount: 100})
	assert.Equal(t, 20, f.list.DisplayLimit(), "no handler may fire after teardown")
}
