package chatlist

import (
	"context"
	"errors"
	"sync"
	"time"

	"chatlist-service/internal/bus"
	"chatlist-service/internal/logger"
	"chatlist-service/internal/metacache"
	"chatlist-service/internal/models"
	"chatlist-service/internal/observability"
	"chatlist-service/internal/repositories"
)

// UnlimitedDisplay marks the display limit as unbounded. Once reached it is
// sticky for the lifetime of the list.
const UnlimitedDisplay = -1

// initialDisplayLimit covers the last-opened chat plus a little context while
// phase 1 is the only data available.
const initialDisplayLimit = 3

// syncFlashDuration is how long the transient "sync complete" flag stays up.
const syncFlashDuration = time.Second

// Status is a snapshot of the list's sync progress for the HTTP surface.
type Status struct {
	ChatCount       int    `json:"chat_count"`
	DisplayLimit    int    `json:"display_limit"`
	SelectedChatID  string `json:"selected_chat_id,omitempty"`
	SyncFlash       bool   `json:"sync_flash"`
	InitialSyncDone bool   `json:"initial_sync_done"`
}

// ChatList reacts to sync lifecycle events from the bus, keeps a wholesale
// materialized copy of the local chat store, and progressively lifts the
// display limit as sync phases land. Every handler re-reads the full store
// rather than patching in memory, so duplicate or out-of-order delivery is
// self-correcting.
type ChatList struct {
	chats    repositories.ChatRepository
	messages repositories.MessageRepository
	active   repositories.ActiveChatRepository
	cache    *metacache.Cache
	events   *bus.Bus
	state    *SyncState

	mu             sync.Mutex
	list           []models.Chat
	selected       *models.Chat
	queuedSelectID string
	limit          int
	serverRank     map[string]int
	flash          bool
	flashTimer     *time.Timer

	unsubscribe []func()
}

// New builds a ChatList. Call Start to attach it to the bus.
func New(chats repositories.ChatRepository, messages repositories.MessageRepository,
	active repositories.ActiveChatRepository, cache *metacache.Cache,
	events *bus.Bus, state *SyncState) *ChatList {
	return &ChatList{
		chats:      chats,
		messages:   messages,
		active:     active,
		cache:      cache,
		events:     events,
		state:      state,
		limit:      initialDisplayLimit,
		serverRank: map[string]int{},
	}
}

// Start subscribes the list to the sync lifecycle topics.
func (l *ChatList) Start() {
	l.unsubscribe = []func(){
		l.events.Subscribe(bus.TopicPhase1LastChatReady, l.safe(bus.TopicPhase1LastChatReady, l.HandlePhase1)),
		l.events.Subscribe(bus.TopicPhase2Last20ChatsReady, l.safe(bus.TopicPhase2Last20ChatsReady, l.HandlePhase2)),
		l.events.Subscribe(bus.TopicPhase3Last100ChatsReady, l.safe(bus.TopicPhase3Last100ChatsReady, l.HandlePhase3)),
		l.events.Subscribe(bus.TopicPhasedSyncComplete, l.safe(bus.TopicPhasedSyncComplete, l.HandlePhasedSyncComplete)),
		l.events.Subscribe(bus.TopicSyncComplete, l.safe(bus.TopicSyncComplete, l.HandleSyncComplete)),
		l.events.Subscribe(bus.TopicChatUpdated, l.safe(bus.TopicChatUpdated, l.HandleChatUpdated)),
		l.events.Subscribe(bus.TopicChatDeleted, l.safe(bus.TopicChatDeleted, l.HandleChatDeleted)),
		l.events.Subscribe(bus.TopicDraftChanged, l.safe(bus.TopicDraftChanged, l.HandleDraftChanged)),
	}
}

// Stop detaches the list from the bus. An in-flight refresh started before
// Stop still completes; its state assignment is harmless.
func (l *ChatList) Stop() {
	for _, unsub := range l.unsubscribe {
		unsub()
	}
	l.unsubscribe = nil

	l.mu.Lock()
	if l.flashTimer != nil {
		l.flashTimer.Stop()
		l.flashTimer = nil
	}
	l.mu.Unlock()
}

// RestoreSelection queues the persisted active chat so the next refresh
// re-selects it. Called once at startup, before any sync event lands; a
// selection made in the meantime wins.
func (l *ChatList) RestoreSelection(ctx context.Context) {
	chatID, err := l.active.Get(ctx)
	if err != nil {
		if !errors.Is(err, repositories.ErrNoActiveChat) {
			logger.Errorf("chatlist: restore active chat: %v", err)
		}
		return
	}

	l.mu.Lock()
	if l.selected == nil {
		l.queuedSelectID = chatID
	}
	l.mu.Unlock()
}

// safe wraps a handler so a panic in one event cannot break delivery of the
// next. Errors never propagate out of handlers.
func (l *ChatList) safe(topic string, h func(context.Context, bus.Event)) bus.Handler {
	return func(e bus.Event) {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("chatlist: %s handler panicked: %v", topic, r)
			}
		}()
		observability.IncSyncEvent(topic)
		h(context.Background(), e)
	}
}

// HandlePhase1 reacts to the last-opened chat becoming available. The target
// is queued for selection only when the user has not already navigated to a
// different chat; the refresh still runs either way so the chat shows up.
func (l *ChatList) HandlePhase1(ctx context.Context, e bus.Event) {
	l.mu.Lock()
	if l.selected == nil || l.selected.ID == e.ChatID {
		l.queuedSelectID = e.ChatID
	} else {
		logger.Debugf("chatlist: phase 1 target %s skipped, %s already active", e.ChatID, l.selected.ID)
	}
	l.mu.Unlock()

	l.refresh(ctx)
}

// HandlePhase2 reacts to the first ~20 chats being available.
func (l *ChatList) HandlePhase2(ctx context.Context, e bus.Event) {
	l.refresh(ctx)

	target := e.ChatCount
	if target < 20 {
		target = 20
	}
	l.raiseLimit(target)
}

// HandlePhase3 reacts to the first ~100 chats being available and removes the
// display limit entirely.
func (l *ChatList) HandlePhase3(ctx context.Context, e bus.Event) {
	l.refresh(ctx)
	l.raiseLimit(UnlimitedDisplay)
	l.startFlash()
}

// HandlePhasedSyncComplete is phase-3 behavior plus latching the process-wide
// initial-sync flag so a remount does not re-trigger a full sync.
func (l *ChatList) HandlePhasedSyncComplete(ctx context.Context, e bus.Event) {
	l.HandlePhase3(ctx, e)
	l.state.MarkInitialSyncDone()
}

// HandleSyncComplete installs the server chat order and then behaves like the
// overall completion event.
func (l *ChatList) HandleSyncComplete(ctx context.Context, e bus.Event) {
	l.mu.Lock()
	l.serverRank = OrderIndex(e.ServerChatOrder)
	l.mu.Unlock()

	l.HandlePhasedSyncComplete(ctx, e)
}

// HandleChatUpdated invalidates cached metadata, persists any carried
// chat record or message, refreshes, and re-announces the selection if it
// was the chat that changed.
func (l *ChatList) HandleChatUpdated(ctx context.Context, e bus.Event) {
	l.cache.Invalidate(e.ChatID)

	if e.Chat != nil {
		if err := l.chats.UpsertChat(ctx, *e.Chat); err != nil {
			logger.Errorf("chatlist: store chat %s: %v", e.ChatID, err)
		}
	}
	if e.NewMessage != nil {
		if err := l.messages.UpsertMessage(ctx, *e.NewMessage); err != nil {
			logger.Errorf("chatlist: store message for chat %s: %v", e.ChatID, err)
		}
	}

	l.refresh(ctx)

	l.mu.Lock()
	var updated *models.Chat
	if l.selected != nil && l.selected.ID == e.ChatID {
		chat := *l.selected
		updated = &chat
	}
	l.mu.Unlock()

	if updated != nil {
		l.events.Publish(bus.Event{Topic: bus.TopicChatSelected, ChatID: updated.ID, Chat: updated})
	}
}

// HandleChatDeleted invalidates cached metadata, refreshes, and clears both
// the in-memory and persisted selection when the deleted chat was active.
func (l *ChatList) HandleChatDeleted(ctx context.Context, e bus.Event) {
	l.mu.Lock()
	wasActive := l.selected != nil && l.selected.ID == e.ChatID
	l.mu.Unlock()

	l.cache.Invalidate(e.ChatID)
	l.refresh(ctx)

	if !wasActive {
		return
	}

	// The refresh normally deselects a vanished chat already; this covers a
	// store that has not caught up with the deletion event yet.
	l.mu.Lock()
	stillSelected := l.selected != nil && l.selected.ID == e.ChatID
	if stillSelected {
		l.selected = nil
	}
	l.mu.Unlock()
	if stillSelected {
		l.events.Publish(bus.Event{Topic: bus.TopicChatDeselected, ChatID: e.ChatID})
	}

	if err := l.active.Clear(ctx); err != nil {
		logger.Errorf("chatlist: clear active chat: %v", err)
	}
}

// HandleDraftChanged invalidates the affected chat's metadata and refreshes
// so draft previews and ordering stay current.
func (l *ChatList) HandleDraftChanged(ctx context.Context, e bus.Event) {
	if e.ChatID != "" {
		l.cache.Invalidate(e.ChatID)
	}
	l.refresh(ctx)
}

// refresh re-reads the complete chat set from the store, replaces the
// in-memory list wholesale, and resolves the selection: a queued id wins if
// present, otherwise a surviving prior selection is kept, otherwise the
// selection clears with a single deselect notification. A store failure
// empties the list and clears the selection; the next event is the only
// recovery path.
func (l *ChatList) refresh(ctx context.Context) {
	chats, err := l.chats.GetAllChats(ctx)
	if err != nil {
		logger.Errorf("chatlist: refresh failed: %v", err)
		observability.IncRefresh("error")

		l.mu.Lock()
		l.list = nil
		hadSelection := l.selected != nil
		var clearedID string
		if hadSelection {
			clearedID = l.selected.ID
		}
		l.selected = nil
		l.mu.Unlock()

		if hadSelection {
			l.events.Publish(bus.Event{Topic: bus.TopicChatDeselected, ChatID: clearedID})
		}
		return
	}
	observability.IncRefresh("ok")

	l.mu.Lock()
	SortChats(chats, l.serverRank)
	l.list = chats

	var selected *models.Chat
	var deselectedID string
	deselected := false

	if l.queuedSelectID != "" {
		if chat := findChat(chats, l.queuedSelectID); chat != nil {
			l.selected = chat
			l.queuedSelectID = ""
			c := *chat
			selected = &c
		} else {
			logger.Warnf("chatlist: queued chat %s not present after refresh", l.queuedSelectID)
			l.queuedSelectID = ""
		}
	}

	if selected == nil && l.selected != nil {
		if chat := findChat(chats, l.selected.ID); chat != nil {
			l.selected = chat
		} else {
			deselectedID = l.selected.ID
			l.selected = nil
			deselected = true
		}
	}
	count := len(chats)
	l.mu.Unlock()

	if selected != nil {
		if err := l.active.Set(ctx, selected.ID); err != nil {
			logger.Errorf("chatlist: persist active chat: %v", err)
		}
		l.events.Publish(bus.Event{Topic: bus.TopicChatSelected, ChatID: selected.ID, Chat: selected})
	}
	if deselected {
		l.events.Publish(bus.Event{Topic: bus.TopicChatDeselected, ChatID: deselectedID})
	}
	l.events.Publish(bus.Event{Topic: bus.TopicListRefreshed, Detail: map[string]any{"chat_count": count}})
}

// raiseLimit lifts the display limit. Lower values are ignored so the limit
// is monotonically non-decreasing; UnlimitedDisplay is sticky.
func (l *ChatList) raiseLimit(limit int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.limit == UnlimitedDisplay {
		return
	}
	if limit == UnlimitedDisplay || limit > l.limit {
		l.limit = limit
		observability.SetDisplayLimit(limit)
	}
}

func (l *ChatList) startFlash() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.flash = true
	if l.flashTimer != nil {
		l.flashTimer.Stop()
	}
	l.flashTimer = time.AfterFunc(syncFlashDuration, func() {
		l.mu.Lock()
		l.flash = false
		l.mu.Unlock()
	})
}

// Select makes the chat the active selection and persists it.
func (l *ChatList) Select(ctx context.Context, chatID string) (models.Chat, error) {
	chat, err := l.chats.GetChat(ctx, chatID)
	if err != nil {
		return models.Chat{}, err
	}

	l.mu.Lock()
	c := chat
	l.selected = &c
	l.mu.Unlock()

	if err := l.active.Set(ctx, chat.ID); err != nil {
		logger.Errorf("chatlist: persist active chat: %v", err)
	}
	l.events.Publish(bus.Event{Topic: bus.TopicChatSelected, ChatID: chat.ID, Chat: &chat})
	return chat, nil
}

// Deselect clears the active selection and its persisted record.
func (l *ChatList) Deselect(ctx context.Context) {
	l.mu.Lock()
	hadSelection := l.selected != nil
	var clearedID string
	if hadSelection {
		clearedID = l.selected.ID
	}
	l.selected = nil
	l.mu.Unlock()

	if !hadSelection {
		return
	}
	if err := l.active.Clear(ctx); err != nil {
		logger.Errorf("chatlist: clear active chat: %v", err)
	}
	l.events.Publish(bus.Event{Topic: bus.TopicChatDeselected, ChatID: clearedID})
}

// Chats returns a copy of the full sorted list.
func (l *ChatList) Chats() []models.Chat {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.Chat, len(l.list))
	copy(out, l.list)
	return out
}

// Visible returns the sorted prefix allowed by the current display limit.
func (l *ChatList) Visible() []models.Chat {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.list)
	if l.limit != UnlimitedDisplay && l.limit < n {
		n = l.limit
	}
	out := make([]models.Chat, n)
	copy(out, l.list[:n])
	return out
}

// Grouped returns the visible chats partitioned into date buckets.
func (l *ChatList) Grouped(now time.Time) []models.ChatGroup {
	return GroupChats(l.Visible(), now)
}

// Selected returns a copy of the active chat, if any.
func (l *ChatList) Selected() *models.Chat {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.selected == nil {
		return nil
	}
	chat := *l.selected
	return &chat
}

// DisplayLimit returns the current limit; UnlimitedDisplay once unbounded.
func (l *ChatList) DisplayLimit() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limit
}

// Status snapshots sync progress.
func (l *ChatList) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Status{
		ChatCount:       len(l.list),
		DisplayLimit:    l.limit,
		SyncFlash:       l.flash,
		InitialSyncDone: l.state.InitialSyncDone(),
	}
	if l.selected != nil {
		s.SelectedChatID = l.selected.ID
	}
	return s
}

func findChat(chats []models.Chat, chatID string) *models.Chat {
	for i := range chats {
		if chats[i].ID == chatID {
			return &chats[i]
		}
	}
	return nil
}
