package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"chatlist-service/internal/bus"
	"chatlist-service/internal/chatlist"
	"chatlist-service/internal/metacache"
	"chatlist-service/internal/models"
	"chatlist-service/internal/repositories"
	"chatlist-service/internal/telemetry"
)

// ChatListHandler exposes the materialized chat list and user actions on it.
type ChatListHandler struct {
	list        *chatlist.ChatList
	chatRepo    repositories.ChatRepository
	messageRepo repositories.MessageRepository
	cache       *metacache.Cache
	events      *bus.Bus
	audit       *telemetry.AuditEmitter
}

// NewChatListHandler builds a ChatListHandler.
func NewChatListHandler(list *chatlist.ChatList, chatRepo repositories.ChatRepository,
	messageRepo repositories.MessageRepository, cache *metacache.Cache,
	events *bus.Bus, audit *telemetry.AuditEmitter) *ChatListHandler {
	return &ChatListHandler{
		list:        list,
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		cache:       cache,
		events:      events,
		audit:       audit,
	}
}

type chatResponse struct {
	models.Chat
	LastMessagePreview string `json:"last_message_preview,omitempty"`
	MessageCount       int    `json:"message_count,omitempty"`
}

type groupResponse struct {
	Label string         `json:"label"`
	Chats []chatResponse `json:"chats"`
}

// ListChats returns the visible chats grouped by date bucket, plus sync
// status. The view is always a prefix of the full sorted set.
func (h *ChatListHandler) ListChats(c *gin.Context) {
	groups := h.list.Grouped(time.Now())

	resp := make([]groupResponse, 0, len(groups))
	for _, group := range groups {
		chats := make([]chatResponse, 0, len(group.Chats))
		for _, chat := range group.Chats {
			cr := chatResponse{Chat: chat}
			if meta, ok := h.cache.Get(chat.ID); ok {
				cr.LastMessagePreview = meta.LastMessagePreview
				cr.MessageCount = meta.MessageCount
			}
			chats = append(chats, cr)
		}
		resp = append(resp, groupResponse{Label: group.Label, Chats: chats})
	}

	c.JSON(http.StatusOK, gin.H{"groups": resp, "status": h.list.Status()})
}

// GetChat returns a single chat and refreshes its cached metadata.
func (h *ChatListHandler) GetChat(c *gin.Context) {
	chatID := c.Param("chat_id")

	chat, err := h.chatRepo.GetChat(c.Request.Context(), chatID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrChatNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "chat not found"})
		return
	}

	msgs, err := h.messageRepo.GetChatMessages(c.Request.Context(), chatID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	meta := metacache.Meta{
		MessageCount: len(msgs),
		TitleVersion: chat.TitleVersion,
		DraftVersion: chat.DraftVersion,
	}
	if len(msgs) > 0 {
		meta.LastMessagePreview = preview(msgs[len(msgs)-1])
	}
	h.cache.Put(chat.ID, meta)

	c.JSON(http.StatusOK, gin.H{"chat": chat, "messages": msgs})
}

// GetChatMessages returns a chat's messages in send order.
func (h *ChatListHandler) GetChatMessages(c *gin.Context) {
	chatID := c.Param("chat_id")

	if _, err := h.chatRepo.GetChat(c.Request.Context(), chatID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrChatNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "chat not found"})
		return
	}

	msgs, err := h.messageRepo.GetChatMessages(c.Request.Context(), chatID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// SelectChat makes a chat the active selection.
func (h *ChatListHandler) SelectChat(c *gin.Context) {
	chatID := c.Param("chat_id")

	chat, err := h.list.Select(c.Request.Context(), chatID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrChatNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "chat not found"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", "chat selected", requestIDFromContext(c), chatID)
	c.JSON(http.StatusOK, gin.H{"chat": chat})
}

// DeselectChat clears the active selection.
func (h *ChatListHandler) DeselectChat(c *gin.Context) {
	h.list.Deselect(c.Request.Context())
	c.Status(http.StatusNoContent)
}

// PinChat toggles the pinned flag and nudges the list to refresh.
func (h *ChatListHandler) PinChat(c *gin.Context) {
	h.setFlag(c, h.chatRepo.SetPinned, "pinned")
}

// HideChat toggles the hidden flag and nudges the list to refresh.
func (h *ChatListHandler) HideChat(c *gin.Context) {
	h.setFlag(c, h.chatRepo.SetHidden, "hidden")
}

func (h *ChatListHandler) setFlag(c *gin.Context, set func(ctx context.Context, chatID string, value bool) error, name string) {
	chatID := c.Param("chat_id")

	var req struct {
		Value *bool `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := set(c.Request.Context(), chatID, *req.Value); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrChatNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "could not update chat"})
		return
	}

	// User actions go through the same event path as sync updates, so the
	// listener re-reads the store instead of patching memory.
	h.events.Publish(bus.Event{Topic: bus.TopicChatUpdated, ChatID: chatID})
	h.audit.Emit(c.Request.Context(), "INFO", "chat "+name+" changed", requestIDFromContext(c), chatID)
	c.Status(http.StatusNoContent)
}

// DeleteChat removes a chat from the local store.
func (h *ChatListHandler) DeleteChat(c *gin.Context) {
	chatID := c.Param("chat_id")

	if err := h.chatRepo.DeleteChat(c.Request.Context(), chatID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrChatNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "could not delete chat"})
		return
	}

	h.events.Publish(bus.Event{Topic: bus.TopicChatDeleted, ChatID: chatID})
	h.audit.Emit(c.Request.Context(), "INFO", "chat deleted", requestIDFromContext(c), chatID)
	c.Status(http.StatusNoContent)
}

// SyncStatus reports the listener's current sync progress.
func (h *ChatListHandler) SyncStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.list.Status())
}

func preview(msg models.Message) string {
	content := msg.Content
	if content == "" {
		// Encrypted content stays opaque; the UI decrypts client side.
		return ""
	}
	const maxPreview = 80
	if len(content) > maxPreview {
		cut := maxPreview
		// Never split a multi-byte rune.
		for cut > 0 && !utf8.RuneStart(content[cut]) {
			cut--
		}
		return content[:cut]
	}
	return content
}
