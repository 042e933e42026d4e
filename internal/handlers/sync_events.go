package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chatlist-service/internal/bus"
	"chatlist-service/internal/models"
)

// SyncEventHandler accepts sync lifecycle events over HTTP. It feeds the same
// bus as the AMQP consumer, for deployments where the sync service cannot
// reach RabbitMQ.
type SyncEventHandler struct {
	events *bus.Bus
}

// NewSyncEventHandler builds a SyncEventHandler.
func NewSyncEventHandler(events *bus.Bus) *SyncEventHandler {
	return &SyncEventHandler{events: events}
}

// Post decodes one sync lifecycle event and publishes it on the bus.
func (h *SyncEventHandler) Post(c *gin.Context) {
	var req struct {
		Event  string `json:"event" binding:"required"`
		Detail struct {
			ChatID          string          `json:"chat_id"`
			ChatCount       int             `json:"chat_count"`
			ServerChatOrder []string        `json:"serverChatOrder"`
			Chat            *models.Chat    `json:"chat"`
			NewMessage      *models.Message `json:"newMessage"`
			DraftDeleted    bool            `json:"draftDeleted"`
		} `json:"detail"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.events.Publish(bus.Event{
		Topic:           req.Event,
		ChatID:          req.Detail.ChatID,
		ChatCount:       req.Detail.ChatCount,
		ServerChatOrder: req.Detail.ServerChatOrder,
		Chat:            req.Detail.Chat,
		NewMessage:      req.Detail.NewMessage,
		DraftDeleted:    req.Detail.DraftDeleted,
	})
	c.Status(http.StatusAccepted)
}
