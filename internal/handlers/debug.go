package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatlist-service/internal/repositories"
	"chatlist-service/internal/telemetry"
)

// RegisterDebugRoutes wires read-only diagnostic endpoints. They dump raw
// store contents for a chat or message and have no side effects beyond an
// optional audit ping; they are off unless explicitly enabled.
func RegisterDebugRoutes(router *gin.Engine, chatRepo repositories.ChatRepository,
	messageRepo repositories.MessageRepository, emitter *telemetry.AuditEmitter, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/chats/:chat_id", func(c *gin.Context) {
		chatID := c.Param("chat_id")

		chat, err := chatRepo.GetChat(c.Request.Context(), chatID)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, repositories.ErrChatNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		msgs, err := messageRepo.GetChatMessages(c.Request.Context(), chatID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.IndentedJSON(http.StatusOK, gin.H{"chat": chat, "messages": msgs})
	})

	router.GET("/debug/messages/:message_id", func(c *gin.Context) {
		msg, err := messageRepo.GetMessage(c.Request.Context(), c.Param("message_id"))
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, repositories.ErrMessageNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		c.IndentedJSON(http.StatusOK, gin.H{"message": msg})
	})

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		emitter.Emit(c.Request.Context(), "INFO", "audit test", requestIDFromContext(c), "")
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
