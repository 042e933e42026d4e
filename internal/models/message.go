package models

import "time"

// MessageRole identifies the author side of a message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// MessageStatus tracks delivery state. Synced messages are immutable except
// for further status transitions.
type MessageStatus string

const (
	StatusSending            MessageStatus = "sending"
	StatusWaitingForInternet MessageStatus = "waiting_for_internet"
	StatusStreaming          MessageStatus = "streaming"
	StatusProcessing         MessageStatus = "processing"
	StatusSynced             MessageStatus = "synced"
	StatusFailed             MessageStatus = "failed"
	StatusTruncated          MessageStatus = "truncated"
)

// Message is a single chat message. Exactly one of Content and
// EncryptedContent is expected to be set.
type Message struct {
	ID               string        `db:"id" json:"id"`
	ChatID           string        `db:"chat_id" json:"chat_id"`
	Role             MessageRole   `db:"role" json:"role"`
	Content          string        `db:"content" json:"content,omitempty"`
	EncryptedContent string        `db:"encrypted_content" json:"encrypted_content,omitempty"`
	Status           MessageStatus `db:"status" json:"status"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
}
