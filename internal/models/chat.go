package models

import "time"

// Chat is the locally materialized record of a conversation. Titles and the
// optional chat key arrive encrypted from the sync service and are stored opaque.
type Chat struct {
	ID             string    `db:"id" json:"id"`
	EncryptedTitle string    `db:"encrypted_title" json:"encrypted_title"`
	EncryptedKey   *string   `db:"encrypted_key" json:"encrypted_key,omitempty"`
	LastMessageAt  time.Time `db:"last_message_at" json:"last_message_at"`
	LastEditedAt   time.Time `db:"last_edited_at" json:"last_edited_at"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
	MessageVersion int       `db:"message_version" json:"message_version"`
	TitleVersion   int       `db:"title_version" json:"title_version"`
	DraftVersion   int       `db:"draft_version" json:"draft_version"`
	Hidden         bool      `db:"hidden" json:"hidden"`
	Pinned         bool      `db:"pinned" json:"pinned"`
	Shared         bool      `db:"shared" json:"shared"`
}

// RecencyTime is the timestamp used for sorting and date bucketing.
func (c Chat) RecencyTime() time.Time {
	if !c.LastMessageAt.IsZero() {
		return c.LastMessageAt
	}
	if !c.UpdatedAt.IsZero() {
		return c.UpdatedAt
	}
	return c.CreatedAt
}

// ChatGroup is a calendar-relative bucket of visible chats. Groups are derived
// on demand from the sorted list and never persisted.
type ChatGroup struct {
	Label string `json:"label"`
	Chats []Chat `json:"chats"`
}
