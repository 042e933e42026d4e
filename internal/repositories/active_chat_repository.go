package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var ErrNoActiveChat = errors.New("no active chat")

// ActiveChatRepository persists which chat the user last had open, so a
// restart can restore the selection.
type ActiveChatRepository interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, chatID string) error
	Clear(ctx context.Context) error
}

// ActiveChatRepo stores the active chat in a single-row table.
type ActiveChatRepo struct {
	db *sqlx.DB
}

// NewActiveChatRepo constructs an ActiveChatRepo.
func NewActiveChatRepo(db *sqlx.DB) *ActiveChatRepo {
	return &ActiveChatRepo{db: db}
}

// Get returns the persisted active chat id.
func (r *ActiveChatRepo) Get(ctx context.Context) (string, error) {
	var chatID string
	err := r.db.GetContext(ctx, &chatID, `SELECT chat_id FROM active_chat WHERE singleton = TRUE`)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoActiveChat
	}
	return chatID, err
}

// Set records the active chat id.
func (r *ActiveChatRepo) Set(ctx context.Context, chatID string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO active_chat (singleton, chat_id, updated_at)
        VALUES (TRUE, $1, NOW())
        ON CONFLICT (singleton) DO UPDATE SET chat_id = EXCLUDED.chat_id, updated_at = NOW()`, chatID)
	return err
}

// Clear removes the persisted active chat.
func (r *ActiveChatRepo) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM active_chat WHERE singleton = TRUE`)
	return err
}
