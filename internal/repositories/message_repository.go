package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"chatlist-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions for locally stored messages.
type MessageRepository interface {
	UpsertMessage(ctx context.Context, msg models.Message) error
	GetChatMessages(ctx context.Context, chatID string) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID string) (models.Message, error)
	UpdateStatus(ctx context.Context, messageID string, status models.MessageStatus) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// UpsertMessage stores a message delivered by the send/receive flow. Synced
// messages keep their content; only the status column may move afterwards.
func (r *MessageRepo) UpsertMessage(ctx context.Context, msg models.Message) error {
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO messages
        (id, chat_id, role, content, encrypted_content, status, created_at)
        VALUES (:id, :chat_id, :role, :content, :encrypted_content, :status, :created_at)
        ON CONFLICT (id) DO UPDATE SET
         content = CASE WHEN messages.status = 'synced' THEN messages.content ELSE EXCLUDED.content END,
         encrypted_content = CASE WHEN messages.status = 'synced' THEN messages.encrypted_content ELSE EXCLUDED.encrypted_content END,
         status = EXCLUDED.status`, msg)
	return err
}

// GetChatMessages returns a chat's messages in send order.
func (r *MessageRepo) GetChatMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, chat_id, role, content, encrypted_content,
        status, created_at FROM messages WHERE chat_id=$1 ORDER BY created_at ASC`, chatID)
	return msgs, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT id, chat_id, role, content, encrypted_content,
        status, created_at FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// UpdateStatus moves a message through its delivery lifecycle.
func (r *MessageRepo) UpdateStatus(ctx context.Context, messageID string, status models.MessageStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET status=$1 WHERE id=$2`, status, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}
