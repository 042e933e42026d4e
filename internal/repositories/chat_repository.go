package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"chatlist-service/internal/models"
)

var ErrChatNotFound = errors.New("chat not found")

// ChatRepository abstracts the local chat store. The chat list treats it as
// the single source of truth and re-reads the full set on every sync event.
type ChatRepository interface {
	GetAllChats(ctx context.Context) ([]models.Chat, error)
	GetChat(ctx context.Context, chatID string) (models.Chat, error)
	UpsertChat(ctx context.Context, chat models.Chat) error
	SetPinned(ctx context.Context, chatID string, pinned bool) error
	SetHidden(ctx context.Context, chatID string, hidden bool) error
	DeleteChat(ctx context.Context, chatID string) error
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

const chatColumns = `id, encrypted_title, encrypted_key, last_message_at, last_edited_at,
    created_at, updated_at, message_version, title_version, draft_version, hidden, pinned, shared`

// GetAllChats returns every non-hidden chat in the store.
func (r *ChatRepo) GetAllChats(ctx context.Context) ([]models.Chat, error) {
	var chats []models.Chat
	err := r.db.SelectContext(ctx, &chats,
		`SELECT `+chatColumns+` FROM chats WHERE hidden = FALSE`)
	return chats, err
}

// GetChat fetches a chat by id.
func (r *ChatRepo) GetChat(ctx context.Context, chatID string) (models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat,
		`SELECT `+chatColumns+` FROM chats WHERE id=$1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, ErrChatNotFound
	}
	return chat, err
}

// UpsertChat inserts or replaces a chat record delivered by the sync service.
func (r *ChatRepo) UpsertChat(ctx context.Context, chat models.Chat) error {
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO chats
        (id, encrypted_title, encrypted_key, last_message_at, last_edited_at, created_at,
         updated_at, message_version, title_version, draft_version, hidden, pinned, shared)
        VALUES (:id, :encrypted_title, :encrypted_key, :last_message_at, :last_edited_at,
         :created_at, :updated_at, :message_version, :title_version, :draft_version,
         :hidden, :pinned, :shared)
        ON CONFLICT (id) DO UPDATE SET
         encrypted_title = EXCLUDED.encrypted_title,
         encrypted_key = EXCLUDED.encrypted_key,
         last_message_at = EXCLUDED.last_message_at,
         last_edited_at = EXCLUDED.last_edited_at,
         updated_at = EXCLUDED.updated_at,
         message_version = EXCLUDED.message_version,
         title_version = EXCLUDED.title_version,
         draft_version = EXCLUDED.draft_version,
         hidden = EXCLUDED.hidden,
         pinned = EXCLUDED.pinned,
         shared = EXCLUDED.shared`, chat)
	return err
}

// SetPinned toggles the pinned flag.
func (r *ChatRepo) SetPinned(ctx context.Context, chatID string, pinned bool) error {
	return r.setFlag(ctx, `UPDATE chats SET pinned=$1, updated_at=NOW() WHERE id=$2`, pinned, chatID)
}

// SetHidden toggles the hidden flag.
func (r *ChatRepo) SetHidden(ctx context.Context, chatID string, hidden bool) error {
	return r.setFlag(ctx, `UPDATE chats SET hidden=$1, updated_at=NOW() WHERE id=$2`, hidden, chatID)
}

func (r *ChatRepo) setFlag(ctx context.Context, query string, value bool, chatID string) error {
	res, err := r.db.ExecContext(ctx, query, value, chatID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrChatNotFound
	}
	return nil
}

// DeleteChat removes a chat and, via cascade, its messages.
func (r *ChatRepo) DeleteChat(ctx context.Context, chatID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM chats WHERE id=$1`, chatID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrChatNotFound
	}
	return nil
}
