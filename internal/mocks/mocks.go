package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chatlist-service/internal/models"
)

type ChatRepositoryMock struct {
	mock.Mock
}

func (m *ChatRepositoryMock) GetAllChats(ctx context.Context) ([]models.Chat, error) {
	args := m.Called(ctx)
	var chats []models.Chat
	if val := args.Get(0); val != nil {
		chats = val.([]models.Chat)
	}
	return chats, args.Error(1)
}

func (m *ChatRepositoryMock) GetChat(ctx context.Context, chatID string) (models.Chat, error) {
	args := m.Called(ctx, chatID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) UpsertChat(ctx context.Context, chat models.Chat) error {
	args := m.Called(ctx, chat)
	return args.Error(0)
}

func (m *ChatRepositoryMock) SetPinned(ctx context.Context, chatID string, pinned bool) error {
	args := m.Called(ctx, chatID, pinned)
	return args.Error(0)
}

func (m *ChatRepositoryMock) SetHidden(ctx context.Context, chatID string, hidden bool) error {
	args := m.Called(ctx, chatID, hidden)
	return args.Error(0)
}

func (m *ChatRepositoryMock) DeleteChat(ctx context.Context, chatID string) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) UpsertMessage(ctx context.Context, msg models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MessageRepositoryMock) GetChatMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	args := m.Called(ctx, chatID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) UpdateStatus(ctx context.Context, messageID string, status models.MessageStatus) error {
	args := m.Called(ctx, messageID, status)
	return args.Error(0)
}

type ActiveChatRepositoryMock struct {
	mock.Mock
}

func (m *ActiveChatRepositoryMock) Get(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *ActiveChatRepositoryMock) Set(ctx context.Context, chatID string) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}

func (m *ActiveChatRepositoryMock) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
