package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chatlist-service/internal/mocks"
)

func TestEmitPublishesEnvelope(t *testing.T) {
	publisher := new(mocks.AuditPublisherMock)
	publisher.On("Publish", mock.Anything, "audit.chatlist", mock.Anything).Return(nil).Once()

	emitter := NewAuditEmitter(publisher, "audit.chatlist", "chatlist-service", "test")
	emitter.Emit(context.Background(), "INFO", "chat selected", "req-1", "chat-1")

	publisher.AssertExpectations(t)
	published := publisher.Published()
	require.Len(t, published, 1)
	envelope := published[0].(AuditEnvelope)
	assert.Equal(t, 1, envelope.SchemaVersion)
	assert.Equal(t, "audit_log", envelope.EventType)
	assert.Equal(t, "chatlist-service", envelope.Service)
	assert.Equal(t, "req-1", envelope.RequestID)
	assert.Equal(t, "chat-1", envelope.ChatID)
	assert.Equal(t, "chat selected", envelope.Payload.Text)
	require.NotEmpty(t, envelope.OccurredAt)
}

func TestEmitToleratesNilEmitter(t *testing.T) {
	var emitter *AuditEmitter
	emitter.Emit(context.Background(), "INFO", "ignored", "req-1", "")
}
