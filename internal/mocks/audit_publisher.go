package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// AuditPublisherMock doubles the AMQP publisher the audit emitter writes to.
type AuditPublisherMock struct {
	mock.Mock
}

func (m *AuditPublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *AuditPublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// Published returns the event payloads captured by Publish, in call order.
func (m *AuditPublisherMock) Published() []any {
	var events []any
	for _, call := range m.Calls {
		if call.Method == "Publish" {
			events = append(events, call.Arguments.Get(2))
		}
	}
	return events
}
