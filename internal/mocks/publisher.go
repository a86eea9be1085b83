package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chat-client/internal/observability"
	"chat-client/internal/telemetry"
)

// PublisherMock stands in for the AMQP publisher behind lifecycle events
// and audit records.
type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	return m.Called(ctx, routingKey, event).Error(0)
}

func (m *PublisherMock) Close() error {
	return m.Called().Error(0)
}

var (
	_ observability.Publisher = (*PublisherMock)(nil)
	_ telemetry.Publisher     = (*PublisherMock)(nil)
)
