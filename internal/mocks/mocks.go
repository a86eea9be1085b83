package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chat-client/internal/models"
	"chat-client/internal/session"
)

type APIMock struct {
	mock.Mock
}

func (m *APIMock) FetchConversations(ctx context.Context) ([]models.Conversation, error) {
	args := m.Called(ctx)
	var list []models.Conversation
	if val := args.Get(0); val != nil {
		list = val.([]models.Conversation)
	}
	return list, args.Error(1)
}

func (m *APIMock) FetchHistory(ctx context.Context, conversationID string) ([]models.Message, error) {
	args := m.Called(ctx, conversationID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *APIMock) SendMessage(ctx context.Context, conversationID, content string) (models.Message, error) {
	args := m.Called(ctx, conversationID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *APIMock) AccessChat(ctx context.Context, userID string) (models.Conversation, error) {
	args := m.Called(ctx, userID)
	return conversation(args.Get(0)), args.Error(1)
}

func (m *APIMock) CreateGroup(ctx context.Context, name string, userIDs []string) (models.Conversation, error) {
	args := m.Called(ctx, name, userIDs)
	return conversation(args.Get(0)), args.Error(1)
}

func (m *APIMock) RenameGroup(ctx context.Context, conversationID, name string) (models.Conversation, error) {
	args := m.Called(ctx, conversationID, name)
	return conversation(args.Get(0)), args.Error(1)
}

func (m *APIMock) AddToGroup(ctx context.Context, conversationID, userID string) (models.Conversation, error) {
	args := m.Called(ctx, conversationID, userID)
	return conversation(args.Get(0)), args.Error(1)
}

func (m *APIMock) RemoveFromGroup(ctx context.Context, conversationID, userID string) (models.Conversation, error) {
	args := m.Called(ctx, conversationID, userID)
	return conversation(args.Get(0)), args.Error(1)
}

func (m *APIMock) PublicRooms(ctx context.Context) ([]models.Conversation, error) {
	args := m.Called(ctx)
	var list []models.Conversation
	if val := args.Get(0); val != nil {
		list = val.([]models.Conversation)
	}
	return list, args.Error(1)
}

func (m *APIMock) CreatePublicRoom(ctx context.Context, name string) (models.Conversation, error) {
	args := m.Called(ctx, name)
	return conversation(args.Get(0)), args.Error(1)
}

func (m *APIMock) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	args := m.Called(ctx, query)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func conversation(val interface{}) models.Conversation {
	if val == nil {
		return models.Conversation{}
	}
	return val.(models.Conversation)
}

type AuditorMock struct {
	mock.Mock
}

func (m *AuditorMock) Emit(ctx context.Context, level, text, requestID string, userID *string) {
	m.Called(ctx, level, text, requestID, userID)
}

var _ session.API = (*APIMock)(nil)
var _ session.Auditor = (*AuditorMock)(nil)
