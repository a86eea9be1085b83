package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chat-client/internal/models"
	"chat-client/internal/session"
	"chat-client/internal/ws"
)

type SessionMock struct {
	mock.Mock
}

func (m *SessionMock) Identity() (models.Identity, bool) {
	args := m.Called()
	var identity models.Identity
	if val := args.Get(0); val != nil {
		identity = val.(models.Identity)
	}
	return identity, args.Bool(1)
}

func (m *SessionMock) Snapshot() session.State {
	args := m.Called()
	var state session.State
	if val := args.Get(0); val != nil {
		state = val.(session.State)
	}
	return state
}

func (m *SessionMock) Media(kinds ...models.MediaKind) []models.Message {
	args := m.Called(kinds)
	return messages(args.Get(0))
}

func (m *SessionMock) Select(ctx context.Context, conversationID string) error {
	args := m.Called(ctx, conversationID)
	return args.Error(0)
}

func (m *SessionMock) Deselect() {
	m.Called()
}

func (m *SessionMock) SendMessage(ctx context.Context, content string) (models.Message, error) {
	args := m.Called(ctx, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *SessionMock) Input() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *SessionMock) RefreshConversations(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *SessionMock) SetFavoritesOnly(only bool) {
	m.Called(only)
}

func (m *SessionMock) AccessChat(ctx context.Context, userID string) (models.Conversation, error) {
	args := m.Called(ctx, userID)
	return conversation(args.Get(0)), args.Error(1)
}

func (m *SessionMock) CreateGroup(ctx context.Context, name string, userIDs []string) (models.Conversation, error) {
	args := m.Called(ctx, name, userIDs)
	return conversation(args.Get(0)), args.Error(1)
}

func (m *SessionMock) RenameGroup(ctx context.Context, conversationID, name string) (models.Conversation, error) {
	args := m.Called(ctx, conversationID, name)
	return conversation(args.Get(0)), args.Error(1)
}

func (m *SessionMock) AddToGroup(ctx context.Context, conversationID, userID string) (models.Conversation, error) {
	args := m.Called(ctx, conversationID, userID)
	return conversation(args.Get(0)), args.Error(1)
}

func (m *SessionMock) RemoveFromGroup(ctx context.Context, conversationID, userID string) (models.Conversation, error) {
	args := m.Called(ctx, conversationID, userID)
	return conversation(args.Get(0)), args.Error(1)
}

func (m *SessionMock) PublicRooms(ctx context.Context) ([]models.Conversation, error) {
	args := m.Called(ctx)
	var list []models.Conversation
	if val := args.Get(0); val != nil {
		list = val.([]models.Conversation)
	}
	return list, args.Error(1)
}

func (m *SessionMock) CreatePublicRoom(ctx context.Context, name string) (models.Conversation, error) {
	args := m.Called(ctx, name)
	return conversation(args.Get(0)), args.Error(1)
}

func (m *SessionMock) JoinPublicRoom(ctx context.Context, conversationID string) (models.Conversation, error) {
	args := m.Called(ctx, conversationID)
	return conversation(args.Get(0)), args.Error(1)
}

func (m *SessionMock) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	args := m.Called(ctx, query)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func messages(val interface{}) []models.Message {
	if val == nil {
		return nil
	}
	return val.([]models.Message)
}

var _ session.Conn = (*ws.Client)(nil)
