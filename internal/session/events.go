package session

import (
	"encoding/json"

	"go.uber.org/zap"

	"chat-client/internal/models"
	"chat-client/internal/observability"
	"chat-client/internal/ws"
)

// onMessageReceived routes a pushed message by the selection pointer as it
// is at processing time: into the open buffer or into the ledger, never both.
func (s *Session) onMessageReceived(data json.RawMessage) {
	var msg models.Message
	if err := json.Unmarshal(data, &msg); err != nil || msg.ID == "" || msg.ConversationID() == "" {
		s.logger.Warn("dropping malformed message push", zap.Error(err))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.routeLocked(msg)
}

func (s *Session) routeLocked(msg models.Message) {
	if conv := msg.ConversationID(); conv != "" && conv == s.selected {
		s.stream.Append(msg)
	} else if s.ledger.Add(msg) {
		observability.SetNotificationsPending(s.ledger.Len())
	}
	s.conversations.Touch(msg)
}

func (s *Session) onConnectedUsers(data json.RawMessage) {
	var roster []models.User
	if err := json.Unmarshal(data, &roster); err != nil {
		s.logger.Warn("dropping malformed presence snapshot", zap.Error(err))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.presence.Apply(roster)
	observability.SetPresenceOnline(s.presence.Len())
}

// onRemoteTyping handles "typing" and "stop typing". The payload is the
// conversation id; pushes without one cannot be scoped and are ignored.
func (s *Session) onRemoteTyping(typing bool) ws.Handler {
	return func(data json.RawMessage) {
		var conversationID string
		if err := json.Unmarshal(data, &conversationID); err != nil || conversationID == "" {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.started {
			return
		}
		s.typing.SetRemote(conversationID, typing, s.selected)
	}
}
