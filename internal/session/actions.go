package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"chat-client/internal/messages"
	"chat-client/internal/models"
	"chat-client/internal/observability"
)

// RefreshConversations replaces the chat list with the server's.
func (s *Session) RefreshConversations(ctx context.Context) error {
	api, _, epoch, err := s.active()
	if err != nil {
		return err
	}
	ctx, span := tracer.Start(ctx, "session.refresh_conversations")
	defer span.End()

	list, err := api.FetchConversations(ctx)
	if err != nil {
		span.RecordError(err)
		return &FetchError{Op: "conversations", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return nil
	}
	s.conversations.Replace(list)
	return nil
}

// Select opens conversationID. Moving the pointer, clearing its
// notifications and emptying the buffer happen in one critical section, so
// any push processed afterwards already sees the new selection. History is
// then fetched; a result for a conversation that is no longer selected is
// discarded. Selecting the open conversation again does nothing unless its
// history failed to load, in which case the fetch is retried.
func (s *Session) Select(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		s.Deselect()
		return nil
	}

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrNoIdentity
	}
	if s.selected == conversationID && (s.stream.Loaded() || s.stream.Loading()) {
		s.mu.Unlock()
		return nil
	}
	if s.selected != "" && s.selected != conversationID {
		s.typing.Stop(s.selected)
	}
	s.typing.ResetRemote()
	s.selected = conversationID
	if s.ledger.ClearConversation(conversationID) > 0 {
		observability.SetNotificationsPending(s.ledger.Len())
	}
	ticket := s.stream.Begin(conversationID)
	s.conn.Join(conversationID)
	api := s.api
	s.mu.Unlock()

	err := s.loadHistory(ctx, api, ticket)
	if errors.Is(err, ErrStaleResult) {
		s.logger.Debug("discarded stale history", zap.String("conversation_id", conversationID))
		return nil
	}
	return err
}

func (s *Session) loadHistory(ctx context.Context, api API, ticket messages.Ticket) error {
	ctx, span := tracer.Start(ctx, "session.load_history")
	span.SetAttributes(attribute.String("conversation_id", ticket.ConversationID))
	defer span.End()

	history, err := api.FetchHistory(ctx, ticket.ConversationID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if !s.stream.Current(ticket) {
			return ErrStaleResult
		}
		s.stream.Abort(ticket)
		span.RecordError(err)
		return &FetchError{Op: "history", Err: err}
	}
	return s.stream.Finish(ticket, history)
}

// Deselect closes the open conversation.
func (s *Session) Deselect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deselectLocked()
}

func (s *Session) deselectLocked() {
	if s.selected == "" {
		return
	}
	s.typing.Stop(s.selected)
	s.typing.ResetRemote()
	s.selected = ""
	s.stream.Reset()
}

// SendMessage posts content to the open conversation. The confirmed message
// is appended to the buffer directly; a later push with the same id is
// absorbed by the buffer's dedupe. On failure nothing changes.
func (s *Session) SendMessage(ctx context.Context, content string) (models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Message{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return models.Message{}, ErrNoIdentity
	}
	conversationID := s.selected
	if conversationID == "" {
		s.mu.Unlock()
		return models.Message{}, ErrNoSelection
	}
	s.typing.Stop(conversationID)
	api, epoch := s.api, s.epoch
	s.mu.Unlock()

	ctx, span := tracer.Start(ctx, "session.send_message")
	span.SetAttributes(attribute.String("conversation_id", conversationID))
	defer span.End()

	msg, err := api.SendMessage(ctx, conversationID, content)
	if err != nil {
		span.RecordError(err)
		return models.Message{}, &SendError{ConversationID: conversationID, Err: err}
	}
	if msg.ConversationID() == "" {
		msg.Chat.ID = conversationID
	}

	s.mu.Lock()
	if s.epoch == epoch {
		s.stream.Append(msg)
		s.conversations.Touch(msg)
	}
	s.mu.Unlock()

	s.conn.Emit(models.EventNewMessage, msg)
	return msg, nil
}

// Input records a keystroke in the open conversation.
func (s *Session) Input() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.selected == "" {
		return false
	}
	return s.typing.OnLocalInput(s.selected)
}

// AccessChat opens the direct chat with userID, creating it if needed.
func (s *Session) AccessChat(ctx context.Context, userID string) (models.Conversation, error) {
	api, _, epoch, err := s.active()
	if err != nil {
		return models.Conversation{}, err
	}
	conv, err := api.AccessChat(ctx, userID)
	if err != nil {
		return models.Conversation{}, &FetchError{Op: "access_chat", Err: err}
	}
	if !s.upsert(conv, epoch) {
		return conv, nil
	}
	return conv, s.Select(ctx, conv.ID)
}

// CreateGroup creates a group of the caller and userIDs. It needs a name
// and at least two other members.
func (s *Session) CreateGroup(ctx context.Context, name string, userIDs []string) (models.Conversation, error) {
	api, self, epoch, err := s.active()
	if err != nil {
		return models.Conversation{}, err
	}
	name = strings.TrimSpace(name)
	members := uniqueExcept(userIDs, self.ID)
	if name == "" || len(members) < 2 {
		return models.Conversation{}, ErrInvalidGroup
	}
	conv, err := api.CreateGroup(ctx, name, members)
	if err != nil {
		return models.Conversation{}, fmt.Errorf("session: create group: %w", err)
	}
	s.upsert(conv, epoch)
	return conv, nil
}

func (s *Session) RenameGroup(ctx context.Context, conversationID, name string) (models.Conversation, error) {
	api, _, epoch, err := s.active()
	if err != nil {
		return models.Conversation{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Conversation{}, ErrInvalidGroup
	}
	if conv, ok := s.conversations.Get(conversationID); ok && !conv.IsGroupChat {
		return models.Conversation{}, ErrNotGroup
	}
	conv, err := api.RenameGroup(ctx, conversationID, name)
	if err != nil {
		return models.Conversation{}, fmt.Errorf("session: rename group: %w", err)
	}
	s.upsert(conv, epoch)
	return conv, nil
}

// AddToGroup adds userID to a group the caller administers.
func (s *Session) AddToGroup(ctx context.Context, conversationID, userID string) (models.Conversation, error) {
	api, self, epoch, err := s.active()
	if err != nil {
		return models.Conversation{}, err
	}
	group, err := s.group(conversationID)
	if err != nil {
		return models.Conversation{}, err
	}
	if group.HasMember(userID) {
		return models.Conversation{}, ErrAlreadyMember
	}
	if !group.IsAdmin(self.ID) {
		return models.Conversation{}, ErrNotGroupAdmin
	}
	conv, err := api.AddToGroup(ctx, conversationID, userID)
	if err != nil {
		return models.Conversation{}, fmt.Errorf("session: add to group: %w", err)
	}
	s.upsert(conv, epoch)
	return conv, nil
}

// RemoveFromGroup removes userID from a group. Only the admin may remove
// someone else; anyone may leave. Leaving closes the group if it is open
// and reloads the chat list.
func (s *Session) RemoveFromGroup(ctx context.Context, conversationID, userID string) (models.Conversation, error) {
	api, self, epoch, err := s.active()
	if err != nil {
		return models.Conversation{}, err
	}
	group, err := s.group(conversationID)
	if err != nil {
		return models.Conversation{}, err
	}
	if userID != self.ID && !group.IsAdmin(self.ID) {
		return models.Conversation{}, ErrNotGroupAdmin
	}
	conv, err := api.RemoveFromGroup(ctx, conversationID, userID)
	if err != nil {
		return models.Conversation{}, fmt.Errorf("session: remove from group: %w", err)
	}
	if userID != self.ID {
		s.upsert(conv, epoch)
		return conv, nil
	}

	s.mu.Lock()
	if s.epoch == epoch && s.selected == conversationID {
		s.deselectLocked()
	}
	s.mu.Unlock()
	return conv, s.RefreshConversations(ctx)
}

// PublicRooms lists public groups the caller has not joined.
func (s *Session) PublicRooms(ctx context.Context) ([]models.Conversation, error) {
	api, self, _, err := s.active()
	if err != nil {
		return nil, err
	}
	rooms, err := api.PublicRooms(ctx)
	if err != nil {
		return nil, &FetchError{Op: "public_rooms", Err: err}
	}
	available := make([]models.Conversation, 0, len(rooms))
	for _, room := range rooms {
		if room.IsGroupChat && !room.HasMember(self.ID) {
			available = append(available, room)
		}
	}
	return available, nil
}

func (s *Session) CreatePublicRoom(ctx context.Context, name string) (models.Conversation, error) {
	api, _, epoch, err := s.active()
	if err != nil {
		return models.Conversation{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Conversation{}, ErrInvalidGroup
	}
	conv, err := api.CreatePublicRoom(ctx, name)
	if err != nil {
		return models.Conversation{}, fmt.Errorf("session: create public room: %w", err)
	}
	s.upsert(conv, epoch)
	return conv, nil
}

// JoinPublicRoom adds the caller to a public room and opens it.
func (s *Session) JoinPublicRoom(ctx context.Context, conversationID string) (models.Conversation, error) {
	api, self, epoch, err := s.active()
	if err != nil {
		return models.Conversation{}, err
	}
	conv, err := api.AddToGroup(ctx, conversationID, self.ID)
	if err != nil {
		return models.Conversation{}, fmt.Errorf("session: join public room: %w", err)
	}
	if !s.upsert(conv, epoch) {
		return conv, nil
	}
	return conv, s.Select(ctx, conv.ID)
}

// SearchUsers looks users up by name or email. A blank query finds nobody.
func (s *Session) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	api, _, _, err := s.active()
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	users, err := api.SearchUsers(ctx, query)
	if err != nil {
		return nil, &FetchError{Op: "search_users", Err: err}
	}
	return users, nil
}

func (s *Session) SetFavoritesOnly(only bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.favoritesOnly = only
}

func (s *Session) group(conversationID string) (models.Conversation, error) {
	conv, ok := s.conversations.Get(conversationID)
	if !ok {
		return models.Conversation{}, ErrUnknownConversation
	}
	if !conv.IsGroupChat {
		return models.Conversation{}, ErrNotGroup
	}
	return conv, nil
}

// upsert stores a server copy unless the session changed hands meanwhile.
func (s *Session) upsert(conv models.Conversation, epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return false
	}
	s.conversations.Upsert(conv)
	return true
}

func uniqueExcept(ids []string, exclude string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || id == exclude || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
