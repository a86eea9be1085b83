package session

import (
	"chat-client/internal/conversations"
	"chat-client/internal/models"
)

// State is a read-only copy of the session for views.
type State struct {
	User          *models.User          `json:"user,omitempty"`
	Connection    string                `json:"connection"`
	FavoritesOnly bool                  `json:"favorites_only"`
	Conversations []models.Conversation `json:"conversations"`
	Selected      *models.Conversation  `json:"selected,omitempty"`
	Messages      []models.Message      `json:"messages"`
	Loading       bool                  `json:"loading"`
	Notifications []models.Message      `json:"notifications"`
	Unread        map[string]int        `json:"unread"`
	Online        []models.User         `json:"online"`
	RemoteTyping  bool                  `json:"remote_typing"`
	Typing        bool                  `json:"typing"`
}

// Snapshot copies the current state. The chat list honours the favorites
// filter.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := State{
		Connection:    s.conn.State().String(),
		FavoritesOnly: s.favoritesOnly,
		Messages:      s.stream.Messages(),
		Loading:       s.stream.Loading(),
		Notifications: s.ledger.Entries(),
		Unread:        s.ledger.Counts(),
		Online:        s.presence.Roster(),
	}
	userID := ""
	if s.identity != nil {
		user := s.identity.User
		state.User = &user
		userID = user.ID
	}
	state.Conversations = conversations.FilterFavorites(s.conversations.All(), s.favoritesOnly, userID)
	if s.selected != "" {
		conv, ok := s.conversations.Get(s.selected)
		if !ok {
			conv = models.Conversation{ID: s.selected}
		}
		state.Selected = &conv
		state.RemoteTyping = s.typing.RemoteTyping(s.selected)
		state.Typing = s.typing.IsTyping(s.selected)
	}
	return state
}

// Media returns the open conversation's messages of the given kinds.
func (s *Session) Media(kinds ...models.MediaKind) []models.Message {
	return s.stream.Media(kinds...)
}
