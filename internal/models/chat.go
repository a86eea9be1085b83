package models

import (
	"bytes"
	"encoding/json"
)

// ConversationKind distinguishes direct chats from group chats.
type ConversationKind string

const (
	KindDirect ConversationKind = "direct"
	KindGroup  ConversationKind = "group"
)

// Conversation is a chat as returned by the server. The client never edits
// one in place; it only replaces it with a fresher server copy.
type Conversation struct {
	ID            string   `json:"_id"`
	ChatName      string   `json:"chatName"`
	IsGroupChat   bool     `json:"isGroupChat"`
	IsPublic      bool     `json:"isPublic,omitempty"`
	Users         []User   `json:"users"`
	GroupAdmin    *User    `json:"groupAdmin,omitempty"`
	LatestMessage *Message `json:"latestMessage,omitempty"`
	Favorites     []string `json:"favorites,omitempty"`
}

// Kind returns the conversation kind.
func (c Conversation) Kind() ConversationKind {
	if c.IsGroupChat {
		return KindGroup
	}
	return KindDirect
}

// Peer returns the first member that is not selfID.
func (c Conversation) Peer(selfID string) (User, bool) {
	for _, u := range c.Users {
		if u.ID != selfID {
			return u, true
		}
	}
	return User{}, false
}

// DisplayName is the group name, or the other member's name for a direct chat.
func (c Conversation) DisplayName(selfID string) string {
	if c.IsGroupChat {
		return c.ChatName
	}
	if peer, ok := c.Peer(selfID); ok {
		return peer.Name
	}
	return c.ChatName
}

// HasMember reports whether userID belongs to the conversation.
func (c Conversation) HasMember(userID string) bool {
	for _, u := range c.Users {
		if u.ID == userID {
			return true
		}
	}
	return false
}

// IsAdmin reports whether userID administers the group.
func (c Conversation) IsAdmin(userID string) bool {
	return c.GroupAdmin != nil && c.GroupAdmin.ID == userID
}

// IsFavoriteOf reports whether userID marked the conversation as favorite.
func (c Conversation) IsFavoriteOf(userID string) bool {
	for _, id := range c.Favorites {
		if id == userID {
			return true
		}
	}
	return false
}

// ChatRef is the parent conversation of a message. The server sends either a
// bare id or a populated chat object, both decode into a ChatRef.
type ChatRef struct {
	ID          string `json:"_id"`
	ChatName    string `json:"chatName,omitempty"`
	IsGroupChat bool   `json:"isGroupChat,omitempty"`
	Users       []User `json:"users,omitempty"`
}

// UnmarshalJSON accepts a string id or an object.
func (r *ChatRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = ChatRef{}
		return nil
	}
	if data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = ChatRef{ID: id}
		return nil
	}
	type plain ChatRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = ChatRef(p)
	return nil
}
