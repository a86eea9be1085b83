package conversations

import (
	"sync"

	"chat-client/internal/models"
)

// Store is the ordered chat list. Records are only ever replaced by fresher
// server copies.
type Store struct {
	mu    sync.RWMutex
	items []models.Conversation
}

func NewStore() *Store {
	return &Store{}
}

// Replace swaps the whole collection for the server's authoritative list.
func (s *Store) Replace(list []models.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = dedupe(list)
}

// Upsert inserts c at the front if its id is unknown, otherwise replaces the
// stored record in place. It reports whether c was inserted.
func (s *Store) Upsert(c models.Conversation) bool {
	if c.ID == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(c.ID); i >= 0 {
		s.items[i] = c
		return false
	}
	s.items = append([]models.Conversation{c}, s.items...)
	return true
}

// Get returns the conversation with the given id.
func (s *Store) Get(id string) (models.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.items[i], true
	}
	return models.Conversation{}, false
}

// All returns a copy of the collection in display order.
func (s *Store) All() []models.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Conversation(nil), s.items...)
}

// Touch sets the latest-message summary of the message's conversation.
// Ordering is left alone; the next Replace brings the server's order.
func (s *Store) Touch(msg models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(msg.ConversationID())
	if i < 0 {
		return false
	}
	latest := msg
	s.items[i].LatestMessage = &latest
	return true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

func (s *Store) indexLocked(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func dedupe(list []models.Conversation) []models.Conversation {
	out := make([]models.Conversation, 0, len(list))
	seen := make(map[string]int, len(list))
	for _, c := range list {
		if c.ID == "" {
			continue
		}
		if i, ok := seen[c.ID]; ok {
			out[i] = c
			continue
		}
		seen[c.ID] = len(out)
		out = append(out, c)
	}
	return out
}

// FilterFavorites returns list unchanged when favoritesOnly is false, else
// the conversations userID marked as favorite, keeping order.
func FilterFavorites(list []models.Conversation, favoritesOnly bool, userID string) []models.Conversation {
	if !favoritesOnly {
		return list
	}
	out := make([]models.Conversation, 0, len(list))
	for _, c := range list {
		if c.IsFavoriteOf(userID) {
			out = append(out, c)
		}
	}
	return out
}
