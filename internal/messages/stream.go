package messages

import (
	"errors"
	"sync"

	"chat-client/internal/models"
)

// ErrStale is returned by Finish when the buffer was pointed elsewhere after
// the ticket was issued.
var ErrStale = errors.New("messages: stale history result")

// Ticket identifies one history load. Only the most recently issued ticket
// may fill the buffer.
type Ticket struct {
	ConversationID string
	generation     uint64
}

// Stream is the message buffer of the loaded conversation. Order is arrival
// order; nothing is re-sorted.
type Stream struct {
	mu         sync.RWMutex
	convID     string
	generation uint64
	loading    bool
	loaded     bool
	msgs       []models.Message
	ids        map[string]struct{}
}

func NewStream() *Stream {
	return &Stream{ids: make(map[string]struct{})}
}

// Begin empties the buffer, points it at conversationID and invalidates any
// earlier ticket.
func (s *Stream) Begin(conversationID string) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.convID = conversationID
	s.loading = true
	s.loaded = false
	s.msgs = nil
	s.ids = make(map[string]struct{})
	return Ticket{ConversationID: conversationID, generation: s.generation}
}

// Current reports whether t is still the latest ticket.
func (s *Stream) Current(t Ticket) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return t.generation == s.generation && t.ConversationID == s.convID
}

// Finish fills the buffer with history in server order. Pushes appended since
// Begin that are missing from history are kept after it.
func (s *Stream) Finish(t Ticket, history []models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.generation != s.generation || t.ConversationID != s.convID {
		return ErrStale
	}
	merged := make([]models.Message, 0, len(history)+len(s.msgs))
	ids := make(map[string]struct{}, len(history)+len(s.msgs))
	for _, batch := range [][]models.Message{history, s.msgs} {
		for _, msg := range batch {
			if _, ok := ids[msg.ID]; ok {
				continue
			}
			ids[msg.ID] = struct{}{}
			merged = append(merged, msg)
		}
	}
	s.msgs = merged
	s.ids = ids
	s.loading = false
	s.loaded = true
	return nil
}

// Abort ends loading for t without touching the buffer. The conversation
// stays unloaded, so a later Begin for it fetches again.
func (s *Stream) Abort(t Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.generation == s.generation {
		s.loading = false
	}
}

// Append adds msg at the end if it belongs to the loaded conversation and
// its id is new.
func (s *Stream) Append(msg models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.convID == "" || msg.ConversationID() != s.convID {
		return false
	}
	if _, ok := s.ids[msg.ID]; ok {
		return false
	}
	s.ids[msg.ID] = struct{}{}
	s.msgs = append(s.msgs, msg)
	return true
}

// Reset unloads the buffer and invalidates any outstanding ticket.
func (s *Stream) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.convID = ""
	s.loading = false
	s.loaded = false
	s.msgs = nil
	s.ids = make(map[string]struct{})
}

// ConversationID returns the loaded conversation, "" when none.
func (s *Stream) ConversationID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.convID
}

func (s *Stream) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Loaded reports whether history for the current conversation was applied.
func (s *Stream) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Messages returns a copy of the buffer.
func (s *Stream) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Message(nil), s.msgs...)
}

func (s *Stream) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.msgs)
}

// Media returns the buffered messages whose media kind is one of kinds.
func (s *Stream) Media(kinds ...models.MediaKind) []models.Message {
	want := make(map[models.MediaKind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Message
	for _, msg := range s.msgs {
		if want[msg.Media()] {
			out = append(out, msg)
		}
	}
	return out
}
