package notifications

import (
	"sync"

	"chat-client/internal/models"
)

// Ledger holds unread messages for conversations that are not open, newest
// first, at most one entry per message id. Deciding whether a message belongs
// here is the caller's job; the ledger does not know the selection.
type Ledger struct {
	mu      sync.RWMutex
	entries []models.Message
	ids     map[string]struct{}
}

func NewLedger() *Ledger {
	return &Ledger{ids: make(map[string]struct{})}
}

// Add records msg unless an entry with the same id exists.
func (l *Ledger) Add(msg models.Message) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.ids[msg.ID]; ok {
		return false
	}
	l.ids[msg.ID] = struct{}{}
	l.entries = append([]models.Message{msg}, l.entries...)
	return true
}

// ClearConversation removes every entry of conversationID and returns how
// many were removed.
func (l *Ledger) ClearConversation(conversationID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.entries[:0:0]
	removed := 0
	for _, msg := range l.entries {
		if msg.ConversationID() == conversationID {
			delete(l.ids, msg.ID)
			removed++
			continue
		}
		kept = append(kept, msg)
	}
	if removed > 0 {
		l.entries = kept
	}
	return removed
}

// Entries returns the unread messages, newest first.
func (l *Ledger) Entries() []models.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.Message(nil), l.entries...)
}

// CountFor returns the number of unread messages in conversationID.
func (l *Ledger) CountFor(conversationID string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, msg := range l.entries {
		if msg.ConversationID() == conversationID {
			n++
		}
	}
	return n
}

func (l *Ledger) HasUnread(conversationID string) bool {
	return l.CountFor(conversationID) > 0
}

// Counts returns unread counts keyed by conversation id.
func (l *Ledger) Counts() map[string]int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	counts := make(map[string]int)
	for _, msg := range l.entries {
		counts[msg.ConversationID()]++
	}
	return counts
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.ids = make(map[string]struct{})
}
