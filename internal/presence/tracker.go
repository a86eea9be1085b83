package presence

import (
	"sync"

	"chat-client/internal/models"
)

// Tracker holds the latest roster of connected users. Every snapshot replaces
// the previous one; there are no incremental updates.
type Tracker struct {
	mu     sync.RWMutex
	roster []models.User
	online map[string]int
}

func NewTracker() *Tracker {
	return &Tracker{online: make(map[string]int)}
}

// Apply replaces the roster with snapshot. Duplicate ids collapse into one
// entry at the position of the first occurrence, carrying the fields of the
// last. Entries without an id are skipped.
func (t *Tracker) Apply(snapshot []models.User) {
	roster := make([]models.User, 0, len(snapshot))
	index := make(map[string]int, len(snapshot))
	for _, u := range snapshot {
		if u.ID == "" {
			continue
		}
		if i, ok := index[u.ID]; ok {
			roster[i] = u
			continue
		}
		index[u.ID] = len(roster)
		roster = append(roster, u)
	}

	t.mu.Lock()
	t.roster = roster
	t.online = index
	t.mu.Unlock()
}

// IsOnline reports whether userID is in the latest snapshot.
func (t *Tracker) IsOnline(userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.online[userID]
	return ok
}

// Roster returns a copy of the latest snapshot.
func (t *Tracker) Roster() []models.User {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]models.User(nil), t.roster...)
}

func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.roster)
}

// Reset forgets the roster.
func (t *Tracker) Reset() {
	t.Apply(nil)
}
