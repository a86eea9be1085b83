package typing

import (
	"sync"
	"time"

	"chat-client/internal/models"
)

// DefaultQuietPeriod is how long input must pause before "stop typing".
const DefaultQuietPeriod = 3 * time.Second

// Emitter sends an outbound live channel event, reporting whether it was
// accepted.
type Emitter interface {
	Emit(event string, payload interface{}) bool
}

type localState struct {
	timer *time.Timer
	last  time.Time
}

// Signal tracks the local typing state per conversation and the remote
// typing indicator of the open conversation.
//
// Each conversation owns one timer that is re-armed on every keystroke, so
// an abandoned conversation can never receive a late "stop typing" from an
// older timer.
type Signal struct {
	emitter Emitter
	quiet   time.Duration
	now     func() time.Time

	mu         sync.Mutex
	local      map[string]*localState
	remoteConv string
	remote     bool
}

func NewSignal(emitter Emitter, quiet time.Duration) *Signal {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Signal{
		emitter: emitter,
		quiet:   quiet,
		now:     time.Now,
		local:   make(map[string]*localState),
	}
}

// QuietPeriod returns the configured quiet period.
func (s *Signal) QuietPeriod() time.Duration {
	return s.quiet
}

// OnLocalInput records a keystroke in conversationID. The first keystroke
// emits "typing"; later ones only push the quiet deadline back. If the
// channel refuses the emit, nothing is recorded and the next keystroke tries
// again.
func (s *Signal) OnLocalInput(conversationID string) bool {
	if conversationID == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if st, ok := s.local[conversationID]; ok {
		st.last = now
		st.timer.Reset(s.quiet)
		return true
	}
	if !s.emitter.Emit(models.EventTyping, conversationID) {
		return false
	}
	st := &localState{last: now}
	st.timer = time.AfterFunc(s.quiet, func() { s.expire(conversationID, st) })
	s.local[conversationID] = st
	return true
}

func (s *Signal) expire(conversationID string, st *localState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.local[conversationID] != st {
		return
	}
	if idle := s.now().Sub(st.last); idle < s.quiet {
		st.timer.Reset(s.quiet - idle)
		return
	}
	delete(s.local, conversationID)
	s.emitter.Emit(models.EventStopTyping, conversationID)
}

// Stop ends local typing in conversationID now, emitting "stop typing" if
// typing was signalled.
func (s *Signal) Stop(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked(conversationID)
}

func (s *Signal) stopLocked(conversationID string) bool {
	st, ok := s.local[conversationID]
	if !ok {
		return false
	}
	st.timer.Stop()
	delete(s.local, conversationID)
	s.emitter.Emit(models.EventStopTyping, conversationID)
	return true
}

// StopAll ends local typing everywhere.
func (s *Signal) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.local {
		s.stopLocked(id)
	}
}

// IsTyping reports whether local typing is signalled for conversationID.
func (s *Signal) IsTyping(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.local[conversationID]
	return ok
}

// SetRemote applies a remote "typing"/"stop typing" push. Pushes for any
// conversation other than selectedID are ignored.
func (s *Signal) SetRemote(conversationID string, typing bool, selectedID string) bool {
	if selectedID == "" || conversationID != selectedID {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remoteConv = conversationID
	s.remote = typing
	return true
}

// RemoteTyping reports whether someone is typing in conversationID.
func (s *Signal) RemoteTyping(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remote && s.remoteConv == conversationID
}

// ResetRemote clears the remote indicator, used when the selection moves.
func (s *Signal) ResetRemote() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remoteConv = ""
	s.remote = false
}
