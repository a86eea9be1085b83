package session_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"chat-client/internal/models"
	"chat-client/internal/ws"
)

type emission struct {
	event   string
	payload interface{}
}

// fakeConn is a live channel whose pushes are injected by the test and run
// through the same registry the websocket client dispatches with.
type fakeConn struct {
	*ws.Registry

	mu          sync.Mutex
	state       ws.State
	connects    []models.Identity
	disconnects int
	joined      []string
	emitted     []emission
}

func newFakeConn() *fakeConn {
	return &fakeConn{Registry: ws.NewRegistry(nil)}
}

func (f *fakeConn) Connect(ctx context.Context, identity models.Identity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects = append(f.connects, identity)
	f.state = ws.StateConnected
	return nil
}

func (f *fakeConn) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	f.state = ws.StateDisconnected
	return nil
}

func (f *fakeConn) Emit(event string, payload interface{}) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != ws.StateConnected {
		return false
	}
	f.emitted = append(f.emitted, emission{event: event, payload: payload})
	return true
}

func (f *fakeConn) Join(conversationID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = append(f.joined, conversationID)
	return f.state == ws.StateConnected
}

func (f *fakeConn) State() ws.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeConn) push(t *testing.T, event string, payload interface{}) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	f.Dispatch(event, data)
}

func (f *fakeConn) emitCount(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.emitted {
		if e.event == event {
			n++
		}
	}
	return n
}

func (f *fakeConn) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.connects)
}
