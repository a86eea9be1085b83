package typing

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-client/internal/models"
)

type emission struct {
	event string
	conv  string
	at    time.Time
}

type recorder struct {
	mu      sync.Mutex
	refuse  bool
	emitted []emission
}

func (r *recorder) Emit(event string, payload interface{}) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.refuse {
		return false
	}
	r.emitted = append(r.emitted, emission{event: event, conv: payload.(string), at: time.Now()})
	return true
}

func (r *recorder) setRefuse(v bool) {
	r.mu.Lock()
	r.refuse = v
	r.mu.Unlock()
}

func (r *recorder) all() []emission {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]emission(nil), r.emitted...)
}

func (r *recorder) count(event, conv string) int {
	n := 0
	for _, e := range r.all() {
		if e.event == event && e.conv == conv {
			n++
		}
	}
	return n
}

func TestBurstEmitsOneStartAndOneStopAfterQuietPeriod(t *testing.T) {
	const quiet = 80 * time.Millisecond
	rec := &recorder{}
	signal := NewSignal(rec, quiet)

	var lastKey time.Time
	for i := 0; i < 6; i++ {
		lastKey = time.Now()
		require.True(t, signal.OnLocalInput("c1"))
		time.Sleep(20 * time.Millisecond)
	}
	assert.True(t, signal.IsTyping("c1"))

	require.Eventually(t, func() bool { return rec.count(models.EventStopTyping, "c1") == 1 }, time.Second, 2*time.Millisecond)
	time.Sleep(2 * quiet)

	assert.Equal(t, 1, rec.count(models.EventTyping, "c1"))
	assert.Equal(t, 1, rec.count(models.EventStopTyping, "c1"))
	assert.False(t, signal.IsTyping("c1"))

	var stopAt time.Time
	for _, e := range rec.all() {
		if e.event == models.EventStopTyping {
			stopAt = e.at
		}
	}
	assert.GreaterOrEqual(t, stopAt.Sub(lastKey), quiet, "stop fired before the quiet period")
	assert.Less(t, stopAt.Sub(lastKey), quiet+250*time.Millisecond)
}

func TestInputIgnoredWhileChannelRefusesEmit(t *testing.T) {
	rec := &recorder{refuse: true}
	signal := NewSignal(rec, 50*time.Millisecond)

	assert.False(t, signal.OnLocalInput("c1"))
	assert.False(t, signal.IsTyping("c1"))

	rec.setRefuse(false)
	assert.True(t, signal.OnLocalInput("c1"))
	assert.True(t, signal.IsTyping("c1"))
	assert.Equal(t, 1, rec.count(models.EventTyping, "c1"))
	signal.StopAll()
}

func TestStopEmitsImmediatelyAndDisarmsTimer(t *testing.T) {
	rec := &recorder{}
	signal := NewSignal(rec, 40*time.Millisecond)

	signal.OnLocalInput("c1")
	assert.True(t, signal.Stop("c1"))
	assert.False(t, signal.Stop("c1"))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, rec.count(models.EventStopTyping, "c1"))
}

func TestConversationsHaveIndependentTimers(t *testing.T) {
	rec := &recorder{}
	signal := NewSignal(rec, 60*time.Millisecond)

	signal.OnLocalInput("c1")
	signal.OnLocalInput("c2")
	signal.StopAll()

	assert.False(t, signal.IsTyping("c1"))
	assert.False(t, signal.IsTyping("c2"))
	assert.Equal(t, 1, rec.count(models.EventStopTyping, "c1"))
	assert.Equal(t, 1, rec.count(models.EventStopTyping, "c2"))

	time.Sleep(120 * time.Millisecond)
	assert.Len(t, rec.all(), 4)
}

func TestEmptyConversationIgnored(t *testing.T) {
	rec := &recorder{}
	signal := NewSignal(rec, 0)
	assert.Equal(t, DefaultQuietPeriod, signal.QuietPeriod())
	assert.False(t, signal.OnLocalInput(""))
	assert.Empty(t, rec.all())
}

func TestRemoteIndicatorScopedToSelection(t *testing.T) {
	signal := NewSignal(&recorder{}, time.Second)

	assert.False(t, signal.SetRemote("c2", true, "c1"))
	assert.False(t, signal.RemoteTyping("c2"))
	assert.False(t, signal.SetRemote("c1", true, ""))

	assert.True(t, signal.SetRemote("c1", true, "c1"))
	assert.True(t, signal.RemoteTyping("c1"))
	assert.False(t, signal.RemoteTyping("c2"))

	assert.True(t, signal.SetRemote("c1", false, "c1"))
	assert.False(t, signal.RemoteTyping("c1"))

	signal.SetRemote("c1", true, "c1")
	signal.ResetRemote()
	assert.False(t, signal.RemoteTyping("c1"))
}
