package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-client/internal/mocks"
	"chat-client/internal/models"
	"chat-client/internal/session"
)

var (
	me  = models.Identity{User: models.User{ID: "me", Name: "Me"}, Token: "tok-me"}
	bob = models.User{ID: "bob", Name: "Bob"}
	ann = models.User{ID: "ann", Name: "Ann"}
)

func direct(id string) models.Conversation {
	return models.Conversation{ID: id, ChatName: "sender", Users: []models.User{me.User, bob}}
}

func group(id string, admin models.User, members ...models.User) models.Conversation {
	return models.Conversation{ID: id, ChatName: "Team " + id, IsGroupChat: true, Users: members, GroupAdmin: &admin}
}

func message(id, conv, content string) models.Message {
	return models.Message{ID: id, Content: content, Sender: bob, Chat: models.ChatRef{ID: conv}}
}

func messageIDs(list []models.Message) []string {
	out := make([]string, 0, len(list))
	for _, m := range list {
		out = append(out, m.ID)
	}
	return out
}

type fixture struct {
	api     *mocks.APIMock
	conn    *fakeConn
	session *session.Session
	tokens  []string
}

func newFixture(t *testing.T, chats ...models.Conversation) *fixture {
	t.Helper()
	f := &fixture{api: &mocks.APIMock{}, conn: newFakeConn()}
	f.session = session.New(session.Deps{
		NewAPI: func(token string) session.API {
			f.tokens = append(f.tokens, token)
			return f.api
		},
		Conn:        f.conn,
		TypingQuiet: 50 * time.Millisecond,
	})
	f.api.On("FetchConversations", mock.Anything).Return(chats, nil)
	require.NoError(t, f.session.Start(context.Background(), me))
	t.Cleanup(f.session.Close)
	return f
}

func (f *fixture) history(conv string, msgs ...models.Message) {
	f.api.On("FetchHistory", mock.Anything, conv).Return(msgs, nil)
}

func TestStartConnectsAndLoadsConversations(t *testing.T) {
	f := newFixture(t, direct("c1"), group("g1", bob, me.User, bob, ann))

	state := f.session.Snapshot()
	require.NotNil(t, state.User)
	assert.Equal(t, "me", state.User.ID)
	assert.Equal(t, "connected", state.Connection)
	assert.Len(t, state.Conversations, 2)
	assert.Nil(t, state.Selected)
	assert.Equal(t, []string{"tok-me"}, f.tokens)
	assert.Equal(t, 1, f.conn.connectCount())
	assert.Equal(t, 1, f.conn.Count(models.EventMessageReceived))
}

func TestStartRejectsIncompleteIdentity(t *testing.T) {
	s := session.New(session.Deps{NewAPI: func(string) session.API { return &mocks.APIMock{} }, Conn: newFakeConn()})
	assert.ErrorIs(t, s.Start(context.Background(), models.Identity{User: me.User}), session.ErrNoIdentity)
	assert.ErrorIs(t, s.Select(context.Background(), "c1"), session.ErrNoIdentity)
	_, err := s.SendMessage(context.Background(), "hi")
	assert.ErrorIs(t, err, session.ErrNoIdentity)
}

func TestStartSurfacesFetchErrorButStaysStarted(t *testing.T) {
	api := &mocks.APIMock{}
	api.On("FetchConversations", mock.Anything).Return(nil, errors.New("boom"))
	s := session.New(session.Deps{NewAPI: func(string) session.API { return api }, Conn: newFakeConn()})
	defer s.Close()

	err := s.Start(context.Background(), me)
	var fetchErr *session.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, "conversations", fetchErr.Op)

	_, ok := s.Identity()
	assert.True(t, ok)
}

func TestNotificationClearedWhenConversationOpened(t *testing.T) {
	f := newFixture(t, direct("c"), direct("d"))
	f.history("d")
	m1 := message("m1", "c", "hi from c")
	f.history("c", m1)

	require.NoError(t, f.session.Select(context.Background(), "d"))
	f.conn.push(t, models.EventMessageReceived, m1)
	f.conn.push(t, models.EventMessageReceived, m1)

	state := f.session.Snapshot()
	assert.Equal(t, []string{"m1"}, messageIDs(state.Notifications))
	assert.Equal(t, map[string]int{"c": 1}, state.Unread)
	assert.Empty(t, state.Messages, "push for another conversation never reaches the open buffer")

	require.NoError(t, f.session.Select(context.Background(), "c"))
	state = f.session.Snapshot()
	assert.Empty(t, state.Notifications)
	assert.Equal(t, []string{"m1"}, messageIDs(state.Messages))
	assert.Equal(t, "c", state.Selected.ID)
}

func TestPushForOpenConversationGoesToBuffer(t *testing.T) {
	f := newFixture(t, direct("c"))
	f.history("c")
	require.NoError(t, f.session.Select(context.Background(), "c"))

	for _, id := range []string{"3", "1", "2"} {
		f.conn.push(t, models.EventMessageReceived, message(id, "c", "x"))
	}

	state := f.session.Snapshot()
	assert.Equal(t, []string{"3", "1", "2"}, messageIDs(state.Messages))
	assert.Empty(t, state.Notifications)
	require.NotNil(t, state.Selected.LatestMessage)
	assert.Equal(t, "2", state.Selected.LatestMessage.ID)
}

func TestPushDuringHistoryLoadIsNotANotification(t *testing.T) {
	f := newFixture(t, direct("c"))
	release := make(chan time.Time)
	f.api.On("FetchHistory", mock.Anything, "c").WaitUntil(release).Return([]models.Message{message("m1", "c", "old")}, nil)

	done := make(chan error, 1)
	go func() { done <- f.session.Select(context.Background(), "c") }()
	require.Eventually(t, func() bool { return f.session.Selected() == "c" }, time.Second, time.Millisecond)

	f.conn.push(t, models.EventMessageReceived, message("m2", "c", "new"))
	close(release)
	require.NoError(t, <-done)

	state := f.session.Snapshot()
	assert.Empty(t, state.Notifications)
	assert.Equal(t, []string{"m1", "m2"}, messageIDs(state.Messages))
}

func TestStaleHistoryDoesNotOverwriteNewSelection(t *testing.T) {
	f := newFixture(t, direct("x"), direct("y"))
	release := make(chan time.Time)
	f.api.On("FetchHistory", mock.Anything, "x").WaitUntil(release).Return([]models.Message{message("x1", "x", "late")}, nil)
	f.history("y", message("y1", "y", "fresh"))

	done := make(chan error, 1)
	go func() { done <- f.session.Select(context.Background(), "x") }()
	require.Eventually(t, func() bool { return f.session.Selected() == "x" }, time.Second, time.Millisecond)

	require.NoError(t, f.session.Select(context.Background(), "y"))
	close(release)
	require.NoError(t, <-done, "stale results are discarded silently")

	state := f.session.Snapshot()
	assert.Equal(t, "y", state.Selected.ID)
	assert.Equal(t, []string{"y1"}, messageIDs(state.Messages))
	assert.False(t, state.Loading)
}

func TestReselectIsNoOp(t *testing.T) {
	f := newFixture(t, direct("c"))
	f.history("c", message("m1", "c", "a"))

	require.NoError(t, f.session.Select(context.Background(), "c"))
	require.NoError(t, f.session.Select(context.Background(), "c"))

	assert.Equal(t, []string{"m1"}, messageIDs(f.session.Snapshot().Messages))
	f.api.AssertNumberOfCalls(t, "FetchHistory", 1)
	assert.Equal(t, []string{"c"}, f.conn.joined)
}

func TestHistoryFetchFailureKeepsSelection(t *testing.T) {
	f := newFixture(t, direct("c"))
	f.api.On("FetchHistory", mock.Anything, "c").Return(nil, errors.New("timeout"))

	err := f.session.Select(context.Background(), "c")
	var fetchErr *session.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, "history", fetchErr.Op)

	state := f.session.Snapshot()
	assert.Equal(t, "c", state.Selected.ID)
	assert.Empty(t, state.Messages)
	assert.False(t, state.Loading)
}

func TestReselectAfterFailedHistoryRetries(t *testing.T) {
	f := newFixture(t, direct("c"))
	f.api.On("FetchHistory", mock.Anything, "c").Return(nil, errors.New("timeout")).Once()
	f.api.On("FetchHistory", mock.Anything, "c").Return([]models.Message{message("m1", "c", "a")}, nil).Once()

	var fetchErr *session.FetchError
	require.ErrorAs(t, f.session.Select(context.Background(), "c"), &fetchErr)
	require.NoError(t, f.session.Select(context.Background(), "c"))

	state := f.session.Snapshot()
	assert.Equal(t, []string{"m1"}, messageIDs(state.Messages))
	assert.False(t, state.Loading)
	f.api.AssertNumberOfCalls(t, "FetchHistory", 2)

	require.NoError(t, f.session.Select(context.Background(), "c"))
	f.api.AssertNumberOfCalls(t, "FetchHistory", 2)
}

func TestPushWithoutConversationIsDropped(t *testing.T) {
	f := newFixture(t, direct("c"))

	f.conn.push(t, models.EventMessageReceived, map[string]string{"_id": "x1"})

	state := f.session.Snapshot()
	assert.Empty(t, state.Notifications)
	assert.Empty(t, state.Unread)
}

func TestSendAppendsOnceDespiteEchoPush(t *testing.T) {
	f := newFixture(t, direct("c"))
	f.history("c")
	require.NoError(t, f.session.Select(context.Background(), "c"))

	sent := models.Message{ID: "m-hello", Content: "hello", Sender: me.User, Chat: models.ChatRef{ID: "c"}}
	f.api.On("SendMessage", mock.Anything, "c", "hello").Return(sent, nil)

	msg, err := f.session.SendMessage(context.Background(), "  hello ")
	require.NoError(t, err)
	assert.Equal(t, "m-hello", msg.ID)
	f.conn.push(t, models.EventMessageReceived, sent)

	state := f.session.Snapshot()
	hello := 0
	for _, m := range state.Messages {
		if m.Content == "hello" {
			hello++
		}
	}
	assert.Equal(t, 1, hello)
	assert.Empty(t, state.Notifications)
	assert.Equal(t, 1, f.conn.emitCount(models.EventNewMessage))
}

func TestSendFailureLeavesBufferUntouched(t *testing.T) {
	f := newFixture(t, direct("c"))
	f.history("c", message("m1", "c", "a"))
	require.NoError(t, f.session.Select(context.Background(), "c"))
	f.api.On("SendMessage", mock.Anything, "c", "hello").Return(nil, errors.New("rejected"))

	_, err := f.session.SendMessage(context.Background(), "hello")
	var sendErr *session.SendError
	require.True(t, errors.As(err, &sendErr))
	assert.Equal(t, "c", sendErr.ConversationID)
	assert.Equal(t, []string{"m1"}, messageIDs(f.session.Snapshot().Messages))
	assert.Equal(t, 0, f.conn.emitCount(models.EventNewMessage))
}

func TestSendValidation(t *testing.T) {
	f := newFixture(t, direct("c"))

	_, err := f.session.SendMessage(context.Background(), "   ")
	assert.ErrorIs(t, err, session.ErrEmptyMessage)
	_, err = f.session.SendMessage(context.Background(), "hi")
	assert.ErrorIs(t, err, session.ErrNoSelection)
	f.api.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestPresenceSnapshotDeduplicated(t *testing.T) {
	f := newFixture(t)
	f.conn.push(t, models.EventConnectedUsers, []models.User{bob, ann, {ID: "bob", Name: "Bob 2"}})

	online := f.session.Snapshot().Online
	require.Len(t, online, 2)
	assert.Equal(t, "Bob 2", online[0].Name)
}

func TestRemoteTypingScopedToOpenConversation(t *testing.T) {
	f := newFixture(t, direct("c"), direct("d"))
	f.history("c")
	f.history("d")
	require.NoError(t, f.session.Select(context.Background(), "c"))

	f.conn.push(t, models.EventTyping, "d")
	assert.False(t, f.session.Snapshot().RemoteTyping)

	f.conn.push(t, models.EventTyping, "c")
	assert.True(t, f.session.Snapshot().RemoteTyping)

	require.NoError(t, f.session.Select(context.Background(), "d"))
	assert.False(t, f.session.Snapshot().RemoteTyping, "indicator resets on switch")

	f.conn.push(t, models.EventTyping, "d")
	f.conn.push(t, models.EventStopTyping, "d")
	assert.False(t, f.session.Snapshot().RemoteTyping)
}

func TestLocalTypingStopsOnSwitch(t *testing.T) {
	f := newFixture(t, direct("c"), direct("d"))
	f.history("c")
	f.history("d")
	assert.False(t, f.session.Input(), "no conversation open")

	require.NoError(t, f.session.Select(context.Background(), "c"))
	assert.True(t, f.session.Input())
	assert.True(t, f.session.Snapshot().Typing)

	require.NoError(t, f.session.Select(context.Background(), "d"))
	assert.Equal(t, 1, f.conn.emitCount(models.EventTyping))
	assert.Equal(t, 1, f.conn.emitCount(models.EventStopTyping))

	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, 1, f.conn.emitCount(models.EventStopTyping), "abandoned conversation gets no late stop")
}

func TestFavoritesFilter(t *testing.T) {
	fav := direct("fav")
	fav.Favorites = []string{"me"}
	f := newFixture(t, direct("c"), fav)

	f.session.SetFavoritesOnly(true)
	state := f.session.Snapshot()
	assert.True(t, state.FavoritesOnly)
	require.Len(t, state.Conversations, 1)
	assert.Equal(t, "fav", state.Conversations[0].ID)

	f.session.SetFavoritesOnly(false)
	assert.Len(t, f.session.Snapshot().Conversations, 2)
}

func TestCloseUnregistersAndClears(t *testing.T) {
	f := newFixture(t, direct("c"))
	f.history("c")
	require.NoError(t, f.session.Select(context.Background(), "c"))

	f.session.Close()
	f.session.Close()

	assert.Equal(t, 0, f.conn.Count(models.EventMessageReceived))
	assert.Equal(t, 0, f.conn.Count(models.EventConnectedUsers))
	assert.Equal(t, 1, f.conn.disconnects)

	f.conn.Dispatch(models.EventMessageReceived, []byte(`{"_id":"m9","chat":"x"}`))
	state := f.session.Snapshot()
	assert.Nil(t, state.User)
	assert.Empty(t, state.Conversations)
	assert.Empty(t, state.Notifications)
	assert.Nil(t, state.Selected)
}

func TestSetIdentityLifecycle(t *testing.T) {
	f := newFixture(t, direct("c"))

	updated := me
	updated.Name = "Me Renamed"
	updated.Token = "tok-2"
	require.NoError(t, f.session.SetIdentity(context.Background(), &updated))
	assert.Equal(t, 1, f.conn.connectCount(), "profile update keeps the channel")
	id, _ := f.session.Identity()
	assert.Equal(t, "Me Renamed", id.Name)
	assert.Equal(t, []string{"tok-me", "tok-2"}, f.tokens)

	other := models.Identity{User: models.User{ID: "other"}, Token: "tok-o"}
	require.NoError(t, f.session.SetIdentity(context.Background(), &other))
	assert.Equal(t, 2, f.conn.connectCount())
	assert.Equal(t, 1, f.conn.disconnects)
	assert.Equal(t, 1, f.conn.Count(models.EventMessageReceived), "no duplicate handlers across restarts")

	require.NoError(t, f.session.SetIdentity(context.Background(), nil))
	_, ok := f.session.Identity()
	assert.False(t, ok)
}

func TestAuditEventsOnLifecycle(t *testing.T) {
	api := &mocks.APIMock{}
	api.On("FetchConversations", mock.Anything).Return([]models.Conversation{}, nil)
	audit := &mocks.AuditorMock{}
	audit.On("Emit", mock.Anything, "INFO", "session_start", "", mock.Anything).Once()
	audit.On("Emit", mock.Anything, "INFO", "session_end", "", mock.Anything).Once()

	s := session.New(session.Deps{NewAPI: func(string) session.API { return api }, Conn: newFakeConn(), Audit: audit})
	require.NoError(t, s.Start(context.Background(), me))
	s.Close()

	audit.AssertExpectations(t)
}
