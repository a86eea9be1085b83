package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-client/internal/api"
	"chat-client/internal/mocks"
	"chat-client/internal/models"
	"chat-client/internal/session"
)

var _ Session = (*mocks.SessionMock)(nil)

var signedIn = models.Identity{User: models.User{ID: "me", Name: "Me"}, Token: "tok"}

func setupRouter(s *mocks.SessionMock, signed bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	if signed {
		s.On("Identity").Return(signedIn, true).Maybe()
	} else {
		s.On("Identity").Return(nil, false).Maybe()
	}
	return NewRouter(s, RouterConfig{Service: "chat-client-test", DebugRoutes: true})
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestStateReturnsSnapshot(t *testing.T) {
	s := new(mocks.SessionMock)
	router := setupRouter(s, false)
	s.On("Snapshot").Return(session.State{Connection: "connected", Conversations: []models.Conversation{{ID: "c1"}}}).Once()

	rec := serve(router, http.MethodGet, "/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp session.State
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "connected", resp.Connection)
	assert.Len(t, resp.Conversations, 1)
	s.AssertExpectations(t)
}

func TestRoutesRequireIdentity(t *testing.T) {
	s := new(mocks.SessionMock)
	router := setupRouter(s, false)

	rec := serve(router, http.MethodGet, "/chats", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	s.AssertNotCalled(t, "Snapshot")
}

func TestListChats(t *testing.T) {
	s := new(mocks.SessionMock)
	router := setupRouter(s, true)
	s.On("Snapshot").Return(session.State{
		FavoritesOnly: true,
		Conversations: []models.Conversation{{ID: "c1", Favorites: []string{"me"}}},
		Unread:        map[string]int{"c2": 3},
	}).Once()

	rec := serve(router, http.MethodGet, "/chats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Chats         []models.Conversation `json:"chats"`
		Unread        map[string]int        `json:"unread"`
		FavoritesOnly bool                  `json:"favorites_only"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Chats, 1)
	assert.Equal(t, 3, resp.Unread["c2"])
	assert.True(t, resp.FavoritesOnly)
}

func TestSelectChat(t *testing.T) {
	s := new(mocks.SessionMock)
	router := setupRouter(s, true)
	s.On("Select", mock.Anything, "c1").Return(nil).Once()
	s.On("Snapshot").Return(session.State{
		Selected: &models.Conversation{ID: "c1"},
		Messages: []models.Message{{ID: "m1", Chat: models.ChatRef{ID: "c1"}}},
	}).Once()

	rec := serve(router, http.MethodPost, "/chats/c1/select", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"m1"`)
	s.AssertExpectations(t)
}

func TestSelectChatFetchErrorIsBadGateway(t *testing.T) {
	s := new(mocks.SessionMock)
	router := setupRouter(s, true)
	s.On("Select", mock.Anything, "c1").Return(&session.FetchError{Op: "history", Err: errors.New("timeout")}).Once()

	rec := serve(router, http.MethodPost, "/chats/c1/select", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestDeselect(t *testing.T) {
	s := new(mocks.SessionMock)
	router := setupRouter(s, true)
	s.On("Deselect").Return().Once()

	rec := serve(router, http.MethodDelete, "/selection", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	s.AssertExpectations(t)
}

func TestGetMessagesWithoutSelection(t *testing.T) {
	s := new(mocks.SessionMock)
	router := setupRouter(s, true)
	s.On("Snapshot").Return(session.State{}).Once()

	rec := serve(router, http.MethodGet, "/messages", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostMessage(t *testing.T) {
	s := new(mocks.SessionMock)
	router := setupRouter(s, true)
	s.On("SendMessage", mock.Anything, "hello").Return(models.Message{ID: "m1", Content: "hello"}, nil).Once()

	rec := serve(router, http.MethodPost, "/messages", `{"content":"hello"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var msg models.Message
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&msg))
	assert.Equal(t, "m1", msg.ID)
}

func TestPostMessageErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"empty", session.ErrEmptyMessage, http.StatusBadRequest},
		{"no selection", session.ErrNoSelection, http.StatusBadRequest},
		{"signed out", session.ErrNoIdentity, http.StatusUnauthorized},
		{"rejected", &session.SendError{ConversationID: "c1", Err: &api.StatusError{StatusCode: 400}}, http.StatusBadGateway},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := new(mocks.SessionMock)
			router := setupRouter(s, true)
			s.On("SendMessage", mock.Anything, "x").Return(nil, tc.err).Once()

			rec := serve(router, http.MethodPost, "/messages", `{"content":"x"}`)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestPostMessageInvalidBody(t *testing.T) {
	s := new(mocks.SessionMock)
	router := setupRouter(s, true)

	rec := serve(router, http.MethodPost, "/messages", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	s.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
}

func TestTypingAndFavorites(t *testing.T) {
	s := new(mocks.SessionMock)
	router := setupRouter(s, true)
	s.On("Input").Return(true).Once()
	s.On("SetFavoritesOnly", true).Return().Once()

	rec := serve(router, http.MethodPost, "/typing", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"typing":true}`, rec.Body.String())

	rec = serve(router, http.MethodPut, "/favorites", `{"only":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, http.MethodPut, "/favorites", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	s.AssertExpectations(t)
}

func TestMediaDefaultsToVisualKinds(t *testing.T) {
	s := new(mocks.SessionMock)
	router := setupRouter(s, true)
	s.On("Media", []models.MediaKind{models.MediaImage, models.MediaVideo, models.MediaAudio}).Return([]models.Message{{ID: "m1"}}).Once()
	s.On("Media", []models.MediaKind{models.MediaPDF}).Return(nil).Once()

	rec := serve(router, http.MethodGet, "/media", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"m1"`)

	rec = serve(router, http.MethodGet, "/media?kind=PDF", "")
	require.Equal(t, http.StatusOK, rec.Code)
	s.AssertExpectations(t)
}

func TestRefreshFailure(t *testing.T) {
	s := new(mocks.SessionMock)
	router := setupRouter(s, true)
	s.On("RefreshConversations", mock.Anything).Return(&session.FetchError{Op: "conversations", Err: errors.New("down")}).Once()

	rec := serve(router, http.MethodPost, "/refresh", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestNotificationsAndPresence(t *testing.T) {
	s := new(mocks.SessionMock)
	router := setupRouter(s, true)
	s.On("Snapshot").Return(session.State{
		Notifications: []models.Message{{ID: "m1", Chat: models.ChatRef{ID: "c2"}}},
		Unread:        map[string]int{"c2": 1},
		Online:        []models.User{{ID: "bob"}},
	})

	rec := serve(router, http.MethodGet, "/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"m1"`)

	rec = serve(router, http.MethodGet, "/presence", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"bob"`)
}

func TestDebugSessionSummary(t *testing.T) {
	s := new(mocks.SessionMock)
	router := setupRouter(s, true)
	s.On("Snapshot").Return(session.State{Connection: "connecting", Messages: []models.Message{{ID: "m1"}}}).Once()

	rec := serve(router, http.MethodGet, "/debug/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "connecting", resp["connection"])
	assert.Equal(t, float64(1), resp["messages"])
	assert.NotContains(t, rec.Body.String(), `"m1"`)

	rec = serve(router, http.MethodGet, "/debug/audit-test", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	s := new(mocks.SessionMock)
	router := setupRouter(s, false)

	rec := serve(router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "chat_client_ws_state")
}
