package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chat-client/internal/models"
	"chat-client/internal/session"
)

// Session is the part of *session.Session the view drives.
type Session interface {
	Identity() (models.Identity, bool)
	Snapshot() session.State
	Media(kinds ...models.MediaKind) []models.Message
	Select(ctx context.Context, conversationID string) error
	Deselect()
	SendMessage(ctx context.Context, content string) (models.Message, error)
	Input() bool
	RefreshConversations(ctx context.Context) error
	SetFavoritesOnly(only bool)
	AccessChat(ctx context.Context, userID string) (models.Conversation, error)
	CreateGroup(ctx context.Context, name string, userIDs []string) (models.Conversation, error)
	RenameGroup(ctx context.Context, conversationID, name string) (models.Conversation, error)
	AddToGroup(ctx context.Context, conversationID, userID string) (models.Conversation, error)
	RemoveFromGroup(ctx context.Context, conversationID, userID string) (models.Conversation, error)
	PublicRooms(ctx context.Context) ([]models.Conversation, error)
	CreatePublicRoom(ctx context.Context, name string) (models.Conversation, error)
	JoinPublicRoom(ctx context.Context, conversationID string) (models.Conversation, error)
	SearchUsers(ctx context.Context, query string) ([]models.User, error)
}

// ViewHandler exposes the session state and user actions as JSON.
type ViewHandler struct {
	session Session
}

// NewViewHandler builds a ViewHandler.
func NewViewHandler(s Session) *ViewHandler {
	return &ViewHandler{session: s}
}

// State returns the whole session snapshot.
func (h *ViewHandler) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Snapshot())
}

// ListChats returns the chat list, honouring the favorites filter.
func (h *ViewHandler) ListChats(c *gin.Context) {
	state := h.session.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"chats":          state.Conversations,
		"unread":         state.Unread,
		"favorites_only": state.FavoritesOnly,
	})
}

// SelectChat opens a conversation and returns its messages.
func (h *ViewHandler) SelectChat(c *gin.Context) {
	chatID := c.Param("chat_id")
	if strings.TrimSpace(chatID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}
	if err := h.session.Select(c.Request.Context(), chatID); err != nil {
		writeError(c, err)
		return
	}
	state := h.session.Snapshot()
	c.JSON(http.StatusOK, gin.H{"selected": state.Selected, "messages": state.Messages})
}

// Deselect closes the open conversation.
func (h *ViewHandler) Deselect(c *gin.Context) {
	h.session.Deselect()
	c.Status(http.StatusNoContent)
}

// GetMessages returns the buffer of the open conversation.
func (h *ViewHandler) GetMessages(c *gin.Context) {
	state := h.session.Snapshot()
	if state.Selected == nil {
		writeError(c, session.ErrNoSelection)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"chat_id":  state.Selected.ID,
		"messages": state.Messages,
		"loading":  state.Loading,
		"typing":   state.RemoteTyping,
	})
}

// PostMessage sends a message to the open conversation.
func (h *ViewHandler) PostMessage(c *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg, err := h.session.SendMessage(c.Request.Context(), req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// Typing records a keystroke in the open conversation.
func (h *ViewHandler) Typing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"typing": h.session.Input()})
}

// GetMedia lists shared media of the open conversation, ?kind=image&kind=video.
func (h *ViewHandler) GetMedia(c *gin.Context) {
	kinds := make([]models.MediaKind, 0, 4)
	for _, k := range c.QueryArray("kind") {
		kinds = append(kinds, models.MediaKind(strings.ToLower(k)))
	}
	if len(kinds) == 0 {
		kinds = []models.MediaKind{models.MediaImage, models.MediaVideo, models.MediaAudio}
	}
	c.JSON(http.StatusOK, gin.H{"messages": h.session.Media(kinds...)})
}

func (h *ViewHandler) Notifications(c *gin.Context) {
	state := h.session.Snapshot()
	c.JSON(http.StatusOK, gin.H{"notifications": state.Notifications, "unread": state.Unread})
}

func (h *ViewHandler) Presence(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"online": h.session.Snapshot().Online})
}

// SetFavorites toggles the favorites-only filter of the chat list.
func (h *ViewHandler) SetFavorites(c *gin.Context) {
	var req struct {
		Only *bool `json:"only" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.session.SetFavoritesOnly(*req.Only)
	c.JSON(http.StatusOK, gin.H{"favorites_only": *req.Only})
}

// Refresh reloads the chat list from the server.
func (h *ViewHandler) Refresh(c *gin.Context) {
	if err := h.session.RefreshConversations(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
