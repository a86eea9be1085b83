package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-client/internal/middleware"
)

// AccessChat opens the direct chat with a user, creating it if needed.
func (h *ViewHandler) AccessChat(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UserID == c.GetString(middleware.UserIDKey) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot chat with yourself"})
		return
	}
	conv, err := h.session.AccessChat(c.Request.Context(), req.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// CreateGroup creates a group with the caller as admin.
func (h *ViewHandler) CreateGroup(c *gin.Context) {
	var req struct {
		Name  string   `json:"name" binding:"required"`
		Users []string `json:"users" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	conv, err := h.session.CreateGroup(c.Request.Context(), req.Name, req.Users)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, conv)
}

func (h *ViewHandler) RenameGroup(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	conv, err := h.session.RenameGroup(c.Request.Context(), c.Param("chat_id"), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (h *ViewHandler) AddMember(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	conv, err := h.session.AddToGroup(c.Request.Context(), c.Param("chat_id"), req.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// RemoveMember removes a member; removing yourself leaves the group.
func (h *ViewHandler) RemoveMember(c *gin.Context) {
	conv, err := h.session.RemoveFromGroup(c.Request.Context(), c.Param("chat_id"), c.Param("user_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// ListPublicRooms returns public groups the caller can join.
func (h *ViewHandler) ListPublicRooms(c *gin.Context) {
	rooms, err := h.session.PublicRooms(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (h *ViewHandler) CreatePublicRoom(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	conv, err := h.session.CreatePublicRoom(c.Request.Context(), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, conv)
}

func (h *ViewHandler) JoinPublicRoom(c *gin.Context) {
	conv, err := h.session.JoinPublicRoom(c.Request.Context(), c.Param("chat_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// SearchUsers finds users by name or email, ?search=.
func (h *ViewHandler) SearchUsers(c *gin.Context) {
	users, err := h.session.SearchUsers(c.Request.Context(), c.Query("search"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}
