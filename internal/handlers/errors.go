package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-client/internal/api"
	"chat-client/internal/session"
)

func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	var (
		fetchErr  *session.FetchError
		sendErr   *session.SendError
		statusErr *api.StatusError
	)
	switch {
	case errors.Is(err, session.ErrNoIdentity):
		return http.StatusUnauthorized
	case errors.Is(err, session.ErrNoSelection),
		errors.Is(err, session.ErrEmptyMessage),
		errors.Is(err, session.ErrInvalidGroup),
		errors.Is(err, session.ErrNotGroup):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotGroupAdmin):
		return http.StatusForbidden
	case errors.Is(err, session.ErrUnknownConversation):
		return http.StatusNotFound
	case errors.Is(err, session.ErrAlreadyMember):
		return http.StatusConflict
	case errors.As(err, &fetchErr), errors.As(err, &sendErr), errors.As(err, &statusErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
