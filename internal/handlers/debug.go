package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-client/internal/telemetry"
)

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router gin.IRouter, emitter *telemetry.AuditEmitter, s Session, enabled bool) {
	if !enabled {
		return
	}

	debug := router.Group("/debug")
	debug.GET("/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		emitter.Emit(c.Request.Context(), telemetry.LevelInfo, "audit test", requestIDFromContext(c), userIDFromContext(c))
		c.JSON(http.StatusOK, gin.H{"status": "ok", "request_id": requestIDFromContext(c)})
	})

	// Counters only; message bodies stay out of debug output.
	debug.GET("/session", func(c *gin.Context) {
		state := s.Snapshot()
		selected := ""
		if state.Selected != nil {
			selected = state.Selected.ID
		}
		c.JSON(http.StatusOK, gin.H{
			"connection":    state.Connection,
			"signed_in":     state.User != nil,
			"selected":      selected,
			"conversations": len(state.Conversations),
			"messages":      len(state.Messages),
			"notifications": len(state.Notifications),
			"online":        len(state.Online),
		})
	})
}
