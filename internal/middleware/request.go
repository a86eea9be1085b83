package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"chat-client/internal/models"
	"chat-client/internal/observability"
)

const (
	RequestIDKey = "request_id"
	UserIDKey    = "userID"
)

// RequestID tags each request with X-Request-Id, generating one if absent.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := observability.RequestIDFromRequest(c.Request)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDKey, requestID)
		c.Header("X-Request-Id", requestID)
		c.Next()
	}
}

// AccessLog writes one line per served request.
func AccessLog(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		logger.Debug("view request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(started)),
			zap.String("ip", observability.IPFromRequest(c.Request)),
			zap.String("request_id", c.GetString(RequestIDKey)),
		)
	}
}

// RequireIdentity rejects requests while nobody is signed in and stores the
// user id for the handlers.
func RequireIdentity(current func() (models.Identity, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := current()
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
			return
		}
		c.Set(UserIDKey, identity.ID)
		c.Next()
	}
}
