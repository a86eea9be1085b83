package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"chat-client/internal/middleware"
	"chat-client/internal/observability"
	"chat-client/internal/telemetry"
)

type RouterConfig struct {
	Service     string
	Logger      *zap.Logger
	Audit       *telemetry.AuditEmitter
	DebugRoutes bool
}

// NewRouter builds the local view: session routes behind RequireIdentity,
// plus /metrics and optional debug routes.
func NewRouter(s Session, cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		otelgin.Middleware(cfg.Service),
		middleware.RequestID(),
		observability.HTTPMetricsMiddleware(),
		middleware.AccessLog(cfg.Logger),
	)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	RegisterDebugRoutes(router, cfg.Audit, s, cfg.DebugRoutes)

	view := NewViewHandler(s)
	router.GET("/state", view.State)

	signedIn := router.Group("/", middleware.RequireIdentity(s.Identity))
	signedIn.GET("/chats", view.ListChats)
	signedIn.POST("/chats", view.AccessChat)
	signedIn.POST("/chats/:chat_id/select", view.SelectChat)
	signedIn.DELETE("/selection", view.Deselect)
	signedIn.GET("/messages", view.GetMessages)
	signedIn.POST("/messages", view.PostMessage)
	signedIn.GET("/media", view.GetMedia)
	signedIn.POST("/typing", view.Typing)
	signedIn.GET("/notifications", view.Notifications)
	signedIn.GET("/presence", view.Presence)
	signedIn.PUT("/favorites", view.SetFavorites)
	signedIn.POST("/refresh", view.Refresh)
	signedIn.GET("/users", view.SearchUsers)

	signedIn.POST("/groups", view.CreateGroup)
	signedIn.PUT("/groups/:chat_id/name", view.RenameGroup)
	signedIn.POST("/groups/:chat_id/members", view.AddMember)
	signedIn.DELETE("/groups/:chat_id/members/:user_id", view.RemoveMember)

	signedIn.GET("/public-rooms", view.ListPublicRooms)
	signedIn.POST("/public-rooms", view.CreatePublicRoom)
	signedIn.POST("/public-rooms/:chat_id/join", view.JoinPublicRoom)

	return router
}
