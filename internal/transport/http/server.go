package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/avelichko/flock-server/internal/auth"
	"github.com/avelichko/flock-server/internal/config"
	"github.com/avelichko/flock-server/internal/realtime"
	"github.com/avelichko/flock-server/internal/store"
)

// NewServer builds the HTTP server: REST API plus the websocket endpoint.
func NewServer(authService *auth.Service, st store.Store, gateway *realtime.Gateway, actions *realtime.Actions, fanout *realtime.Fanout, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(LoggerMiddleware(logger))

	engine.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	apiHandlers := NewAPIHandlers(authService, logger)
	userHandlers := NewUserHandlers(st, fanout, logger)
	postHandlers := NewPostHandlers(st, actions, fanout, logger)
	dmHandlers := NewDMHandlers(st, actions, fanout, logger)
	notifHandlers := NewNotificationHandlers(st, fanout, logger)

	api := engine.Group("/api")
	{
		api.POST("/register", apiHandlers.Register)
		api.POST("/login", apiHandlers.Login)
	}

	authorized := api.Group("")
	authorized.Use(AuthMiddleware(authService, logger))
	{
		authorized.GET("/users/:username", userHandlers.GetProfile)
		authorized.POST("/users/:username/follow", userHandlers.Follow)
		authorized.DELETE("/users/:username/follow", userHandlers.Unfollow)

		authorized.POST("/posts", RateLimitMiddleware(cfg.PostRateLimit), postHandlers.CreatePost)
		authorized.GET("/posts/:id", postHandlers.GetPost)
		authorized.DELETE("/posts/:id", postHandlers.DeletePost)
		authorized.GET("/timeline", postHandlers.Timeline)
		authorized.POST("/posts/:id/like", postHandlers.Like)
		authorized.DELETE("/posts/:id/like", postHandlers.Unlike)
		authorized.POST("/posts/:id/retweet", postHandlers.Retweet)
		authorized.DELETE("/posts/:id/retweet", postHandlers.Unretweet)
		authorized.POST("/polls/:id/vote", postHandlers.Vote)

		authorized.GET("/messages/conversations", dmHandlers.ListConversations)
		authorized.GET("/messages/unread-count", dmHandlers.UnreadCount)
		authorized.GET("/messages/:userID", dmHandlers.History)
		authorized.POST("/messages", RateLimitMiddleware(cfg.DMRateLimit), dmHandlers.Send)
		authorized.POST("/messages/:userID/read", dmHandlers.MarkRead)
		authorized.DELETE("/messages/:id", dmHandlers.Delete)

		authorized.GET("/notifications", notifHandlers.List)
		authorized.GET("/notifications/unread-count", notifHandlers.UnreadCount)
		authorized.POST("/notifications/read", notifHandlers.MarkRead)
	}

	engine.GET("/ws", gin.WrapH(NewWSHandler(authService, gateway, actions, cfg, logger)))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
