package routes

import (
	"time"

	"course-chat-service/internal/api/handlers"
	"course-chat-service/internal/api/middleware"
	"course-chat-service/internal/auth"
	"course-chat-service/internal/services"
	"course-chat-service/internal/websocket"

	_ "course-chat-service/docs"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Router struct {
	engine         *gin.Engine
	wsHandler      *handlers.WSHandler
	channelHandler *handlers.ChannelHandler
	messageHandler *handlers.MessageHandler
	rateLimitMW    *middleware.RateLimitMiddleware
	authMW         *middleware.AuthMiddleware
}

func NewRouter(
	hub *websocket.Hub,
	gateway *websocket.Gateway,
	verifier *auth.Verifier,
	channelService *services.ChannelService,
	messageService *services.MessageService,
	redisService *services.RedisService,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS())
	engine.Use(middleware.LogAPI())

	return &Router{
		engine:         engine,
		wsHandler:      handlers.NewWSHandler(hub, gateway, verifier),
		channelHandler: handlers.NewChannelHandler(channelService),
		messageHandler: handlers.NewMessageHandler(messageService, gateway),
		rateLimitMW:    middleware.NewRateLimitMiddleware(redisService),
		authMW:         middleware.NewAuthMiddleware(verifier),
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.engine.Group("/api/v1")

	// The upgrade request authenticates in the handler itself; only the
	// per-IP connection churn limit runs before it.
	api.GET("/ws",
		r.rateLimitMW.RateLimitIP(10, time.Minute),
		r.wsHandler.HandleWebSocket,
	)

	authd := api.Group("/")
	authd.Use(r.authMW.RequireAuth())
	{
		courses := authd.Group("/courses")
		{
			courses.GET("/:courseId/channels", r.channelHandler.ListChannels)
			courses.POST("/:courseId/channels", r.channelHandler.CreateChannel)
		}

		channels := authd.Group("/channels")
		{
			channels.GET("/:channelId", r.channelHandler.GetChannel)
			channels.PATCH("/:channelId", r.channelHandler.UpdateChannel)
			channels.DELETE("/:channelId", r.channelHandler.DeleteChannel)
			channels.GET("/:channelId/members", r.channelHandler.ListMembers)
			channels.POST("/:channelId/members", r.channelHandler.AddMember)
			channels.PATCH("/:channelId/members/:memberId", r.channelHandler.UpdateMemberStatus)
			channels.GET("/:channelId/threads", r.channelHandler.ListThreads)
			channels.POST("/:channelId/threads", r.channelHandler.CreateThread)
			channels.GET("/:channelId/messages", r.messageHandler.ListMessages)
			channels.POST("/:channelId/messages",
				r.rateLimitMW.RateLimit(60, time.Minute),
				r.messageHandler.SendMessage,
			)
		}

		messages := authd.Group("/messages")
		{
			messages.PATCH("/:messageId", r.messageHandler.UpdateMessage)
			messages.DELETE("/:messageId", r.messageHandler.DeleteMessage)
		}

		threads := authd.Group("/threads")
		{
			threads.GET("/:threadId/messages", r.messageHandler.ListThreadMessages)
		}
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
