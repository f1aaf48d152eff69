package routes

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"chat-backend/internal/chat"
	"chat-backend/internal/config"
	"chat-backend/internal/handlers"
	"chat-backend/internal/logger"
	"chat-backend/internal/metrics"
	"chat-backend/internal/middleware"
	"chat-backend/internal/storage"
	"chat-backend/internal/uploads"
)

// Dependencies are the collaborators the routes are built from.
type Dependencies struct {
	Config  *config.Config
	DB      *gorm.DB
	Users   *storage.UserStore
	Chat    *chat.Service
	Uploads *uploads.Store
	Log     zerolog.Logger
}

// NewRouter builds the engine with logging, metrics, recovery and CORS, then
// registers every route.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(logger.RequestLogger(deps.Log), metrics.Middleware(), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{deps.Config.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	SetupRoutes(router, deps)
	return router
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	authHandler := handlers.NewAuthHandler(deps.Users, deps.Config, deps.Log)
	userHandler := handlers.NewUserHandler(deps.Chat, deps.Log)
	messageHandler := handlers.NewMessageHandler(deps.Chat, deps.Uploads, deps.Log)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(deps.Config, deps.Log))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
		}

		private.GET("/users", userHandler.GetUsers)

		messageRoutes := private.Group("/messages")
		{
			messageRoutes.POST("", messageHandler.SendMessage)
			messageRoutes.GET("/conversations", messageHandler.GetConversations)
			messageRoutes.GET("/unread-count", messageHandler.GetUnreadCount)

			withPeer := messageRoutes.Group("/with/:peerId")
			{
				withPeer.GET("", messageHandler.GetConversation)
				withPeer.GET("/new", messageHandler.GetNewMessages)
				withPeer.GET("/deleted", messageHandler.GetDeletedMessages)
				withPeer.GET("/sync", messageHandler.Sync)
			}

			messageRoutes.DELETE("/:messageId", messageHandler.DeleteMessage)
			// form-post alias for clients that cannot send DELETE
			messageRoutes.POST("/:messageId/delete", messageHandler.DeleteMessage)
		}
	}

	if deps.Uploads != nil {
		router.Static(deps.Uploads.URLPrefix(), deps.Uploads.Dir())
	}

	router.GET("/metrics", metrics.Handler())

	router.GET("/health", func(c *gin.Context) {
		if deps.DB != nil {
			sqlDB, err := deps.DB.DB()
			if err == nil {
				err = sqlDB.PingContext(c.Request.Context())
			}
			if err != nil {
				deps.Log.Error().Err(err).Msg("health check failed")
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
}
