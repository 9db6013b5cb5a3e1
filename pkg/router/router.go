package router

import (
	"omnichan/backend/internal/api"
	"omnichan/backend/internal/ws"
	"omnichan/backend/pkg/config"
	"omnichan/backend/pkg/di"
	"omnichan/backend/pkg/errors"
	"omnichan/backend/pkg/jwt"
	"omnichan/backend/pkg/logger"
	"omnichan/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	logger.SetGlobal(container.Logger)

	cfg := container.Config

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())

	limiterOpts := middleware.DefaultRateLimiterOptions()
	limiterOpts.Limit = rate.Limit(cfg.Security.RateLimit)
	limiterOpts.Burst = cfg.Security.RateLimitBurst
	rateLimiter := middleware.NewRateLimiter(container.Logger, limiterOpts)
	engine.Use(rateLimiter.Middleware())

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	r.Engine.Use(corsMiddleware(r.Config.Security.AllowedOrigins))

	jwtAuth := middleware.JWTAuthMiddleware(r.Container.JWTService, r.Logger)

	authHandler := api.NewAuthHandler(r.Container.UserService, r.Container.JWTService, r.Logger)
	webhookHandler := api.NewWebhookHandler(
		r.Container.Verifier,
		r.Container.Dispatcher,
		r.Config.Facebook.VerifyToken,
		r.Logger,
	)
	conversationHandler := api.NewConversationHandler(r.Container.ConversationService, r.Container.AIService, r.Logger)
	customerHandler := api.NewCustomerHandler(r.Container.CustomerService, r.Logger)
	integrationHandler := api.NewIntegrationHandler(r.Container.IntegrationService, r.Logger)

	r.setupHealthRoutes()

	// webhooks are called by the platform, not by authenticated users
	webhooks := r.Engine.Group("/api/v1/webhooks")
	{
		webhooks.GET("/facebook", webhookHandler.Verify)
		webhooks.POST("/facebook", webhookHandler.Receive)
	}

	v1 := r.Engine.Group("/api/v1")

	authRoutes := v1.Group("/auth")
	{
		authRoutes.POST("/signup", authHandler.Signup)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.GET("/me", jwtAuth, authHandler.Me)
	}

	protected := v1.Group("/")
	protected.Use(jwtAuth)
	{
		adminRoutes := protected.Group("/admin")
		adminRoutes.Use(middleware.RequireRole(jwt.RoleAdmin))
		{
			adminRoutes.PUT("/users/:id/role", authHandler.UpdateUserRole)
		}

		conversationRoutes := protected.Group("/conversations")
		{
			conversationRoutes.GET("", middleware.RequirePermission(jwt.PermReadConversation), conversationHandler.List)
			conversationRoutes.GET("/:id", middleware.RequirePermission(jwt.PermReadConversation), conversationHandler.Get)
			conversationRoutes.GET("/:id/messages", middleware.RequirePermission(jwt.PermReadConversation), conversationHandler.Messages)
			conversationRoutes.PUT("/:id/status", middleware.RequirePermission(jwt.PermWriteConversation), conversationHandler.UpdateStatus)
			conversationRoutes.POST("/:id/reply", middleware.RequirePermission(jwt.PermWriteConversation), conversationHandler.Reply)
			conversationRoutes.GET("/:id/suggest-reply", middleware.RequirePermission(jwt.PermReadConversation), conversationHandler.SuggestReply)
		}

		customerRoutes := protected.Group("/customers")
		{
			customerRoutes.GET("", middleware.RequirePermission(jwt.PermReadCustomer), customerHandler.List)
			customerRoutes.GET("/:id", middleware.RequirePermission(jwt.PermReadCustomer), customerHandler.Get)
			customerRoutes.PUT("/:id", middleware.RequirePermission(jwt.PermWriteCustomer), customerHandler.Update)
		}

		integrationRoutes := protected.Group("/integrations")
		integrationRoutes.Use(middleware.RequirePermission(jwt.PermManageIntegration))
		{
			integrationRoutes.GET("", integrationHandler.List)
			integrationRoutes.POST("/facebook", integrationHandler.ConnectFacebook)
			integrationRoutes.PUT("/:id/active", integrationHandler.SetActive)
		}
	}

	// live event stream for the dashboard
	r.Engine.GET("/ws", jwtAuth, ws.StreamHandler(r.Container.Hub))
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		switch {
		case allowAll:
			if origin == "" {
				origin = "*"
			}
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		case allowed[origin]:
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, X-CSRF-Token, Authorization, Origin, Upgrade, Connection, Cache-Control")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Upgrade, Connection")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
