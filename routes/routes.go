package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/gracechurch/church-backend/config"
	_ "github.com/gracechurch/church-backend/docs"
	"github.com/gracechurch/church-backend/internal/auditlog"
	"github.com/gracechurch/church-backend/internal/auth"
	"github.com/gracechurch/church-backend/internal/notification"
	"github.com/gracechurch/church-backend/internal/push"
	"github.com/gracechurch/church-backend/internal/realtime"
	"github.com/gracechurch/church-backend/internal/reports"
	"github.com/gracechurch/church-backend/middleware"
)

// Deps are the services built in main and shared with the HTTP layer.
type Deps struct {
	Logger   *zap.Logger
	Redis    *redis.Client // optional
	Auth     auth.Service
	Audit    auditlog.Service
	Store    *notification.Store
	Notifier *notification.Notifier
	Push     *push.Service
	Hub      *realtime.Hub
	Reports  reports.Service
}

// NewRouter builds the engine with the global middleware stack.
func NewRouter(cfg *config.Config, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Cache-Control", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if allowAll(cfg.CORSOrigins) {
		corsCfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		corsCfg.AllowOrigins = cfg.CORSOrigins
	}
	r.Use(cors.New(corsCfg))
	return r
}

func allowAll(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return len(origins) == 0
}

func Setup(r *gin.Engine, cfg *config.Config, d Deps) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "OK",
			"connections": d.Hub.Count(),
			"push":        d.Push.Configured(),
		})
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimiter(d.Redis, cfg.RateLimitPerMinute, d.Logger))
	api.Use(middleware.AuditMiddleware())

	// ========== Handlers ==========
	notificationHandler := notification.NewHandler(d.Store, d.Notifier, d.Audit, d.Logger)
	pushHandler := push.NewHandler(d.Push, d.Logger)
	realtimeHandler := realtime.NewHandler(d.Hub, cfg.CORSOrigins, d.Logger)
	reportsHandler := reports.NewHandler(d.Reports, d.Logger)
	authHandler := auth.NewHandler(d.Auth)
	auditHandler := auditlog.NewHandler(d.Audit)

	// ========== Live streams (visitors allowed) ==========
	live := api.Group("/notifications")
	live.Use(middleware.OptionalAuth(cfg.JWTAccessSecret, d.Auth))
	{
		live.GET("/stream", realtimeHandler.Stream)
		live.GET("/ws", realtimeHandler.WebSocket)
	}

	api.GET("/push/vapid-key", pushHandler.VAPIDKey)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(cfg.JWTAccessSecret, d.Auth))

	// ========== Notifications ==========
	notificationRoutes := protected.Group("/notifications")
	{
		notificationRoutes.GET("", notificationHandler.List)
		notificationRoutes.GET("/unread-count", notificationHandler.UnreadCount)
		notificationRoutes.PUT("/read-all", notificationHandler.MarkAllRead)
		notificationRoutes.PUT("/:id/read", notificationHandler.MarkRead)
		notificationRoutes.GET("/preferences", notificationHandler.GetPreferences)
		notificationRoutes.PUT("/preferences", notificationHandler.UpdatePreferences)
	}

	// ========== Push subscriptions ==========
	pushRoutes := protected.Group("/push")
	{
		pushRoutes.POST("/subscribe", pushHandler.Subscribe)
		pushRoutes.DELETE("/subscribe", pushHandler.Unsubscribe)
	}

	// ========== Admin ==========
	admin := protected.Group("/admin")
	admin.Use(middleware.RequireRole(middleware.RoleAdmin))
	{
		admin.POST("/notifications", notificationHandler.Create)
		admin.DELETE("/notifications/retention", notificationHandler.Prune)
		admin.GET("/notifications/report", reportsHandler.GetReadReceiptReport)
		admin.PATCH("/users/:id/status", authHandler.UpdateStatus)
		admin.GET("/audit-logs", auditHandler.GetAuditLogs)
	}
}
