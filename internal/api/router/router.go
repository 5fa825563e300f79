package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"unilend/backend/config"
	"unilend/backend/internal/api/handler"
	"unilend/backend/internal/api/middleware"
	"unilend/backend/internal/model"
	"unilend/backend/pkg/jwt"
	"unilend/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(1 << 20)) // 1MB

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证；登录/注册限流防爆破）
		auth := v1.Group("/auth")
		auth.Use(middleware.RateLimit(rdb, 10, time.Minute))
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 定时任务触发端点（共享密钥鉴权，不走 JWT）
		tasks := v1.Group("/tasks")
		{
			tasks.POST("/overdue-scan", h.Overdue.TriggerScan)
			tasks.GET("/overdue-scan", h.Overdue.Usage)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// 用户模块（仅 staff）
			users := authorized.Group("/users", middleware.RoleAuth(model.RoleStaff))
			{
				users.GET("", h.User.ListUsers)
				users.GET("/:id", h.User.GetUser)
				users.PUT("/:id/role", h.User.AssignRole)
			}

			// 物品模块（浏览对所有登录用户开放，管理仅 staff）
			items := authorized.Group("/items")
			{
				items.GET("", h.Item.ListItems)
				items.GET("/categories", h.Item.ListCategories)
				items.GET("/:id", h.Item.GetItem)
				items.POST("", middleware.RoleAuth(model.RoleStaff), h.Item.CreateItem)
				items.PUT("/:id", middleware.RoleAuth(model.RoleStaff), h.Item.UpdateItem)
				items.DELETE("/:id", middleware.RoleAuth(model.RoleStaff), h.Item.DeleteItem)
			}

			// 借用申请模块
			requests := authorized.Group("/requests")
			{
				requests.POST("", h.Request.SubmitRequest)
				requests.GET("", h.Request.ListRequests)
				requests.GET("/:id", h.Request.GetRequest)
				requests.PUT("/:id/cancel", h.Request.CancelRequest)
				requests.POST("/:id/cancellation-request", h.Request.RequestCancellation)
				requests.PUT("/:id/approve", middleware.RoleAuth(model.RoleStaff), h.Request.ApproveRequest)
				requests.PUT("/:id/reject", middleware.RoleAuth(model.RoleStaff), h.Request.RejectRequest)
				requests.PUT("/:id/complete", middleware.RoleAuth(model.RoleStaff), h.Request.CompleteRequest)
			}

			// 通知模块
			notifications := authorized.Group("/notifications")
			{
				notifications.GET("", h.Notification.ListNotifications)
				notifications.GET("/unread-count", h.Notification.GetUnreadCount)
				notifications.PUT("/read-all", h.Notification.MarkAllRead)
				notifications.PUT("/:id/read", h.Notification.MarkRead)
				notifications.DELETE("/:id", h.Notification.DeleteNotification)
			}

			// 导出模块
			export := authorized.Group("/export")
			{
				export.GET("/requests", middleware.RoleAuth(model.RoleStaff), h.Export.ExportRequests)
				export.GET("/calendar", h.Export.DueDateCalendar)
			}
		}
	}

	return r
}
