package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"share-worker/backend/config"
	"share-worker/backend/internal/api/handler"
	"share-worker/backend/internal/api/middleware"
	"share-worker/backend/pkg/jwt"
	"share-worker/backend/pkg/redis"
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
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	worker := middleware.RoleAuth(middleware.RoleWorker)
	facility := middleware.RoleAuth(middleware.RoleFacility)
	checkLimit := middleware.RateLimit(rdb, cfg.Attendance.RateLimit, cfg.Attendance.RateWindow)

	// ── API v1（全部需要认证）──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr, rdb))
	{
		// 招聘信息
		jobs := v1.Group("/jobs")
		{
			jobs.POST("", facility, h.Slot.PublishJob)
			jobs.GET("/:id", h.Slot.GetJob)
		}

		// 工作槽位
		slots := v1.Group("/slots")
		{
			slots.GET("", h.Slot.ListSlots)
			slots.GET("/:id", h.Slot.GetSlot)
			slots.POST("/:id/retire", facility, h.Slot.RetireSlot)
			slots.POST("/:id/emergency-code", facility, h.Slot.RotateEmergencyCode)
			slots.POST("/:id/scan-tokens", facility, h.Slot.IssueScanToken)
			slots.POST("/:id/applications", worker, h.Slot.Apply)
			slots.GET("/:id/applications", facility, h.Slot.ListApplications)
		}

		// 报名与打卡
		apps := v1.Group("/applications")
		{
			apps.GET("/me", worker, h.Application.ListMine)
			apps.GET("/:id", h.Application.GetByID)
			apps.POST("/:id/decision", facility, h.Application.Decide)
			apps.POST("/:id/cancel", h.Application.Cancel) // 工作者或设施（Service 层鉴权）
			apps.POST("/:id/check-in", worker, checkLimit, h.Application.CheckIn)
			apps.POST("/:id/check-out", worker, checkLimit, h.Application.CheckOut)
			apps.DELETE("/:id/emergency-lock", facility, h.Application.ClearLockout)
			apps.POST("/:id/review", h.Application.Review)
		}

		// 出勤记录
		v1.GET("/attendances/:id", h.Attendance.GetByID)
		v1.POST("/attendances/:id/modification-requests", worker, h.Modification.Submit)

		// 修改申请
		mods := v1.Group("/modification-requests")
		{
			mods.GET("", h.Modification.List)
			mods.GET("/:id", h.Modification.GetByID)
			mods.POST("/:id/resubmit", worker, h.Modification.Resubmit)
			mods.POST("/:id/decision", facility, h.Modification.Decide)
		}
	}

	return r
}
