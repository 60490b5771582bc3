package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Hamzak1712/supervisor-works/config"
	"github.com/Hamzak1712/supervisor-works/internal/api/handler"
	"github.com/Hamzak1712/supervisor-works/internal/api/middleware"
	"github.com/Hamzak1712/supervisor-works/internal/model"
	"github.com/Hamzak1712/supervisor-works/pkg/jwt"
	"github.com/Hamzak1712/supervisor-works/pkg/redis"
)

const maxBodyBytes = 1 << 20 // 1MB

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
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 健康检查与指标 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	student := middleware.RoleAuth(model.RoleStudent)
	supervisor := middleware.RoleAuth(model.RoleSupervisor)
	admin := middleware.RoleAuth(model.RoleAdmin)

	// ── API v1（全部需要认证，Token 由上游签发） ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr, rdb))
	{
		// 认证模块
		v1.GET("/auth/me", h.Auth.Me)
		v1.POST("/auth/logout", h.Auth.Logout)

		// 匹配与指导申请
		v1.GET("/matches", middleware.RoleAuth(model.RoleStudent, model.RoleAdmin), h.Match.RankMatches)

		requests := v1.Group("/supervision-requests")
		{
			requests.POST("", student,
				middleware.RateLimit(rdb, cfg.Server.RequestRateLimit, time.Minute),
				h.Match.SubmitRequest)
			requests.GET("/mine", student, h.Match.ListMine)
			requests.GET("/pending", supervisor, h.Match.ListPending)
			requests.POST("/:id/decision", middleware.RoleAuth(model.RoleSupervisor, model.RoleAdmin), h.Match.Decide)
		}

		// 项目时间线（Service 层校验项目归属）
		projects := v1.Group("/projects")
		{
			projects.GET("/:id/milestones", h.Milestone.GetTimeline)
			projects.GET("/:id/milestones/export", h.Export.ExportTimeline)
			projects.GET("/:id/milestones/calendar", h.Export.ExportCalendar)
			projects.GET("/:id/activity", h.Milestone.ListActivity)
		}

		// 里程碑
		milestones := v1.Group("/milestones")
		{
			milestones.PUT("/:id/status", middleware.RoleAuth(model.RoleStudent, model.RoleSupervisor), h.Milestone.UpdateStatus)
			milestones.PUT("/:id/due-date", middleware.RoleAuth(model.RoleSupervisor, model.RoleAdmin), h.Milestone.Reschedule)
			milestones.PUT("/:id/feedback", middleware.RoleAuth(model.RoleSupervisor, model.RoleAdmin), h.Milestone.SetFeedback)
		}

		// 导师视图
		supervisors := v1.Group("/supervisors/me", supervisor)
		{
			supervisors.GET("/students", h.Supervisor.ListStudents)
			supervisors.GET("/alerts", h.Supervisor.ListAlerts)
		}

		v1.GET("/activity/classify", h.Supervisor.Classify)

		// 管理员模块
		adminGroup := v1.Group("/admin", admin)
		{
			adminGroup.PUT("/supervisors/:id/capacity", h.Admin.UpdateCapacity)
			adminGroup.GET("/capacity", h.Admin.CapacitySummary)
			adminGroup.GET("/stats", h.Admin.SystemStats)
			adminGroup.GET("/export/capacity", h.Export.ExportCapacity)
		}
	}

	return r
}
