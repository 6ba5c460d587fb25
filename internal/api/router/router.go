package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pacing-calendar/backend/config"
	"pacing-calendar/backend/internal/api/handler"
	"pacing-calendar/backend/internal/api/middleware"
	"pacing-calendar/backend/pkg/jwt"
)

// Setup 初始化并返回 Gin 路由引擎
// limiter 为 nil 时（Redis 不可用）不限流
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, limiter middleware.RateLimiter, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	writers := middleware.RoleAuth(jwt.RolePlanner, jwt.RoleAdmin)
	admins := middleware.RoleAuth(jwt.RoleAdmin)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.RateLimit(limiter, cfg.Server.RateLimit, time.Minute))
	v1.Use(middleware.JWTAuth(jwtMgr))
	{
		// 学年模块
		schoolYears := v1.Group("/school-years")
		{
			schoolYears.GET("", h.SchoolYear.ListSchoolYears)
			schoolYears.GET("/current", h.SchoolYear.GetCurrentSchoolYear)
			schoolYears.GET("/:id", h.SchoolYear.GetSchoolYear)
			schoolYears.POST("", writers, h.SchoolYear.CreateSchoolYear)
			schoolYears.PUT("/:id", writers, h.SchoolYear.UpdateSchoolYear)
			schoolYears.PUT("/:id/activate", admins, h.SchoolYear.ActivateSchoolYear)
		}

		// 学校日历模块
		calendar := v1.Group("/calendar/:year")
		{
			calendar.GET("", h.Calendar.GetCalendar)
			calendar.GET("/days-off", h.Calendar.GetDaysOff)
			calendar.POST("/days-off", writers, h.Calendar.AddDayOff)
			calendar.DELETE("/days-off/:date", writers, h.Calendar.DeleteDayOff)
			calendar.POST("/ics", writers, h.Calendar.ImportICS)
		}

		// 课程进度表模块
		lessons := v1.Group("/scope-and-sequence")
		{
			lessons.GET("", h.ScopeSequence.GetScopeSequence)
			lessons.GET("/grades", h.ScopeSequence.ListGrades)
			lessons.POST("/import", writers, h.ScopeSequence.ImportLessons)
		}

		// 单元排期模块
		units := v1.Group("/unit-schedules")
		{
			units.GET("", h.UnitSchedule.ListUnitSchedules)
			units.PUT("", writers, h.UnitSchedule.UpsertUnitSchedule)
			units.PUT("/sections", writers, h.UnitSchedule.UpdateSectionDates)
			units.PUT("/dates", writers, h.UnitSchedule.UpdateUnitDates)
			units.POST("/copy", writers, h.UnitSchedule.CopyUnitSchedules)
		}

		// 进度看板模块
		pacing := v1.Group("/pacing")
		{
			pacing.GET("/board", h.Pacing.GetBoard)
			pacing.GET("/month", h.Pacing.GetMonth)

			// 选日会话只读操作同样需要写权限，会话内点击即保存
			sessions := pacing.Group("/sessions", writers)
			{
				sessions.POST("", h.Session.CreateSession)
				sessions.GET("/:id", h.Session.GetSession)
				sessions.POST("/:id/arm", h.Session.Arm)
				sessions.POST("/:id/click", h.Session.Click)
				sessions.POST("/:id/cancel", h.Session.Cancel)
				sessions.POST("/:id/clear", h.Session.Clear)
				sessions.PUT("/:id/unit-dates", h.Session.SetUnitDates)
				sessions.POST("/:id/reload", h.Session.Reload)
				sessions.GET("/:id/month", h.Session.GetMonth)
				sessions.DELETE("/:id", h.Session.DeleteSession)
			}
		}

		// 导出模块
		export := v1.Group("/export")
		{
			export.GET("/pacing", h.Export.ExportPacing)
		}
	}

	return r
}
