package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"pacing-calendar/backend/config"
	"pacing-calendar/backend/internal/api/handler"
	"pacing-calendar/backend/internal/api/middleware"
	"pacing-calendar/backend/internal/api/router"
	"pacing-calendar/backend/internal/repository"
	"pacing-calendar/backend/internal/service"
	"pacing-calendar/backend/pkg/database"
	"pacing-calendar/backend/pkg/jwt"
	applogger "pacing-calendar/backend/pkg/logger"
	"pacing-calendar/backend/pkg/redis"
	"pacing-calendar/backend/pkg/validator"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("PACING_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("default_school_year", cfg.Pacing.DefaultSchoolYear),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, applogger.GormLevel(cfg.Log.Level), logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}

	// 3.1 执行数据库迁移
	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(sqlDB, logger); err != nil {
			logger.Fatal("数据库迁移失败", zap.Error(err))
		}
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var (
		locker  service.UnitLocker
		cache   service.Cache
		limiter middleware.RateLimiter
	)
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，单元写锁、停课日缓存与限流将降级", zap.Error(err))
		rdb = nil
	} else {
		locker, cache, limiter = rdb, rdb, rdb
	}

	// 5. 初始化 JWT 管理器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 6. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, locker, cache, logger)
	h := handler.NewHandler(svc)

	// 6.1 选日会话过期清理
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	go svc.Session.Run(janitorCtx)

	// 7. 初始化路由（先注册自定义校验规则）
	validator.Setup()
	engine := router.Setup(cfg, h, jwtMgr, limiter, logger)

	// 8. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	wait := time.Duration(cfg.Server.ShutdownWait) * time.Second
	if wait <= 0 {
		wait = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}
	stopJanitor()

	// 关闭数据库连接
	sqlDB.Close()

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
