package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"saaskit/internal/database"
	"saaskit/internal/router"
	"saaskit/internal/services"
	"saaskit/pkg/cache"
	"saaskit/pkg/config"
	"saaskit/pkg/jwt"
	"saaskit/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	appLogger := logger.GetLogger()
	appLogger.Info("Starting SaaSKit identity service...")

	// 初始化数据库
	if err := database.Initialize(cfg); err != nil {
		appLogger.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			appLogger.Error("Failed to close database:", err)
		}
	}()

	// 执行公共schema迁移
	if err := database.Migrate(); err != nil {
		appLogger.Fatalf("Failed to migrate database: %v", err)
	}

	// 初始化schema路由器
	acquireTimeout, err := time.ParseDuration(cfg.Database.AcquireTimeout)
	if err != nil {
		acquireTimeout = 5 * time.Second
	}
	schemaRouter, err := database.NewSchemaRouter(database.GetDB(), acquireTimeout)
	if err != nil {
		appLogger.Fatalf("Failed to initialize schema router: %v", err)
	}

	// 初始化租户缓存
	cacheTTL, err := time.ParseDuration(cfg.Redis.TTL)
	if err != nil {
		cacheTTL = 10 * time.Minute
	}
	tenantCache := cache.NewRedisCache(&cache.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
		TTL:      cacheTTL,
	})
	if err := tenantCache.Ping(); err != nil {
		// Redis不可用时降级为直查数据库
		appLogger.Warnf("Redis unavailable, tenant cache disabled: %v", err)
		tenantCache = nil
	} else {
		defer tenantCache.Close()
	}

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	// 启动刷新令牌清理任务（每小时清理过期和已撤销的令牌）
	refreshTokenService := services.NewRefreshTokenService(database.GetDB(), jwt.GetJWTManager().GetRefreshDuration())
	if err := refreshTokenService.StartCleanup(); err != nil {
		appLogger.Errorf("Failed to start refresh token cleanup: %v", err)
		// 不影响主服务启动
	}
	defer refreshTokenService.StopCleanup()

	// 设置路由
	r := router.SetupRouter(tenantCache, schemaRouter)

	// 启动服务器
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	appLogger.Infof("Server started on port %s", cfg.Server.Port)

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	if err := server.Close(); err != nil {
		appLogger.Error("Server forced to shutdown:", err)
	}
	appLogger.Info("Server exited")
}
