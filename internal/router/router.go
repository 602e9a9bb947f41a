package router

import (
	"regexp"
	"time"

	"saaskit/internal/database"
	"saaskit/internal/handlers"
	"saaskit/internal/middleware"
	"saaskit/internal/models"
	"saaskit/internal/services"
	"saaskit/pkg/cache"
	"saaskit/pkg/jwt"
	"saaskit/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// 租户标识只允许小写字母、数字和连字符
var tenantIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// SetupRouter 设置路由
// tenantCache和schemaRouter可为nil（降级运行）
func SetupRouter(tenantCache *cache.RedisCache, schemaRouter *database.SchemaRouter) *gin.Engine {
	router := gin.New()

	// 中间件
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.SetupCORS())

	registerValidators()

	// 注册路由
	registerRoutes(router, tenantCache, schemaRouter)
	return router
}

// 注册自定义参数校验规则
func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("tenantid", func(fl validator.FieldLevel) bool {
			value := fl.Field().String()
			return len(value) <= 50 && tenantIDPattern.MatchString(value)
		})
	}
}

// 注册所有路由
func registerRoutes(router *gin.Engine, tenantCache *cache.RedisCache, schemaRouter *database.SchemaRouter) {
	db := database.GetDB()
	jwtManager := jwt.GetJWTManager()

	tenantService := services.NewTenantService(db, tenantCache, schemaRouter)
	userService := services.NewUserService(db)
	refreshTokenService := services.NewRefreshTokenService(db, jwtManager.GetRefreshDuration())
	eventService := services.NewAuthEventService(schemaRouter)
	authService := services.NewAuthService(db, tenantService, userService, refreshTokenService, jwtManager, eventService)
	subscriptionService := services.NewSubscriptionService(db, tenantService, services.NewNoopBillingClient())

	auth := middleware.NewAuthMiddleware(userService, jwtManager)
	tenantResolver := middleware.NewTenantMiddleware(tenantService, jwtManager)

	// 租户解析在所有业务路由之前执行
	router.Use(tenantResolver.ResolveTenant())

	// API路由组
	api := router.Group("/api/v1")
	{
		// 健康检查接口
		api.GET("/health", healthCheck)
		api.GET("/ping", ping)

		// 认证路由（无需登录）
		authHandler := handlers.NewAuthHandler(authService)
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/signup", authHandler.Signup)      // 用户注册
			authGroup.POST("/login", authHandler.Login)        // 用户登录
			authGroup.POST("/refresh", authHandler.Refresh)    // 刷新令牌
			authGroup.POST("/logout", authHandler.Logout)      // 用户登出
			authGroup.POST("/oauth", authHandler.OAuthLogin)   // 外部身份登录
		}

		// 用户路由
		userHandler := handlers.NewUserHandler(userService)
		users := api.Group("/users")
		{
			users.GET("/me", auth.RequireLogin(), userHandler.Me)

			// 管理接口（管理员及以上）
			users.GET("", auth.RequireLogin(), auth.RequireRole(models.RoleAdmin), userHandler.GetAll)
			users.GET("/stats", auth.RequireLogin(), auth.RequireRole(models.RoleAdmin), userHandler.GetStats)
			users.GET("/:id", auth.RequireLogin(), auth.RequireRole(models.RoleAdmin), userHandler.GetByID)
			users.DELETE("/:id", auth.RequireLogin(), auth.RequireRole(models.RoleAdmin), userHandler.Delete)
			users.POST("/:id/activate", auth.RequireLogin(), auth.RequireRole(models.RoleAdmin), userHandler.Activate)
			users.POST("/:id/deactivate", auth.RequireLogin(), auth.RequireRole(models.RoleAdmin), userHandler.Deactivate)

			// 角色管理
			users.POST("/:id/roles", auth.RequireLogin(), auth.RequireRole(models.RoleAdmin), userHandler.GrantRole)
			users.DELETE("/:id/roles", auth.RequireLogin(), auth.RequireRole(models.RoleAdmin), userHandler.RevokeRole)
		}

		// 租户路由
		tenantHandler := handlers.NewTenantHandler(tenantService)
		tenants := api.Group("/tenants")
		{
			// 解析接口（无需登录，供接入层探测租户）
			tenants.GET("/resolve/:identifier", tenantHandler.Resolve)

			// 管理接口（平台管理员专用）
			tenants.POST("", auth.RequireLogin(), auth.RequireRole(models.RoleSuperAdmin), tenantHandler.Create)
			tenants.GET("", auth.RequireLogin(), auth.RequireRole(models.RoleSuperAdmin), tenantHandler.GetAll)
			tenants.GET("/stats", auth.RequireLogin(), auth.RequireRole(models.RoleSuperAdmin), tenantHandler.GetStats)
			tenants.GET("/:id", auth.RequireLogin(), auth.RequireRole(models.RoleAdmin), auth.RequireSameTenant(), tenantHandler.GetByID)
			tenants.POST("/:id/deactivate", auth.RequireLogin(), auth.RequireRole(models.RoleSuperAdmin), tenantHandler.Deactivate)
		}

		// 订阅路由（平台管理员专用）
		subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionService)
		subscriptions := api.Group("/tenants/:id/subscription")
		{
			subscriptions.POST("", auth.RequireLogin(), auth.RequireRole(models.RoleSuperAdmin), subscriptionHandler.Subscribe)
			subscriptions.DELETE("", auth.RequireLogin(), auth.RequireRole(models.RoleSuperAdmin), subscriptionHandler.Cancel)
		}
	}
}

func healthCheck(c *gin.Context) {
	data := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now(),
		"service":   "SaaSKit",
		"version":   "1.0.0",
	}
	response.Success(c, data)
}

func ping(c *gin.Context) {
	response.SuccessWithMessage(c, "pong", nil)
}
