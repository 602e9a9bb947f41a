package middleware

import (
	"strconv"
	"strings"

	"saaskit/internal/models"
	"saaskit/internal/services"
	apperrors "saaskit/pkg/errors"
	"saaskit/pkg/jwt"
	"saaskit/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware 权限中间件
type AuthMiddleware struct {
	userService *services.UserService
	jwtManager  *jwt.JWTManager
}

func NewAuthMiddleware(userService *services.UserService, jwtManager *jwt.JWTManager) *AuthMiddleware {
	return &AuthMiddleware{
		userService: userService,
		jwtManager:  jwtManager,
	}
}

// RequireLogin 要求登录
func (m *AuthMiddleware) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 从Authorization头获取JWT token
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		// 检查Bearer格式
		if !strings.HasPrefix(authHeader, "Bearer ") {
			response.Unauthorized(c, "认证头格式错误")
			c.Abort()
			return
		}

		tokenString := authHeader[7:] // 去掉 "Bearer "

		// 验证访问令牌，刷新令牌不允许当作访问令牌使用
		claims, err := m.jwtManager.VerifyAccessToken(tokenString)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrTokenExpired) {
				response.Unauthorized(c, "令牌已过期")
			} else {
				response.Unauthorized(c, "令牌无效")
			}
			c.Abort()
			return
		}

		// 获取用户信息
		user, err := m.userService.GetByID(claims.UserID)
		if err != nil {
			response.Unauthorized(c, "用户不存在")
			c.Abort()
			return
		}

		// 检查用户状态
		if !m.userService.IsActive(user) {
			response.Unauthorized(c, "账号已被停用")
			c.Abort()
			return
		}

		// 将用户信息保存到上下文
		c.Set("user", user)
		c.Set("user_id", claims.UserID)
		c.Set("tenant_id", claims.TenantID)
		c.Set("email", claims.Subject)
		c.Set("claims", claims)

		c.Next()
	}
}

// RequireRole 要求最低角色等级（高角色隐含低角色的访问权限）
func (m *AuthMiddleware) RequireRole(required models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := c.Get("user")
		if !exists {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		if !user.(*models.User).HasAtLeast(required) {
			response.Forbidden(c, "权限不足：需要 "+string(required)+" 角色")
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireSameTenant 要求操作目标属于当前用户的租户（SUPER_ADMIN不受限）
func (m *AuthMiddleware) RequireSameTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := c.Get("user")
		if !exists {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		userObj := user.(*models.User)

		// 超级管理员可以跨租户操作
		if userObj.HasRole(models.RoleSuperAdmin) {
			c.Next()
			return
		}

		targetIDStr := c.Param("tenant_id")
		if targetIDStr == "" {
			targetIDStr = c.Param("id")
		}
		if targetIDStr == "" {
			targetIDStr = c.Query("tenant_id")
		}
		if targetIDStr != "" {
			targetID, err := strconv.ParseUint(targetIDStr, 10, 32)
			if err != nil {
				response.BadRequest(c, "租户ID格式错误")
				c.Abort()
				return
			}
			if uint(targetID) != userObj.TenantID {
				response.Forbidden(c, "无权访问其他租户的数据")
				c.Abort()
				return
			}
		}

		c.Next()
	}
}
