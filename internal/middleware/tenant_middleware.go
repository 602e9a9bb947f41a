package middleware

import (
	"strings"

	"saaskit/internal/models"
	"saaskit/internal/services"
	"saaskit/internal/tenantctx"
	"saaskit/pkg/jwt"
	"saaskit/pkg/logger"

	"github.com/gin-gonic/gin"
)

// TenantHeader 显式租户头
const TenantHeader = "X-Tenant-ID"

// TenantMiddleware 租户解析中间件
type TenantMiddleware struct {
	tenantService *services.TenantService
	jwtManager    *jwt.JWTManager
}

func NewTenantMiddleware(tenantService *services.TenantService, jwtManager *jwt.JWTManager) *TenantMiddleware {
	return &TenantMiddleware{
		tenantService: tenantService,
		jwtManager:    jwtManager,
	}
}

// ResolveTenant 解析请求租户并绑定到请求context
//
// 提取优先级：显式租户头 -> Host子域名（排除www/localhost）-> 已验证访问令牌中的租户声明。
// 解析不到租户本身不是错误：公开的认证接口（注册/登录）在无租户上下文下工作，
// 受保护操作是否失败由下游的权限检查决定。
// 租户信息随请求context销毁，任何退出路径都不会泄漏给其他请求。
func (m *TenantMiddleware) ResolveTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant := m.resolveTenant(c)
		if tenant != nil {
			ctx := tenantctx.Bind(c.Request.Context(), tenant.TenantID, tenant.ID)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

// resolveTenant 按优先级解析租户，解析失败返回nil
func (m *TenantMiddleware) resolveTenant(c *gin.Context) *models.Tenant {
	// 1. 显式租户头
	if identifier := strings.TrimSpace(c.GetHeader(TenantHeader)); identifier != "" {
		tenant, err := m.tenantService.Resolve(c.Request.Context(), identifier)
		if err != nil {
			logger.GetLogger().Warnf("租户头解析失败: %s", identifier)
			return nil
		}
		return tenant
	}

	// 2. Host子域名
	if identifier := subdomainOf(c.Request.Host); identifier != "" {
		tenant, err := m.tenantService.Resolve(c.Request.Context(), identifier)
		if err == nil {
			return tenant
		}
	}

	// 3. 已验证访问令牌中的租户声明
	if claims := m.claimsFromHeader(c); claims != nil && claims.TenantID > 0 {
		tenant, err := m.tenantService.GetByID(claims.TenantID)
		if err == nil && m.tenantService.IsActive(tenant) {
			return tenant
		}
	}

	return nil
}

// subdomainOf 取Host的子域名，www和localhost不视为租户标识
func subdomainOf(host string) string {
	// 去端口
	if idx := strings.Index(host, ":"); idx >= 0 {
		host = host[:idx]
	}
	if !strings.Contains(host, ".") {
		return ""
	}
	subdomain := strings.Split(host, ".")[0]
	if subdomain == "www" || subdomain == "localhost" {
		return ""
	}
	return subdomain
}

// claimsFromHeader 从Authorization头解析访问令牌声明，失败返回nil
func (m *TenantMiddleware) claimsFromHeader(c *gin.Context) *jwt.Claims {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil
	}
	claims, err := m.jwtManager.VerifyAccessToken(authHeader[7:])
	if err != nil {
		return nil
	}
	return claims
}
