package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"saaskit/internal/models"
	"saaskit/internal/services"
	"saaskit/internal/tenantctx"
	"saaskit/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newMiddlewareTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Tenant{}, &models.User{}, &models.RefreshToken{}))
	return db
}

// newTenantProbe 搭一个只回显解析结果的测试路由
func newTenantProbe(t *testing.T, db *gorm.DB, jwtManager *jwt.JWTManager) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)
	tenantService := services.NewTenantService(db, nil, nil)
	m := NewTenantMiddleware(tenantService, jwtManager)

	r := gin.New()
	r.Use(m.ResolveTenant())
	r.GET("/probe", func(c *gin.Context) {
		info, ok := tenantctx.Current(c.Request.Context())
		if !ok {
			c.String(http.StatusOK, "none")
			return
		}
		c.String(http.StatusOK, info.TenantID)
	})
	return r
}

func probe(r *gin.Engine, mutate func(req *http.Request)) string {
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Body.String()
}

func seedActiveTenant(t *testing.T, db *gorm.DB, identifier string) *models.Tenant {
	t.Helper()

	tenants := services.NewTenantService(db, nil, nil)
	tenant, err := tenants.Create(context.Background(), identifier, identifier, nil)
	require.NoError(t, err)
	return tenant
}

func TestResolveTenantFromHeader(t *testing.T) {
	db := newMiddlewareTestDB(t)
	jwtManager := jwt.NewJWTManager("test-secret", 30*time.Minute, 7*24*time.Hour)
	r := newTenantProbe(t, db, jwtManager)
	seedActiveTenant(t, db, "acme")

	got := probe(r, func(req *http.Request) {
		req.Header.Set(TenantHeader, "ACME")
	})
	assert.Equal(t, "acme", got)
}

func TestResolveTenantFromSubdomain(t *testing.T) {
	db := newMiddlewareTestDB(t)
	jwtManager := jwt.NewJWTManager("test-secret", 30*time.Minute, 7*24*time.Hour)
	r := newTenantProbe(t, db, jwtManager)
	seedActiveTenant(t, db, "acme")

	got := probe(r, func(req *http.Request) {
		req.Host = "acme.example.com:8080"
	})
	assert.Equal(t, "acme", got)
}

func TestResolveTenantFromTokenClaim(t *testing.T) {
	db := newMiddlewareTestDB(t)
	jwtManager := jwt.NewJWTManager("test-secret", 30*time.Minute, 7*24*time.Hour)
	r := newTenantProbe(t, db, jwtManager)
	tenant := seedActiveTenant(t, db, "acme")

	token, err := jwtManager.GenerateAccessToken("alice@example.com", 1, tenant.ID, nil)
	require.NoError(t, err)

	got := probe(r, func(req *http.Request) {
		req.Host = "localhost:8080"
		req.Header.Set("Authorization", "Bearer "+token)
	})
	assert.Equal(t, "acme", got)
}

func TestHeaderTakesPrecedenceOverSubdomain(t *testing.T) {
	db := newMiddlewareTestDB(t)
	jwtManager := jwt.NewJWTManager("test-secret", 30*time.Minute, 7*24*time.Hour)
	r := newTenantProbe(t, db, jwtManager)
	seedActiveTenant(t, db, "acme")
	seedActiveTenant(t, db, "globex")

	got := probe(r, func(req *http.Request) {
		req.Host = "globex.example.com"
		req.Header.Set(TenantHeader, "acme")
	})
	assert.Equal(t, "acme", got)
}

func TestNoTenantResolved(t *testing.T) {
	db := newMiddlewareTestDB(t)
	jwtManager := jwt.NewJWTManager("test-secret", 30*time.Minute, 7*24*time.Hour)
	r := newTenantProbe(t, db, jwtManager)

	// 无任何租户来源
	assert.Equal(t, "none", probe(r, nil))

	// www和localhost不视为租户子域名
	assert.Equal(t, "none", probe(r, func(req *http.Request) {
		req.Host = "www.example.com"
	}))
	assert.Equal(t, "none", probe(r, func(req *http.Request) {
		req.Host = "localhost:8080"
	}))

	// 未知租户头不绑定
	assert.Equal(t, "none", probe(r, func(req *http.Request) {
		req.Header.Set(TenantHeader, "nope")
	}))
}

func TestInactiveTenantNotBound(t *testing.T) {
	db := newMiddlewareTestDB(t)
	jwtManager := jwt.NewJWTManager("test-secret", 30*time.Minute, 7*24*time.Hour)
	r := newTenantProbe(t, db, jwtManager)
	tenant := seedActiveTenant(t, db, "acme")

	tenant.Active = false
	require.NoError(t, db.Save(tenant).Error)

	assert.Equal(t, "none", probe(r, func(req *http.Request) {
		req.Header.Set(TenantHeader, "acme")
	}))
}

func TestInvalidTokenClaimIgnored(t *testing.T) {
	db := newMiddlewareTestDB(t)
	jwtManager := jwt.NewJWTManager("test-secret", 30*time.Minute, 7*24*time.Hour)
	r := newTenantProbe(t, db, jwtManager)
	tenant := seedActiveTenant(t, db, "acme")

	// 刷新令牌不能充当访问令牌提供租户声明
	refresh, err := jwtManager.GenerateRefreshToken("alice@example.com", 1, tenant.ID)
	require.NoError(t, err)

	assert.Equal(t, "none", probe(r, func(req *http.Request) {
		req.Host = "localhost"
		req.Header.Set("Authorization", "Bearer "+refresh)
	}))
}
