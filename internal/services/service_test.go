package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"saaskit/internal/models"
	"saaskit/pkg/jwt"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB 打开一个独立的内存数据库并迁移公共schema的表
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.Tenant{}, &models.User{}, &models.RefreshToken{}))
	return db
}

// newTestAuthService 组装不依赖Redis和Postgres的认证服务
func newTestAuthService(t *testing.T, db *gorm.DB) *AuthService {
	t.Helper()

	tenants := NewTenantService(db, nil, nil)
	users := NewUserService(db)
	refreshTokens := NewRefreshTokenService(db, 7*24*time.Hour)
	jwtManager := jwt.NewJWTManager("test-secret", 30*time.Minute, 7*24*time.Hour)

	return NewAuthService(db, tenants, users, refreshTokens, jwtManager, nil)
}

func seedTenant(t *testing.T, db *gorm.DB, identifier string) *models.Tenant {
	t.Helper()

	tenants := NewTenantService(db, nil, nil)
	tenant, err := tenants.Create(context.Background(), identifier, identifier, nil)
	require.NoError(t, err)
	return tenant
}

func seedUser(t *testing.T, db *gorm.DB, tenant *models.Tenant, email, password string) *models.User {
	t.Helper()

	user := &models.User{
		Email:     email,
		FirstName: "Test",
		TenantID:  tenant.ID,
		Roles:     []models.Role{models.RoleUser},
		Active:    true,
	}
	require.NoError(t, user.SetPassword(password))
	require.NoError(t, db.Create(user).Error)
	return user
}
