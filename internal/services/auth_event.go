package services

import (
	"context"

	"saaskit/internal/database"
	"saaskit/internal/models"
	"saaskit/internal/tenantctx"
	"saaskit/pkg/logger"

	"gorm.io/gorm"
)

// AuthEventService 认证审计服务
// 事件写入当前请求绑定租户的schema，由schema路由器负责连接的取放
type AuthEventService struct {
	router *database.SchemaRouter
}

func NewAuthEventService(router *database.SchemaRouter) *AuthEventService {
	return &AuthEventService{router: router}
}

// Record 记录认证事件
// 尽力而为：写入失败只记日志，不影响认证主流程；未绑定租户时跳过
func (s *AuthEventService) Record(ctx context.Context, userID uint, email, action, clientIP string) {
	if s == nil || s.router == nil {
		return
	}
	if _, ok := tenantctx.Current(ctx); !ok {
		return
	}

	err := s.router.WithTenant(ctx, func(tx *gorm.DB) error {
		return tx.Create(&models.AuthEvent{
			UserID:   userID,
			Email:    email,
			Action:   action,
			ClientIP: clientIP,
		}).Error
	})
	if err != nil {
		logger.GetLogger().Warnf("写入认证审计事件失败: %v", err)
	}
}
