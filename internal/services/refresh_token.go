package services

import (
	"time"

	"saaskit/internal/models"
	apperrors "saaskit/pkg/errors"
	"saaskit/pkg/logger"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RefreshTokenService 刷新令牌存储
// 不变式：同一用户任意时刻至多一条有效刷新令牌
type RefreshTokenService struct {
	db       *gorm.DB
	duration time.Duration // 刷新令牌有效期
	cron     *cron.Cron
}

func NewRefreshTokenService(db *gorm.DB, duration time.Duration) *RefreshTokenService {
	if duration <= 0 {
		duration = 7 * 24 * time.Hour
	}
	return &RefreshTokenService{
		db:       db,
		duration: duration,
	}
}

// IssueFor 为用户签发刷新令牌（轮换）
// 同一事务内先撤销该用户全部历史令牌再写入新令牌；
// 通过用户行锁串行化同一用户的并发轮换，后写者胜出。
func (s *RefreshTokenService) IssueFor(tx *gorm.DB, user *models.User, token string) (*models.RefreshToken, error) {
	// 行锁只在postgres上生效，sqlite（测试环境）单写入者本身即串行
	if tx.Dialector.Name() == "postgres" {
		var locked models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").First(&locked, user.ID).Error; err != nil {
			return nil, err
		}
	}

	// 历史令牌全部删除，旧令牌立即不可用
	if err := tx.Where("user_id = ?", user.ID).Delete(&models.RefreshToken{}).Error; err != nil {
		return nil, err
	}

	rt := &models.RefreshToken{
		Token:     token,
		UserID:    user.ID,
		TenantID:  user.TenantID,
		ExpiresAt: time.Now().Add(s.duration),
		Revoked:   false,
	}
	if err := tx.Create(rt).Error; err != nil {
		return nil, err
	}

	return rt, nil
}

// Lookup 按令牌字符串查找
func (s *RefreshTokenService) Lookup(token string) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	err := s.db.Where("token = ?", token).First(&rt).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.ErrTokenNotFound
		}
		return nil, err
	}
	return &rt, nil
}

// Revoke 撤销令牌
// 幂等：重复撤销与撤销一次结果一致，令牌不存在时静默成功
func (s *RefreshTokenService) Revoke(token string) error {
	rt, err := s.Lookup(token)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrTokenNotFound) {
			return nil
		}
		return err
	}

	if rt.Revoked {
		return nil
	}

	now := time.Now()
	rt.Revoked = true
	rt.RevokedAt = &now
	return s.db.Save(rt).Error
}

// ValidateForRefresh 刷新流程的校验策略
// 按序检查：已撤销 -> 已过期 -> 用户停用
func (s *RefreshTokenService) ValidateForRefresh(rt *models.RefreshToken, user *models.User) error {
	if rt.Revoked {
		return apperrors.ErrTokenRevoked
	}
	if rt.IsExpired() {
		return apperrors.ErrTokenExpired
	}
	if !user.Active || user.Deleted {
		return apperrors.ErrAccountInactive
	}
	return nil
}

// CleanupExpired 清理已过期以及撤销超过24小时的令牌
func (s *RefreshTokenService) CleanupExpired() (int64, error) {
	cutoff := time.Now().Add(-24 * time.Hour)
	result := s.db.Where("expires_at < ?", time.Now()).
		Or("revoked = ? AND revoked_at < ?", true, cutoff).
		Delete(&models.RefreshToken{})
	return result.RowsAffected, result.Error
}

// StartCleanup 启动定时清理任务（每小时）
func (s *RefreshTokenService) StartCleanup() error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc("@hourly", func() {
		deleted, err := s.CleanupExpired()
		if err != nil {
			logger.GetLogger().Errorf("清理过期刷新令牌失败: %v", err)
			return
		}
		if deleted > 0 {
			logger.GetLogger().Infof("已清理过期刷新令牌 %d 条", deleted)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// StopCleanup 停止定时清理任务
func (s *RefreshTokenService) StopCleanup() {
	if s.cron != nil {
		s.cron.Stop()
	}
}
