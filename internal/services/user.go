package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"saaskit/internal/models"
	apperrors "saaskit/pkg/errors"

	"gorm.io/gorm"
)

// UserService 用户服务
type UserService struct {
	db *gorm.DB
}

// UserStats 用户统计信息
type UserStats struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Inactive int64 `json:"inactive"`
	Verified int64 `json:"verified"`
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// GetByID 根据ID获取用户
func (s *UserService) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := s.db.Preload("Tenant").Where("deleted = ?", false).First(&user, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByEmail 根据邮箱获取用户
// 邮箱按原样存储，查找时不区分大小写；软删除的用户视为不存在
func (s *UserService) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := s.db.Where("LOWER(email) = LOWER(?) AND deleted = ?", email, false).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ExistsByEmail 判断邮箱是否已注册（不区分大小写）
func (s *UserService) ExistsByEmail(email string) (bool, error) {
	var count int64
	err := s.db.Model(&models.User{}).Where("LOWER(email) = LOWER(?)", email).Count(&count).Error
	return count > 0, err
}

// GetByOAuth 根据OAuth提供方和外部主体标识获取用户
func (s *UserService) GetByOAuth(provider, oauthID string) (*models.User, error) {
	var user models.User
	err := s.db.Where("oauth_provider = ? AND oauth_id = ? AND deleted = ?", provider, oauthID, false).
		First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetWithFiltersAndPage 组合查询（分页版本）
func (s *UserService) GetWithFiltersAndPage(tenantID *uint, keyword string, page, pageSize int) ([]*models.User, int64, error) {
	var users []*models.User
	var total int64

	query := s.db.Model(&models.User{}).Where("deleted = ?", false)

	if tenantID != nil {
		query = query.Where("tenant_id = ?", *tenantID)
	}
	if keyword != "" {
		searchPattern := fmt.Sprintf("%%%s%%", keyword)
		query = query.Where("email LIKE ? OR first_name LIKE ? OR last_name LIKE ?",
			searchPattern, searchPattern, searchPattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Preload("Tenant").Offset(offset).Limit(pageSize).Find(&users).Error
	if err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// Activate 激活用户
func (s *UserService) Activate(id uint) (*models.User, error) {
	user, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	user.Active = true
	err = s.db.Save(user).Error
	return user, err
}

// Deactivate 停用用户
func (s *UserService) Deactivate(id uint) (*models.User, error) {
	user, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	user.Active = false
	err = s.db.Save(user).Error
	return user, err
}

// Delete 软删除用户
func (s *UserService) Delete(id uint) error {
	user, err := s.GetByID(id)
	if err != nil {
		return err
	}
	user.Deleted = true
	user.Active = false
	return s.db.Save(user).Error
}

// IsActive 判断用户是否激活
func (s *UserService) IsActive(user *models.User) bool {
	return user.Active && !user.Deleted
}

// GrantRole 授予角色
// 执行者的最高角色必须不低于被授予的角色
func (s *UserService) GrantRole(operator *models.User, userID uint, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("未知角色: %s", role)
	}
	if !operator.HasAtLeast(role) {
		return nil, fmt.Errorf("无权授予高于自身等级的角色")
	}

	user, err := s.GetByID(userID)
	if err != nil {
		return nil, err
	}

	user.AddRole(role)
	err = s.db.Save(user).Error
	return user, err
}

// RevokeRole 撤销角色
func (s *UserService) RevokeRole(operator *models.User, userID uint, role models.Role) (*models.User, error) {
	if !operator.HasAtLeast(role) {
		return nil, fmt.Errorf("无权撤销高于自身等级的角色")
	}

	user, err := s.GetByID(userID)
	if err != nil {
		return nil, err
	}

	kept := user.Roles[:0]
	for _, r := range user.Roles {
		if r != role {
			kept = append(kept, r)
		}
	}
	user.Roles = kept

	err = s.db.Save(user).Error
	return user, err
}

// GetStats 用户统计
func (s *UserService) GetStats(tenantID *uint) (*UserStats, error) {
	stats := &UserStats{}

	base := s.db.Model(&models.User{}).Where("deleted = ?", false)
	if tenantID != nil {
		base = base.Where("tenant_id = ?", *tenantID)
	}

	if err := base.Session(&gorm.Session{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).Where("active = ?", true).Count(&stats.Active).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).Where("email_verified = ?", true).Count(&stats.Verified).Error; err != nil {
		return nil, err
	}
	stats.Inactive = stats.Total - stats.Active

	return stats, nil
}

// ValidateEmail 验证邮箱格式
func (s *UserService) ValidateEmail(email string) bool {
	return strings.Contains(email, "@") && utf8.RuneCountInString(email) <= 100
}

// ValidatePassword 验证密码强度
func (s *UserService) ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("密码长度不能少于8位")
	}
	if len(password) > 100 {
		return fmt.Errorf("密码长度不能超过100位")
	}
	return nil
}
