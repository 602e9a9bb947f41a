package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"saaskit/internal/database"
	"saaskit/internal/models"
	"saaskit/internal/tenantctx"
	"saaskit/pkg/cache"
	apperrors "saaskit/pkg/errors"
	"saaskit/pkg/logger"

	"gorm.io/gorm"
)

// TenantService 租户目录服务
type TenantService struct {
	db     *gorm.DB
	cache  *cache.RedisCache      // 可为nil，测试环境不依赖Redis
	router *database.SchemaRouter // 用于租户schema预配，可为nil
}

// TenantStats 租户统计信息
type TenantStats struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Inactive int64 `json:"inactive"`
}

func NewTenantService(db *gorm.DB, c *cache.RedisCache, router *database.SchemaRouter) *TenantService {
	return &TenantService{
		db:     db,
		cache:  c,
		router: router,
	}
}

// 租户标识只允许小写字母、数字和连字符
var tenantIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// NormalizeTenantID 规范化租户标识：去空格、转小写
func NormalizeTenantID(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// Resolve 按外部标识解析租户，只返回激活租户
func (s *TenantService) Resolve(ctx context.Context, identifier string) (*models.Tenant, error) {
	identifier = NormalizeTenantID(identifier)
	if identifier == "" {
		return nil, apperrors.ErrTenantNotFound
	}

	// 读缓存
	if s.cache != nil {
		var cached models.Tenant
		hit, err := s.cache.Get(ctx, identifier, &cached)
		if err != nil {
			logger.GetLogger().Warnf("读取租户缓存失败: %v", err)
		}
		if hit {
			return &cached, nil
		}
	}

	var tenant models.Tenant
	err := s.db.Where("tenant_id = ? AND active = ? AND deleted = ?", identifier, true, false).
		First(&tenant).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.ErrTenantNotFound
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, identifier, &tenant); err != nil {
			logger.GetLogger().Warnf("写入租户缓存失败: %v", err)
		}
	}

	return &tenant, nil
}

// Create 创建租户
// schema名由租户标识派生，不允许调用方直接指定，防止schema名注入
func (s *TenantService) Create(ctx context.Context, identifier, name string, domain *string) (*models.Tenant, error) {
	identifier = NormalizeTenantID(identifier)
	if err := s.ValidateCreateParams(identifier, name); err != nil {
		return nil, err
	}

	var tenant *models.Tenant
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		tenant, err = s.createIn(tx, identifier, name, domain)
		return err
	})
	if err != nil {
		return nil, err
	}

	// 预配租户schema：显式的一次性操作，路由器不会隐式建schema
	if s.router != nil {
		if err := s.Provision(tenant.SchemaName); err != nil {
			logger.GetLogger().Errorf("租户 %s schema预配失败: %v", identifier, err)
		}
	}

	s.invalidate(ctx, identifier)
	return tenant, nil
}

// createIn 在给定事务内创建租户行，供认证编排在同一事务中复用
func (s *TenantService) createIn(tx *gorm.DB, identifier, name string, domain *string) (*models.Tenant, error) {
	// 检查标识是否重复（包含已停用的租户，标识永不复用）
	var count int64
	tx.Model(&models.Tenant{}).Where("tenant_id = ?", identifier).Count(&count)
	if count > 0 {
		return nil, apperrors.ErrTenantConflict
	}

	tenant := &models.Tenant{
		TenantID:           identifier,
		Name:               name,
		Domain:             domain,
		SchemaName:         tenantctx.SchemaFor(identifier),
		Active:             true,
		SubscriptionStatus: models.SubscriptionStatusActive,
	}
	if err := tx.Create(tenant).Error; err != nil {
		return nil, err
	}
	return tenant, nil
}

// Provision 创建租户schema并按名称触发迁移
func (s *TenantService) Provision(schemaName string) error {
	if err := s.router.EnsureSchema(schemaName); err != nil {
		return err
	}
	return database.MigrateTenantSchema(s.db, schemaName)
}

// GetByID 根据主键获取租户
func (s *TenantService) GetByID(id uint) (*models.Tenant, error) {
	var tenant models.Tenant
	err := s.db.First(&tenant, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.ErrTenantNotFound
		}
		return nil, err
	}
	return &tenant, nil
}

// Deactivate 停用租户（租户从不物理删除）
func (s *TenantService) Deactivate(ctx context.Context, id uint) (*models.Tenant, error) {
	tenant, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	tenant.Active = false
	if err := s.db.Save(tenant).Error; err != nil {
		return nil, err
	}

	s.invalidate(ctx, tenant.TenantID)
	return tenant, nil
}

// IsActive 判断租户是否激活
func (s *TenantService) IsActive(tenant *models.Tenant) bool {
	return tenant.Active && !tenant.Deleted
}

// GetWithFiltersAndPage 组合查询（分页版本）
func (s *TenantService) GetWithFiltersAndPage(keyword string, activeOnly bool, page, pageSize int) ([]*models.Tenant, int64, error) {
	var tenants []*models.Tenant
	var total int64

	query := s.db.Model(&models.Tenant{}).Where("deleted = ?", false)

	if activeOnly {
		query = query.Where("active = ?", true)
	}
	if keyword != "" {
		searchPattern := fmt.Sprintf("%%%s%%", keyword)
		query = query.Where("name LIKE ? OR tenant_id LIKE ?", searchPattern, searchPattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&tenants).Error
	if err != nil {
		return nil, 0, err
	}

	return tenants, total, nil
}

// GetStats 租户统计
func (s *TenantService) GetStats() (*TenantStats, error) {
	stats := &TenantStats{}

	if err := s.db.Model(&models.Tenant{}).Where("deleted = ?", false).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Tenant{}).Where("deleted = ? AND active = ?", false, true).Count(&stats.Active).Error; err != nil {
		return nil, err
	}
	stats.Inactive = stats.Total - stats.Active

	return stats, nil
}

// ValidateCreateParams 验证创建参数
func (s *TenantService) ValidateCreateParams(identifier, name string) error {
	if identifier == "" {
		return fmt.Errorf("租户标识不能为空")
	}
	if len(identifier) > 50 || !tenantIDPattern.MatchString(identifier) {
		return fmt.Errorf("租户标识格式错误：只允许小写字母、数字和连字符，最长50")
	}
	if name == "" || utf8.RuneCountInString(name) > 100 {
		return fmt.Errorf("租户名称长度需在1-100之间")
	}
	return nil
}

// invalidate 清除租户缓存
func (s *TenantService) invalidate(ctx context.Context, identifier string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, identifier); err != nil {
		logger.GetLogger().Warnf("清除租户缓存失败: %v", err)
	}
}
