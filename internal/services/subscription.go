package services

import (
	"fmt"

	"saaskit/internal/models"
	"saaskit/pkg/logger"

	"gorm.io/gorm"
)

// BillingClient 计费提供方客户端
// 本服务只消费其返回的订阅状态字符串，不关心提供方的线上格式
type BillingClient interface {
	CreateCustomer(email, name string) (customerID string, err error)
	CreateSubscription(customerID, planID string) (status string, err error)
	CancelSubscription(customerID string) (status string, err error)
}

// SubscriptionService 订阅服务
// 在租户/订阅决策完成后调用计费协作方，并把状态落回租户记录
type SubscriptionService struct {
	db      *gorm.DB
	tenants *TenantService
	billing BillingClient
}

func NewSubscriptionService(db *gorm.DB, tenants *TenantService, billing BillingClient) *SubscriptionService {
	return &SubscriptionService{
		db:      db,
		tenants: tenants,
		billing: billing,
	}
}

// Subscribe 为租户开通指定计划的订阅
func (s *SubscriptionService) Subscribe(tenantID uint, planID string) (*models.Tenant, error) {
	tenant, err := s.tenants.GetByID(tenantID)
	if err != nil {
		return nil, err
	}

	// 首次订阅时创建计费侧客户
	if tenant.BillingCustomerID == nil {
		customerID, err := s.billing.CreateCustomer(
			fmt.Sprintf("tenant_%s@billing.local", tenant.TenantID),
			tenant.Name,
		)
		if err != nil {
			return nil, fmt.Errorf("创建计费客户失败: %v", err)
		}
		tenant.BillingCustomerID = &customerID
	}

	status, err := s.billing.CreateSubscription(*tenant.BillingCustomerID, planID)
	if err != nil {
		return nil, fmt.Errorf("创建订阅失败: %v", err)
	}

	tenant.SubscriptionPlan = &planID
	tenant.SubscriptionStatus = status
	if err := s.db.Save(tenant).Error; err != nil {
		return nil, err
	}

	logger.GetLogger().Infof("租户 %s 订阅计划 %s，状态 %s", tenant.TenantID, planID, status)
	return tenant, nil
}

// Cancel 取消租户订阅
func (s *SubscriptionService) Cancel(tenantID uint) (*models.Tenant, error) {
	tenant, err := s.tenants.GetByID(tenantID)
	if err != nil {
		return nil, err
	}

	if tenant.BillingCustomerID == nil {
		return nil, fmt.Errorf("租户没有有效的订阅")
	}

	status, err := s.billing.CancelSubscription(*tenant.BillingCustomerID)
	if err != nil {
		return nil, fmt.Errorf("取消订阅失败: %v", err)
	}

	tenant.SubscriptionStatus = status
	if err := s.db.Save(tenant).Error; err != nil {
		return nil, err
	}

	return tenant, nil
}

// noopBillingClient 未配置计费提供方时的空实现
type noopBillingClient struct{}

// NewNoopBillingClient 创建空计费客户端，所有订阅直接视为生效
func NewNoopBillingClient() BillingClient {
	return &noopBillingClient{}
}

func (c *noopBillingClient) CreateCustomer(email, name string) (string, error) {
	return "cust_" + NormalizeTenantID(name), nil
}

func (c *noopBillingClient) CreateSubscription(customerID, planID string) (string, error) {
	return models.SubscriptionStatusActive, nil
}

func (c *noopBillingClient) CancelSubscription(customerID string) (string, error) {
	return models.SubscriptionStatusCancelled, nil
}
