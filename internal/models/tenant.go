package models

import "time"

// Tenant 租户模型 - 贫血模型，只包含数据结构
// 租户从不物理删除，只会停用
type Tenant struct {
	BaseModel
	TenantID            string     `json:"tenant_id" gorm:"unique;not null;size:50;index"` // 外部租户标识，小写
	Name                string     `json:"name" gorm:"not null;size:100"`
	Domain              *string    `json:"domain" gorm:"size:255"`
	SchemaName          string     `json:"schema_name" gorm:"not null;size:100"` // 派生值 tenant_<tenant_id>，不允许调用方指定
	Active              bool       `json:"active" gorm:"default:true"`
	SubscriptionPlan    *string    `json:"subscription_plan" gorm:"size:50"`
	SubscriptionStatus  string     `json:"subscription_status" gorm:"size:20"` // active/pending/cancelled/past_due
	BillingCustomerID   *string    `json:"-" gorm:"size:100"`
	SubscriptionEndDate *time.Time `json:"subscription_end_date"`
	Deleted             bool       `json:"-" gorm:"default:false"`
}

// TableName 表名
func (t *Tenant) TableName() string {
	return "tenants"
}

// 订阅状态常量
const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusPending   = "pending"
	SubscriptionStatusCancelled = "cancelled"
	SubscriptionStatusPastDue   = "past_due"
)
