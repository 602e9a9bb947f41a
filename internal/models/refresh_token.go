package models

import "time"

// RefreshToken 刷新令牌
// 不变式：同一用户任意时刻至多一条有效（未撤销且未过期）记录
type RefreshToken struct {
	BaseModel
	Token     string     `json:"-" gorm:"unique;not null;size:500;index"`
	UserID    uint       `json:"user_id" gorm:"not null;index"`
	TenantID  uint       `json:"tenant_id" gorm:"not null"` // 冗余存储，撤销时无需回查用户
	ExpiresAt time.Time  `json:"expires_at" gorm:"not null"`
	Revoked   bool       `json:"revoked" gorm:"default:false"`
	RevokedAt *time.Time `json:"revoked_at"`
}

// TableName 表名
func (rt *RefreshToken) TableName() string {
	return "refresh_tokens"
}

// IsExpired 判断是否已过期
func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}
