package models

import (
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
)

// User 用户模型
// TenantID 在创建后不可变更，一个用户只属于一个租户
type User struct {
	BaseModel
	Email         string                    `json:"email" gorm:"unique;not null;size:100;index"`
	PasswordHash  *string                   `json:"-" gorm:"size:255"` // OAuth用户可为空
	FirstName     string                    `json:"first_name" gorm:"size:50"`
	LastName      string                    `json:"last_name" gorm:"size:50"`
	TenantID      uint                      `json:"tenant_id" gorm:"not null;index"`
	Roles         datatypes.JSONSlice[Role] `json:"roles"`
	Active        bool                      `json:"active" gorm:"default:true"`
	EmailVerified bool                      `json:"email_verified" gorm:"default:false"`
	Deleted       bool                      `json:"-" gorm:"default:false"`
	OAuthProvider *string                   `json:"oauth_provider" gorm:"column:oauth_provider;size:50"`
	OAuthID       *string                   `json:"-" gorm:"column:oauth_id;size:100"`

	Tenant *Tenant `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
}

// TableName 表名
func (u *User) TableName() string {
	return "users"
}

// SetPassword 设置密码 - 数据操作方法
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	hash := string(hashedPassword)
	u.PasswordHash = &hash
	return nil
}

// CheckPassword 验证密码 - 数据操作方法，OAuth用户（无密码）恒为false
func (u *User) CheckPassword(password string) bool {
	if u.PasswordHash == nil {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(password))
	return err == nil
}

// AddRole 添加角色（去重）
func (u *User) AddRole(role Role) {
	if u.HasRole(role) {
		return
	}
	u.Roles = append(u.Roles, role)
}

// HasRole 判断是否持有指定角色
func (u *User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAtLeast 判断是否具备required等级的访问权限（高角色隐含低角色）
func (u *User) HasAtLeast(required Role) bool {
	for _, r := range u.Roles {
		if r.AtLeast(required) {
			return true
		}
	}
	return false
}

// RoleNames 当前角色的字符串列表（保持顺序）
func (u *User) RoleNames() []string {
	return RoleNames(u.Roles)
}
