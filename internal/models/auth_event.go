package models

// AuthEvent 认证审计事件，写入各租户自己的schema
type AuthEvent struct {
	BaseModel
	UserID   uint   `json:"user_id" gorm:"not null;index"`
	Email    string `json:"email" gorm:"size:100"`
	Action   string `json:"action" gorm:"not null;size:20"` // signup/login/refresh/logout/oauth_login
	ClientIP string `json:"client_ip" gorm:"size:45"`
}

// TableName 表名
func (e *AuthEvent) TableName() string {
	return "auth_events"
}

// 审计动作常量
const (
	AuthActionSignup     = "signup"
	AuthActionLogin      = "login"
	AuthActionRefresh    = "refresh"
	AuthActionLogout     = "logout"
	AuthActionOAuthLogin = "oauth_login"
)
