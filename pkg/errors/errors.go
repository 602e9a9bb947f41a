package errors

import "errors"

// ========== 错误码常量定义 ==========

// CodeSuccess 成功码
const (
	CodeSuccess = 200
)

// HTTP层错误码 (400-599)
const (
	CodeInvalidParam = 400
	CodeUnauthorized = 401
	CodeForbidden    = 403
	CodeNotFound     = 404
	CodeConflict     = 409
	CodeServerError  = 500
)

// ========== 业务错误定义 ==========

// 查找类错误
var (
	ErrTenantNotFound = errors.New("租户不存在或已停用")
	ErrUserNotFound   = errors.New("用户不存在")
	ErrTokenNotFound  = errors.New("刷新令牌不存在")
)

// 冲突类错误
var (
	ErrEmailExists    = errors.New("邮箱已被注册")
	ErrTenantConflict = errors.New("租户标识已存在")
)

// 认证类错误
var (
	// ErrInvalidCredentials 邮箱不存在和密码错误统一返回该错误，防止账号枚举
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrAccountInactive    = errors.New("账号已被停用")
)

// 令牌类错误
var (
	ErrTokenExpired = errors.New("令牌已过期")
	ErrTokenRevoked = errors.New("刷新令牌已被撤销")
	// ErrTokenInvalid 签名错误和结构错误统一返回该错误
	ErrTokenInvalid = errors.New("令牌无效")
)

// ErrSchemaSwitch schema切换失败，当前请求视为致命错误，绝不回退到其他租户的schema
var ErrSchemaSwitch = errors.New("schema切换失败")

// Is 判断错误链，转发标准库实现
func Is(err, target error) bool {
	return errors.Is(err, target)
}
