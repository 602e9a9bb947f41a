package models

import "fmt"

// Role 角色，封闭枚举
type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// 角色权限等级，高等级隐含低等级的全部访问权限
var roleLevels = map[Role]int{
	RoleUser:       1,
	RoleAdmin:      2,
	RoleSuperAdmin: 3,
}

// Level 获取角色权限等级，未知角色为0
func (r Role) Level() int {
	return roleLevels[r]
}

// Valid 判断是否为合法角色
func (r Role) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// AtLeast 判断本角色是否具备required角色及以下的访问权限
func (r Role) AtLeast(required Role) bool {
	return r.Level() >= required.Level()
}

// ParseRole 解析角色字符串
func ParseRole(value string) (Role, error) {
	r := Role(value)
	if !r.Valid() {
		return "", fmt.Errorf("未知角色: %s", value)
	}
	return r, nil
}

// RoleNames 角色列表转字符串列表（保持顺序）
func RoleNames(roles []Role) []string {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, string(r))
	}
	return names
}
