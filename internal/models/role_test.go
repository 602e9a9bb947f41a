package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleLevels(t *testing.T) {
	assert.True(t, RoleSuperAdmin.AtLeast(RoleAdmin))
	assert.True(t, RoleSuperAdmin.AtLeast(RoleUser))
	assert.True(t, RoleAdmin.AtLeast(RoleUser))
	assert.True(t, RoleUser.AtLeast(RoleUser))

	assert.False(t, RoleUser.AtLeast(RoleAdmin))
	assert.False(t, RoleAdmin.AtLeast(RoleSuperAdmin))
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleSuperAdmin.Valid())
	assert.False(t, Role("MODERATOR").Valid())
	assert.False(t, Role("user").Valid())
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("ADMIN")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)

	_, err = ParseRole("MODERATOR")
	assert.Error(t, err)
}

func TestUnknownRoleHasNoAccess(t *testing.T) {
	unknown := Role("MODERATOR")
	assert.Equal(t, 0, unknown.Level())
	assert.False(t, unknown.AtLeast(RoleUser))
}

func TestUserRoles(t *testing.T) {
	user := &User{}
	user.AddRole(RoleUser)
	user.AddRole(RoleUser) // 重复添加被忽略
	user.AddRole(RoleAdmin)

	assert.Len(t, user.Roles, 2)
	assert.True(t, user.HasRole(RoleUser))
	assert.True(t, user.HasAtLeast(RoleAdmin))
	assert.False(t, user.HasAtLeast(RoleSuperAdmin))
	assert.Equal(t, []string{"USER", "ADMIN"}, user.RoleNames())
}
