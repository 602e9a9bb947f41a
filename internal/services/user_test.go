package services

import (
	"testing"

	"saaskit/internal/models"
	apperrors "saaskit/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetByEmailCaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	tenant := seedTenant(t, db, "acme")
	seedUser(t, db, tenant, "Alice@Example.com", "password123")
	users := NewUserService(db)

	user, err := users.GetByEmail("alice@example.com")
	require.NoError(t, err)
	// 邮箱保持原始大小写存储
	assert.Equal(t, "Alice@Example.com", user.Email)
}

func TestGetByIDExcludesDeleted(t *testing.T) {
	db := newTestDB(t)
	tenant := seedTenant(t, db, "acme")
	user := seedUser(t, db, tenant, "alice@example.com", "password123")
	users := NewUserService(db)

	require.NoError(t, users.Delete(user.ID))

	_, err := users.GetByID(user.ID)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	_, err = users.GetByEmail("alice@example.com")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestGrantRoleRequiresSufficientLevel(t *testing.T) {
	db := newTestDB(t)
	tenant := seedTenant(t, db, "acme")
	operator := seedUser(t, db, tenant, "admin@example.com", "password123")
	target := seedUser(t, db, tenant, "bob@example.com", "password123")
	users := NewUserService(db)

	operator.AddRole(models.RoleAdmin)

	// 管理员不能授予超级管理员
	_, err := users.GrantRole(operator, target.ID, models.RoleSuperAdmin)
	assert.Error(t, err)

	updated, err := users.GrantRole(operator, target.ID, models.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, updated.HasRole(models.RoleAdmin))

	// 未知角色被拒绝
	_, err = users.GrantRole(operator, target.ID, models.Role("MODERATOR"))
	assert.Error(t, err)
}

func TestRevokeRole(t *testing.T) {
	db := newTestDB(t)
	tenant := seedTenant(t, db, "acme")
	operator := seedUser(t, db, tenant, "root@example.com", "password123")
	target := seedUser(t, db, tenant, "bob@example.com", "password123")
	users := NewUserService(db)

	operator.AddRole(models.RoleSuperAdmin)
	_, err := users.GrantRole(operator, target.ID, models.RoleAdmin)
	require.NoError(t, err)

	updated, err := users.RevokeRole(operator, target.ID, models.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, updated.HasRole(models.RoleAdmin))
	assert.True(t, updated.HasRole(models.RoleUser))
}

func TestUserStats(t *testing.T) {
	db := newTestDB(t)
	acme := seedTenant(t, db, "acme")
	globex := seedTenant(t, db, "globex")
	users := NewUserService(db)

	seedUser(t, db, acme, "a1@example.com", "password123")
	inactive := seedUser(t, db, acme, "a2@example.com", "password123")
	seedUser(t, db, globex, "g1@example.com", "password123")

	_, err := users.Deactivate(inactive.ID)
	require.NoError(t, err)

	all, err := users.GetStats(nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, all.Total)
	assert.EqualValues(t, 2, all.Active)

	scoped, err := users.GetStats(&acme.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, scoped.Total)
	assert.EqualValues(t, 1, scoped.Active)
	assert.EqualValues(t, 1, scoped.Inactive)
}
