package services

import (
	"context"
	"testing"

	apperrors "saaskit/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTenantID(t *testing.T) {
	assert.Equal(t, "acme", NormalizeTenantID("  ACME "))
	assert.Equal(t, "a-b-c", NormalizeTenantID("A-B-C"))
	assert.Equal(t, "", NormalizeTenantID("   "))
}

func TestTenantCreateAndResolve(t *testing.T) {
	db := newTestDB(t)
	tenants := NewTenantService(db, nil, nil)
	ctx := context.Background()

	tenant, err := tenants.Create(ctx, "Acme", "Acme Corp", nil)
	require.NoError(t, err)
	assert.Equal(t, "acme", tenant.TenantID)
	assert.Equal(t, "tenant_acme", tenant.SchemaName)
	assert.True(t, tenant.Active)

	resolved, err := tenants.Resolve(ctx, "ACME")
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, resolved.ID)
}

func TestTenantCreateConflict(t *testing.T) {
	db := newTestDB(t)
	tenants := NewTenantService(db, nil, nil)
	ctx := context.Background()

	_, err := tenants.Create(ctx, "acme", "Acme Corp", nil)
	require.NoError(t, err)

	_, err = tenants.Create(ctx, "ACME", "Another Acme", nil)
	assert.ErrorIs(t, err, apperrors.ErrTenantConflict)
}

func TestTenantIdentifierNeverReused(t *testing.T) {
	db := newTestDB(t)
	tenants := NewTenantService(db, nil, nil)
	ctx := context.Background()

	tenant, err := tenants.Create(ctx, "acme", "Acme Corp", nil)
	require.NoError(t, err)

	_, err = tenants.Deactivate(ctx, tenant.ID)
	require.NoError(t, err)

	// 停用租户的标识也不允许复用
	_, err = tenants.Create(ctx, "acme", "Acme Reborn", nil)
	assert.ErrorIs(t, err, apperrors.ErrTenantConflict)
}

func TestResolveSkipsInactiveTenant(t *testing.T) {
	db := newTestDB(t)
	tenants := NewTenantService(db, nil, nil)
	ctx := context.Background()

	tenant, err := tenants.Create(ctx, "acme", "Acme Corp", nil)
	require.NoError(t, err)

	_, err = tenants.Deactivate(ctx, tenant.ID)
	require.NoError(t, err)

	_, err = tenants.Resolve(ctx, "acme")
	assert.ErrorIs(t, err, apperrors.ErrTenantNotFound)
}

func TestResolveUnknownTenant(t *testing.T) {
	db := newTestDB(t)
	tenants := NewTenantService(db, nil, nil)

	_, err := tenants.Resolve(context.Background(), "nope")
	assert.ErrorIs(t, err, apperrors.ErrTenantNotFound)

	_, err = tenants.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrTenantNotFound)
}

func TestValidateCreateParams(t *testing.T) {
	tenants := NewTenantService(nil, nil, nil)

	assert.NoError(t, tenants.ValidateCreateParams("acme-01", "Acme"))
	assert.Error(t, tenants.ValidateCreateParams("", "Acme"))
	assert.Error(t, tenants.ValidateCreateParams("Acme", "Acme"))     // 大写
	assert.Error(t, tenants.ValidateCreateParams("ac me", "Acme"))    // 空格
	assert.Error(t, tenants.ValidateCreateParams("-acme", "Acme"))    // 连字符开头
	assert.Error(t, tenants.ValidateCreateParams("acme;db", "Acme"))  // 非法字符
	assert.Error(t, tenants.ValidateCreateParams("acme-01", ""))      // 空名称
}

func TestGetWithFiltersAndPage(t *testing.T) {
	db := newTestDB(t)
	tenants := NewTenantService(db, nil, nil)
	ctx := context.Background()

	a, err := tenants.Create(ctx, "acme", "Acme Corp", nil)
	require.NoError(t, err)
	_, err = tenants.Create(ctx, "globex", "Globex", nil)
	require.NoError(t, err)

	_, err = tenants.Deactivate(ctx, a.ID)
	require.NoError(t, err)

	all, total, err := tenants.GetWithFiltersAndPage("", false, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, all, 2)

	active, total, err := tenants.GetWithFiltersAndPage("", true, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, active, 1)
	assert.Equal(t, "globex", active[0].TenantID)

	matched, total, err := tenants.GetWithFiltersAndPage("glob", false, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, matched, 1)
	assert.Equal(t, "globex", matched[0].TenantID)
}

func TestTenantStats(t *testing.T) {
	db := newTestDB(t)
	tenants := NewTenantService(db, nil, nil)
	ctx := context.Background()

	a, err := tenants.Create(ctx, "acme", "Acme Corp", nil)
	require.NoError(t, err)
	_, err = tenants.Create(ctx, "globex", "Globex", nil)
	require.NoError(t, err)
	_, err = tenants.Deactivate(ctx, a.ID)
	require.NoError(t, err)

	stats, err := tenants.GetStats()
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Total)
	assert.EqualValues(t, 1, stats.Active)
	assert.EqualValues(t, 1, stats.Inactive)
}
