package services

import (
	"testing"
	"time"

	"saaskit/internal/models"
	apperrors "saaskit/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueForRotatesOldTokens(t *testing.T) {
	db := newTestDB(t)
	tenant := seedTenant(t, db, "acme")
	user := seedUser(t, db, tenant, "alice@example.com", "password123")
	rts := NewRefreshTokenService(db, 7*24*time.Hour)

	_, err := rts.IssueFor(db, user, "token-1")
	require.NoError(t, err)
	_, err = rts.IssueFor(db, user, "token-2")
	require.NoError(t, err)

	// 旧令牌被轮换删除
	_, err = rts.Lookup("token-1")
	assert.ErrorIs(t, err, apperrors.ErrTokenNotFound)

	// 任意时刻该用户至多一条存储中的刷新令牌
	var count int64
	require.NoError(t, db.Model(&models.RefreshToken{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	rt, err := rts.Lookup("token-2")
	require.NoError(t, err)
	assert.Equal(t, user.ID, rt.UserID)
	assert.Equal(t, tenant.ID, rt.TenantID)
	assert.False(t, rt.Revoked)
}

func TestRotationDoesNotAffectOtherUsers(t *testing.T) {
	db := newTestDB(t)
	tenant := seedTenant(t, db, "acme")
	alice := seedUser(t, db, tenant, "alice@example.com", "password123")
	bob := seedUser(t, db, tenant, "bob@example.com", "password123")
	rts := NewRefreshTokenService(db, 7*24*time.Hour)

	_, err := rts.IssueFor(db, alice, "alice-token")
	require.NoError(t, err)
	_, err = rts.IssueFor(db, bob, "bob-token")
	require.NoError(t, err)

	_, err = rts.Lookup("alice-token")
	assert.NoError(t, err)
}

func TestRevokeIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	tenant := seedTenant(t, db, "acme")
	user := seedUser(t, db, tenant, "alice@example.com", "password123")
	rts := NewRefreshTokenService(db, 7*24*time.Hour)

	_, err := rts.IssueFor(db, user, "token-1")
	require.NoError(t, err)

	require.NoError(t, rts.Revoke("token-1"))

	rt, err := rts.Lookup("token-1")
	require.NoError(t, err)
	assert.True(t, rt.Revoked)
	require.NotNil(t, rt.RevokedAt)
	firstRevokedAt := *rt.RevokedAt

	// 重复撤销不报错，也不改写撤销时间
	require.NoError(t, rts.Revoke("token-1"))
	rt, err = rts.Lookup("token-1")
	require.NoError(t, err)
	assert.Equal(t, firstRevokedAt.Unix(), rt.RevokedAt.Unix())

	// 撤销不存在的令牌静默成功
	assert.NoError(t, rts.Revoke("no-such-token"))
}

func TestValidateForRefreshOrder(t *testing.T) {
	rts := NewRefreshTokenService(nil, 7*24*time.Hour)

	activeUser := &models.User{Active: true}
	inactiveUser := &models.User{Active: false}

	expired := &models.RefreshToken{ExpiresAt: time.Now().Add(-time.Hour)}
	live := &models.RefreshToken{ExpiresAt: time.Now().Add(time.Hour)}
	revokedAndExpired := &models.RefreshToken{Revoked: true, ExpiresAt: time.Now().Add(-time.Hour)}

	// 已撤销优先于已过期
	assert.ErrorIs(t, rts.ValidateForRefresh(revokedAndExpired, activeUser), apperrors.ErrTokenRevoked)
	assert.ErrorIs(t, rts.ValidateForRefresh(expired, activeUser), apperrors.ErrTokenExpired)
	// 已过期优先于用户停用
	assert.ErrorIs(t, rts.ValidateForRefresh(expired, inactiveUser), apperrors.ErrTokenExpired)
	assert.ErrorIs(t, rts.ValidateForRefresh(live, inactiveUser), apperrors.ErrAccountInactive)
	assert.NoError(t, rts.ValidateForRefresh(live, activeUser))
}

func TestCleanupExpired(t *testing.T) {
	db := newTestDB(t)
	tenant := seedTenant(t, db, "acme")
	user := seedUser(t, db, tenant, "alice@example.com", "password123")
	rts := NewRefreshTokenService(db, 7*24*time.Hour)

	longAgo := time.Now().Add(-48 * time.Hour)
	rows := []*models.RefreshToken{
		{Token: "expired", UserID: user.ID, TenantID: tenant.ID, ExpiresAt: time.Now().Add(-time.Hour)},
		{Token: "stale-revoked", UserID: user.ID, TenantID: tenant.ID, ExpiresAt: time.Now().Add(time.Hour), Revoked: true, RevokedAt: &longAgo},
		{Token: "live", UserID: user.ID, TenantID: tenant.ID, ExpiresAt: time.Now().Add(time.Hour)},
	}
	for _, row := range rows {
		require.NoError(t, db.Create(row).Error)
	}

	deleted, err := rts.CleanupExpired()
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	_, err = rts.Lookup("live")
	assert.NoError(t, err)
}
