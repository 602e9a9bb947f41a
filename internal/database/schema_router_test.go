package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	apperrors "saaskit/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn 记录执行过的SQL，可配置原生路径失败
type fakeConn struct {
	executed  []string
	nativeErr error
	stmtErr   error
}

func (f *fakeConn) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	f.executed = append(f.executed, query)
	if len(args) > 0 {
		return nil, f.nativeErr
	}
	return nil, f.stmtErr
}

func TestSwitchSchemaNativePath(t *testing.T) {
	conn := &fakeConn{}

	err := switchSchema(context.Background(), conn, "tenant_acme")
	require.NoError(t, err)

	// 原生路径成功时不应尝试语句路径
	require.Len(t, conn.executed, 1)
	assert.Contains(t, conn.executed[0], "set_config")
}

func TestSwitchSchemaFallbackToStatement(t *testing.T) {
	conn := &fakeConn{nativeErr: errors.New("not supported")}

	err := switchSchema(context.Background(), conn, "tenant_acme")
	require.NoError(t, err)

	require.Len(t, conn.executed, 2)
	assert.Equal(t, `SET search_path TO "tenant_acme"`, conn.executed[1])
}

func TestSwitchSchemaBothPathsFail(t *testing.T) {
	conn := &fakeConn{
		nativeErr: errors.New("not supported"),
		stmtErr:   errors.New("permission denied"),
	}

	err := switchSchema(context.Background(), conn, "tenant_acme")
	assert.ErrorIs(t, err, apperrors.ErrSchemaSwitch)
}

func TestSwitchSchemaEmptyDefaultsToPublic(t *testing.T) {
	conn := &fakeConn{nativeErr: errors.New("not supported")}

	err := switchSchema(context.Background(), conn, "")
	require.NoError(t, err)
	assert.Equal(t, `SET search_path TO "public"`, conn.executed[1])
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"tenant_acme"`, quoteIdent("tenant_acme"))
	// 内部引号翻倍，阻断标识符逃逸
	assert.Equal(t, `"tenant_""; DROP SCHEMA public; --"`, quoteIdent(`tenant_"; DROP SCHEMA public; --`))
}
