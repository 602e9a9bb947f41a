package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"saaskit/internal/tenantctx"
	apperrors "saaskit/pkg/errors"
	"saaskit/pkg/logger"

	"gorm.io/gorm"
)

// SchemaRouter 按请求租户路由数据库连接的schema
//
// Acquire 从连接池取出一条连接并切换到当前租户的schema；
// Release 在归还连接池之前必须恢复public，保证下一个借用者不会继承租户schema。
// schema切换失败对当前请求是致命的，只在"原生切换"和"语句切换"两种机制间回退，
// 绝不会回退到其他租户的schema。
type SchemaRouter struct {
	db             *gorm.DB
	sqlDB          *sql.DB
	acquireTimeout time.Duration
}

// TenantConn 已绑定schema的连接
type TenantConn struct {
	conn   *sql.Conn
	schema string
}

// Schema 连接当前绑定的schema
func (tc *TenantConn) Schema() string {
	return tc.schema
}

// Conn 底层连接，供需要原生SQL的调用方使用
func (tc *TenantConn) Conn() *sql.Conn {
	return tc.conn
}

// NewSchemaRouter 创建schema路由器
func NewSchemaRouter(gdb *gorm.DB, acquireTimeout time.Duration) (*SchemaRouter, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if acquireTimeout <= 0 {
		acquireTimeout = 5 * time.Second
	}
	return &SchemaRouter{
		db:             gdb,
		sqlDB:          sqlDB,
		acquireTimeout: acquireTimeout,
	}, nil
}

// execConn 执行SQL的最小接口，便于对切换逻辑做单元测试
type execConn interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// switchSchema 切换连接的活动schema
// 优先走参数绑定的原生路径，失败时回退到语句路径（SET search_path）
func switchSchema(ctx context.Context, conn execConn, schema string) error {
	if schema == "" {
		schema = tenantctx.PublicSchema
	}
	_, err := conn.ExecContext(ctx, "SELECT set_config('search_path', $1, false)", schema)
	if err == nil {
		return nil
	}
	if _, stmtErr := conn.ExecContext(ctx, "SET search_path TO "+quoteIdent(schema)); stmtErr != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrSchemaSwitch, stmtErr)
	}
	return nil
}

// quoteIdent 给标识符加双引号，内部引号翻倍，防止schema名注入
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Acquire 获取一条绑定到当前租户schema的连接
// 未绑定租户时使用public。取连接的等待时间有上限，不会无限阻塞。
func (r *SchemaRouter) Acquire(ctx context.Context) (*TenantConn, error) {
	schema := tenantctx.SchemaName(ctx)

	acquireCtx, cancel := context.WithTimeout(ctx, r.acquireTimeout)
	defer cancel()

	conn, err := r.sqlDB.Conn(acquireCtx)
	if err != nil {
		// 连接池耗尽属于瞬时错误，由调用方的池化层重试
		return nil, fmt.Errorf("获取数据库连接失败: %w", err)
	}

	if err := switchSchema(ctx, conn, schema); err != nil {
		discard(conn)
		return nil, err
	}

	return &TenantConn{conn: conn, schema: schema}, nil
}

// Release 归还连接
// 必须先恢复public再归还连接池；恢复失败时直接废弃该连接
func (r *SchemaRouter) Release(tc *TenantConn) error {
	if tc == nil || tc.conn == nil {
		return nil
	}

	if err := switchSchema(context.Background(), tc.conn, tenantctx.PublicSchema); err != nil {
		logger.GetLogger().Errorf("重置schema失败，废弃连接: %v", err)
		discard(tc.conn)
		return err
	}

	return tc.conn.Close()
}

// discard 把连接标记为坏连接后关闭，连接池不会复用它
func discard(conn *sql.Conn) {
	_ = conn.Raw(func(driverConn interface{}) error {
		return driver.ErrBadConn
	})
	_ = conn.Close()
}

// WithTenant 在当前租户schema上执行fn，作用域式获取与释放
// 无论fn正常返回、出错还是panic，连接都会在恢复public后归还
func (r *SchemaRouter) WithTenant(ctx context.Context, fn func(tx *gorm.DB) error) error {
	schema := tenantctx.SchemaName(ctx)

	return r.db.WithContext(ctx).Connection(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT set_config('search_path', ?, false)", schema).Error; err != nil {
			if err = tx.Exec("SET search_path TO " + quoteIdent(schema)).Error; err != nil {
				return fmt.Errorf("%w: %v", apperrors.ErrSchemaSwitch, err)
			}
		}
		defer func() {
			if err := tx.Exec("SET search_path TO " + quoteIdent(tenantctx.PublicSchema)).Error; err != nil {
				logger.GetLogger().Errorf("重置schema失败: %v", err)
			}
		}()

		return fn(tx)
	})
}

// EnsureSchema 创建租户schema（幂等）
// 只在租户创建时显式调用，路由器的取放路径从不隐式建schema
func (r *SchemaRouter) EnsureSchema(schemaName string) error {
	return r.db.Exec("CREATE SCHEMA IF NOT EXISTS " + quoteIdent(schemaName)).Error
}
