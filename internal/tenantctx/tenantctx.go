// Package tenantctx 承载单个请求的租户上下文。
//
// 不使用任何全局可变状态：租户信息作为显式的 context 值随请求传递，
// 请求结束时随 context 一并销毁，并发请求之间天然隔离。
package tenantctx

import (
	"context"
	"strings"
)

// PublicSchema 未绑定租户时使用的公共schema
const PublicSchema = "public"

// Info 请求级租户信息
type Info struct {
	TenantID   string // 外部租户标识（小写）
	TenantDBID uint   // 租户表自增主键
}

type ctxKey struct{}

// Bind 将租户绑定到请求context，返回派生context
func Bind(ctx context.Context, tenantID string, tenantDBID uint) context.Context {
	return context.WithValue(ctx, ctxKey{}, Info{
		TenantID:   strings.ToLower(strings.TrimSpace(tenantID)),
		TenantDBID: tenantDBID,
	})
}

// Current 获取当前请求绑定的租户，未绑定时第二个返回值为false
func Current(ctx context.Context) (Info, bool) {
	info, ok := ctx.Value(ctxKey{}).(Info)
	return info, ok
}

// SchemaName 当前请求应使用的schema，未绑定租户时为public
func SchemaName(ctx context.Context) string {
	info, ok := Current(ctx)
	if !ok || info.TenantID == "" {
		return PublicSchema
	}
	return SchemaFor(info.TenantID)
}

// SchemaFor 由租户标识派生schema名，全系统唯一的派生点，杜绝外部直接指定schema
func SchemaFor(tenantID string) string {
	return "tenant_" + strings.ToLower(strings.TrimSpace(tenantID))
}
