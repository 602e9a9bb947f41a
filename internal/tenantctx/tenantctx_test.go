package tenantctx

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindAndCurrent(t *testing.T) {
	ctx := Bind(context.Background(), "Acme-Corp ", 42)

	info, ok := Current(ctx)
	require.True(t, ok)
	assert.Equal(t, "acme-corp", info.TenantID)
	assert.Equal(t, uint(42), info.TenantDBID)
}

func TestCurrentWithoutBind(t *testing.T) {
	_, ok := Current(context.Background())
	assert.False(t, ok)
}

func TestSchemaName(t *testing.T) {
	assert.Equal(t, PublicSchema, SchemaName(context.Background()))

	ctx := Bind(context.Background(), "acme", 1)
	assert.Equal(t, "tenant_acme", SchemaName(ctx))

	// 绑定了空标识等同于未绑定
	empty := Bind(context.Background(), "   ", 0)
	assert.Equal(t, PublicSchema, SchemaName(empty))
}

func TestSchemaFor(t *testing.T) {
	assert.Equal(t, "tenant_acme", SchemaFor("ACME"))
	assert.Equal(t, "tenant_a-b-c", SchemaFor(" a-b-c "))
}

func TestRebindOverrides(t *testing.T) {
	ctx := Bind(context.Background(), "first", 1)
	ctx = Bind(ctx, "second", 2)

	info, ok := Current(ctx)
	require.True(t, ok)
	assert.Equal(t, "second", info.TenantID)
	assert.Equal(t, uint(2), info.TenantDBID)
}

func TestConcurrentRequestsAreIsolated(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("tenant-%d", n)
			ctx := Bind(context.Background(), id, uint(n))

			info, ok := Current(ctx)
			assert.True(t, ok)
			assert.Equal(t, id, info.TenantID)
			assert.Equal(t, "tenant_"+id, SchemaName(ctx))
		}(i)
	}
	wg.Wait()
}
