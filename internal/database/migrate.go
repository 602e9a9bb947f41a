package database

import (
	"saaskit/internal/models"
	"saaskit/internal/tenantctx"
	"saaskit/pkg/logger"

	"gorm.io/gorm"
)

// Migrate 执行公共schema的数据库迁移
// 身份数据（租户、用户、刷新令牌）统一存放在公共schema
func Migrate() error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting database migration...")

	err := db.AutoMigrate(
		&models.Tenant{},
		&models.User{},
		&models.RefreshToken{},
	)

	if err != nil {
		appLogger.Errorf("Database migration failed: %v", err)
		return err
	}

	appLogger.Info("Database migration completed successfully")
	return nil
}

// MigrateTenantSchema 在指定租户schema内执行迁移
// 只在租户创建时显式调用一次，路由器本身从不隐式建schema
func MigrateTenantSchema(gdb *gorm.DB, schemaName string) error {
	return gdb.Connection(func(tx *gorm.DB) error {
		if err := tx.Exec("SET search_path TO " + quoteIdent(schemaName)).Error; err != nil {
			return err
		}
		// 归还连接前恢复public，避免schema泄漏
		defer tx.Exec("SET search_path TO " + quoteIdent(tenantctx.PublicSchema))

		return tx.AutoMigrate(
			&models.AuthEvent{},
		)
	})
}
