package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsTable = "sworks_schema_migrations"

// ErrDirtyMigration 上次迁移中途失败，需要人工修复后再启动
var ErrDirtyMigration = errors.New("数据库迁移处于 dirty 状态")

// RunMigrations 执行数据库迁移
// dirty 状态直接拒绝启动，否则应用所有未执行的迁移
func RunMigrations(db *sql.DB, logger *zap.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("加载迁移文件失败: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return fmt.Errorf("创建迁移驱动失败: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("初始化迁移实例失败: %w", err)
	}

	before, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("读取迁移版本失败: %w", err)
	}
	if dirty {
		return fmt.Errorf("%w: version=%d", ErrDirtyMigration, before)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("执行迁移失败: %w", err)
	}

	after, _, _ := m.Version()
	logger.Info("数据库迁移完成",
		zap.Uint("from_version", before),
		zap.Uint("to_version", after),
	)

	return nil
}
