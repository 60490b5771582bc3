package database

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Hamzak1712/supervisor-works/config"
)

const (
	defaultMaxOpenConns = 25
	defaultMaxIdleConns = 10
	slowQueryThreshold  = 200 * time.Millisecond
)

// NewDB 初始化 PostgreSQL 数据库连接
// SQL 日志经 zap 输出：debug 级别记录全部语句，其余级别只记录慢查询与错误
func NewDB(cfg *config.DatabaseConfig, logLevel string, logger *zap.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: NewGormLogger(logger, slowQueryThreshold, logLevel == "debug"),
		// 统一使用 UTC，截止日期按日期比较
		NowFunc: func() time.Time { return time.Now().UTC() },
		// 唯一约束冲突转换为 gorm.ErrDuplicatedKey（重复申请判定依赖此项）
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	configurePool(sqlDB, cfg)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库 ping 失败: %w", err)
	}

	logger.Info("数据库连接成功",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("dbname", cfg.Name),
	)

	return db, nil
}

// configurePool 连接池配置，未配置时使用 25/10
func configurePool(sqlDB *sql.DB, cfg *config.DatabaseConfig) {
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenConns
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = defaultMaxIdleConns
	}
	if maxIdle > maxOpen {
		maxIdle = maxOpen
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	}
}
