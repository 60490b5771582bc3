package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Hamzak1712/supervisor-works/internal/model"
)

// ActivityLogRepository 操作日志数据访问接口
type ActivityLogRepository interface {
	Create(ctx context.Context, log *model.ActivityLog) error
	ListByProject(ctx context.Context, projectID string, limit int) ([]model.ActivityLog, error)
}

type activityLogRepo struct {
	db *gorm.DB
}

// NewActivityLogRepo 创建 ActivityLogRepository 实例
func NewActivityLogRepo(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepo{db: db}
}

func (r *activityLogRepo) Create(ctx context.Context, log *model.ActivityLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *activityLogRepo) ListByProject(ctx context.Context, projectID string, limit int) ([]model.ActivityLog, error) {
	var list []model.ActivityLog
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}
