package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	pkgerrors "github.com/Hamzak1712/supervisor-works/pkg/errors"

	"github.com/Hamzak1712/supervisor-works/internal/model"
)

// ProjectRepository 项目数据访问接口
type ProjectRepository interface {
	Create(ctx context.Context, project *model.Project) error
	GetByID(ctx context.Context, id string) (*model.Project, error)
	// ListBySupervisor 导师名下进行中或已完成的项目
	ListBySupervisor(ctx context.Context, supervisorID string) ([]model.Project, error)
	// AssignSupervisor 仅当项目尚未分配导师时写入，已分配返回 false
	AssignSupervisor(ctx context.Context, projectID, supervisorID string, at time.Time) (bool, error)
	Update(ctx context.Context, project *model.Project) error
	// Touch 刷新最近活动时间
	Touch(ctx context.Context, projectID string, at time.Time) error
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

type projectRepo struct {
	db *gorm.DB
}

// NewProjectRepo 创建 ProjectRepository 实例
func NewProjectRepo(db *gorm.DB) ProjectRepository {
	return &projectRepo{db: db}
}

func (r *projectRepo) Create(ctx context.Context, project *model.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

func (r *projectRepo) GetByID(ctx context.Context, id string) (*model.Project, error) {
	var p model.Project
	err := r.db.WithContext(ctx).
		Where("project_id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *projectRepo) ListBySupervisor(ctx context.Context, supervisorID string) ([]model.Project, error) {
	var list []model.Project
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("supervisor_id = ?", supervisorID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *projectRepo) AssignSupervisor(ctx context.Context, projectID, supervisorID string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Project{}).
		Where("project_id = ? AND supervisor_id IS NULL", projectID).
		Updates(map[string]interface{}{
			"supervisor_id":    supervisorID,
			"status":           model.ProjectStatusActive,
			"last_activity_at": at,
			"version":          gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *projectRepo) Update(ctx context.Context, project *model.Project) error {
	oldVersion := project.Version
	result := r.db.WithContext(ctx).
		Model(project).
		Where("project_id = ? AND version = ?", project.ProjectID, oldVersion).
		Updates(map[string]interface{}{
			"status":           project.Status,
			"last_activity_at": project.LastActivityAt,
			"schedule_warning": project.ScheduleWarning,
			"updated_by":       project.UpdatedBy,
			"version":          oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	project.Version = oldVersion + 1
	return nil
}

func (r *projectRepo) Touch(ctx context.Context, projectID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Project{}).
		Where("project_id = ?", projectID).
		Update("last_activity_at", at).Error
}

func (r *projectRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Project{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}
