package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Hamzak1712/supervisor-works/internal/model"
)

// RequestRepository 指导申请数据访问接口
type RequestRepository interface {
	Create(ctx context.Context, req *model.SupervisionRequest) error
	GetByID(ctx context.Context, id string) (*model.SupervisionRequest, error)
	// HasPending 该（学生, 导师）是否已有待处理申请
	HasPending(ctx context.Context, studentID, supervisorID string) (bool, error)
	// HasAccepted 学生是否已有被接受的申请
	HasAccepted(ctx context.Context, studentID string) (bool, error)
	// Decide 仅当申请仍为 pending 时写入结果，否则返回 false
	Decide(ctx context.Context, id, status string, at time.Time, callerID string) (bool, error)
	ListBySupervisor(ctx context.Context, supervisorID, status string) ([]model.SupervisionRequest, error)
	ListByStudent(ctx context.Context, studentID string) ([]model.SupervisionRequest, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
	// AverageScore 所有申请的冻结匹配分均值，无申请时为 0
	AverageScore(ctx context.Context) (float64, error)
}

type requestRepo struct {
	db *gorm.DB
}

// NewRequestRepo 创建 RequestRepository 实例
func NewRequestRepo(db *gorm.DB) RequestRepository {
	return &requestRepo{db: db}
}

func (r *requestRepo) Create(ctx context.Context, req *model.SupervisionRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *requestRepo) GetByID(ctx context.Context, id string) (*model.SupervisionRequest, error) {
	var req model.SupervisionRequest
	err := r.db.WithContext(ctx).
		Where("request_id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepo) HasPending(ctx context.Context, studentID, supervisorID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.SupervisionRequest{}).
		Where("student_id = ? AND supervisor_id = ? AND status = ?", studentID, supervisorID, model.RequestStatusPending).
		Count(&n).Error
	return n > 0, err
}

func (r *requestRepo) HasAccepted(ctx context.Context, studentID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.SupervisionRequest{}).
		Where("student_id = ? AND status = ?", studentID, model.RequestStatusAccepted).
		Count(&n).Error
	return n > 0, err
}

func (r *requestRepo) Decide(ctx context.Context, id, status string, at time.Time, callerID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.SupervisionRequest{}).
		Where("request_id = ? AND status = ?", id, model.RequestStatusPending).
		Updates(map[string]interface{}{
			"status":       status,
			"responded_at": at,
			"updated_by":   callerID,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *requestRepo) ListBySupervisor(ctx context.Context, supervisorID, status string) ([]model.SupervisionRequest, error) {
	var list []model.SupervisionRequest
	db := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Project").
		Where("supervisor_id = ?", supervisorID)
	if status != "" {
		db = db.Where("status = ?", status)
	}
	err := db.Order("created_at ASC").Find(&list).Error
	return list, err
}

func (r *requestRepo) ListByStudent(ctx context.Context, studentID string) ([]model.SupervisionRequest, error) {
	var list []model.SupervisionRequest
	err := r.db.WithContext(ctx).
		Preload("Supervisor").
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

func (r *requestRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.SupervisionRequest{}).
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

func (r *requestRepo) AverageScore(ctx context.Context) (float64, error) {
	var avg float64
	err := r.db.WithContext(ctx).
		Model(&model.SupervisionRequest{}).
		Select("COALESCE(AVG(match_score_at_request_time), 0)").
		Scan(&avg).Error
	return avg, err
}
