package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Hamzak1712/supervisor-works/internal/model"
)

// StudentRepository 学生档案数据访问接口
type StudentRepository interface {
	Create(ctx context.Context, profile *model.StudentProfile) error
	GetByID(ctx context.Context, userID string) (*model.StudentProfile, error)
	ListByIDs(ctx context.Context, userIDs []string) ([]model.StudentProfile, error)
}

type studentRepo struct {
	db *gorm.DB
}

// NewStudentRepo 创建 StudentRepository 实例
func NewStudentRepo(db *gorm.DB) StudentRepository {
	return &studentRepo{db: db}
}

func (r *studentRepo) Create(ctx context.Context, profile *model.StudentProfile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *studentRepo) GetByID(ctx context.Context, userID string) (*model.StudentProfile, error) {
	var p model.StudentProfile
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *studentRepo) ListByIDs(ctx context.Context, userIDs []string) ([]model.StudentProfile, error) {
	var list []model.StudentProfile
	if len(userIDs) == 0 {
		return list, nil
	}
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id IN ?", userIDs).
		Find(&list).Error
	return list, err
}
