package service

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/Hamzak1712/supervisor-works/internal/dto"
	"github.com/Hamzak1712/supervisor-works/internal/model"
	"github.com/Hamzak1712/supervisor-works/internal/repository"
)

// StatsService 系统统计业务接口
type StatsService interface {
	SystemStats(ctx context.Context) (*dto.SystemStatsResponse, error)
}

type statsService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewStatsService 创建 StatsService 实例
func NewStatsService(repo *repository.Repository, logger *zap.Logger) StatsService {
	return &statsService{repo: repo, logger: logger}
}

// ────────────────────── SystemStats ──────────────────────

func (s *statsService) SystemStats(ctx context.Context) (*dto.SystemStatsResponse, error) {
	users, err := s.repo.User.CountByRole(ctx)
	if err != nil {
		s.logger.Error("统计用户失败", zap.Error(err))
		return nil, err
	}
	projects, err := s.repo.Project.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("统计项目失败", zap.Error(err))
		return nil, err
	}
	requests, err := s.repo.Request.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("统计指导申请失败", zap.Error(err))
		return nil, err
	}
	avg, err := s.repo.Request.AverageScore(ctx)
	if err != nil {
		s.logger.Error("统计平均匹配分失败", zap.Error(err))
		return nil, err
	}

	return &dto.SystemStatsResponse{
		Students:          users[model.RoleStudent],
		Supervisors:       users[model.RoleSupervisor],
		Admins:            users[model.RoleAdmin],
		DraftProjects:     projects[model.ProjectStatusDraft] + projects[model.ProjectStatusPendingSupervisor],
		ActiveProjects:    projects[model.ProjectStatusActive],
		CompletedProjects: projects[model.ProjectStatusCompleted],
		PendingRequests:   requests[model.RequestStatusPending],
		AcceptedRequests:  requests[model.RequestStatusAccepted],
		DeclinedRequests:  requests[model.RequestStatusDeclined],
		AverageMatchScore: math.Round(avg*10) / 10,
	}, nil
}
