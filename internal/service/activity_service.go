package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Hamzak1712/supervisor-works/internal/activity"
	"github.com/Hamzak1712/supervisor-works/internal/dto"
	"github.com/Hamzak1712/supervisor-works/internal/milestone"
	"github.com/Hamzak1712/supervisor-works/internal/model"
	"github.com/Hamzak1712/supervisor-works/internal/repository"
)

// ActivityService 学生活跃度业务接口
type ActivityService interface {
	Classify(days int) dto.ClassifyResponse
	// ListAlerts 导师名下进行中项目的不活跃预警（不含 none），按不活跃天数降序
	ListAlerts(ctx context.Context, supervisorID string) ([]dto.AlertResponse, error)
	// StudentOverview 导师名下学生、项目进度与下一个里程碑
	StudentOverview(ctx context.Context, supervisorID string) ([]dto.SupervisorStudentResponse, error)
}

type activityService struct {
	repo    *repository.Repository
	monitor *activity.Monitor
	logger  *zap.Logger
	now     func() time.Time
}

// NewActivityService 创建 ActivityService 实例
func NewActivityService(repo *repository.Repository, monitor *activity.Monitor, logger *zap.Logger) ActivityService {
	return &activityService{repo: repo, monitor: monitor, logger: logger, now: time.Now}
}

// ────────────────────── Classify ──────────────────────

func (s *activityService) Classify(days int) dto.ClassifyResponse {
	if days < 0 {
		days = 0
	}
	return dto.ClassifyResponse{Days: days, Severity: string(s.monitor.Classify(days))}
}

// ────────────────────── ListAlerts ──────────────────────

func (s *activityService) ListAlerts(ctx context.Context, supervisorID string) ([]dto.AlertResponse, error) {
	projects, err := s.repo.Project.ListBySupervisor(ctx, supervisorID)
	if err != nil {
		s.logger.Error("查询导师项目失败", zap.String("supervisor_id", supervisorID), zap.Error(err))
		return nil, err
	}

	now := s.now()
	alerts := make([]dto.AlertResponse, 0)
	for i := range projects {
		p := &projects[i]
		if p.Status != model.ProjectStatusActive {
			continue
		}
		days := activity.DaysInactive(p.LastActivityAt, now)
		severity := s.monitor.Classify(days)
		if severity == activity.SeverityNone {
			continue
		}
		alerts = append(alerts, dto.AlertResponse{
			StudentID:      p.StudentID,
			StudentName:    studentName(p),
			ProjectID:      p.ProjectID,
			ProjectTitle:   p.Title,
			DaysInactive:   days,
			Severity:       string(severity),
			LastActivityAt: formatTime(p.LastActivityAt),
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].DaysInactive != alerts[j].DaysInactive {
			return alerts[i].DaysInactive > alerts[j].DaysInactive
		}
		return alerts[i].StudentID < alerts[j].StudentID
	})
	return alerts, nil
}

// ────────────────────── StudentOverview ──────────────────────

func (s *activityService) StudentOverview(ctx context.Context, supervisorID string) ([]dto.SupervisorStudentResponse, error) {
	projects, err := s.repo.Project.ListBySupervisor(ctx, supervisorID)
	if err != nil {
		s.logger.Error("查询导师项目失败", zap.String("supervisor_id", supervisorID), zap.Error(err))
		return nil, err
	}

	now := s.now()
	result := make([]dto.SupervisorStudentResponse, 0, len(projects))
	for i := range projects {
		p := &projects[i]

		list, err := s.repo.Milestone.ListByProject(ctx, p.ProjectID)
		if err != nil {
			s.logger.Error("查询项目里程碑失败", zap.String("project_id", p.ProjectID), zap.Error(err))
			return nil, err
		}
		milestone.SortByDueDate(list)

		days := activity.DaysInactive(p.LastActivityAt, now)
		item := dto.SupervisorStudentResponse{
			StudentID:       p.StudentID,
			StudentName:     studentName(p),
			ProjectID:       p.ProjectID,
			ProjectTitle:    p.Title,
			ProjectStatus:   p.Status,
			ProgressPercent: progressPercent(list),
			DaysInactive:    days,
			Severity:        string(s.monitor.Classify(days)),
		}
		for j := range list {
			if list[j].Status != model.MilestoneStatusCompleted {
				next := toMilestoneResponse(&list[j])
				item.NextMilestone = &next
				break
			}
		}
		result = append(result, item)
	}
	return result, nil
}

func studentName(p *model.Project) string {
	if p.Student != nil {
		return p.Student.Name
	}
	return p.StudentID
}
