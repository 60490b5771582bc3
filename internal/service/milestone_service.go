package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Hamzak1712/supervisor-works/internal/dto"
	"github.com/Hamzak1712/supervisor-works/internal/milestone"
	"github.com/Hamzak1712/supervisor-works/internal/model"
	"github.com/Hamzak1712/supervisor-works/internal/repository"
	"github.com/Hamzak1712/supervisor-works/pkg/keylock"
	"github.com/Hamzak1712/supervisor-works/pkg/metrics"
)

// ── 里程碑模块业务错误 ──
// 状态机相关错误（ErrInvalidTransition 等）直接复用 milestone 包的哨兵错误

var (
	ErrMilestoneNotFound   = errors.New("里程碑不存在")
	ErrProjectAccessDenied = errors.New("无权访问该项目")
	ErrInvalidDueDate      = errors.New("截止日期格式错误，应为 YYYY-MM-DD")
)

// MilestoneService 里程碑业务接口
type MilestoneService interface {
	ListByProject(ctx context.Context, projectID, callerID, callerRole string) (*dto.TimelineResponse, error)
	// UpdateStatus 推进里程碑状态；标记 delayed 时顺延后续非关键里程碑
	UpdateStatus(ctx context.Context, milestoneID string, req *dto.UpdateMilestoneStatusRequest, callerID, callerRole string) (*dto.MilestoneUpdateResponse, error)
	Reschedule(ctx context.Context, milestoneID string, req *dto.RescheduleMilestoneRequest, callerID, callerRole string) (*dto.MilestoneUpdateResponse, error)
	SetFeedback(ctx context.Context, milestoneID string, req *dto.MilestoneFeedbackRequest, callerID, callerRole string) (*dto.MilestoneResponse, error)
	ListActivity(ctx context.Context, projectID, callerID, callerRole string) ([]dto.ActivityLogResponse, error)
}

type milestoneService struct {
	repo   *repository.Repository
	locks  *keylock.KeyedMutex
	logger *zap.Logger
	now    func() time.Time
}

// NewMilestoneService 创建 MilestoneService 实例
func NewMilestoneService(repo *repository.Repository, locks *keylock.KeyedMutex, logger *zap.Logger) MilestoneService {
	return &milestoneService{repo: repo, locks: locks, logger: logger, now: time.Now}
}

// ────────────────────── ListByProject ──────────────────────

func (s *milestoneService) ListByProject(ctx context.Context, projectID, callerID, callerRole string) (*dto.TimelineResponse, error) {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !canView(project, callerID, callerRole) {
		return nil, ErrProjectAccessDenied
	}

	list, err := s.repo.Milestone.ListByProject(ctx, projectID)
	if err != nil {
		s.logger.Error("查询项目里程碑失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, err
	}
	milestone.SortByDueDate(list)

	resp := &dto.TimelineResponse{
		ProjectID:       project.ProjectID,
		ProjectTitle:    project.Title,
		ProjectStatus:   project.Status,
		ProgressPercent: progressPercent(list),
		Milestones:      make([]dto.MilestoneResponse, 0, len(list)),
	}
	if project.ScheduleWarning != nil {
		resp.ScheduleWarning = *project.ScheduleWarning
	}
	for i := range list {
		resp.Milestones = append(resp.Milestones, toMilestoneResponse(&list[i]))
	}
	return resp, nil
}

// ────────────────────── UpdateStatus ──────────────────────

func (s *milestoneService) UpdateStatus(ctx context.Context, milestoneID string, req *dto.UpdateMilestoneStatusRequest, callerID, callerRole string) (*dto.MilestoneUpdateResponse, error) {
	target, project, err := s.loadForUpdate(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	if !canProgress(project, callerID) {
		return nil, ErrProjectAccessDenied
	}

	unlock := s.locks.Lock("project:" + project.ProjectID)
	defer unlock()

	now := s.now()

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()
	rollback := func() {
		if tx != nil {
			tx.Rollback()
		}
	}
	txRepo := s.repo.WithTx(tx)

	// 锁内重新读取，保证级联基于最新排期
	if project, err = txRepo.Project.GetByID(ctx, project.ProjectID); err != nil {
		rollback()
		s.logger.Error("查询项目失败", zap.String("project_id", target.ProjectID), zap.Error(err))
		return nil, err
	}
	list, idx, err := s.loadTimeline(ctx, txRepo, project.ProjectID, target.MilestoneID)
	if err != nil {
		rollback()
		return nil, err
	}
	m := &list[idx]
	from := m.Status

	if err := milestone.Transition(m, req.Status, now); err != nil {
		rollback()
		return nil, err
	}
	m.UpdatedBy = &callerID

	var cascade milestone.CascadeResult
	if req.Status == model.MilestoneStatusDelayed {
		cascade = milestone.ApplyDelay(list, idx, now)
		// 仅在实际发生级联时重新评估排期告警
		if cascade.SlipDays > 0 {
			if cascade.OverConstrained {
				project.ScheduleWarning = &cascade.Warning
			} else {
				project.ScheduleWarning = nil
			}
		}
	}

	if err := txRepo.Milestone.Update(ctx, m); err != nil {
		rollback()
		s.logger.Error("更新里程碑状态失败", zap.String("milestone_id", m.MilestoneID), zap.Error(err))
		return nil, err
	}
	for _, shifted := range cascade.Shifted {
		shifted.UpdatedBy = &callerID
		if err := txRepo.Milestone.Update(ctx, shifted); err != nil {
			rollback()
			s.logger.Error("顺延里程碑失败", zap.String("milestone_id", shifted.MilestoneID), zap.Error(err))
			return nil, err
		}
	}

	completed := allCompleted(list)
	if completed {
		project.Status = model.ProjectStatusCompleted
	}
	project.LastActivityAt = now
	project.UpdatedBy = &callerID
	if err := txRepo.Project.Update(ctx, project); err != nil {
		rollback()
		s.logger.Error("更新项目失败", zap.String("project_id", project.ProjectID), zap.Error(err))
		return nil, err
	}

	desc := fmt.Sprintf("%s: %s -> %s", m.Title, from, m.Status)
	if len(cascade.Shifted) > 0 {
		desc += fmt.Sprintf(" (%d milestone(s) shifted by up to %d days)", len(cascade.Shifted), cascade.SlipDays)
	}
	recordActivity(ctx, txRepo, s.logger, callerID, &project.ProjectID, "milestone_status", desc, now)

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	metrics.MilestoneTransitions.WithLabelValues(from, m.Status).Inc()
	if cascade.OverConstrained {
		metrics.ScheduleOverConstrained.Inc()
		s.logger.Warn("排期过度约束",
			zap.String("project_id", project.ProjectID),
			zap.Int("slip_days", cascade.SlipDays),
		)
	}
	s.logger.Info("里程碑状态已更新",
		zap.String("milestone_id", m.MilestoneID),
		zap.String("from", from),
		zap.String("to", m.Status),
		zap.Int("shifted", len(cascade.Shifted)),
	)

	resp := &dto.MilestoneUpdateResponse{
		Milestone:        toMilestoneResponse(m),
		Shifted:          make([]dto.MilestoneResponse, 0, len(cascade.Shifted)),
		SlipDays:         cascade.SlipDays,
		OverConstrained:  cascade.OverConstrained,
		Warning:          cascade.Warning,
		ProjectCompleted: completed,
	}
	for _, shifted := range cascade.Shifted {
		resp.Shifted = append(resp.Shifted, toMilestoneResponse(shifted))
	}
	return resp, nil
}

// ────────────────────── Reschedule ──────────────────────

func (s *milestoneService) Reschedule(ctx context.Context, milestoneID string, req *dto.RescheduleMilestoneRequest, callerID, callerRole string) (*dto.MilestoneUpdateResponse, error) {
	newDue, err := time.Parse(dateLayout, req.DueDate)
	if err != nil {
		return nil, ErrInvalidDueDate
	}

	target, project, err := s.loadForUpdate(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	if !canSupervise(project, callerID, callerRole) {
		return nil, ErrProjectAccessDenied
	}

	unlock := s.locks.Lock("project:" + project.ProjectID)
	defer unlock()

	now := s.now()

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()
	rollback := func() {
		if tx != nil {
			tx.Rollback()
		}
	}
	txRepo := s.repo.WithTx(tx)

	if project, err = txRepo.Project.GetByID(ctx, project.ProjectID); err != nil {
		rollback()
		s.logger.Error("查询项目失败", zap.String("project_id", target.ProjectID), zap.Error(err))
		return nil, err
	}
	list, idx, err := s.loadTimeline(ctx, txRepo, project.ProjectID, target.MilestoneID)
	if err != nil {
		rollback()
		return nil, err
	}
	m := &list[idx]
	oldDue := m.DueDate

	if err := milestone.Reschedule(list, idx, newDue); err != nil {
		rollback()
		return nil, err
	}
	m.UpdatedBy = &callerID

	if err := txRepo.Milestone.Update(ctx, m); err != nil {
		rollback()
		s.logger.Error("调整里程碑截止日期失败", zap.String("milestone_id", m.MilestoneID), zap.Error(err))
		return nil, err
	}

	project.LastActivityAt = now
	project.UpdatedBy = &callerID
	if err := txRepo.Project.Update(ctx, project); err != nil {
		rollback()
		s.logger.Error("更新项目失败", zap.String("project_id", project.ProjectID), zap.Error(err))
		return nil, err
	}

	recordActivity(ctx, txRepo, s.logger, callerID, &project.ProjectID, "milestone_rescheduled",
		fmt.Sprintf("%s: %s -> %s", m.Title, oldDue.Format(dateLayout), m.DueDate.Format(dateLayout)), now)

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	s.logger.Info("里程碑截止日期已调整",
		zap.String("milestone_id", m.MilestoneID),
		zap.String("from", oldDue.Format(dateLayout)),
		zap.String("to", m.DueDate.Format(dateLayout)),
	)

	return &dto.MilestoneUpdateResponse{
		Milestone: toMilestoneResponse(m),
		Shifted:   []dto.MilestoneResponse{},
	}, nil
}

// ────────────────────── SetFeedback ──────────────────────

func (s *milestoneService) SetFeedback(ctx context.Context, milestoneID string, req *dto.MilestoneFeedbackRequest, callerID, callerRole string) (*dto.MilestoneResponse, error) {
	m, project, err := s.loadForUpdate(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	if !canSupervise(project, callerID, callerRole) {
		return nil, ErrProjectAccessDenied
	}

	unlock := s.locks.Lock("project:" + project.ProjectID)
	defer unlock()

	now := s.now()
	feedback := req.Feedback
	m.Feedback = &feedback
	m.UpdatedBy = &callerID

	if err := s.repo.Milestone.Update(ctx, m); err != nil {
		s.logger.Error("保存里程碑反馈失败", zap.String("milestone_id", m.MilestoneID), zap.Error(err))
		return nil, err
	}
	if err := s.repo.Project.Touch(ctx, project.ProjectID, now); err != nil {
		s.logger.Warn("刷新项目活动时间失败", zap.String("project_id", project.ProjectID), zap.Error(err))
	}
	recordActivity(ctx, s.repo, s.logger, callerID, &project.ProjectID, "milestone_feedback",
		fmt.Sprintf("feedback on %s", m.Title), now)

	resp := toMilestoneResponse(m)
	return &resp, nil
}

// ────────────────────── ListActivity ──────────────────────

func (s *milestoneService) ListActivity(ctx context.Context, projectID, callerID, callerRole string) ([]dto.ActivityLogResponse, error) {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !canView(project, callerID, callerRole) {
		return nil, ErrProjectAccessDenied
	}

	logs, err := s.repo.ActivityLog.ListByProject(ctx, projectID, 50)
	if err != nil {
		s.logger.Error("查询项目操作记录失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, err
	}
	result := make([]dto.ActivityLogResponse, 0, len(logs))
	for _, l := range logs {
		result = append(result, dto.ActivityLogResponse{
			ID:          l.ActivityLogID,
			UserID:      l.UserID,
			Action:      l.Action,
			Description: l.Description,
			CreatedAt:   formatTime(l.CreatedAt),
		})
	}
	return result, nil
}

// ── 辅助函数 ──

func (s *milestoneService) getProject(ctx context.Context, projectID string) (*model.Project, error) {
	project, err := s.repo.Project.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		s.logger.Error("查询项目失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, err
	}
	return project, nil
}

func (s *milestoneService) loadForUpdate(ctx context.Context, milestoneID string) (*model.Milestone, *model.Project, error) {
	m, err := s.repo.Milestone.GetByID(ctx, milestoneID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrMilestoneNotFound
		}
		s.logger.Error("查询里程碑失败", zap.String("milestone_id", milestoneID), zap.Error(err))
		return nil, nil, err
	}
	project, err := s.getProject(ctx, m.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return m, project, nil
}

func (s *milestoneService) loadTimeline(ctx context.Context, repo *repository.Repository, projectID, milestoneID string) ([]model.Milestone, int, error) {
	list, err := repo.Milestone.ListByProject(ctx, projectID)
	if err != nil {
		s.logger.Error("查询项目里程碑失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, 0, err
	}
	milestone.SortByDueDate(list)
	for i := range list {
		if list[i].MilestoneID == milestoneID {
			return list, i, nil
		}
	}
	return nil, 0, ErrMilestoneNotFound
}

// canView 项目学生、导师与管理员可查看
func canView(p *model.Project, callerID, callerRole string) bool {
	if callerRole == model.RoleAdmin || p.StudentID == callerID {
		return true
	}
	return p.SupervisorID != nil && *p.SupervisorID == callerID
}

// canProgress 仅项目学生与导师可推进状态
func canProgress(p *model.Project, callerID string) bool {
	return p.StudentID == callerID || (p.SupervisorID != nil && *p.SupervisorID == callerID)
}

// canSupervise 项目导师与管理员可调整排期、填写反馈
func canSupervise(p *model.Project, callerID, callerRole string) bool {
	if callerRole == model.RoleAdmin {
		return true
	}
	return p.SupervisorID != nil && *p.SupervisorID == callerID
}

func allCompleted(list []model.Milestone) bool {
	if len(list) == 0 {
		return false
	}
	for i := range list {
		if list[i].Status != model.MilestoneStatusCompleted {
			return false
		}
	}
	return true
}

func progressPercent(list []model.Milestone) int {
	if len(list) == 0 {
		return 0
	}
	done := 0
	for i := range list {
		if list[i].Status == model.MilestoneStatusCompleted {
			done++
		}
	}
	return done * 100 / len(list)
}

func recordActivity(ctx context.Context, repo *repository.Repository, logger *zap.Logger, userID string, projectID *string, action, desc string, at time.Time) {
	if err := repo.ActivityLog.Create(ctx, &model.ActivityLog{
		UserID:      userID,
		ProjectID:   projectID,
		Action:      action,
		Description: desc,
		CreatedAt:   at,
	}); err != nil {
		logger.Warn("写入操作日志失败", zap.String("action", action), zap.Error(err))
	}
}

func toMilestoneResponse(m *model.Milestone) dto.MilestoneResponse {
	resp := dto.MilestoneResponse{
		ID:             m.MilestoneID,
		ProjectID:      m.ProjectID,
		Sequence:       m.Sequence,
		Title:          m.Title,
		Description:    m.Description,
		DueDate:        m.DueDate.Format(dateLayout),
		Status:         m.Status,
		IsCriticalPath: m.IsCriticalPath,
	}
	if m.CompletedDate != nil {
		resp.CompletedDate = m.CompletedDate.Format(dateLayout)
	}
	if m.Feedback != nil {
		resp.Feedback = *m.Feedback
	}
	return resp
}

// ── 里程碑生成 ──

// milestoneMaterializer 项目首次分配导师时按模板生成里程碑
type milestoneMaterializer struct {
	templates   milestone.Templates
	defaultType string
}

// materialize 项目已有里程碑时不重复生成，返回新建数量
func (mm *milestoneMaterializer) materialize(ctx context.Context, repo *repository.Repository, project *model.Project, start time.Time) (int, error) {
	existing, err := repo.Milestone.CountByProject(ctx, project.ProjectID)
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		return 0, nil
	}

	projectType := project.ProjectType
	if _, ok := mm.templates[projectType]; !ok {
		projectType = mm.defaultType
	}
	items, err := mm.templates.Materialize(projectType, project.ProjectID, start)
	if err != nil {
		return 0, err
	}
	for i := range items {
		items[i].CreatedBy = project.SupervisorID
	}
	if err := repo.Milestone.BatchCreate(ctx, items); err != nil {
		return 0, err
	}
	return len(items), nil
}
