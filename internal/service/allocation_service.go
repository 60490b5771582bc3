package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Hamzak1712/supervisor-works/internal/dto"
	"github.com/Hamzak1712/supervisor-works/internal/matching"
	"github.com/Hamzak1712/supervisor-works/internal/model"
	"github.com/Hamzak1712/supervisor-works/internal/repository"
	"github.com/Hamzak1712/supervisor-works/pkg/keylock"
	"github.com/Hamzak1712/supervisor-works/pkg/metrics"
)

// ── 匹配与分配模块业务错误 ──

var (
	ErrStudentNotFound        = errors.New("学生不存在")
	ErrSupervisorNotFound     = errors.New("导师不存在")
	ErrProjectNotFound        = errors.New("项目不存在")
	ErrRequestNotFound        = errors.New("指导申请不存在")
	ErrProjectNotOwned        = errors.New("只能为自己的项目提交申请")
	ErrDuplicateRequest       = errors.New("已向该导师提交过待处理的申请")
	ErrCapacityExceeded       = errors.New("导师名额已满")
	ErrAlreadyDecided         = errors.New("该申请已处理")
	ErrStudentAlreadyAssigned = errors.New("该学生已有导师")
	ErrNotRequestSupervisor   = errors.New("只能处理发给自己的申请")
	ErrCapacityBelowLoad      = errors.New("名额不能低于当前已指导人数")
)

// AllocationService 匹配与分配业务接口
type AllocationService interface {
	// RankMatches 按匹配分排序的可选导师（不含已满额导师）
	RankMatches(ctx context.Context, studentID string) (*dto.MatchListResponse, error)
	SubmitRequest(ctx context.Context, studentID string, req *dto.SubmitRequestRequest) (*dto.SupervisionRequestResponse, error)
	// Decide 接受或拒绝申请；接受时原子地占用名额并生成里程碑
	Decide(ctx context.Context, requestID string, req *dto.DecideRequest, callerID, callerRole string) (*dto.DecisionResponse, error)
	ListPending(ctx context.Context, supervisorID string) ([]dto.SupervisionRequestResponse, error)
	ListMine(ctx context.Context, studentID string) ([]dto.SupervisionRequestResponse, error)
	UpdateCapacity(ctx context.Context, supervisorID string, req *dto.UpdateCapacityRequest, callerID string) (*dto.SupervisorCapacityResponse, error)
	CapacitySummary(ctx context.Context) (*dto.CapacitySummaryResponse, error)
}

type allocationService struct {
	repo         *repository.Repository
	scorer       *matching.Scorer
	cache        MatchCache
	cacheTTL     time.Duration
	materializer *milestoneMaterializer
	locks        *keylock.KeyedMutex
	logger       *zap.Logger
	now          func() time.Time
}

// NewAllocationService 创建 AllocationService 实例
func NewAllocationService(
	repo *repository.Repository,
	scorer *matching.Scorer,
	cache MatchCache,
	cacheTTL time.Duration,
	materializer *milestoneMaterializer,
	locks *keylock.KeyedMutex,
	logger *zap.Logger,
) AllocationService {
	return &allocationService{
		repo:         repo,
		scorer:       scorer,
		cache:        cache,
		cacheTTL:     cacheTTL,
		materializer: materializer,
		locks:        locks,
		logger:       logger,
		now:          time.Now,
	}
}

// ────────────────────── RankMatches ──────────────────────

func (s *allocationService) RankMatches(ctx context.Context, studentID string) (*dto.MatchListResponse, error) {
	start := time.Now()

	// 代数在查询导师之前读取一次；读取失败时本次不走缓存
	cache := s.cache
	var gen int64
	if cache != nil {
		g, err := cache.MatchGeneration(ctx)
		if err != nil {
			s.logger.Warn("读取排名缓存代数失败", zap.Error(err))
			cache = nil
		}
		gen = g
	}

	if cache != nil {
		var cached []dto.MatchResponse
		hit, err := cache.GetMatches(ctx, gen, studentID, &cached)
		if err != nil {
			s.logger.Warn("读取排名缓存失败", zap.String("student_id", studentID), zap.Error(err))
		} else if hit {
			metrics.MatchRankDuration.WithLabelValues("hit").Observe(time.Since(start).Seconds())
			return &dto.MatchListResponse{StudentID: studentID, Matches: cached, Cached: true}, nil
		}
	}

	student, err := s.repo.Student.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		s.logger.Error("查询学生档案失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}

	supervisors, err := s.repo.Supervisor.ListAll(ctx)
	if err != nil {
		s.logger.Error("查询导师列表失败", zap.Error(err))
		return nil, err
	}

	byID := make(map[string]*model.SupervisorProfile, len(supervisors))
	pool := make([]matching.SupervisorCapacityRecord, 0, len(supervisors))
	for i := range supervisors {
		byID[supervisors[i].UserID] = &supervisors[i]
		pool = append(pool, toCapacityRecord(&supervisors[i]))
	}

	ranked := s.scorer.Rank(toFeatureSet(student), pool)

	matches := make([]dto.MatchResponse, 0, len(ranked))
	for _, r := range ranked {
		matches = append(matches, toMatchResponse(r, byID[r.SupervisorID]))
	}

	if cache != nil {
		if err := cache.SetMatches(ctx, gen, studentID, matches, s.cacheTTL); err != nil {
			s.logger.Warn("写入排名缓存失败", zap.String("student_id", studentID), zap.Error(err))
		}
	}

	metrics.MatchRankDuration.WithLabelValues("miss").Observe(time.Since(start).Seconds())
	return &dto.MatchListResponse{StudentID: studentID, Matches: matches}, nil
}

// ────────────────────── SubmitRequest ──────────────────────

func (s *allocationService) SubmitRequest(ctx context.Context, studentID string, req *dto.SubmitRequestRequest) (*dto.SupervisionRequestResponse, error) {
	student, err := s.repo.Student.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		s.logger.Error("查询学生档案失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}

	supervisor, err := s.repo.Supervisor.GetByID(ctx, req.SupervisorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSupervisorNotFound
		}
		s.logger.Error("查询导师档案失败", zap.String("supervisor_id", req.SupervisorID), zap.Error(err))
		return nil, err
	}

	project, err := s.repo.Project.GetByID(ctx, req.ProjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		s.logger.Error("查询项目失败", zap.String("project_id", req.ProjectID), zap.Error(err))
		return nil, err
	}
	if project.StudentID != studentID {
		return nil, ErrProjectNotOwned
	}
	if project.SupervisorID != nil {
		return nil, ErrStudentAlreadyAssigned
	}

	assigned, err := s.repo.Request.HasAccepted(ctx, studentID)
	if err != nil {
		s.logger.Error("查询已接受申请失败", zap.Error(err))
		return nil, err
	}
	if assigned {
		metrics.RequestsSubmitted.WithLabelValues("already_assigned").Inc()
		return nil, ErrStudentAlreadyAssigned
	}

	pending, err := s.repo.Request.HasPending(ctx, studentID, req.SupervisorID)
	if err != nil {
		s.logger.Error("查询待处理申请失败", zap.Error(err))
		return nil, err
	}
	if pending {
		metrics.RequestsSubmitted.WithLabelValues("duplicate").Inc()
		return nil, ErrDuplicateRequest
	}

	// 提交时的名额检查仅为软校验，不预留名额；以接受时的原子检查为准
	record := toCapacityRecord(supervisor)
	if record.IsFull() {
		metrics.RequestsSubmitted.WithLabelValues("capacity_exceeded").Inc()
		return nil, ErrCapacityExceeded
	}

	score := s.scorer.Score(toFeatureSet(student), record)

	request := &model.SupervisionRequest{
		StudentID:               studentID,
		SupervisorID:            req.SupervisorID,
		ProjectID:               req.ProjectID,
		Status:                  model.RequestStatusPending,
		MatchScoreAtRequestTime: score.Score,
		MatchReasons:            model.StringArray(score.Reasons),
	}
	request.CreatedBy = &studentID
	request.UpdatedBy = &studentID

	now := s.now()

	// 申请与项目状态同一事务提交
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

	if err := txRepo.Request.Create(ctx, request); err != nil {
		rollback()
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			metrics.RequestsSubmitted.WithLabelValues("duplicate").Inc()
			return nil, ErrDuplicateRequest
		}
		s.logger.Error("创建指导申请失败", zap.Error(err))
		return nil, err
	}

	if project.Status == model.ProjectStatusDraft {
		project.Status = model.ProjectStatusPendingSupervisor
	}
	project.LastActivityAt = now
	project.UpdatedBy = &studentID
	if err := txRepo.Project.Update(ctx, project); err != nil {
		rollback()
		s.logger.Error("更新项目状态失败", zap.String("project_id", project.ProjectID), zap.Error(err))
		return nil, err
	}

	recordActivity(ctx, txRepo, s.logger, studentID, &project.ProjectID, "request_submitted",
		fmt.Sprintf("supervision requested from %s (score %d)", supervisorName(supervisor), score.Score), now)

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	metrics.RequestsSubmitted.WithLabelValues("created").Inc()
	s.logger.Info("指导申请已提交",
		zap.String("request_id", request.RequestID),
		zap.String("student_id", studentID),
		zap.String("supervisor_id", req.SupervisorID),
		zap.Int("score", score.Score),
	)

	request.Supervisor = supervisor.User
	request.Project = project
	return toRequestResponse(request), nil
}

// ────────────────────── Decide ──────────────────────

func (s *allocationService) Decide(ctx context.Context, requestID string, req *dto.DecideRequest, callerID, callerRole string) (*dto.DecisionResponse, error) {
	request, err := s.repo.Request.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		s.logger.Error("查询指导申请失败", zap.String("request_id", requestID), zap.Error(err))
		return nil, err
	}
	if callerRole != model.RoleAdmin && request.SupervisorID != callerID {
		return nil, ErrNotRequestSupervisor
	}

	// 同一学生、同一导师的决定在进程内串行；跨进程由条件 UPDATE 与唯一索引兜底
	unlock := s.locks.Lock("student:"+request.StudentID, "supervisor:"+request.SupervisorID)
	defer unlock()

	if request.Status != model.RequestStatusPending {
		metrics.RequestDecisions.WithLabelValues("already_decided").Inc()
		return nil, ErrAlreadyDecided
	}

	if req.Decision == "decline" {
		return s.decline(ctx, request, callerID)
	}
	return s.accept(ctx, request, callerID)
}

func (s *allocationService) decline(ctx context.Context, request *model.SupervisionRequest, callerID string) (*dto.DecisionResponse, error) {
	now := s.now()
	ok, err := s.repo.Request.Decide(ctx, request.RequestID, model.RequestStatusDeclined, now, callerID)
	if err != nil {
		s.logger.Error("拒绝指导申请失败", zap.String("request_id", request.RequestID), zap.Error(err))
		return nil, err
	}
	if !ok {
		metrics.RequestDecisions.WithLabelValues("already_decided").Inc()
		return nil, ErrAlreadyDecided
	}

	request.Status = model.RequestStatusDeclined
	request.RespondedAt = &now
	recordActivity(ctx, s.repo, s.logger, callerID, &request.ProjectID, "request_declined", "supervision request declined", now)

	metrics.RequestDecisions.WithLabelValues("declined").Inc()
	s.logger.Info("指导申请已拒绝", zap.String("request_id", request.RequestID))
	return &dto.DecisionResponse{Request: *toRequestResponse(request)}, nil
}

func (s *allocationService) accept(ctx context.Context, request *model.SupervisionRequest, callerID string) (*dto.DecisionResponse, error) {
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

	assigned, err := txRepo.Request.HasAccepted(ctx, request.StudentID)
	if err != nil {
		rollback()
		s.logger.Error("查询已接受申请失败", zap.Error(err))
		return nil, err
	}
	if assigned {
		rollback()
		metrics.RequestDecisions.WithLabelValues("already_assigned").Inc()
		return nil, ErrStudentAlreadyAssigned
	}

	// 名额在提交时刻重新校验：条件自增失败即已满额，申请保持 pending
	ok, err := txRepo.Supervisor.IncrementLoad(ctx, request.SupervisorID)
	if err != nil {
		rollback()
		s.logger.Error("占用导师名额失败", zap.String("supervisor_id", request.SupervisorID), zap.Error(err))
		return nil, err
	}
	if !ok {
		rollback()
		metrics.RequestDecisions.WithLabelValues("capacity_exceeded").Inc()
		s.logger.Info("导师名额已满，申请保持待处理",
			zap.String("request_id", request.RequestID),
			zap.String("supervisor_id", request.SupervisorID),
		)
		return nil, ErrCapacityExceeded
	}

	ok, err = txRepo.Request.Decide(ctx, request.RequestID, model.RequestStatusAccepted, now, callerID)
	if err != nil {
		rollback()
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrStudentAlreadyAssigned
		}
		s.logger.Error("接受指导申请失败", zap.String("request_id", request.RequestID), zap.Error(err))
		return nil, err
	}
	if !ok {
		rollback()
		metrics.RequestDecisions.WithLabelValues("already_decided").Inc()
		return nil, ErrAlreadyDecided
	}

	project, err := txRepo.Project.GetByID(ctx, request.ProjectID)
	if err != nil {
		rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		s.logger.Error("查询项目失败", zap.String("project_id", request.ProjectID), zap.Error(err))
		return nil, err
	}

	ok, err = txRepo.Project.AssignSupervisor(ctx, project.ProjectID, request.SupervisorID, now)
	if err != nil {
		rollback()
		s.logger.Error("分配项目导师失败", zap.String("project_id", project.ProjectID), zap.Error(err))
		return nil, err
	}
	if !ok {
		rollback()
		return nil, ErrStudentAlreadyAssigned
	}

	project.SupervisorID = &request.SupervisorID
	created, err := s.materializer.materialize(ctx, txRepo, project, now)
	if err != nil {
		rollback()
		s.logger.Error("生成项目里程碑失败", zap.String("project_id", project.ProjectID), zap.Error(err))
		return nil, err
	}

	recordActivity(ctx, txRepo, s.logger, callerID, &project.ProjectID, "request_accepted",
		fmt.Sprintf("supervision accepted, %d milestones scheduled", created), now)

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	s.invalidateMatches(ctx)

	request.Status = model.RequestStatusAccepted
	request.RespondedAt = &now

	metrics.RequestDecisions.WithLabelValues("accepted").Inc()
	s.logger.Info("指导申请已接受",
		zap.String("request_id", request.RequestID),
		zap.String("student_id", request.StudentID),
		zap.String("supervisor_id", request.SupervisorID),
		zap.Int("milestones", created),
	)

	return &dto.DecisionResponse{Request: *toRequestResponse(request), MilestonesCreated: created}, nil
}

// ────────────────────── ListPending / ListMine ──────────────────────

func (s *allocationService) ListPending(ctx context.Context, supervisorID string) ([]dto.SupervisionRequestResponse, error) {
	list, err := s.repo.Request.ListBySupervisor(ctx, supervisorID, model.RequestStatusPending)
	if err != nil {
		s.logger.Error("查询待处理申请失败", zap.String("supervisor_id", supervisorID), zap.Error(err))
		return nil, err
	}
	result := make([]dto.SupervisionRequestResponse, 0, len(list))
	for i := range list {
		result = append(result, *toRequestResponse(&list[i]))
	}
	return result, nil
}

func (s *allocationService) ListMine(ctx context.Context, studentID string) ([]dto.SupervisionRequestResponse, error) {
	list, err := s.repo.Request.ListByStudent(ctx, studentID)
	if err != nil {
		s.logger.Error("查询我的申请失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}
	result := make([]dto.SupervisionRequestResponse, 0, len(list))
	for i := range list {
		result = append(result, *toRequestResponse(&list[i]))
	}
	return result, nil
}

// ────────────────────── UpdateCapacity ──────────────────────

func (s *allocationService) UpdateCapacity(ctx context.Context, supervisorID string, req *dto.UpdateCapacityRequest, callerID string) (*dto.SupervisorCapacityResponse, error) {
	unlock := s.locks.Lock("supervisor:" + supervisorID)
	defer unlock()

	supervisor, err := s.repo.Supervisor.GetByID(ctx, supervisorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSupervisorNotFound
		}
		s.logger.Error("查询导师档案失败", zap.String("supervisor_id", supervisorID), zap.Error(err))
		return nil, err
	}
	if req.MaxCapacity < supervisor.CurrentLoad {
		return nil, ErrCapacityBelowLoad
	}

	ok, err := s.repo.Supervisor.UpdateCapacity(ctx, supervisorID, req.MaxCapacity, callerID)
	if err != nil {
		s.logger.Error("更新导师名额失败", zap.String("supervisor_id", supervisorID), zap.Error(err))
		return nil, err
	}
	if !ok {
		return nil, ErrCapacityBelowLoad
	}

	recordActivity(ctx, s.repo, s.logger, callerID, nil, "capacity_updated",
		fmt.Sprintf("capacity of %s changed from %d to %d", supervisorName(supervisor), supervisor.MaxCapacity, req.MaxCapacity), s.now())
	s.invalidateMatches(ctx)

	s.logger.Info("导师名额已更新",
		zap.String("supervisor_id", supervisorID),
		zap.Int("old", supervisor.MaxCapacity),
		zap.Int("new", req.MaxCapacity),
	)

	supervisor.MaxCapacity = req.MaxCapacity
	resp := toCapacityResponse(supervisor)
	return &resp, nil
}

// ────────────────────── CapacitySummary ──────────────────────

func (s *allocationService) CapacitySummary(ctx context.Context) (*dto.CapacitySummaryResponse, error) {
	supervisors, err := s.repo.Supervisor.ListAll(ctx)
	if err != nil {
		s.logger.Error("查询导师列表失败", zap.Error(err))
		return nil, err
	}

	summary := &dto.CapacitySummaryResponse{Supervisors: make([]dto.SupervisorCapacityResponse, 0, len(supervisors))}
	for i := range supervisors {
		item := toCapacityResponse(&supervisors[i])
		summary.TotalCapacity += item.MaxCapacity
		summary.Assigned += item.CurrentLoad
		summary.Available += item.Available
		if item.IsFull {
			summary.AtFullCapacity++
		}
		summary.Supervisors = append(summary.Supervisors, item)
	}
	return summary, nil
}

// ── 辅助函数 ──

func (s *allocationService) invalidateMatches(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateMatches(ctx); err != nil {
		s.logger.Warn("清除排名缓存失败", zap.Error(err))
	}
}

func toFeatureSet(p *model.StudentProfile) matching.StudentFeatureSet {
	return matching.StudentFeatureSet{
		StudentID:    p.UserID,
		Skills:       p.Skills,
		Interests:    p.ResearchInterests,
		Availability: matching.Availability(p.Availability),
	}
}

func toCapacityRecord(p *model.SupervisorProfile) matching.SupervisorCapacityRecord {
	return matching.SupervisorCapacityRecord{
		SupervisorID:  p.UserID,
		Expertise:     p.Expertise,
		ResearchAreas: p.ResearchAreas,
		PastProjects:  p.PastProjects,
		MaxCapacity:   p.MaxCapacity,
		CurrentLoad:   p.CurrentLoad,
	}
}

func supervisorName(p *model.SupervisorProfile) string {
	if p.User != nil {
		return p.User.Name
	}
	return p.UserID
}

func toMatchResponse(r matching.MatchResult, p *model.SupervisorProfile) dto.MatchResponse {
	resp := dto.MatchResponse{
		SupervisorID:        r.SupervisorID,
		Score:               r.Score,
		Reasons:             r.Reasons,
		SimilarPastProjects: r.SimilarPastProjectTitles,
		SkillOverlap:        r.SkillOverlap,
		InterestOverlap:     r.InterestOverlap,
		CapacityFactor:      r.CapacityFactor,
	}
	if resp.SimilarPastProjects == nil {
		resp.SimilarPastProjects = []string{}
	}
	if p != nil {
		resp.SupervisorName = supervisorName(p)
		resp.Department = p.Department
		resp.Expertise = p.Expertise
		resp.CurrentLoad = p.CurrentLoad
		resp.MaxCapacity = p.MaxCapacity
	}
	return resp
}

func toRequestResponse(r *model.SupervisionRequest) *dto.SupervisionRequestResponse {
	resp := &dto.SupervisionRequestResponse{
		ID:           r.RequestID,
		StudentID:    r.StudentID,
		SupervisorID: r.SupervisorID,
		ProjectID:    r.ProjectID,
		Status:       r.Status,
		MatchScore:   r.MatchScoreAtRequestTime,
		MatchReasons: r.MatchReasons,
		CreatedAt:    formatTime(r.CreatedAt),
		RespondedAt:  formatTimePtr(r.RespondedAt),
	}
	if resp.MatchReasons == nil {
		resp.MatchReasons = []string{}
	}
	if r.Student != nil {
		resp.StudentName = r.Student.Name
	}
	if r.Supervisor != nil {
		resp.SupervisorName = r.Supervisor.Name
	}
	if r.Project != nil {
		resp.ProjectTitle = r.Project.Title
	}
	return resp
}

func toCapacityResponse(p *model.SupervisorProfile) dto.SupervisorCapacityResponse {
	available := p.MaxCapacity - p.CurrentLoad
	if available < 0 {
		available = 0
	}
	return dto.SupervisorCapacityResponse{
		SupervisorID: p.UserID,
		Name:         supervisorName(p),
		Department:   p.Department,
		MaxCapacity:  p.MaxCapacity,
		CurrentLoad:  p.CurrentLoad,
		Available:    available,
		IsFull:       p.CurrentLoad >= p.MaxCapacity,
	}
}
