package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/Hamzak1712/supervisor-works/internal/model"
	"github.com/Hamzak1712/supervisor-works/internal/repository"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.UserID == "" {
		user.UserID = fmt.Sprintf("user-%d", len(m.users)+1)
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) CountByRole(_ context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make(map[string]int64)
	for _, u := range m.users {
		result[u.Role]++
	}
	return result, nil
}

// ── Mock StudentRepository ──

type mockStudentRepo struct {
	mu       sync.Mutex
	profiles map[string]*model.StudentProfile
}

func newMockStudentRepo() *mockStudentRepo {
	return &mockStudentRepo{profiles: make(map[string]*model.StudentProfile)}
}

func (m *mockStudentRepo) Create(_ context.Context, p *model.StudentProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.UserID] = p
	return nil
}

func (m *mockStudentRepo) GetByID(_ context.Context, userID string) (*model.StudentProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[userID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) ListByIDs(_ context.Context, userIDs []string) ([]model.StudentProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.StudentProfile
	for _, id := range userIDs {
		if p, ok := m.profiles[id]; ok {
			result = append(result, *p)
		}
	}
	return result, nil
}

// ── Mock SupervisorRepository ──

type mockSupervisorRepo struct {
	mu       sync.Mutex
	profiles map[string]*model.SupervisorProfile
}

func newMockSupervisorRepo() *mockSupervisorRepo {
	return &mockSupervisorRepo{profiles: make(map[string]*model.SupervisorProfile)}
}

func (m *mockSupervisorRepo) Create(_ context.Context, p *model.SupervisorProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.UserID] = p
	return nil
}

func (m *mockSupervisorRepo) GetByID(_ context.Context, userID string) (*model.SupervisorProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[userID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSupervisorRepo) ListAll(_ context.Context) ([]model.SupervisorProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]model.SupervisorProfile, 0, len(m.profiles))
	for _, p := range m.profiles {
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

// IncrementLoad 与条件 UPDATE 一致：未满额才自增
func (m *mockSupervisorRepo) IncrementLoad(_ context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok || p.CurrentLoad >= p.MaxCapacity {
		return false, nil
	}
	p.CurrentLoad++
	return true, nil
}

func (m *mockSupervisorRepo) UpdateCapacity(_ context.Context, userID string, maxCapacity int, _ string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok || p.CurrentLoad > maxCapacity {
		return false, nil
	}
	p.MaxCapacity = maxCapacity
	return true, nil
}

func (m *mockSupervisorRepo) load(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profiles[userID].CurrentLoad
}

// ── Mock ProjectRepository ──

type mockProjectRepo struct {
	mu        sync.Mutex
	projects  map[string]*model.Project
	users     *mockUserRepo
	updateErr error
}

func newMockProjectRepo(users *mockUserRepo) *mockProjectRepo {
	return &mockProjectRepo{projects: make(map[string]*model.Project), users: users}
}

func (m *mockProjectRepo) Create(_ context.Context, p *model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ProjectID == "" {
		p.ProjectID = fmt.Sprintf("proj-%d", len(m.projects)+1)
	}
	cp := *p
	m.projects[p.ProjectID] = &cp
	return nil
}

func (m *mockProjectRepo) GetByID(_ context.Context, id string) (*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.projects[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProjectRepo) ListBySupervisor(ctx context.Context, supervisorID string) ([]model.Project, error) {
	m.mu.Lock()
	var result []model.Project
	for _, p := range m.projects {
		if p.SupervisorID != nil && *p.SupervisorID == supervisorID {
			result = append(result, *p)
		}
	}
	m.mu.Unlock()
	sort.Slice(result, func(i, j int) bool { return result[i].ProjectID < result[j].ProjectID })
	for i := range result {
		if u, err := m.users.GetByID(ctx, result[i].StudentID); err == nil {
			result[i].Student = u
		}
	}
	return result, nil
}

func (m *mockProjectRepo) AssignSupervisor(_ context.Context, projectID, supervisorID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[projectID]
	if !ok || p.SupervisorID != nil {
		return false, nil
	}
	sid := supervisorID
	p.SupervisorID = &sid
	p.Status = model.ProjectStatusActive
	p.LastActivityAt = at
	p.Version++
	return true, nil
}

func (m *mockProjectRepo) Update(_ context.Context, p *model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	cur, ok := m.projects[p.ProjectID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	// 保留条件写入的字段，其余按传入值覆盖
	cp := *p
	cp.SupervisorID = cur.SupervisorID
	cp.Version = cur.Version + 1
	m.projects[p.ProjectID] = &cp
	return nil
}

func (m *mockProjectRepo) Touch(_ context.Context, projectID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.projects[projectID]; ok {
		p.LastActivityAt = at
	}
	return nil
}

func (m *mockProjectRepo) CountByStatus(_ context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make(map[string]int64)
	for _, p := range m.projects {
		result[p.Status]++
	}
	return result, nil
}

// ── Mock MilestoneRepository ──

type mockMilestoneRepo struct {
	mu         sync.Mutex
	milestones map[string]*model.Milestone
	seq        int
}

func newMockMilestoneRepo() *mockMilestoneRepo {
	return &mockMilestoneRepo{milestones: make(map[string]*model.Milestone)}
}

func (m *mockMilestoneRepo) BatchCreate(_ context.Context, items []model.Milestone) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range items {
		if items[i].MilestoneID == "" {
			m.seq++
			items[i].MilestoneID = fmt.Sprintf("ms-%d", m.seq)
		}
		cp := items[i]
		m.milestones[cp.MilestoneID] = &cp
	}
	return nil
}

func (m *mockMilestoneRepo) GetByID(_ context.Context, id string) (*model.Milestone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ms, ok := m.milestones[id]; ok {
		cp := *ms
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockMilestoneRepo) ListByProject(_ context.Context, projectID string) ([]model.Milestone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Milestone
	for _, ms := range m.milestones {
		if ms.ProjectID == projectID {
			result = append(result, *ms)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Sequence < result[j].Sequence })
	return result, nil
}

func (m *mockMilestoneRepo) CountByProject(ctx context.Context, projectID string) (int64, error) {
	list, _ := m.ListByProject(ctx, projectID)
	return int64(len(list)), nil
}

func (m *mockMilestoneRepo) Update(_ context.Context, ms *model.Milestone) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.milestones[ms.MilestoneID]; !ok {
		return gorm.ErrRecordNotFound
	}
	ms.Version++
	cp := *ms
	m.milestones[ms.MilestoneID] = &cp
	return nil
}

func (m *mockMilestoneRepo) get(id string) model.Milestone {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.milestones[id]
}

// ── Mock RequestRepository ──

type mockRequestRepo struct {
	mu       sync.Mutex
	requests map[string]*model.SupervisionRequest
}

func newMockRequestRepo() *mockRequestRepo {
	return &mockRequestRepo{requests: make(map[string]*model.SupervisionRequest)}
}

func (m *mockRequestRepo) Create(_ context.Context, req *model.SupervisionRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if req.RequestID == "" {
		req.RequestID = fmt.Sprintf("req-%d", len(m.requests)+1)
	}
	cp := *req
	m.requests[req.RequestID] = &cp
	return nil
}

func (m *mockRequestRepo) GetByID(_ context.Context, id string) (*model.SupervisionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.requests[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRequestRepo) HasPending(_ context.Context, studentID, supervisorID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.requests {
		if r.StudentID == studentID && r.SupervisorID == supervisorID && r.Status == model.RequestStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRequestRepo) HasAccepted(_ context.Context, studentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.requests {
		if r.StudentID == studentID && r.Status == model.RequestStatusAccepted {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRequestRepo) Decide(_ context.Context, id, status string, at time.Time, _ string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok || r.Status != model.RequestStatusPending {
		return false, nil
	}
	r.Status = status
	r.RespondedAt = &at
	return true, nil
}

func (m *mockRequestRepo) ListBySupervisor(_ context.Context, supervisorID, status string) ([]model.SupervisionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.SupervisionRequest
	for _, r := range m.requests {
		if r.SupervisorID == supervisorID && (status == "" || r.Status == status) {
			result = append(result, *r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RequestID < result[j].RequestID })
	return result, nil
}

func (m *mockRequestRepo) ListByStudent(_ context.Context, studentID string) ([]model.SupervisionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.SupervisionRequest
	for _, r := range m.requests {
		if r.StudentID == studentID {
			result = append(result, *r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RequestID < result[j].RequestID })
	return result, nil
}

func (m *mockRequestRepo) CountByStatus(_ context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make(map[string]int64)
	for _, r := range m.requests {
		result[r.Status]++
	}
	return result, nil
}

func (m *mockRequestRepo) AverageScore(_ context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return 0, nil
	}
	total := 0
	for _, r := range m.requests {
		total += r.MatchScoreAtRequestTime
	}
	return float64(total) / float64(len(m.requests)), nil
}

func (m *mockRequestRepo) status(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[id].Status
}

// ── Mock ActivityLogRepository ──

type mockActivityLogRepo struct {
	mu   sync.Mutex
	logs []model.ActivityLog
}

func newMockActivityLogRepo() *mockActivityLogRepo {
	return &mockActivityLogRepo{}
}

func (m *mockActivityLogRepo) Create(_ context.Context, log *model.ActivityLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	log.ActivityLogID = fmt.Sprintf("log-%d", len(m.logs)+1)
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockActivityLogRepo) ListByProject(_ context.Context, projectID string, limit int) ([]model.ActivityLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.ActivityLog
	for i := len(m.logs) - 1; i >= 0; i-- {
		if m.logs[i].ProjectID != nil && *m.logs[i].ProjectID == projectID {
			result = append(result, m.logs[i])
			if len(result) == limit {
				break
			}
		}
	}
	return result, nil
}

func (m *mockActivityLogRepo) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		result = append(result, l.Action)
	}
	return result
}

// ── Mock MatchCache ──

type mockMatchCache struct {
	mu          sync.Mutex
	gen         int64
	entries     map[string][]byte
	gets        int
	invalidated int
	// beforeSet 在写入前执行一次，用于模拟计算排名期间发生的失效
	beforeSet func()
}

func newMockMatchCache() *mockMatchCache {
	return &mockMatchCache{entries: make(map[string][]byte)}
}

func mockCacheKey(gen int64, studentID string) string {
	return fmt.Sprintf("%d:%s", gen, studentID)
}

func (c *mockMatchCache) MatchGeneration(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen, nil
}

func (c *mockMatchCache) GetMatches(_ context.Context, gen int64, studentID string, dst interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	raw, ok := c.entries[mockCacheKey(gen, studentID)]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *mockMatchCache) SetMatches(_ context.Context, gen int64, studentID string, v interface{}, _ time.Duration) error {
	c.mu.Lock()
	hook := c.beforeSet
	c.beforeSet = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.entries[mockCacheKey(gen, studentID)] = raw
	return nil
}

func (c *mockMatchCache) InvalidateMatches(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.invalidated++
	return nil
}

// ── 测试用 Repository 聚合 ──

type mockRepos struct {
	user       *mockUserRepo
	student    *mockStudentRepo
	supervisor *mockSupervisorRepo
	project    *mockProjectRepo
	milestone  *mockMilestoneRepo
	request    *mockRequestRepo
	activity   *mockActivityLogRepo
}

func newMockRepos() (*repository.Repository, *mockRepos) {
	users := newMockUserRepo()
	m := &mockRepos{
		user:       users,
		student:    newMockStudentRepo(),
		supervisor: newMockSupervisorRepo(),
		project:    newMockProjectRepo(users),
		milestone:  newMockMilestoneRepo(),
		request:    newMockRequestRepo(),
		activity:   newMockActivityLogRepo(),
	}
	repo := &repository.Repository{
		User:        m.user,
		Student:     m.student,
		Supervisor:  m.supervisor,
		Project:     m.project,
		Milestone:   m.milestone,
		Request:     m.request,
		ActivityLog: m.activity,
	}
	return repo, m
}
