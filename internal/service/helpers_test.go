package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Hamzak1712/supervisor-works/internal/activity"
	"github.com/Hamzak1712/supervisor-works/internal/matching"
	"github.com/Hamzak1712/supervisor-works/internal/milestone"
	"github.com/Hamzak1712/supervisor-works/internal/model"
	"github.com/Hamzak1712/supervisor-works/internal/repository"
	"github.com/Hamzak1712/supervisor-works/pkg/keylock"
)

// testNow 所有服务测试的固定“当前时间”
var testNow = time.Date(2025, 1, 11, 9, 30, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func date(month time.Month, d int) time.Time {
	return time.Date(2025, month, d, 0, 0, 0, 0, time.UTC)
}

func strPtr(s string) *string { return &s }

// ── 测试数据 ──

func seedStudent(t *testing.T, m *mockRepos, id, name string, skills, interests []string) {
	t.Helper()
	ctx := context.Background()
	_ = m.user.Create(ctx, &model.User{UserID: id, Name: name, Email: id + "@uni.test", Role: model.RoleStudent})
	_ = m.student.Create(ctx, &model.StudentProfile{
		UserID:            id,
		Skills:            skills,
		ResearchInterests: interests,
		Availability:      string(matching.AvailabilityFullTime),
	})
}

func seedSupervisor(t *testing.T, m *mockRepos, id, name string, maxCapacity, load int) {
	t.Helper()
	ctx := context.Background()
	user := &model.User{UserID: id, Name: name, Email: id + "@uni.test", Role: model.RoleSupervisor}
	_ = m.user.Create(ctx, user)
	_ = m.supervisor.Create(ctx, &model.SupervisorProfile{
		UserID:        id,
		Department:    "Computer Science",
		Expertise:     []string{"NLP", "Deep Learning"},
		ResearchAreas: []string{"Language Models", "Sentiment Analysis"},
		PastProjects: []string{
			"Sentiment Analysis in Social Media",
			"Medical Diagnosis using NLP",
			"Chatbot Development with Transformers",
		},
		MaxCapacity: maxCapacity,
		CurrentLoad: load,
		User:        user,
	})
}

func seedProject(t *testing.T, m *mockRepos, id, studentID string, supervisorID *string, status string) {
	t.Helper()
	_ = m.project.Create(context.Background(), &model.Project{
		ProjectID:      id,
		StudentID:      studentID,
		SupervisorID:   supervisorID,
		Title:          "Project " + id,
		ProjectType:    "msc_dissertation",
		Status:         status,
		LastActivityAt: testNow,
	})
}

func seedExampleStudent(t *testing.T, m *mockRepos, id string) {
	t.Helper()
	seedStudent(t, m, id, "Student "+id, []string{"Python", "NLP"}, []string{"Language Models"})
}

// ── 服务构造 ──

func newTestAllocationService(t *testing.T, cache MatchCache) (*allocationService, *mockRepos) {
	t.Helper()
	repo, m := newMockRepos()
	templates, err := milestone.LoadTemplates("")
	if err != nil {
		t.Fatalf("加载里程碑模板失败: %v", err)
	}
	svc := NewAllocationService(
		repo,
		matching.NewScorer(matching.DefaultWeights()),
		cache,
		time.Minute,
		&milestoneMaterializer{templates: templates, defaultType: "msc_dissertation"},
		keylock.New(),
		zap.NewNop(),
	).(*allocationService)
	svc.now = fixedNow
	return svc, m
}

func newTestMilestoneService(t *testing.T) (*milestoneService, *repository.Repository, *mockRepos) {
	t.Helper()
	repo, m := newMockRepos()
	svc := NewMilestoneService(repo, keylock.New(), zap.NewNop()).(*milestoneService)
	svc.now = fixedNow
	return svc, repo, m
}

func newTestActivityService(t *testing.T) (*activityService, *mockRepos) {
	t.Helper()
	repo, m := newMockRepos()
	svc := NewActivityService(repo, activity.NewMonitor(activity.DefaultThresholds()), zap.NewNop()).(*activityService)
	svc.now = fixedNow
	return svc, m
}
