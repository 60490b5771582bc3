//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Hamzak1712/supervisor-works/internal/model"
	"github.com/Hamzak1712/supervisor-works/internal/repository"
	"github.com/Hamzak1712/supervisor-works/pkg/database"
	pkgerrors "github.com/Hamzak1712/supervisor-works/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=postgres password=postgres dbname=supervisor_works_test sslmode=disable TimeZone=UTC"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	// 与生产一致，使用嵌入的迁移脚本建表（含 CHECK 约束与部分唯一索引）
	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "数据库迁移失败: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	os.Exit(code)
}

type fixture struct {
	student    *model.User
	supervisor *model.User
	project    *model.Project
}

// setupFixture 创建学生、导师与项目并返回清理函数
func setupFixture(t *testing.T, maxCapacity int) (*fixture, func()) {
	t.Helper()
	ctx := context.Background()
	suffix := time.Now().UnixNano()

	student := &model.User{
		Name:  "测试学生",
		Email: fmt.Sprintf("stu%d@uni.test", suffix),
		Role:  model.RoleStudent,
	}
	supervisor := &model.User{
		Name:  "测试导师",
		Email: fmt.Sprintf("sup%d@uni.test", suffix),
		Role:  model.RoleSupervisor,
	}
	for _, u := range []*model.User{student, supervisor} {
		if err := testDB.WithContext(ctx).Create(u).Error; err != nil {
			t.Fatalf("创建用户失败: %v", err)
		}
	}

	if err := testDB.WithContext(ctx).Create(&model.StudentProfile{
		UserID:            student.UserID,
		Skills:            model.StringArray{"Python", "NLP"},
		ResearchInterests: model.StringArray{"Language Models"},
	}).Error; err != nil {
		t.Fatalf("创建学生档案失败: %v", err)
	}
	if err := testDB.WithContext(ctx).Create(&model.SupervisorProfile{
		UserID:      supervisor.UserID,
		Expertise:   model.StringArray{"NLP", "Deep Learning"},
		MaxCapacity: maxCapacity,
	}).Error; err != nil {
		t.Fatalf("创建导师档案失败: %v", err)
	}

	project := &model.Project{
		StudentID:      student.UserID,
		Title:          "集成测试项目",
		ProjectType:    "msc_dissertation",
		Status:         model.ProjectStatusDraft,
		LastActivityAt: time.Now().UTC(),
	}
	if err := testDB.WithContext(ctx).Create(project).Error; err != nil {
		t.Fatalf("创建项目失败: %v", err)
	}

	cleanup := func() {
		testDB.Unscoped().Where("project_id = ?", project.ProjectID).Delete(&model.ActivityLog{})
		testDB.Unscoped().Where("project_id = ?", project.ProjectID).Delete(&model.Milestone{})
		testDB.Unscoped().Where("project_id = ?", project.ProjectID).Delete(&model.SupervisionRequest{})
		testDB.Unscoped().Where("project_id = ?", project.ProjectID).Delete(&model.Project{})
		testDB.Unscoped().Where("user_id = ?", student.UserID).Delete(&model.StudentProfile{})
		testDB.Unscoped().Where("user_id = ?", supervisor.UserID).Delete(&model.SupervisorProfile{})
		testDB.Unscoped().Where("user_id IN ?", []string{student.UserID, supervisor.UserID}).Delete(&model.User{})
	}
	return &fixture{student: student, supervisor: supervisor, project: project}, cleanup
}

func newRequest(f *fixture) *model.SupervisionRequest {
	return &model.SupervisionRequest{
		StudentID:               f.student.UserID,
		SupervisorID:            f.supervisor.UserID,
		ProjectID:               f.project.ProjectID,
		Status:                  model.RequestStatusPending,
		MatchScoreAtRequestTime: 40,
		MatchReasons:            model.StringArray{"Matching expertise: NLP"},
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Transaction Rollback / Commit
// ═══════════════════════════════════════════════════════════

func TestTransaction_Rollback(t *testing.T) {
	f, cleanup := setupFixture(t, 5)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	tx, err := repo.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx 失败: %v", err)
	}

	req := newRequest(f)
	if err := repo.WithTx(tx).Request.Create(ctx, req); err != nil {
		tx.Rollback()
		t.Fatalf("事务内创建申请失败: %v", err)
	}

	tx.Rollback()

	if _, err := repo.Request.GetByID(ctx, req.RequestID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("期望回滚后查不到申请，实际 err=%v", err)
	}
}

func TestTransaction_Commit(t *testing.T) {
	f, cleanup := setupFixture(t, 5)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	tx, err := repo.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx 失败: %v", err)
	}

	req := newRequest(f)
	if err := repo.WithTx(tx).Request.Create(ctx, req); err != nil {
		tx.Rollback()
		t.Fatalf("事务内创建申请失败: %v", err)
	}
	if err := tx.Commit().Error; err != nil {
		t.Fatalf("Commit 失败: %v", err)
	}

	found, err := repo.Request.GetByID(ctx, req.RequestID)
	if err != nil {
		t.Fatalf("提交后查询申请失败: %v", err)
	}
	if found.MatchScoreAtRequestTime != 40 || len(found.MatchReasons) != 1 {
		t.Errorf("申请字段不符: %+v", found)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Capacity & Uniqueness Constraints
// ═══════════════════════════════════════════════════════════

func TestSupervisor_IncrementLoad_Concurrent(t *testing.T) {
	f, cleanup := setupFixture(t, 3)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	const workers = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Supervisor.IncrementLoad(ctx, f.supervisor.UserID)
			if err != nil {
				t.Errorf("IncrementLoad 失败: %v", err)
				return
			}
			if ok {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if success != 3 {
		t.Errorf("期望恰好 3 次成功，实际=%d", success)
	}
	sup, err := repo.Supervisor.GetByID(ctx, f.supervisor.UserID)
	if err != nil {
		t.Fatalf("查询导师失败: %v", err)
	}
	if sup.CurrentLoad != sup.MaxCapacity {
		t.Errorf("期望负载=上限，实际 %d/%d", sup.CurrentLoad, sup.MaxCapacity)
	}
}

func TestRequest_DuplicatePendingRejected(t *testing.T) {
	f, cleanup := setupFixture(t, 5)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	if err := repo.Request.Create(ctx, newRequest(f)); err != nil {
		t.Fatalf("首次创建申请失败: %v", err)
	}
	err := repo.Request.Create(ctx, newRequest(f))
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("期望 gorm.ErrDuplicatedKey，实际: %v", err)
	}
}

func TestRequest_DecideOnlyOnce(t *testing.T) {
	f, cleanup := setupFixture(t, 5)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	req := newRequest(f)
	if err := repo.Request.Create(ctx, req); err != nil {
		t.Fatalf("创建申请失败: %v", err)
	}

	now := time.Now().UTC()
	ok, err := repo.Request.Decide(ctx, req.RequestID, model.RequestStatusDeclined, now, f.supervisor.UserID)
	if err != nil || !ok {
		t.Fatalf("首次处理失败: ok=%v err=%v", ok, err)
	}
	ok, err = repo.Request.Decide(ctx, req.RequestID, model.RequestStatusAccepted, now, f.supervisor.UserID)
	if err != nil {
		t.Fatalf("二次处理返回错误: %v", err)
	}
	if ok {
		t.Error("已处理的申请不应再次写入")
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Milestone Optimistic Lock
// ═══════════════════════════════════════════════════════════

func TestMilestone_Update_OptimisticLock(t *testing.T) {
	f, cleanup := setupFixture(t, 5)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	items := []model.Milestone{{
		ProjectID: f.project.ProjectID,
		Sequence:  1,
		Title:     "Literature Review",
		DueDate:   time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		Status:    model.MilestoneStatusPending,
	}}
	if err := repo.Milestone.BatchCreate(ctx, items); err != nil {
		t.Fatalf("创建里程碑失败: %v", err)
	}

	a, _ := repo.Milestone.GetByID(ctx, items[0].MilestoneID)
	b, _ := repo.Milestone.GetByID(ctx, items[0].MilestoneID)

	a.Status = model.MilestoneStatusInProgress
	if err := repo.Milestone.Update(ctx, a); err != nil {
		t.Fatalf("首次更新失败: %v", err)
	}

	b.Status = model.MilestoneStatusDelayed
	if err := repo.Milestone.Update(ctx, b); !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望 ErrOptimisticLock，实际: %v", err)
	}
}
