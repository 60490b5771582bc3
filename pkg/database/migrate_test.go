package database

import (
	"io/fs"
	"strings"
	"testing"
)

func TestMigrationsFS_PairedUpDown(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("读取迁移目录失败: %v", err)
	}

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("迁移目录中存在非法文件: %s", name)
		}
	}

	if len(ups) == 0 {
		t.Fatal("没有任何迁移文件")
	}
	for v := range ups {
		if !downs[v] {
			t.Errorf("迁移 %s 缺少 down 文件", v)
		}
	}
	for v := range downs {
		if !ups[v] {
			t.Errorf("迁移 %s 缺少 up 文件", v)
		}
	}
}

func TestMigrationsFS_InitSchemaTables(t *testing.T) {
	data, err := fs.ReadFile(migrationsFS, "migrations/000001_init_schema.up.sql")
	if err != nil {
		t.Fatalf("读取初始迁移失败: %v", err)
	}
	sql := string(data)

	for _, table := range []string{
		"users", "student_profiles", "supervisor_profiles", "admin_profiles",
		"projects", "milestones", "supervision_requests", "activity_logs",
	} {
		if !strings.Contains(sql, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("初始迁移缺少表 %s", table)
		}
	}
	if !strings.Contains(sql, "current_load <= max_capacity") {
		t.Error("初始迁移缺少名额 CHECK 约束")
	}
}
