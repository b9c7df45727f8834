package database

import (
	"io/fs"
	"strings"
	"testing"
)

func TestMigrationVersions(t *testing.T) {
	versions, err := MigrationVersions()
	if err != nil {
		t.Fatalf("读取迁移版本失败: %v", err)
	}
	if len(versions) == 0 || versions[0] != 1 {
		t.Fatalf("期望从版本 1 开始，实际 %v", versions)
	}
	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Errorf("版本应严格递增，实际 %v", versions)
		}
	}
}

func TestMigrationFiles_Paired(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("读取迁移目录失败: %v", err)
	}
	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		default:
			t.Errorf("迁移目录中存在无法识别的文件 %s", e.Name())
		}
	}
	versions, _ := MigrationVersions()
	if ups != len(versions) || downs != len(versions) {
		t.Errorf("期望 up/down 各 %d 个，实际 up=%d down=%d", len(versions), ups, downs)
	}
}
