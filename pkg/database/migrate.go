package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationsTable 排班服务的迁移版本表
const MigrationsTable = "shift_schema_migrations"

// ErrDirtySchema 上次迁移中断，需人工 force 后才能启动
var ErrDirtySchema = errors.New("数据库迁移处于 dirty 状态")

// MigrationVersions 返回内嵌迁移脚本的版本号（升序），并校验每个版本都有 up/down 两个方向
func MigrationVersions() ([]uint, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("加载迁移文件失败: %w", err)
	}
	defer src.Close()

	v, err := src.First()
	if err != nil {
		return nil, fmt.Errorf("读取首个迁移版本失败: %w", err)
	}
	var versions []uint
	for {
		if err := checkPaired(src, v); err != nil {
			return nil, err
		}
		versions = append(versions, v)

		next, err := src.Next(v)
		if errors.Is(err, fs.ErrNotExist) {
			return versions, nil
		}
		if err != nil {
			return nil, fmt.Errorf("读取迁移版本 %d 之后的版本失败: %w", v, err)
		}
		v = next
	}
}

func checkPaired(src source.Driver, version uint) error {
	up, _, err := src.ReadUp(version)
	if err != nil {
		return fmt.Errorf("迁移版本 %d 缺少 up 脚本: %w", version, err)
	}
	up.Close()
	down, _, err := src.ReadDown(version)
	if err != nil {
		return fmt.Errorf("迁移版本 %d 缺少 down 脚本: %w", version, err)
	}
	down.Close()
	return nil
}

// RunMigrations 执行数据库迁移
// dirty 状态直接返回 ErrDirtySchema，不在半完成的表结构上继续执行
func RunMigrations(db *sql.DB, logger *zap.Logger) error {
	if _, err := MigrationVersions(); err != nil {
		return err
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("加载迁移文件失败: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: MigrationsTable})
	if err != nil {
		return fmt.Errorf("创建迁移驱动失败: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("初始化迁移实例失败: %w", err)
	}

	from, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("读取迁移版本失败: %w", err)
	}
	if dirty {
		return fmt.Errorf("%w: version=%d", ErrDirtySchema, from)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("执行迁移失败: %w", err)
	}

	to, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("读取迁移版本失败: %w", err)
	}
	if to == from {
		logger.Info("数据库表结构已是最新", zap.Uint("version", to))
	} else {
		logger.Info("数据库迁移完成", zap.Uint("from", from), zap.Uint("to", to))
	}
	return nil
}
