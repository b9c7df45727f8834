package repository

import (
	"context"

	"gorm.io/gorm"
)

// Transactor 在一个事务内执行 fn，fn 收到的 Repository 绑定在该事务上
type Transactor interface {
	Transaction(ctx context.Context, fn func(tx *Repository) error) error
}

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Facility     FacilityRepository
	Job          JobRepository
	WorkSlot     WorkSlotRepository
	Application  ApplicationRepository
	Attendance   AttendanceRepository
	Modification ModificationRequestRepository

	// Tx 为空时 Transaction 直接在当前 Repository 上执行
	Tx Transactor
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Facility:     NewFacilityRepo(db),
		Job:          NewJobRepo(db),
		WorkSlot:     NewWorkSlotRepo(db),
		Application:  NewApplicationRepo(db),
		Attendance:   NewAttendanceRepo(db),
		Modification: NewModificationRequestRepo(db),
		Tx:           gormTransactor{db: db},
	}
}

// Transaction 在事务中执行 fn；fn 返回错误时整体回滚
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	if r.Tx == nil {
		return fn(r)
	}
	return r.Tx.Transaction(ctx, fn)
}

type gormTransactor struct {
	db *gorm.DB
}

func (t gormTransactor) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

// Page 分页参数
type Page struct {
	Offset int
	Limit  int
}

func (p Page) apply(db *gorm.DB) *gorm.DB {
	if p.Limit > 0 {
		db = db.Limit(p.Limit)
	}
	if p.Offset > 0 {
		db = db.Offset(p.Offset)
	}
	return db
}
